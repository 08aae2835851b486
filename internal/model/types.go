package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"newsdays/internal/util"
)

// ID is an opaque identifier. The backend may send it as a JSON number or string;
// it is always kept as its decimal/string form.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return fmt.Errorf("id must not be null")
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON writes numeric ids back as numbers so round trips keep the server's shape.
func (id ID) MarshalJSON() ([]byte, error) {
	// Only canonical integers go out bare; "007" or "+5" are not JSON numbers.
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// Summary is an optional text. The zero value means "not yet generated",
// which is distinct from a generated-but-empty summary.
type Summary struct {
	text  string
	valid bool
}

func NewSummary(text string) Summary { return Summary{text: text, valid: true} }

// NoSummary is the "not yet generated" value.
var NoSummary = Summary{}

func (s Summary) Get() (string, bool) { return s.text, s.valid }
func (s Summary) Generated() bool     { return s.valid }

// Text returns the summary or "" when absent. Use Get when the distinction matters.
func (s Summary) Text() string { return s.text }

func (s Summary) String() string {
	if !s.valid {
		return "<not generated>"
	}
	return s.text
}

func (s Summary) MarshalJSON() ([]byte, error) {
	if !s.valid {
		return []byte("null"), nil
	}
	return json.Marshal(s.text)
}

func (s *Summary) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*s = NoSummary
		return nil
	}
	var text string
	if err := json.Unmarshal(b, &text); err != nil {
		return fmt.Errorf("summary: %w", err)
	}
	*s = NewSummary(text)
	return nil
}

// Date is a calendar day. The time is always midnight UTC.
type Date struct {
	t time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// ParseDate accepts a bare date or any timestamp util.ParseTimestamp understands.
func ParseDate(s string) (Date, error) {
	t, err := util.ParseTimestamp(s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

func (d Date) Time() time.Time    { return d.t }
func (d Date) IsZero() bool       { return d.t.IsZero() }
func (d Date) String() string     { return d.t.Format(time.DateOnly) }
func (d Date) Before(o Date) bool { return d.t.Before(o.t) }

func (d Date) MarshalJSON() ([]byte, error) { return json.Marshal(d.String()) }

// UnmarshalJSON leaves d untouched for null, so an absent date stays zero.
func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date: %w", err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Newsletter is a single ingested message. It belongs to exactly one Day.
type Newsletter struct {
	ID         ID        `json:"id"`
	Subject    string    `json:"subject"`
	Author     string    `json:"author"`
	ReceivedAt time.Time `json:"-"`
	Summary    Summary   `json:"summary"`
}

type newsletterWire struct {
	ID         ID      `json:"id"`
	Subject    string  `json:"subject"`
	Author     string  `json:"author"`
	ReceivedAt string  `json:"receivedAt"`
	Summary    Summary `json:"summary"`
	// Legacy key of the original backend, read only when receivedAt is absent.
	LegacyReceivedAt string `json:"received_at,omitempty"`
}

func (n Newsletter) MarshalJSON() ([]byte, error) {
	return json.Marshal(newsletterWire{
		ID:         n.ID,
		Subject:    n.Subject,
		Author:     n.Author,
		ReceivedAt: n.ReceivedAt.Format(time.RFC3339),
		Summary:    n.Summary,
	})
}

func (n *Newsletter) UnmarshalJSON(b []byte) error {
	var w newsletterWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	raw := w.ReceivedAt
	if raw == "" {
		raw = w.LegacyReceivedAt
	}
	received, err := util.ParseTimestamp(raw)
	if err != nil {
		return fmt.Errorf("newsletter %s receivedAt: %w", w.ID, err)
	}
	*n = Newsletter{
		ID:         w.ID,
		Subject:    w.Subject,
		Author:     w.Author,
		ReceivedAt: received,
		Summary:    w.Summary,
	}
	return nil
}

// Day bundles the newsletters received on one date plus a day-level summary.
// Newsletters keep the server-provided order.
type Day struct {
	ID          ID           `json:"id"`
	Date        Date         `json:"date"`
	Summary     Summary      `json:"summary"`
	Newsletters []Newsletter `json:"newsletters"`
}

// UnmarshalJSON also accepts the legacy "fecha" key when "date" is absent.
func (d *Day) UnmarshalJSON(b []byte) error {
	type plain Day
	var w struct {
		plain
		Fecha *Date `json:"fecha"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	if w.Date.IsZero() && w.Fecha != nil {
		w.Date = *w.Fecha
	}
	if w.Date.IsZero() {
		return fmt.Errorf("day %s has no date", w.ID)
	}
	*d = Day(w.plain)
	return nil
}

// WithSummary returns a shallow copy of d carrying s. The newsletter slice is shared.
func (d *Day) WithSummary(s Summary) *Day {
	cp := *d
	cp.Summary = s
	return &cp
}

// ArrivalTimes returns the received timestamps of the day's newsletters in server order.
func (d *Day) ArrivalTimes() []time.Time {
	out := make([]time.Time, len(d.Newsletters))
	for i, n := range d.Newsletters {
		out[i] = n.ReceivedAt
	}
	return out
}
