package stub

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"newsdays/internal/model"
	"newsdays/internal/util"

	_ "modernc.org/sqlite"
)

// ErrDayNotFound is returned for an unknown day id.
var ErrDayNotFound = errors.New("day not found")

// InboxItem is a newsletter waiting to be ingested. MessageID deduplicates
// deliveries; an empty one gets a fresh id.
type InboxItem struct {
	MessageID  string    `json:"message_id"`
	Subject    string    `json:"subject"`
	Author     string    `json:"author"`
	Body       string    `json:"body"`
	ReceivedAt time.Time `json:"received_at"`
}

// SQLiteStore keeps the stub backend's days, newsletters and inbox.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at the given path and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer; ingest and summarize run in transactions.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS days (
	id      TEXT PRIMARY KEY,
	date    TEXT NOT NULL UNIQUE,
	summary TEXT
);

CREATE TABLE IF NOT EXISTS newsletters (
	id          TEXT PRIMARY KEY,
	message_id  TEXT NOT NULL UNIQUE,
	day_id      TEXT NOT NULL REFERENCES days(id),
	subject     TEXT NOT NULL DEFAULT '',
	author      TEXT NOT NULL DEFAULT '',
	body        TEXT NOT NULL DEFAULT '',
	received_at TEXT NOT NULL,
	summary     TEXT
);

CREATE INDEX IF NOT EXISTS newsletters_day ON newsletters(day_id, received_at);

CREATE TABLE IF NOT EXISTS inbox (
	message_id  TEXT PRIMARY KEY,
	subject     TEXT NOT NULL DEFAULT '',
	author      TEXT NOT NULL DEFAULT '',
	body        TEXT NOT NULL DEFAULT '',
	received_at TEXT NOT NULL
);
`
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Enqueue adds items to the inbox. Already queued message ids are ignored.
func (s *SQLiteStore) Enqueue(ctx context.Context, items []InboxItem) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO inbox (message_id, subject, author, body, received_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(message_id) DO NOTHING
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, it := range items {
		if it.ReceivedAt.IsZero() {
			return fmt.Errorf("inbox item %q has no received_at", it.Subject)
		}
		id := it.MessageID
		if id == "" {
			id = uuid.NewString()
		}
		if _, err := stmt.ExecContext(ctx, id, it.Subject, it.Author, it.Body, formatTime(it.ReceivedAt)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Ingest files every queued inbox item under the day it was received on,
// creating days as needed, and empties the inbox. It returns how many
// newsletters were added.
func (s *SQLiteStore) Ingest(ctx context.Context) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		"SELECT message_id, subject, author, body, received_at FROM inbox ORDER BY received_at")
	if err != nil {
		return 0, err
	}
	var items []InboxItem
	for rows.Next() {
		var it InboxItem
		var received string
		if err := rows.Scan(&it.MessageID, &it.Subject, &it.Author, &it.Body, &received); err != nil {
			rows.Close()
			return 0, err
		}
		if it.ReceivedAt, err = util.ParseTimestamp(received); err != nil {
			rows.Close()
			return 0, fmt.Errorf("inbox %s: %w", it.MessageID, err)
		}
		items = append(items, it)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	added := 0
	for _, it := range items {
		dayID, err := ensureDay(ctx, tx, model.DateOf(it.ReceivedAt.UTC()))
		if err != nil {
			return 0, err
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO newsletters (id, message_id, day_id, subject, author, body, received_at, summary)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(message_id) DO NOTHING
		`, uuid.NewString(), it.MessageID, dayID, it.Subject, it.Author, it.Body,
			formatTime(it.ReceivedAt), newsletterSummary(it.Body))
		if err != nil {
			return 0, err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			added++
		}
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM inbox"); err != nil {
		return 0, err
	}
	return added, tx.Commit()
}

func ensureDay(ctx context.Context, tx *sql.Tx, date model.Date) (string, error) {
	var id string
	err := tx.QueryRowContext(ctx, "SELECT id FROM days WHERE date = ?", date.String()).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}
	id = uuid.NewString()
	if _, err := tx.ExecContext(ctx, "INSERT INTO days (id, date) VALUES (?, ?)", id, date.String()); err != nil {
		return "", err
	}
	return id, nil
}

// ListDays returns every day, newest first, each with its newsletters in arrival order.
func (s *SQLiteStore) ListDays(ctx context.Context) ([]*model.Day, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, date, summary FROM days ORDER BY date DESC")
	if err != nil {
		return nil, err
	}
	days := []*model.Day{}
	byID := make(map[model.ID]*model.Day)
	for rows.Next() {
		d, err := scanDay(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		days = append(days, d)
		byID[d.ID] = d
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	nrows, err := s.db.QueryContext(ctx, `
		SELECT day_id, id, subject, author, received_at, summary
		FROM newsletters ORDER BY received_at, id`)
	if err != nil {
		return nil, err
	}
	defer nrows.Close()
	for nrows.Next() {
		var dayID string
		n, err := scanNewsletter(nrows, &dayID)
		if err != nil {
			return nil, err
		}
		if d, ok := byID[model.ID(dayID)]; ok {
			d.Newsletters = append(d.Newsletters, n)
		}
	}
	return days, nrows.Err()
}

// GetDay returns one day with its newsletters, or ErrDayNotFound.
func (s *SQLiteStore) GetDay(ctx context.Context, id model.ID) (*model.Day, error) {
	return getDay(ctx, s.db, id)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func getDay(ctx context.Context, q querier, id model.ID) (*model.Day, error) {
	d, err := scanDay(q.QueryRowContext(ctx, "SELECT id, date, summary FROM days WHERE id = ?", string(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrDayNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	rows, err := q.QueryContext(ctx, `
		SELECT day_id, id, subject, author, received_at, summary
		FROM newsletters WHERE day_id = ? ORDER BY received_at, id`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var dayID string
		n, err := scanNewsletter(rows, &dayID)
		if err != nil {
			return nil, err
		}
		d.Newsletters = append(d.Newsletters, n)
	}
	return d, rows.Err()
}

// Summarize builds the day's digest from its newsletters and stores it. A day
// without newsletters is returned unchanged.
func (s *SQLiteStore) Summarize(ctx context.Context, id model.ID) (*model.Day, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	d, err := getDay(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if len(d.Newsletters) == 0 {
		return d, nil
	}
	digest := Digest(d)
	if _, err := tx.ExecContext(ctx, "UPDATE days SET summary = ? WHERE id = ?", digest, string(id)); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	d.Summary = model.NewSummary(digest)
	return d, nil
}

// CountDays is used by the stub command's startup log.
func (s *SQLiteStore) CountDays(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM days").Scan(&count)
	return count, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDay(row scanner) (*model.Day, error) {
	var id, date string
	var summary sql.NullString
	if err := row.Scan(&id, &date, &summary); err != nil {
		return nil, err
	}
	parsed, err := model.ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("day %s: %w", id, err)
	}
	return &model.Day{
		ID:          model.ID(id),
		Date:        parsed,
		Summary:     toSummary(summary),
		Newsletters: []model.Newsletter{},
	}, nil
}

func scanNewsletter(row scanner, dayID *string) (model.Newsletter, error) {
	var n model.Newsletter
	var id, received string
	var summary sql.NullString
	if err := row.Scan(dayID, &id, &n.Subject, &n.Author, &received, &summary); err != nil {
		return n, err
	}
	t, err := util.ParseTimestamp(received)
	if err != nil {
		return n, fmt.Errorf("newsletter %s: %w", id, err)
	}
	n.ID = model.ID(id)
	n.ReceivedAt = t
	n.Summary = toSummary(summary)
	return n, nil
}

func toSummary(s sql.NullString) model.Summary {
	if !s.Valid {
		return model.NoSummary
	}
	return model.NewSummary(s.String)
}

// timeLayout has fixed-width fractions so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// newsletterSummary is the first non-empty line of the body as text, or NULL.
func newsletterSummary(body string) sql.NullString {
	for _, line := range strings.Split(util.PlainText(body), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return sql.NullString{String: line, Valid: true}
		}
	}
	return sql.NullString{}
}

// Digest renders a markdown day summary: the topics as a list, then each
// newsletter's own summary where it has one.
func Digest(d *model.Day) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Key points for %s\n\n", d.Date)
	for _, n := range d.Newsletters {
		if author := util.DisplayAuthor(n.Author); author != "" {
			fmt.Fprintf(&b, "- %s (%s)\n", n.Subject, author)
		} else {
			fmt.Fprintf(&b, "- %s\n", n.Subject)
		}
	}
	wrote := false
	for _, n := range d.Newsletters {
		text, ok := n.Summary.Get()
		if !ok || text == "" {
			continue
		}
		if !wrote {
			b.WriteString("\n## Details\n\n")
			wrote = true
		}
		fmt.Fprintf(&b, "**%s**: %s\n\n", n.Subject, text)
	}
	return strings.TrimRight(b.String(), "\n")
}
