package util

import "testing"

func TestPlainText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "  Stocks up.\n", "Stocks up."},
		{"paragraphs", "<p>Stocks up.</p><p>Bonds &amp; gold flat.</p>", "Stocks up.\nBonds & gold flat."},
		{"breaks", "one<BR/>two<br>three", "one\ntwo\nthree"},
		{"entities", "<div>&quot;AI&quot;&nbsp;news</div>", `"AI" news`},
		{"blank runs", "<p>a</p>\n\n\n\n<p>b</p>", "a\n\nb"},
		{"a lone angle bracket", "3 < 4", "3 < 4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PlainText(tt.in); got != tt.want {
				t.Errorf("PlainText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
