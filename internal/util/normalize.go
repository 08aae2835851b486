package util

import (
	"net/mail"
	"strings"
)

// DisplayAuthor turns a newsletter author into something short enough for a list row.
// - "Name <user@example.com>" -> "Name"
// - "<User+news@Example.COM>" or a bare address -> "user@example.com" (lowercased, +alias stripped)
// - anything unparsable is returned trimmed, as the server sent it
func DisplayAuthor(author string) string {
	author = strings.TrimSpace(author)
	if author == "" {
		return ""
	}
	addr, err := mail.ParseAddress(author)
	if err != nil || addr == nil {
		// Some authors arrive as a list; use the first one that parses.
		for _, p := range strings.Split(author, ",") {
			a, e := mail.ParseAddress(strings.TrimSpace(p))
			if e == nil && a != nil {
				addr = a
				break
			}
		}
		if addr == nil {
			return author
		}
	}
	if name := strings.Trim(strings.TrimSpace(addr.Name), `"'`); name != "" {
		return name
	}
	return normalizeAddress(addr.Address)
}

func normalizeAddress(address string) string {
	email := strings.ToLower(strings.TrimSpace(address))
	at := strings.LastIndexByte(email, '@')
	if at <= 0 {
		return email
	}
	local := email[:at]
	domain := email[at+1:]
	if plus := strings.IndexByte(local, '+'); plus > -1 {
		local = local[:plus]
	}
	// Dots in the local part are kept; only some providers ignore them.
	return local + "@" + domain
}
