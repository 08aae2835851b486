package view

import (
	"fmt"
	"strings"
)

// Theme is purely local; it is never sent to the backend.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

func (t Theme) Toggle() Theme {
	if t == ThemeLight {
		return ThemeDark
	}
	return ThemeLight
}

func ParseTheme(s string) (Theme, error) {
	switch Theme(strings.ToLower(strings.TrimSpace(s))) {
	case ThemeLight:
		return ThemeLight, nil
	case ThemeDark, "":
		return ThemeDark, nil
	}
	return "", fmt.Errorf("unknown theme %q (want light or dark)", s)
}
