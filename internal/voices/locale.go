package voices

import (
	"fmt"
	"strings"
)

// Locale identifies a voice by language, country and variant.
// Components are opaque and compared verbatim; there is no normalization
// and no fallback from "en-US" to "en".
type Locale struct {
	Language string `json:"language" yaml:"language"`
	Country  string `json:"country" yaml:"country"`
	Variant  string `json:"variant,omitempty" yaml:"variant"`
}

// NewLocale creates a locale from its three components
func NewLocale(language, country, variant string) Locale {
	return Locale{Language: language, Country: country, Variant: variant}
}

// Matches reports whether all three components are equal to the given ones
func (l Locale) Matches(language, country, variant string) bool {
	return l.Language == language && l.Country == country && l.Variant == variant
}

// String renders the locale as language[-country[-variant]].
// Empty trailing components are omitted; an empty country in front of a
// variant is kept so the result parses back to the same locale.
func (l Locale) String() string {
	s := l.Language
	if l.Country != "" || l.Variant != "" {
		s += "-" + l.Country
	}
	if l.Variant != "" {
		s += "-" + l.Variant
	}
	return s
}

// ParseLocale parses "en", "en-US", "en_US" or "en-US-x".
// Anything after the second separator belongs to the variant.
func ParseLocale(s string) (Locale, error) {
	if strings.TrimSpace(s) == "" {
		return Locale{}, fmt.Errorf("empty locale")
	}

	parts := strings.SplitN(strings.ReplaceAll(s, "_", "-"), "-", 3)
	if parts[0] == "" {
		return Locale{}, fmt.Errorf("locale %q has no language", s)
	}

	var l Locale
	l.Language = parts[0]
	if len(parts) > 1 {
		l.Country = parts[1]
	}
	if len(parts) > 2 {
		l.Variant = parts[2]
	}
	return l, nil
}
