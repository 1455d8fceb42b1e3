// Package i18n holds the translation table for user-facing text.
package i18n

import (
	_ "embed"
	"fmt"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// DefaultLocale is used when nothing better matches.
const DefaultLocale = "en"

//go:embed messages.yaml
var messagesYAML []byte

var supported = []string{"en", "ko", "ja", "zh"}

// Translator maps message keys to localized strings. It is immutable once built
// and safe for concurrent use.
type Translator struct {
	tables  map[string]map[string]string
	matcher language.Matcher
}

// New loads the embedded table.
func New() (*Translator, error) {
	return Parse(messagesYAML)
}

// MustNew is New for package-level initialization.
func MustNew() *Translator {
	t, err := New()
	if err != nil {
		panic(err)
	}
	return t
}

// Parse builds a translator from a YAML document of locale -> key -> text.
func Parse(data []byte) (*Translator, error) {
	var tables map[string]map[string]string
	if err := yaml.Unmarshal(data, &tables); err != nil {
		return nil, fmt.Errorf("parse translations: %w", err)
	}
	if _, ok := tables[DefaultLocale]; !ok {
		return nil, fmt.Errorf("translations have no %q table", DefaultLocale)
	}

	tags := make([]language.Tag, len(supported))
	for i, code := range supported {
		tags[i] = language.Make(code)
	}
	return &Translator{tables: tables, matcher: language.NewMatcher(tags)}, nil
}

// Locales lists the supported locale codes, default first.
func (t *Translator) Locales() []string {
	out := make([]string, len(supported))
	copy(out, supported)
	return out
}

// Supported reports whether code is an exact supported locale code.
func (t *Translator) Supported(code string) bool {
	for _, s := range supported {
		if s == code {
			return true
		}
	}
	return false
}

// Match picks the best supported locale for an Accept-Language value or a
// single tag such as "ko-KR".
func (t *Translator) Match(accept string) string {
	tags, _, err := language.ParseAcceptLanguage(accept)
	if err != nil || len(tags) == 0 {
		return DefaultLocale
	}
	_, idx, conf := t.matcher.Match(tags...)
	if conf == language.No {
		return DefaultLocale
	}
	return supported[idx]
}

// T returns the text for key in locale, falling back to the default locale and
// then to the key itself.
func (t *Translator) T(locale, key string) string {
	if msg, ok := t.tables[locale][key]; ok {
		return msg
	}
	if msg, ok := t.tables[DefaultLocale][key]; ok {
		return msg
	}
	return key
}
