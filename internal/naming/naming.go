// Package naming derives the physical collection names a model may be
// stored under.
package naming

import (
	"strings"

	"github.com/iancoleman/strcase"
	"github.com/jinzhu/inflection"

	"github.com/starford/schemafill/internal/models"
)

// Candidates returns the ordered, de-duplicated list of collection names to
// probe for m: the explicit override, then the lowercased, plural,
// plural-lowercased, kebab and plural-kebab forms of the model name.
func Candidates(m *models.Model) []string {
	if m == nil {
		return nil
	}
	return candidates(m.Name, m.MapName)
}

func candidates(name, override string) []string {
	kebab := Kebab(name)
	raw := []string{
		override,
		strings.ToLower(name),
		Plural(name),
		strings.ToLower(Plural(name)),
		kebab,
		Plural(kebab),
	}

	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, c := range raw {
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// Plural returns the English plural of name, keeping its casing.
func Plural(name string) string {
	if name == "" {
		return ""
	}
	return inflection.Plural(name)
}

// Kebab returns the hyphen-separated lowercase form of name.
func Kebab(name string) string {
	return strcase.ToKebab(name)
}
