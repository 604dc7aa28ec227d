package services

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"ev-ad-insights/config"
)

// fold applies NFKC normalization and Unicode case folding. It builds a new
// caser per call since a cases.Caser must not be shared across goroutines.
func fold(s string) string {
	return cases.Fold().String(norm.NFKC.String(s))
}

// foldKey folds s and collapses its whitespace, giving the comparison key
// for names and snippets.
func foldKey(s string) string {
	return normaliseText(fold(s))
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}

// nameResolver maps every configured name and alias, case-folded, to its
// canonical name.
type nameResolver struct {
	canonical map[string]string
}

func newNameResolver(entries []config.NamedEntry) *nameResolver {
	r := &nameResolver{canonical: make(map[string]string)}
	for _, e := range entries {
		name := normaliseText(e.Name)
		r.canonical[foldKey(name)] = name
		for _, alias := range e.Aliases {
			if k := foldKey(alias); k != "" {
				if _, taken := r.canonical[k]; !taken {
					r.canonical[k] = name
				}
			}
		}
	}
	return r
}

// resolve returns the canonical name for s and whether s was a known variant.
func (r *nameResolver) resolve(s string) (string, bool) {
	name, ok := r.canonical[foldKey(s)]
	return name, ok
}

// pick chooses from a possibly list-valued cell: the first item that is a
// known variant wins, otherwise the first non-empty item is returned as is.
func (r *nameResolver) pick(cell string) string {
	items := splitListCell(cell)
	for _, item := range items {
		if name, ok := r.resolve(item); ok {
			return name
		}
	}
	if len(items) > 0 {
		return items[0]
	}
	return ""
}

// splitListCell splits values such as "['PT', 'ES']" or "Portugal; Spain".
func splitListCell(cell string) []string {
	cell = strings.Trim(strings.TrimSpace(cell), "[](){}")
	parts := strings.FieldsFunc(cell, func(r rune) bool {
		return r == ',' || r == ';' || r == '|'
	})

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = normaliseText(strings.Trim(strings.TrimSpace(p), `"'`))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
