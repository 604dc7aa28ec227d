package services

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"

	"ev-ad-insights/config"
	"ev-ad-insights/models"
)

// KeywordTable labels an ad's analysis text with tone or theme names. A
// keyword matches where a word starts, so "new" finds "newest" but not
// "renewable".
type KeywordTable struct {
	groups    []keywordGroup
	signature string
}

type keywordGroup struct {
	name     string
	keywords []string
}

// NewKeywordTable builds a table from catalog groups, keeping their order.
func NewKeywordTable(groups []config.KeywordGroup) *KeywordTable {
	t := &KeywordTable{}
	d := xxhash.New()
	for _, g := range groups {
		kg := keywordGroup{name: strings.TrimSpace(g.Name)}
		_, _ = fmt.Fprintf(d, "%d:%s=", len(kg.name), kg.name)
		for _, kw := range g.Keywords {
			if k := foldKey(kw); k != "" {
				kg.keywords = append(kg.keywords, k)
				_, _ = fmt.Fprintf(d, "%d:%s,", len(k), k)
			}
		}
		t.groups = append(t.groups, kg)
	}
	t.signature = fmt.Sprintf("%016x", d.Sum64())
	return t
}

// Names returns the label names in table order.
func (t *KeywordTable) Names() []string {
	out := make([]string, 0, len(t.groups))
	for _, g := range t.groups {
		out = append(out, g.name)
	}
	return out
}

// Signature changes whenever a name or keyword changes.
func (t *KeywordTable) Signature() string { return t.signature }

// Labels returns every label whose keywords occur in text, in table order.
func (t *KeywordTable) Labels(text string) []string {
	key := foldKey(text)
	if key == "" {
		return nil
	}
	var out []string
	for _, g := range t.groups {
		for _, kw := range g.keywords {
			if startsWord(key, kw) {
				out = append(out, g.name)
				break
			}
		}
	}
	return out
}

// startsWord reports whether kw occurs in s at the start of a word.
func startsWord(s, kw string) bool {
	for from := 0; from < len(s); {
		i := strings.Index(s[from:], kw)
		if i < 0 {
			return false
		}
		i += from
		if boundaryBefore(s, i) {
			return true
		}
		from = i + 1
	}
	return false
}

// vehicleLabel is one (vehicle, label) hit counted by StyleMatrix.
type vehicleLabel struct {
	vehicle string
	label   string
}

// StyleMatrix counts, per vehicle, the records whose analysis text carries
// each label of table. Records with an unknown vehicle are skipped.
func StyleMatrix(records []*models.CanonicalRecord, table *KeywordTable) *models.Matrix {
	var hits []vehicleLabel
	for _, r := range records {
		v, ok := ByVehicle(r)
		if !ok {
			continue
		}
		for _, label := range table.Labels(r.AnalysisText) {
			hits = append(hits, vehicleLabel{vehicle: v, label: label})
		}
	}
	return CrossTab(hits,
		func(h vehicleLabel) (string, bool) { return h.vehicle, true },
		func(h vehicleLabel) (string, bool) { return h.label, true },
	)
}

// sectionExclusions drops mentions whose section header contains one of its
// terms.
type sectionExclusions []string

func newSectionExclusions(terms []string) sectionExclusions {
	var out sectionExclusions
	for _, t := range terms {
		if k := foldKey(t); k != "" {
			out = append(out, k)
		}
	}
	return out
}

func (s sectionExclusions) excludes(section string) bool {
	key := foldKey(section)
	for _, term := range s {
		if strings.Contains(key, term) {
			return true
		}
	}
	return false
}

// filter returns the mentions s does not exclude, in input order.
func (s sectionExclusions) filter(mentions []models.FeatureMention) []models.FeatureMention {
	if len(s) == 0 {
		return mentions
	}
	out := make([]models.FeatureMention, 0, len(mentions))
	for _, m := range mentions {
		if !s.excludes(m.Section) {
			out = append(out, m)
		}
	}
	return out
}
