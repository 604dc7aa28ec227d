package cache

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/text/cases"
)

// Fingerprint identifies a dataset-plus-parameters combination.
type Fingerprint string

// FingerprintBuilder accumulates the parts of a Fingerprint. Parts are
// length-prefixed so adjacent values cannot run together.
type FingerprintBuilder struct {
	d *xxhash.Digest
}

// NewFingerprint starts a fingerprint for the dataset content version.
func NewFingerprint(datasetVersion string) *FingerprintBuilder {
	b := &FingerprintBuilder{d: xxhash.New()}
	return b.With("dataset", datasetVersion)
}

// With adds a named scalar parameter.
func (b *FingerprintBuilder) With(name, value string) *FingerprintBuilder {
	b.write(name)
	b.write(value)
	return b
}

// WithInt adds a named integer parameter.
func (b *FingerprintBuilder) WithInt(name string, value int) *FingerprintBuilder {
	return b.With(name, strconv.Itoa(value))
}

// WithSet adds a named set of values. Values are case-folded, trimmed,
// deduplicated and sorted, so order and case do not change the result.
func (b *FingerprintBuilder) WithSet(name string, values []string) *FingerprintBuilder {
	folder := cases.Fold()
	uniq := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(folder.String(v))
		if v != "" {
			uniq[v] = struct{}{}
		}
	}
	sorted := make([]string, 0, len(uniq))
	for v := range uniq {
		sorted = append(sorted, v)
	}
	sort.Strings(sorted)

	b.write(name)
	b.write(strconv.Itoa(len(sorted)))
	for _, v := range sorted {
		b.write(v)
	}
	return b
}

// Build returns the fingerprint.
func (b *FingerprintBuilder) Build() Fingerprint {
	return Fingerprint(fmt.Sprintf("%016x", b.d.Sum64()))
}

func (b *FingerprintBuilder) write(s string) {
	_, _ = fmt.Fprintf(b.d, "%d:%s;", len(s), s)
}
