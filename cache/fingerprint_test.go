package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprintIsDeterministic(t *testing.T) {
	build := func() Fingerprint {
		return NewFingerprint("3-abc").
			With("op", "summary").
			WithSet("markets", []string{"Portugal", "Germany"}).
			WithInt("limit", 50).
			Build()
	}
	assert.Equal(t, build(), build())
	assert.Len(t, string(build()), 16)
}

func TestFingerprintSetsIgnoreOrderCaseAndDuplicates(t *testing.T) {
	a := NewFingerprint("v").WithSet("markets", []string{"Portugal", "Germany"}).Build()
	b := NewFingerprint("v").WithSet("markets", []string{"germany", " PORTUGAL ", "Germany"}).Build()
	assert.Equal(t, a, b)
}

func TestFingerprintDistinguishesInputs(t *testing.T) {
	base := NewFingerprint("v").With("op", "summary").Build()

	tests := map[string]Fingerprint{
		"dataset version": NewFingerprint("w").With("op", "summary").Build(),
		"operation":       NewFingerprint("v").With("op", "breakdown").Build(),
		"boundaries":      NewFingerprint("v").With("o", "psummary").Build(),
		"empty set":       NewFingerprint("v").With("op", "summary").WithSet("markets", nil).Build(),
	}
	for name, fp := range tests {
		assert.NotEqual(t, base, fp, name)
	}

	none := NewFingerprint("v").WithSet("markets", nil).Build()
	blank := NewFingerprint("v").WithSet("markets", []string{"", " "}).Build()
	assert.Equal(t, none, blank)
}
