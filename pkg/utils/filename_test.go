package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeSegment(t *testing.T) {
	tests := map[string]string{
		"acme":            "acme",
		"../etc/passwd":   "_etc_passwd",
		"  paie:12.csv  ": "paie_12.csv",
		"..":              "_",
		"":                "_",
		"a|b<c>d":         "a_b_c_d",
	}

	for in, want := range tests {
		assert.Equal(t, want, SanitizeSegment(in), in)
	}
}
