package services

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keyValuePattern = regexp.MustCompile(`^MPH(-[A-Z0-9]{5}){4}$`)

func TestGenerateKeyValueFormat(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		value, err := generateKeyValue()
		require.NoError(t, err)
		assert.Regexp(t, keyValuePattern, value)
		assert.False(t, seen[value], "duplicate key value generated: %s", value)
		seen[value] = true
	}
}
