package utils

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTimeOrderedID(t *testing.T) {
	first := NewTimeOrderedID()
	second := NewTimeOrderedID()

	parsed, err := uuid.Parse(first)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
	assert.NotEqual(t, first, second)
	assert.Less(t, first, second)
}

func TestRecordIDs_Generate(t *testing.T) {
	ids := RecordIDs{}
	seen := make(map[string]struct{}, 100)

	for range 100 {
		id := ids.Generate()
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}
