package jobs

import (
	"fmt"
	"testing"

	"github.com/0xPuncker/cronwatch/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registryOf(n int) *Registry {
	reg := NewRegistry()
	for i := 1; i <= n; i++ {
		reg.Append(NewRecord(fmt.Sprintf("https://site%d.example", i), fmt.Sprintf("Site %d", i)))
	}
	return reg
}

func TestResolveIndex(t *testing.T) {
	reg := registryOf(3)

	tests := []struct {
		name     string
		index    string
		expected int
		kind     types.Kind
	}{
		{name: "first", index: "1", expected: 0},
		{name: "last", index: "3", expected: 2},
		{name: "surrounding spaces", index: " 2 ", expected: 1},
		{name: "zero", index: "0", kind: types.NotFound},
		{name: "past end", index: "4", kind: types.NotFound},
		{name: "negative", index: "-1", kind: types.NotFound},
		{name: "not a number", index: "abc", kind: types.InvalidInput},
		{name: "empty", index: "", kind: types.InvalidInput},
		{name: "decimal", index: "1.5", kind: types.InvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			offset, err := ResolveIndex(tt.index, reg)
			if tt.kind != "" {
				require.Error(t, err)
				assert.Equal(t, tt.kind, types.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, offset)
		})
	}
}

func TestResolveIndexEmptyRegistry(t *testing.T) {
	_, err := ResolveIndex("1", NewRegistry())
	assert.True(t, types.IsKind(err, types.NotFound))
}

func TestRegistryRemoveShiftsLaterIndices(t *testing.T) {
	reg := registryOf(5)
	before := make([]string, reg.Len())
	for i, rec := range reg.Records() {
		before[i] = rec.URL
	}

	removed := reg.Remove(1)
	assert.Equal(t, before[1], removed.URL)
	require.Equal(t, 4, reg.Len())

	assert.Equal(t, before[0], reg.At(0).URL)
	for oldOffset := 2; oldOffset < len(before); oldOffset++ {
		assert.Equal(t, before[oldOffset], reg.At(oldOffset-1).URL)
	}

	_, err := ResolveIndex("5", reg)
	assert.True(t, types.IsKind(err, types.NotFound))
}

func TestRegistryAppendAndContains(t *testing.T) {
	reg := NewRegistry()

	assert.Equal(t, 1, reg.Append(NewRecord("https://a.example", "")))
	assert.Equal(t, 2, reg.Append(NewRecord("https://b.example", "")))
	assert.True(t, reg.ContainsURL("https://b.example"))
	assert.False(t, reg.ContainsURL("https://c.example"))
}
