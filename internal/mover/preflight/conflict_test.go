package preflight

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakePrompter struct{ answer bool }

func (f fakePrompter) Confirm(string) bool { return f.answer }

func TestMakePrefixedName(t *testing.T) {
	assert.Equal(t, "moved-my-pool", MakePrefixedName("moved", "my-pool"))
}

func TestResolveConflict_Skip(t *testing.T) {
	name, ok := ResolveConflict("Origin Pool", "my-pool", "moved", ConflictSkip, nil)
	assert.False(t, ok)
	assert.Empty(t, name)
}

func TestResolveConflict_Prefix(t *testing.T) {
	name, ok := ResolveConflict("Origin Pool", "my-pool", "moved", ConflictPrefix, nil)
	assert.True(t, ok)
	assert.Equal(t, "moved-my-pool", name)
}

func TestResolveConflict_AskAccepts(t *testing.T) {
	name, ok := ResolveConflict("Origin Pool", "my-pool", "moved", ConflictAsk, fakePrompter{answer: true})
	assert.True(t, ok)
	assert.Equal(t, "moved-my-pool", name)
}

func TestResolveConflict_AskDeclines(t *testing.T) {
	name, ok := ResolveConflict("Origin Pool", "my-pool", "moved", ConflictAsk, fakePrompter{answer: false})
	assert.False(t, ok)
	assert.Empty(t, name)
}

func TestResolveConflict_AskWithNoPrompterSkips(t *testing.T) {
	name, ok := ResolveConflict("Origin Pool", "my-pool", "moved", ConflictAsk, nil)
	assert.False(t, ok)
	assert.Empty(t, name)
}
