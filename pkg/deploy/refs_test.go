package deploy

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRefUpdates(t *testing.T) {
	input := "0000000000000000000000000000000000000000 1111111111111111111111111111111111111111 refs/heads/master\n" +
		"\n" +
		"aaaa bbbb refs/heads/feature\n"

	updates, err := ParseRefUpdates(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, updates, 2)
	assert.Equal(t, RefUpdate{
		Old: "0000000000000000000000000000000000000000",
		New: "1111111111111111111111111111111111111111",
		Ref: "refs/heads/master",
	}, updates[0])
	assert.Equal(t, "refs/heads/feature", updates[1].Ref)
}

func TestParseRefUpdates_SkipsShortLines(t *testing.T) {
	updates, err := ParseRefUpdates(strings.NewReader("only-two fields\naaaa bbbb refs/heads/master\ngarbage\n"))
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, RefUpdate{Old: "aaaa", New: "bbbb", Ref: "refs/heads/master"}, updates[0])

	commit, ok := SelectCommit(updates, "refs/heads/master")
	assert.True(t, ok)
	assert.Equal(t, "bbbb", commit)
}

func TestParseRefUpdates_Empty(t *testing.T) {
	updates, err := ParseRefUpdates(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, updates)
}

func TestSelectCommit(t *testing.T) {
	updates := []RefUpdate{
		{Old: "a", New: "b", Ref: "refs/heads/master"},
		{Old: "c", New: "d", Ref: "refs/heads/dev"},
		{Old: "b", New: "e", Ref: "refs/heads/master"},
	}

	commit, ok := SelectCommit(updates, "refs/heads/master")
	assert.True(t, ok)
	assert.Equal(t, "e", commit)

	commit, ok = SelectCommit(updates, "refs/heads/dev")
	assert.True(t, ok)
	assert.Equal(t, "d", commit)

	_, ok = SelectCommit(updates, "refs/heads/main")
	assert.False(t, ok)

	_, ok = SelectCommit(nil, "refs/heads/master")
	assert.False(t, ok)
}

func TestRefUpdate_IsDeletion(t *testing.T) {
	assert.True(t, RefUpdate{New: "0000000000000000000000000000000000000000"}.IsDeletion())
	assert.False(t, RefUpdate{New: "1234"}.IsDeletion())
}

func TestIsNullCommit(t *testing.T) {
	assert.True(t, IsNullCommit("0000000"))
	assert.False(t, IsNullCommit("a000000"))
}
