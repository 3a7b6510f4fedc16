package style

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStrip(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"[success]done[/success]", "done"},
		{"deployed [commit]abc[/commit] to [path]/srv/app[/path]", "deployed abc to /srv/app"},
		{"[bold][service]a.service[/service][/bold]", "a.service"},
		{"no markup", "no markup"},
		{"[unknown]kept[/unknown]", "[unknown]kept[/unknown]"},
		{"[muted]line one\nline two[/muted]", "line one\nline two"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Strip(tt.in), tt.in)
	}
}

func TestRender_RemovesTags(t *testing.T) {
	out := Render("[service]a.service[/service]")
	assert.Contains(t, out, "a.service")
	assert.NotContains(t, out, "[service]")
}

func TestRenderTemplate(t *testing.T) {
	p := NewMarkupParser(true)
	got := p.RenderTemplate("[step]{{step}}[/step] {{commit}}", map[string]string{"step": "swap", "commit": "abc"})
	assert.Equal(t, "swap abc", got)
}

func TestBadge(t *testing.T) {
	assert.Equal(t, "[FAILED]", Badge(StatusError, false))
	assert.Equal(t, "[SUCCEEDED]", Badge(StatusSuccess, false))
	assert.Contains(t, Badge(StatusRunning, true), "RUNNING")
}

func TestStatusMark(t *testing.T) {
	assert.Equal(t, SuccessMark, StatusMark(StatusSuccess))
	assert.Equal(t, ErrorMark, StatusMark(StatusError))
	assert.Equal(t, InfoMark, StatusMark(StatusSkipped))
}

func TestShortCommit(t *testing.T) {
	assert.Equal(t, "0123456789ab", ShortCommit("0123456789abcdef0123456789abcdef01234567"))
	assert.Equal(t, "abc", ShortCommit("abc"))
}
