package tui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableRenderAligns(t *testing.T) {
	out := Table{
		Headers: []string{"PROJECT", "STATUS"},
		Rows: [][]string{
			{"app", "success"},
			{"shared-ui", "failure"},
		},
	}.Render()

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Len(t, lines, 3)
	col := strings.Index(lines[1], "success")
	assert.Equal(t, col, strings.Index(lines[2], "failure"))
	assert.Equal(t, "  shared-ui  failure", lines[2])
}

func TestTableRenderEmpty(t *testing.T) {
	assert.Empty(t, Table{}.Render())
}

func TestStatusIcon(t *testing.T) {
	assert.Equal(t, IconSuccess, StatusIcon("success"))
	assert.Equal(t, IconError, StatusIcon("failure"))
	assert.Equal(t, IconWarning, StatusIcon("unfinished"))
	assert.Equal(t, IconPending, StatusIcon("pending"))
}
