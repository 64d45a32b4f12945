package lsp

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remarklabs/remark/internal/core/review"
)

func TestHoverText(t *testing.T) {
	file := locatedComment{file: true, c: review.Comment{Body: "needs a refactor\n"}}
	assert.Equal(t, "**File comment**\n\nneeds a refactor", hoverText(file))

	line := locatedComment{
		key: review.LineKey{Side: review.SideNew, Line: 12},
		c:   review.Comment{Body: "off by one", Resolved: true},
	}
	assert.Equal(t, "**Review comment** (line 12)\n\noff by one\n\n_Resolved._", hoverText(line))

	old := locatedComment{
		key: review.LineKey{Side: review.SideOld, Line: 3},
		c:   review.Comment{Body: "why removed?"},
	}
	assert.Equal(t, "**Review comment** (old line 3)\n\nwhy removed?", hoverText(old))
}

func TestMarshalArgs(t *testing.T) {
	raw := marshalArgs(commandArgs{URI: "file:///r/a.go", Line: 4, Side: "new"})
	require.Len(t, raw, 1)

	var got commandArgs
	require.NoError(t, json.Unmarshal(raw[0], &got))
	assert.Equal(t, "file:///r/a.go", got.URI)
	assert.Equal(t, 4, got.Line)
	assert.Equal(t, "new", got.Side)
	assert.Empty(t, got.Message)
}
