package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remarklabs/remark/internal/core/diffview"
	"github.com/remarklabs/remark/internal/core/review"
)

func TestParseFilter(t *testing.T) {
	tests := []struct {
		input   string
		want    Filter
		wantErr bool
	}{
		{input: "", want: FilterUnresolved},
		{input: "unresolved", want: FilterUnresolved},
		{input: "Resolved", want: FilterResolved},
		{input: " all ", want: FilterAll},
		{input: "open", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFilter(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrBadFilter)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFilterKeep(t *testing.T) {
	open := review.Comment{Body: "x"}
	closed := review.Comment{Body: "x", Resolved: true}

	assert.True(t, FilterUnresolved.keep(open))
	assert.False(t, FilterUnresolved.keep(closed))
	assert.False(t, FilterResolved.keep(open))
	assert.True(t, FilterResolved.keep(closed))
	assert.True(t, FilterAll.keep(open))
	assert.True(t, FilterAll.keep(closed))
}

const snippetDiff = `diff --git a/calc.go b/calc.go
--- a/calc.go
+++ b/calc.go
@@ -1,6 +1,6 @@
 package calc
 
 func Add(a, b int) int {
-	return a - b
+	return a + b
 }
 
`

func parseOne(t *testing.T) *diffview.FileDiff {
	t.Helper()
	files, err := diffview.Parse([]byte(snippetDiff))
	require.NoError(t, err)
	require.Len(t, files, 1)
	return files[0]
}

func TestSnippetNewSide(t *testing.T) {
	f := parseOne(t)
	got := Snippet(f, review.LineKey{Side: review.SideNew, Line: 4}, 2)

	assert.Contains(t, got, ">    4 | \treturn a + b")
	assert.Contains(t, got, "     3 | func Add(a, b int) int {")
	// Removed lines show without a new-side number.
	assert.Contains(t, got, "       | \treturn a - b")
}

func TestSnippetOldSide(t *testing.T) {
	f := parseOne(t)
	got := Snippet(f, review.LineKey{Side: review.SideOld, Line: 4}, 1)

	assert.Contains(t, got, ">    4 | \treturn a - b")
	// The added replacement has no old-side number.
	assert.Contains(t, got, "       | \treturn a + b")
}

func TestSnippetMissingAnchor(t *testing.T) {
	f := parseOne(t)
	assert.Empty(t, Snippet(f, review.LineKey{Side: review.SideNew, Line: 99}, 2))
}
