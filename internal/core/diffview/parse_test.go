package diffview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remarklabs/remark/internal/core/review"
)

const sampleDiff = `diff --git a/greet.go b/greet.go
index 1111111..2222222 100644
--- a/greet.go
+++ b/greet.go
@@ -1,5 +1,6 @@ func Greet
 package main
 
-func greet() string {
-	return "hi"
+func greet(name string) string {
+	return "hi " + name
 }
+
`

func TestParseSingleFile(t *testing.T) {
	files, err := Parse([]byte(sampleDiff))
	require.NoError(t, err)
	require.Len(t, files, 1)

	f := files[0]
	assert.Equal(t, "greet.go", f.Path)
	assert.Equal(t, "greet.go", f.OldPath)
	assert.False(t, f.IsNew)
	assert.False(t, f.IsDeleted)
	require.Len(t, f.Hunks, 1)

	h := f.Hunks[0]
	assert.Equal(t, 1, h.OldStart)
	assert.Equal(t, 5, h.OldCount)
	assert.Equal(t, 1, h.NewStart)
	assert.Equal(t, 6, h.NewCount)
	assert.Equal(t, "func Greet", h.Section)
	require.Len(t, h.Lines, 8)

	// Context lines number on both sides.
	assert.Equal(t, OriginContext, h.Lines[0].Origin)
	assert.Equal(t, 1, h.Lines[0].OldLine)
	assert.Equal(t, 1, h.Lines[0].NewLine)

	// Removed lines carry old numbers only.
	assert.Equal(t, OriginRemoved, h.Lines[2].Origin)
	assert.Equal(t, 3, h.Lines[2].OldLine)
	assert.Equal(t, 0, h.Lines[2].NewLine)

	// Added lines carry new numbers only.
	assert.Equal(t, OriginAdded, h.Lines[4].Origin)
	assert.Equal(t, 0, h.Lines[4].OldLine)
	assert.Equal(t, 3, h.Lines[4].NewLine)

	// Trailing added blank line.
	last := h.Lines[len(h.Lines)-1]
	assert.Equal(t, OriginAdded, last.Origin)
	assert.Equal(t, 6, last.NewLine)
}

func TestParseAnchors(t *testing.T) {
	files, err := Parse([]byte(sampleDiff))
	require.NoError(t, err)
	f := files[0]

	assert.True(t, f.HasAnchor(review.LineKey{Side: review.SideNew, Line: 3}))
	assert.True(t, f.HasAnchor(review.LineKey{Side: review.SideOld, Line: 4}))
	assert.True(t, f.HasAnchor(review.LineKey{Side: review.SideNew, Line: 1}), "context anchors on new side")
	assert.False(t, f.HasAnchor(review.LineKey{Side: review.SideNew, Line: 50}))
	assert.False(t, f.HasAnchor(review.LineKey{Side: review.SideOld, Line: 1}), "context lines do not anchor old side")
}

func TestParseNewAndDeletedFiles(t *testing.T) {
	diff := `diff --git a/added.txt b/added.txt
new file mode 100644
--- /dev/null
+++ b/added.txt
@@ -0,0 +1,2 @@
+one
+two
diff --git a/gone.txt b/gone.txt
deleted file mode 100644
--- a/gone.txt
+++ /dev/null
@@ -1,1 +0,0 @@
-bye
`
	files, err := Parse([]byte(diff))
	require.NoError(t, err)
	require.Len(t, files, 2)

	added := files[0]
	assert.Equal(t, "added.txt", added.Path)
	assert.True(t, added.IsNew)
	require.Len(t, added.Hunks, 1)
	assert.Equal(t, 2, added.Hunks[0].NewCount)

	gone := files[1]
	assert.Equal(t, "gone.txt", gone.Path)
	assert.True(t, gone.IsDeleted)
	assert.Equal(t, OriginRemoved, gone.Hunks[0].Lines[0].Origin)
}

func TestParseBinary(t *testing.T) {
	diff := `diff --git a/logo.png b/logo.png
index 1111111..2222222 100644
Binary files a/logo.png and b/logo.png differ
`
	files, err := Parse([]byte(diff))
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.True(t, files[0].IsBinary)
	assert.Equal(t, "logo.png", files[0].Path)
	assert.Empty(t, files[0].Hunks)
}

func TestParseMalformedHunk(t *testing.T) {
	diff := "diff --git a/x b/x\n--- a/x\n+++ b/x\n@@ garbage @@\n"
	_, err := Parse([]byte(diff))
	assert.Error(t, err)
}

func TestHashChangesWithContent(t *testing.T) {
	files, err := Parse([]byte(sampleDiff))
	require.NoError(t, err)
	first := files[0].Hash()
	assert.Len(t, first, 40)

	// Identical input, identical hash.
	again, err := Parse([]byte(sampleDiff))
	require.NoError(t, err)
	assert.Equal(t, first, again[0].Hash())

	// A one-character change moves the hash.
	changed, err := Parse([]byte(sampleDiff + " \n"))
	require.NoError(t, err)
	assert.NotEqual(t, first, changed[0].Hash())
}

func TestSynthesizeUntracked(t *testing.T) {
	f := SynthesizeUntracked("notes.txt", []byte("alpha\nbeta\n"))
	assert.True(t, f.IsUntracked)
	assert.True(t, f.IsNew)
	require.Len(t, f.Hunks, 1)
	require.Len(t, f.Hunks[0].Lines, 2)
	assert.Equal(t, OriginAdded, f.Hunks[0].Lines[0].Origin)
	assert.Equal(t, 1, f.Hunks[0].Lines[0].NewLine)
	assert.Equal(t, "beta", f.Hunks[0].Lines[1].Text)
	assert.True(t, f.HasAnchor(review.LineKey{Side: review.SideNew, Line: 2}))
	assert.NotEmpty(t, f.Hash())
}

func TestSynthesizeUntrackedBinary(t *testing.T) {
	f := SynthesizeUntracked("blob.bin", []byte{0xff, 0xfe, 0x00, 0x01})
	assert.True(t, f.IsBinary)
	assert.Empty(t, f.Hunks)
}

func TestSideBySide(t *testing.T) {
	files, err := Parse([]byte(sampleDiff))
	require.NoError(t, err)
	rows := SideBySide(files[0].Hunks[0])

	// 2 context + 2 paired changes + 1 trailing add + 1 context.
	require.Len(t, rows, 6)

	assert.NotNil(t, rows[0].Left)
	assert.NotNil(t, rows[0].Right)
	assert.Equal(t, rows[0].Left.Text, rows[0].Right.Text)

	// The removal/addition runs pair positionally.
	assert.Equal(t, OriginRemoved, rows[2].Left.Origin)
	assert.Equal(t, OriginAdded, rows[2].Right.Origin)
	assert.Equal(t, 3, rows[2].Left.Line)
	assert.Equal(t, 3, rows[2].Right.Line)

	// Trailing addition has a filler on the left.
	last := rows[len(rows)-1]
	assert.Nil(t, last.Left)
	require.NotNil(t, last.Right)
	assert.Equal(t, 6, last.Right.Line)

	// Row anchors match the unified anchors.
	assert.Equal(t, review.LineKey{Side: review.SideNew, Line: 3}, rows[2].Anchor())
}
