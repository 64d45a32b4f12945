package lsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remarklabs/remark/internal/core/diffview"
)

const testDiff = `diff --git a/calc.go b/calc.go
--- a/calc.go
+++ b/calc.go
@@ -1,5 +1,5 @@
 package calc
 
-func Sub(a, b int) int {
-	return a - b
+func Add(a, b int) int {
+	return a + b
 }
`

func parsedDiff(t *testing.T) *diffview.FileDiff {
	t.Helper()
	files, err := diffview.Parse([]byte(testDiff))
	require.NoError(t, err)
	require.Len(t, files, 1)
	return files[0]
}

func TestDisplayLineForOld(t *testing.T) {
	f := parsedDiff(t)

	// The first removed line (old 3) displays at the last line that still
	// has a new number before it, the context line at new 2.
	assert.Equal(t, 2, displayLineForOld(f, 3))
	assert.Equal(t, 2, displayLineForOld(f, 4))

	// Unknown old lines fall back to the top of the file.
	assert.Equal(t, 1, displayLineForOld(f, 77))
	assert.Equal(t, 1, displayLineForOld(nil, 3))
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "headline", firstLine("headline\nrest of it\nmore"))
	assert.Equal(t, "single", firstLine("  single  "))
	assert.Equal(t, "", firstLine("  \n\n"))
}

func TestSeverity(t *testing.T) {
	assert.Equal(t, SeverityWarning, severity(false))
	assert.Equal(t, SeverityHint, severity(true))
}

func TestURIToFilename(t *testing.T) {
	tests := []struct {
		uri     string
		want    string
		wantErr bool
	}{
		{uri: "file:///home/dev/repo/main.go", want: "/home/dev/repo/main.go"},
		{uri: "file:///path%20with%20space/x.go", want: "/path with space/x.go"},
		{uri: "https://example.com/x.go", wantErr: true},
		{uri: "::bad::", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			got, err := uriToFilename(tt.uri)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
