package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupByBasename(t *testing.T) {
	local := []string{"readme.txt", "notes.txt"}
	remote := []string{"somewhere/else/readme.txt"}

	split := Dedup(local, "docs", "", remote, BaseKey)
	assert.Equal(t, []string{"notes.txt"}, split.ToUpload)
	assert.Equal(t, []string{"readme.txt"}, split.ToSkip)
}

func TestDedupByBasenameIgnoresPath(t *testing.T) {
	// Two locals with different paths but the same final segment both skip
	// once the remote set contains that segment.
	local := []string{"a/report.pdf", "b/report.pdf"}
	remote := []string{"archive/2023/report.pdf"}

	split := Dedup(local, "docs", "", remote, BaseKey)
	assert.Empty(t, split.ToUpload)
	assert.Len(t, split.ToSkip, 2)
}

func TestDedupByFullKey(t *testing.T) {
	local := []string{"sub/readme.txt", "notes.txt"}
	remote := []string{"docs/sub/readme.txt", "elsewhere/notes.txt"}

	split := Dedup(local, "docs", "", remote, FullKey)
	// Full-key dedup only skips the exact intended key.
	assert.Equal(t, []string{"notes.txt"}, split.ToUpload)
	assert.Equal(t, []string{"sub/readme.txt"}, split.ToSkip)
}

func TestDedupEmptyRemote(t *testing.T) {
	split := Dedup([]string{"a", "b"}, "root", "", nil, FullKey)
	assert.Len(t, split.ToUpload, 2)
	assert.Empty(t, split.ToSkip)
}
