package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchFolderPrefix(t *testing.T) {
	c := Criteria{FolderPrefix: "markdown"}

	ok, reason := Match("markdown/a.md", c)
	assert.True(t, ok)
	assert.Equal(t, "matches folder", reason)

	// Prefix is normalized with a trailing separator before comparison.
	ok, _ = Match("markdown-old/a.md", c)
	assert.False(t, ok)

	ok, _ = Match("other/a.md", c)
	assert.False(t, ok)
}

func TestMatchExtensions(t *testing.T) {
	c := Criteria{Extensions: []string{".tmp", ".BAK"}}

	for key, want := range map[string]bool{
		"a/b/file.tmp":  true,
		"a/b/file.TMP":  true,
		"a/b/file.bak":  true,
		"a/b/file.t":    false,
		"a/b/tmp":       false,
		"file.tmp.save": false,
	} {
		ok, _ := Match(key, c)
		assert.Equal(t, want, ok, key)
	}
}

func TestMatchPatternsGlob(t *testing.T) {
	c := Criteria{Patterns: []string{"log_?.txt"}}

	for key, want := range map[string]bool{
		"logs/log_1.txt":  true,
		"logs/log_A.txt":  true,
		"logs/log_10.txt": false,
		"logs/log.txt":    false,
	} {
		ok, _ := Match(key, c)
		assert.Equal(t, want, ok, key)
	}
}

func TestMatchPatternsSubstring(t *testing.T) {
	c := Criteria{Patterns: []string{"fail"}}

	ok, reason := Match("sys_FAIL_01", c)
	assert.True(t, ok)
	assert.Equal(t, "pattern fail", reason)

	ok, _ = Match("sys_ok_01", c)
	assert.False(t, ok)
}

func TestMatchExclusionAlwaysWins(t *testing.T) {
	c := Criteria{
		FolderPrefix:    "markdown/",
		Extensions:      []string{".md"},
		ExcludePrefixes: []string{"markdown/tech_docs_ec/"},
	}

	ok, _ := Match("markdown/a.md", c)
	assert.True(t, ok)

	ok, _ = Match("markdown/tech_docs_ec/b.md", c)
	assert.False(t, ok)
}

func TestMatchGroupsCombineWithOr(t *testing.T) {
	c := Criteria{Extensions: []string{".tmp"}, Patterns: []string{"error*"}}

	ok, reason := Match("a/error_log.json", c)
	assert.True(t, ok)
	assert.Equal(t, "pattern error*", reason)

	ok, reason = Match("a/data.tmp", c)
	assert.True(t, ok)
	assert.Equal(t, "extension .tmp", reason)

	ok, _ = Match("a/data.json", c)
	assert.False(t, ok)
}

func TestMatchIsPure(t *testing.T) {
	c := Criteria{FolderPrefix: "x", Patterns: []string{"*.md"}}
	ok1, r1 := Match("x/readme.md", c)
	ok2, r2 := Match("x/readme.md", c)
	assert.Equal(t, ok1, ok2)
	assert.Equal(t, r1, r2)
}
