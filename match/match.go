// Package match evaluates selection criteria against object keys.
package match

import (
	"path"
	"strings"
)

// Criteria select objects by folder prefix, filename extension and filename
// pattern, with an exclusion list that always wins. Empty criteria groups
// are not evaluated; non-empty groups combine with OR after the prefix and
// exclusion gates.
type Criteria struct {
	FolderPrefix    string
	Extensions      []string
	Patterns        []string
	ExcludePrefixes []string
}

// Empty reports whether no selection criteria are set at all.
func (c Criteria) Empty() bool {
	return c.FolderPrefix == "" && len(c.Extensions) == 0 && len(c.Patterns) == 0
}

// NormalizePrefix ensures a folder prefix ends with the key separator, so
// "markdown" cannot accidentally select "markdown-old/".
func NormalizePrefix(p string) string {
	if p == "" {
		return ""
	}
	if !strings.HasSuffix(p, "/") {
		return p + "/"
	}
	return p
}

// Match is a pure predicate: it reports whether key is selected by c and a
// human-readable reason for the audit preview.
//
// Order: folder prefix gate, exclusion gate, whole-folder selection, then
// extension and pattern groups. Extensions compare case-insensitively
// against the filename suffix. Patterns match case-insensitively either as
// a literal substring of the filename or as a glob where '*' is any run of
// characters and '?' exactly one.
func Match(key string, c Criteria) (bool, string) {
	if c.FolderPrefix != "" {
		if !strings.HasPrefix(key, NormalizePrefix(c.FolderPrefix)) {
			return false, ""
		}
	}

	for _, ex := range c.ExcludePrefixes {
		if ex != "" && strings.HasPrefix(key, ex) {
			return false, ""
		}
	}

	if c.FolderPrefix != "" && len(c.Extensions) == 0 && len(c.Patterns) == 0 {
		return true, "matches folder"
	}

	filename := key
	if idx := strings.LastIndex(key, "/"); idx >= 0 {
		filename = key[idx+1:]
	}
	lowerName := strings.ToLower(filename)

	for _, ext := range c.Extensions {
		if ext == "" {
			continue
		}
		if strings.HasSuffix(lowerName, strings.ToLower(ext)) {
			return true, "extension " + ext
		}
	}

	for _, pat := range c.Patterns {
		if pat == "" {
			continue
		}
		lowerPat := strings.ToLower(pat)
		if strings.Contains(lowerName, lowerPat) {
			return true, "pattern " + pat
		}
		if ok, err := path.Match(lowerPat, lowerName); err == nil && ok {
			return true, "pattern " + pat
		}
	}

	return false, ""
}
