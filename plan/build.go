package plan

import (
	"fmt"
	"strings"

	"github.com/s3batch/s3batch/match"
)

// Target is a key selected for mutation together with the match reason.
type Target struct {
	Key    string
	Reason string
}

// BuildMove plans an in-bucket prefix move: every key under srcPrefix moves
// to dstPrefix with its prefix-relative path preserved verbatim. Keys not
// under srcPrefix are rejected, they indicate a scan/config mismatch.
func BuildMove(keys []string, srcPrefix, dstPrefix string) (Plan, error) {
	srcPrefix = match.NormalizePrefix(srcPrefix)
	dstPrefix = match.NormalizePrefix(dstPrefix)
	if srcPrefix == dstPrefix {
		return nil, fmt.Errorf("source and destination prefix are identical: %q", srcPrefix)
	}

	p := make(Plan, 0, len(keys))
	for _, key := range keys {
		if !strings.HasPrefix(key, srcPrefix) {
			return nil, fmt.Errorf("key %q is not under source prefix %q", key, srcPrefix)
		}
		p = append(p, Intent{
			Op:     OpMove,
			SrcKey: key,
			DstKey: dstPrefix + key[len(srcPrefix):],
			Reason: "move " + srcPrefix + " -> " + dstPrefix,
		})
	}
	return p, nil
}

// BuildOrganize plans moving everything under basePath to legacyPath,
// except keys already under one of the keepPrefixes. The keep-list is a
// pre-filter: excluded keys produce no intent at all. Callers include
// legacyPath itself in keepPrefixes, which makes a second run over the
// result of the first a no-op.
func BuildOrganize(keys []string, basePath, legacyPath string, keepPrefixes []string) Plan {
	basePath = match.NormalizePrefix(basePath)
	legacyPath = match.NormalizePrefix(legacyPath)

	p := make(Plan, 0, len(keys))
keys:
	for _, key := range keys {
		if !strings.HasPrefix(key, basePath) {
			continue
		}
		for _, keep := range keepPrefixes {
			if strings.HasPrefix(key, match.NormalizePrefix(keep)) {
				continue keys
			}
		}
		p = append(p, Intent{
			Op:     OpMove,
			SrcKey: key,
			DstKey: legacyPath + strings.TrimPrefix(key[len(basePath):], "/"),
			Reason: "organize to " + legacyPath,
		})
	}
	return p
}

// BuildDelete plans batched deletion of the matched targets, preserving
// enumeration order.
func BuildDelete(targets []Target) Plan {
	p := make(Plan, 0, len(targets))
	for _, t := range targets {
		p = append(p, Intent{Op: OpDelete, SrcKey: t.Key, Reason: t.Reason})
	}
	return p
}

// BuildMigrate plans a cross-bucket transfer. Keys keep their names in the
// target bucket; with deleteSource the source object is removed after a
// successful copy (move semantics).
func BuildMigrate(keys []string, deleteSource bool) Plan {
	op := OpCopy
	reason := "migrate (copy)"
	if deleteSource {
		op = OpMove
		reason = "migrate (move)"
	}

	p := make(Plan, 0, len(keys))
	for _, key := range keys {
		p = append(p, Intent{Op: op, SrcKey: key, DstKey: key, Reason: reason})
	}
	return p
}

// BuildUpload plans conditional uploads of the diffed local records. Local
// keys are relative to the scan root; the intended remote key is
// join(dstPrefix?, rootName, localKey) with "/" separators.
func BuildUpload(localKeys []string, rootName, dstPrefix string) Plan {
	p := make(Plan, 0, len(localKeys))
	for _, key := range localKeys {
		p = append(p, Intent{
			Op:     OpUpload,
			SrcKey: key,
			DstKey: IntendedKey(key, rootName, dstPrefix),
			Reason: "absent from remote",
		})
	}
	return p
}

// IntendedKey computes the remote key for a scanner-relative local key.
func IntendedKey(localKey, rootName, dstPrefix string) string {
	parts := make([]string, 0, 3)
	if dstPrefix != "" {
		parts = append(parts, strings.Trim(dstPrefix, "/"))
	}
	if rootName != "" {
		parts = append(parts, strings.Trim(rootName, "/"))
	}
	parts = append(parts, localKey)
	return strings.Join(parts, "/")
}
