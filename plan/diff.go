package plan

import "path"

// KeyFunc extracts the dedup key under which two objects count as "the same
// logical file" for skip-on-upload purposes.
type KeyFunc func(key string) string

// FullKey dedups on the complete remote key. This is the default.
func FullKey(key string) string { return key }

// BaseKey dedups on the final path segment only. Two files with identical
// basenames anywhere in the bucket are treated as the same logical file
// regardless of path or content. This is a set-membership approximation,
// not a content-equality guarantee, and callers must opt into it
// explicitly.
func BaseKey(key string) string { return path.Base(key) }

// Split partitions local records into the ones to upload and the ones to
// skip.
type Split struct {
	ToUpload []string
	ToSkip   []string
}

// Dedup splits localKeys by set membership of their intended remote key's
// dedup key in the remote key set. It never compares size, checksum or
// modification time. Order of the input is preserved in both halves.
func Dedup(localKeys []string, rootName, dstPrefix string, remoteKeys []string, fn KeyFunc) Split {
	existing := make(map[string]struct{}, len(remoteKeys))
	for _, key := range remoteKeys {
		existing[fn(key)] = struct{}{}
	}

	var split Split
	for _, key := range localKeys {
		if _, ok := existing[fn(IntendedKey(key, rootName, dstPrefix))]; ok {
			split.ToSkip = append(split.ToSkip, key)
		} else {
			split.ToUpload = append(split.ToUpload, key)
		}
	}
	return split
}
