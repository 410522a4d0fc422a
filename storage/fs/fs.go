// Package fs implements the storage.Storage interface for a local
// directory tree. It is an upload source only: listing and content reads
// work, mutations return storage.ErrNotSupported.
package fs

import (
	"context"
	"errors"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/karrick/godirwalk"
	"github.com/larrabee/ratelimit"

	"github.com/s3batch/s3batch/storage"
)

// FSStorage configuration.
type FSStorage struct {
	dir      string
	bufSize  int
	ctx      context.Context
	rlBucket ratelimit.Bucket
}

// NewFSStorage return new configured FS storage rooted at dir.
//
// You should always create new storage with this constructor.
func NewFSStorage(dir string, bufSize int) *FSStorage {
	st := FSStorage{
		dir:      filepath.Clean(dir) + string(os.PathSeparator),
		ctx:      context.TODO(),
		rlBucket: ratelimit.NewFakeBucket(),
	}

	if bufSize < godirwalk.MinimumScratchBufferSize {
		st.bufSize = godirwalk.MinimumScratchBufferSize
	} else {
		st.bufSize = bufSize
	}
	return &st
}

// RootName returns the scan root's own directory name. Upload flows prepend
// it to every intended remote key.
func (st *FSStorage) RootName() string {
	return filepath.Base(filepath.Clean(st.dir))
}

// WithContext add's context to storage.
func (st *FSStorage) WithContext(ctx context.Context) {
	st.ctx = ctx
}

// WithRateLimit set rate limit (bytes/sec) for storage.
func (st *FSStorage) WithRateLimit(limit int) error {
	bucket, err := ratelimit.NewBucketWithRate(float64(limit), int64(limit))
	if err != nil {
		return err
	}
	st.rlBucket = bucket
	return nil
}

// List walks the tree and sends every regular file to chan. Keys are
// relative to the root with "/" separators regardless of host OS.
// Unreadable entries (permission errors, races) are skipped with a warning.
func (st *FSStorage) List(output chan<- *storage.Object) error {
	listObjectsFn := func(path string, de *godirwalk.Dirent) error {
		select {
		case <-st.ctx.Done():
			return st.ctx.Err()
		default:
			if de.IsRegular() {
				key := filepath.ToSlash(strings.TrimPrefix(path, st.dir))
				output <- &storage.Object{Key: &key}
			}
			if de.IsSymlink() {
				pathTarget, err := filepath.EvalSymlinks(path)
				if err != nil {
					return err
				}
				symStat, err := os.Stat(pathTarget)
				if err != nil {
					return err
				}
				if !symStat.IsDir() {
					key := filepath.ToSlash(strings.TrimPrefix(path, st.dir))
					output <- &storage.Object{Key: &key}
				}
			}
			return nil
		}
	}

	listObjectsErrorFn := func(path string, err error) godirwalk.ErrorAction {
		if errors.Is(err, context.Canceled) {
			return godirwalk.Halt
		}
		if storage.IsErrPermission(err) {
			storage.Log.Warnf("FS listing: %s, permission denied, skipping", path)
			return godirwalk.SkipNode
		}
		storage.Log.Warnf("FS listing: %s, err: %s, skipping", path, err)
		return godirwalk.SkipNode
	}

	return godirwalk.Walk(st.dir, &godirwalk.Options{
		FollowSymbolicLinks: true,
		Unsorted:            true,
		ScratchBuffer:       make([]byte, st.bufSize),
		Callback:            listObjectsFn,
		ErrorCallback:       listObjectsErrorFn,
		AllowNonDirectory:   true,
	})
}

// GetObjectContent read file content and metadata from FS. The content type
// is inferred from the extension, with content sniffing as a fallback for
// unknown extensions.
func (st *FSStorage) GetObjectContent(obj *storage.Object) error {
	destPath := filepath.Join(st.dir, filepath.FromSlash(*obj.Key))
	f, err := os.Open(destPath)
	if err != nil {
		return err
	}
	defer f.Close()

	fileInfo, err := f.Stat()
	if err != nil {
		return err
	}

	buf, err := io.ReadAll(ratelimit.NewReader(f, st.rlBucket))
	if err != nil {
		return err
	}

	contentType := mime.TypeByExtension(filepath.Ext(destPath))
	if contentType == "" {
		contentType = mimetype.Detect(buf).String()
	}

	dataSize := int64(len(buf))
	mtime := fileInfo.ModTime()
	obj.Content = &buf
	obj.ContentLength = &dataSize
	obj.Size = &dataSize
	obj.ContentType = &contentType
	obj.Mtime = &mtime

	return nil
}

// PutObject is not supported, the FS backend is read-only.
func (st *FSStorage) PutObject(obj *storage.Object) error {
	return storage.ErrNotSupported
}

// CopyObject is not supported, the FS backend is read-only.
func (st *FSStorage) CopyObject(srcKey, dstKey string) error {
	return storage.ErrNotSupported
}

// DeleteObject is not supported, the FS backend is read-only.
func (st *FSStorage) DeleteObject(key string) error {
	return storage.ErrNotSupported
}

// DeleteObjects is not supported, the FS backend is read-only.
func (st *FSStorage) DeleteObjects(keys []string) (*storage.BatchDeleteResult, error) {
	return nil, storage.ErrNotSupported
}

// DeleteBucket is not supported, the FS backend is read-only.
func (st *FSStorage) DeleteBucket() error {
	return storage.ErrNotSupported
}
