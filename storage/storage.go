// Package storage provides the object store abstraction used by the
// planning and execution layers. Backends exist for S3-compatible buckets
// and the local filesystem (upload source only).
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

// Log implement Logrus logger for debug logging.
var Log = logrus.New()

// ErrNotSupported is returned by backends for operations they cannot
// perform (e.g. server-side copy on the local filesystem).
var ErrNotSupported = errors.New("operation not supported by this storage")

// Object is a single listing entry. For S3 backends Key is relative to the
// configured prefix; for FS backends Key is the path relative to the scan
// root with "/" separators. Objects are rebuilt on every scan and never
// cached across runs.
type Object struct {
	Key           *string
	ETag          *string
	Mtime         *time.Time
	Size          *int64
	Content       *[]byte
	ContentType   *string
	ContentLength *int64
	MatchReason   *string
}

// KeyError is a per-key failure reported by a batch delete call.
type KeyError struct {
	Key     string
	Code    string
	Message string
}

// BatchDeleteResult holds the mixed per-key outcome of one batch delete
// call. A single call may report both deleted keys and errors.
type BatchDeleteResult struct {
	Deleted []string
	Errors  []KeyError
}

// Storage is the capability set consumed from the object store
// collaborator. Listing is lazy and transparently paginated; mutations are
// single-shot, retry policy is the backend's own concern.
type Storage interface {
	WithContext(ctx context.Context)
	WithRateLimit(limit int) error
	List(output chan<- *Object) error
	PutObject(obj *Object) error
	GetObjectContent(obj *Object) error
	CopyObject(srcKey, dstKey string) error
	DeleteObject(key string) error
	DeleteObjects(keys []string) (*BatchDeleteResult, error)
	DeleteBucket() error
}
