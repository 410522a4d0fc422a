package executor

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s3batch/s3batch/plan"
	"github.com/s3batch/s3batch/storage"
)

// fakeStorage is an in-memory storage.Storage double.
type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]byte

	copyErr   map[string]error // keyed by source key
	deleteErr map[string]error
	putErr    map[string]error
	readErr   map[string]error

	copyCalls       int
	deleteCalls     int
	batchCalls      int
	batchSizes      []int
	putCalls        int
	failKeysInBatch map[string]string // key -> error code
}

func newFakeStorage(keys ...string) *fakeStorage {
	st := &fakeStorage{
		objects:         make(map[string][]byte),
		copyErr:         make(map[string]error),
		deleteErr:       make(map[string]error),
		putErr:          make(map[string]error),
		readErr:         make(map[string]error),
		failKeysInBatch: make(map[string]string),
	}
	for _, key := range keys {
		st.objects[key] = []byte("data")
	}
	return st
}

func (st *fakeStorage) WithContext(ctx context.Context) {}
func (st *fakeStorage) WithRateLimit(limit int) error   { return nil }

func (st *fakeStorage) List(output chan<- *storage.Object) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	for key := range st.objects {
		k := key
		output <- &storage.Object{Key: &k}
	}
	return nil
}

func (st *fakeStorage) PutObject(obj *storage.Object) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.putCalls++
	if err := st.putErr[*obj.Key]; err != nil {
		return err
	}
	st.objects[*obj.Key] = *obj.Content
	return nil
}

func (st *fakeStorage) GetObjectContent(obj *storage.Object) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if err := st.readErr[*obj.Key]; err != nil {
		return err
	}
	data, ok := st.objects[*obj.Key]
	if !ok {
		return fmt.Errorf("no such key: %s", *obj.Key)
	}
	obj.Content = &data
	return nil
}

func (st *fakeStorage) CopyObject(srcKey, dstKey string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.copyCalls++
	if err := st.copyErr[srcKey]; err != nil {
		return err
	}
	data, ok := st.objects[srcKey]
	if !ok {
		return fmt.Errorf("no such key: %s", srcKey)
	}
	st.objects[dstKey] = data
	return nil
}

func (st *fakeStorage) DeleteObject(key string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.deleteCalls++
	if err := st.deleteErr[key]; err != nil {
		return err
	}
	delete(st.objects, key)
	return nil
}

func (st *fakeStorage) DeleteObjects(keys []string) (*storage.BatchDeleteResult, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.batchCalls++
	st.batchSizes = append(st.batchSizes, len(keys))

	result := &storage.BatchDeleteResult{}
	for _, key := range keys {
		if code, ok := st.failKeysInBatch[key]; ok {
			result.Errors = append(result.Errors, storage.KeyError{Key: key, Code: code, Message: "injected"})
			continue
		}
		delete(st.objects, key)
		result.Deleted = append(result.Deleted, key)
	}
	return result, nil
}

func (st *fakeStorage) DeleteBucket() error { return nil }

func (st *fakeStorage) has(key string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	_, ok := st.objects[key]
	return ok
}

func TestMoveSafetyOnCopyFailure(t *testing.T) {
	st := newFakeStorage("src/a")
	st.copyErr["src/a"] = fmt.Errorf("injected copy failure")

	res := &Result{}
	err := New(st).Execute(context.Background(), plan.Plan{
		{Op: plan.OpMove, SrcKey: "src/a", DstKey: "dst/a"},
	}, Options{Workers: 1}, res)

	require.NoError(t, err)
	assert.Equal(t, uint64(0), res.Succeeded())
	assert.Equal(t, uint64(1), res.Failed())
	// The source must never be deleted after a failed copy.
	assert.True(t, st.has("src/a"))
	assert.Equal(t, 0, st.deleteCalls)
}

func TestMovePartialFailureSurfaced(t *testing.T) {
	st := newFakeStorage("src/a")
	st.deleteErr["src/a"] = fmt.Errorf("injected delete failure")

	res := &Result{}
	err := New(st).Execute(context.Background(), plan.Plan{
		{Op: plan.OpMove, SrcKey: "src/a", DstKey: "dst/a"},
	}, Options{Workers: 1}, res)

	require.NoError(t, err)
	// The copy is counted, but the duplicate data is reported separately.
	assert.Equal(t, uint64(1), res.Succeeded())
	assert.Equal(t, uint64(0), res.Failed())
	require.Len(t, res.PartialMoves, 1)
	assert.Equal(t, "src/a", res.PartialMoves[0].Key)
	assert.True(t, st.has("src/a"))
	assert.True(t, st.has("dst/a"))
}

func TestDeleteBatchChunking(t *testing.T) {
	keys := make([]string, 2500)
	targets := make([]plan.Target, 2500)
	for i := range keys {
		keys[i] = fmt.Sprintf("key-%04d", i)
		targets[i] = plan.Target{Key: keys[i]}
	}
	st := newFakeStorage(keys...)

	res := &Result{}
	err := New(st).Execute(context.Background(), plan.BuildDelete(targets), Options{Workers: 4}, res)

	require.NoError(t, err)
	assert.Equal(t, uint64(2500), res.Succeeded())
	assert.Equal(t, []int{1000, 1000, 500}, st.batchSizes)
}

func TestDeleteBatchMixedResult(t *testing.T) {
	st := newFakeStorage("a", "b", "c")
	st.failKeysInBatch["b"] = "InternalError"

	res := &Result{}
	err := New(st).Execute(context.Background(), plan.BuildDelete([]plan.Target{
		{Key: "a"}, {Key: "b"}, {Key: "c"},
	}), Options{Workers: 1}, res)

	require.NoError(t, err)
	assert.Equal(t, uint64(2), res.Succeeded())
	assert.Equal(t, uint64(1), res.Failed())
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "b", res.Failures[0].Key)
}

func TestUploadReadAndWriteFailuresIsolated(t *testing.T) {
	src := newFakeStorage("ok.txt", "unreadable.txt", "rejected.txt")
	src.readErr["unreadable.txt"] = fmt.Errorf("injected read failure")
	dst := newFakeStorage()
	dst.putErr["docs/rejected.txt"] = fmt.Errorf("injected write failure")

	p := plan.Plan{
		{Op: plan.OpUpload, SrcKey: "ok.txt", DstKey: "docs/ok.txt"},
		{Op: plan.OpUpload, SrcKey: "unreadable.txt", DstKey: "docs/unreadable.txt"},
		{Op: plan.OpUpload, SrcKey: "rejected.txt", DstKey: "docs/rejected.txt"},
	}
	res := &Result{}
	err := NewTransfer(src, dst, dst.CopyObject).Execute(context.Background(), p, Options{Workers: 2}, res)

	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.Succeeded())
	assert.Equal(t, uint64(2), res.Failed())
	assert.True(t, dst.has("docs/ok.txt"))
}

func TestVanishedSourceIsSkippedNotFailed(t *testing.T) {
	st := newFakeStorage("a", "b")
	st.copyErr["a"] = awserr.New("NoSuchKey", "injected", nil)

	res := &Result{}
	err := New(st).Execute(context.Background(), plan.Plan{
		{Op: plan.OpMove, SrcKey: "a", DstKey: "x/a"},
		{Op: plan.OpCopy, SrcKey: "b", DstKey: "x/b"},
	}, Options{Workers: 1}, res)

	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.Succeeded())
	assert.Equal(t, uint64(0), res.Failed())
	assert.Equal(t, uint64(1), res.Skipped())
	// A skipped move must never reach the delete either.
	assert.Equal(t, 0, st.deleteCalls)
}

func TestAuthLossIsTerminal(t *testing.T) {
	st := newFakeStorage("a", "b")
	st.copyErr["a"] = awserr.New("InvalidAccessKeyId", "injected", nil)

	err := New(st).Execute(context.Background(), plan.Plan{
		{Op: plan.OpCopy, SrcKey: "a", DstKey: "x"},
		{Op: plan.OpCopy, SrcKey: "b", DstKey: "y"},
	}, Options{Workers: 1}, &Result{})

	assert.Error(t, err)
	assert.True(t, storage.IsErrAuth(err))
}

func TestCancelledContextIssuesNothing(t *testing.T) {
	st := newFakeStorage("a")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := &Result{}
	err := New(st).Execute(ctx, plan.Plan{
		{Op: plan.OpCopy, SrcKey: "a", DstKey: "x"},
	}, Options{Workers: 1}, res)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, uint64(0), res.Succeeded())
	assert.Equal(t, 0, st.copyCalls)
}

func TestItemFailureDoesNotAbortRun(t *testing.T) {
	st := newFakeStorage("a", "b", "c")
	st.copyErr["b"] = fmt.Errorf("injected")

	res := &Result{}
	err := New(st).Execute(context.Background(), plan.Plan{
		{Op: plan.OpCopy, SrcKey: "a", DstKey: "x/a"},
		{Op: plan.OpCopy, SrcKey: "b", DstKey: "x/b"},
		{Op: plan.OpCopy, SrcKey: "c", DstKey: "x/c"},
	}, Options{Workers: 1}, res)

	require.NoError(t, err)
	assert.Equal(t, uint64(2), res.Succeeded())
	assert.Equal(t, uint64(1), res.Failed())
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "b", res.Failures[0].Key)
}
