// Package s3 implements the storage.Storage interface for S3-compatible
// object stores (AWS S3, Cloudflare R2, MinIO and friends).
package s3

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/credentials/ec2rolecreds"
	"github.com/aws/aws-sdk-go/aws/ec2metadata"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/larrabee/ratelimit"

	"github.com/s3batch/s3batch/storage"
)

// batchDeleteLimit is the store API cap on keys per DeleteObjects call.
const batchDeleteLimit = 1000

// R2Endpoint returns the Cloudflare R2 S3 endpoint for an account ID.
func R2Endpoint(accountID string) string {
	return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", accountID)
}

// S3Storage configuration.
type S3Storage struct {
	awsSvc        *s3.S3
	awsSession    *session.Session
	awsBucket     *string
	prefix        string
	keysPerReq    int64
	retryCnt      uint
	retryInterval time.Duration
	ctx           context.Context
	rlBucket      ratelimit.Bucket
}

// NewS3Storage return new configured S3 storage.
//
// You should always create new storage with this constructor.
func NewS3Storage(awsAccessKey, awsSecretKey, awsRegion, endpoint, bucketName, prefix string, keysPerReq int64, retryCnt uint, retryInterval time.Duration) *S3Storage {
	sess := session.Must(session.NewSession())

	sess.Config.S3ForcePathStyle = aws.Bool(true)
	sess.Config.CredentialsChainVerboseErrors = aws.Bool(true)
	sess.Config.Region = aws.String(awsRegion)

	if awsAccessKey != "" && awsSecretKey != "" {
		cred := credentials.NewStaticCredentials(awsAccessKey, awsSecretKey, "")
		sess.Config.WithCredentials(cred)
	} else {
		cred := credentials.NewChainCredentials(
			[]credentials.Provider{
				&credentials.EnvProvider{},
				&credentials.SharedCredentialsProvider{},
				&ec2rolecreds.EC2RoleProvider{
					Client: ec2metadata.New(sess),
				},
			})
		sess.Config.WithCredentials(cred)
	}

	if endpoint != "" {
		sess.Config.Endpoint = aws.String(endpoint)
	}

	st := S3Storage{
		awsBucket:     &bucketName,
		awsSession:    sess,
		awsSvc:        s3.New(sess),
		prefix:        prefix,
		keysPerReq:    keysPerReq,
		retryCnt:      retryCnt,
		retryInterval: retryInterval,
		ctx:           context.TODO(),
		rlBucket:      ratelimit.NewFakeBucket(),
	}

	return &st
}

// WithContext add's context to storage.
func (st *S3Storage) WithContext(ctx context.Context) {
	st.ctx = ctx
}

// WithRateLimit set rate limit (bytes/sec) for storage.
func (st *S3Storage) WithRateLimit(limit int) error {
	bucket, err := ratelimit.NewBucketWithRate(float64(limit), int64(limit))
	if err != nil {
		return err
	}
	st.rlBucket = bucket
	return nil
}

// List S3 bucket and send founded objects to chan.
//
// Pagination is followed transparently until the listing is exhausted. An
// empty result is not an error. Listing failures abort the scan; building a
// plan from a partial listing is never allowed.
func (st *S3Storage) List(output chan<- *storage.Object) error {
	var continuationToken *string
	listObjectsFn := func(p *s3.ListObjectsV2Output, lastPage bool) bool {
		for _, o := range p.Contents {
			key, _ := url.QueryUnescape(aws.StringValue(o.Key))
			key = strings.Replace(key, st.prefix, "", 1)
			output <- &storage.Object{
				Key:   &key,
				ETag:  o.ETag,
				Mtime: o.LastModified,
				Size:  o.Size,
			}
		}
		continuationToken = p.NextContinuationToken
		return !lastPage // continue paging
	}

	for i := uint(0); ; i++ {
		input := &s3.ListObjectsV2Input{
			Bucket:            st.awsBucket,
			Prefix:            aws.String(st.prefix),
			MaxKeys:           aws.Int64(st.keysPerReq),
			EncodingType:      aws.String(s3.EncodingTypeUrl),
			ContinuationToken: continuationToken,
		}

		err := st.awsSvc.ListObjectsV2PagesWithContext(st.ctx, input, listObjectsFn)
		if (err != nil) && (i < st.retryCnt) {
			storage.Log.Debugf("S3 listing failed with error: %s", err)
			time.Sleep(st.retryInterval)
			continue
		} else if (err != nil) && (i == st.retryCnt) {
			storage.Log.Debugf("S3 listing failed with error: %s", err)
			return err
		} else {
			storage.Log.Debugf("Listing bucket finished")
			return err
		}
	}
}

// PutObject saves object to S3.
func (st *S3Storage) PutObject(obj *storage.Object) error {
	objReader := bytes.NewReader(*obj.Content)
	rlReader := ratelimit.NewReadSeeker(objReader, st.rlBucket)

	input := &s3.PutObjectInput{
		Bucket:      st.awsBucket,
		Key:         aws.String(st.prefix + *obj.Key),
		Body:        rlReader,
		ContentType: obj.ContentType,
	}

	for i := uint(0); ; i++ {
		_, err := st.awsSvc.PutObjectWithContext(st.ctx, input)
		if (err != nil) && (i < st.retryCnt) {
			storage.Log.Debugf("S3 obj uploading failed with error: %s", err)
			time.Sleep(st.retryInterval)
			continue
		} else if (err != nil) && (i == st.retryCnt) {
			return err
		}

		return nil
	}
}

// GetObjectContent read object content and metadata from S3.
func (st *S3Storage) GetObjectContent(obj *storage.Object) error {
	input := &s3.GetObjectInput{
		Bucket: st.awsBucket,
		Key:    aws.String(st.prefix + *obj.Key),
	}

	for i := uint(0); ; i++ {
		result, err := st.awsSvc.GetObjectWithContext(st.ctx, input)
		if (err != nil) && (i < st.retryCnt) {
			storage.Log.Debugf("S3 obj content downloading request failed with error: %s", err)
			time.Sleep(st.retryInterval)
			continue
		} else if (err != nil) && (i == st.retryCnt) {
			return err
		}

		buf := bytes.NewBuffer(make([]byte, 0, aws.Int64Value(result.ContentLength)))
		if _, err := buf.ReadFrom(ratelimit.NewReader(result.Body, st.rlBucket)); err != nil {
			_ = result.Body.Close()
			return err
		}
		_ = result.Body.Close()

		data := buf.Bytes()
		dataSize := int64(len(data))
		obj.Content = &data
		obj.ContentLength = &dataSize
		obj.ContentType = result.ContentType
		obj.ETag = result.ETag
		obj.Mtime = result.LastModified

		return nil
	}
}

// CopyObject performs a server-side copy inside the bucket. No object data
// travels through this process.
func (st *S3Storage) CopyObject(srcKey, dstKey string) error {
	copySource := url.PathEscape(*st.awsBucket + "/" + st.prefix + srcKey)
	input := &s3.CopyObjectInput{
		Bucket:     st.awsBucket,
		Key:        aws.String(st.prefix + dstKey),
		CopySource: aws.String(copySource),
	}

	for i := uint(0); ; i++ {
		_, err := st.awsSvc.CopyObjectWithContext(st.ctx, input)
		if (err != nil) && (i < st.retryCnt) {
			storage.Log.Debugf("S3 obj copying failed with error: %s", err)
			time.Sleep(st.retryInterval)
			continue
		} else if (err != nil) && (i == st.retryCnt) {
			return err
		}

		return nil
	}
}

// CopyObjectTo performs a server-side copy into another bucket.
func (st *S3Storage) CopyObjectTo(srcKey string, target *S3Storage, dstKey string) error {
	copySource := url.PathEscape(*st.awsBucket + "/" + st.prefix + srcKey)
	input := &s3.CopyObjectInput{
		Bucket:     target.awsBucket,
		Key:        aws.String(target.prefix + dstKey),
		CopySource: aws.String(copySource),
	}

	for i := uint(0); ; i++ {
		_, err := st.awsSvc.CopyObjectWithContext(st.ctx, input)
		if (err != nil) && (i < st.retryCnt) {
			storage.Log.Debugf("S3 obj copying failed with error: %s", err)
			time.Sleep(st.retryInterval)
			continue
		} else if (err != nil) && (i == st.retryCnt) {
			return err
		}

		return nil
	}
}

// DeleteObject remove object from S3.
func (st *S3Storage) DeleteObject(key string) error {
	input := &s3.DeleteObjectInput{
		Bucket: st.awsBucket,
		Key:    aws.String(st.prefix + key),
	}

	for i := uint(0); ; i++ {
		_, err := st.awsSvc.DeleteObjectWithContext(st.ctx, input)
		if (err != nil) && (i < st.retryCnt) {
			storage.Log.Debugf("S3 obj removing failed with error: %s", err)
			time.Sleep(st.retryInterval)
			continue
		} else if (err != nil) && (i == st.retryCnt) {
			return err
		}

		return nil
	}
}

// DeleteObjects removes up to 1000 keys in one call. The store may report
// mixed per-key success and failure; both are returned to the caller.
func (st *S3Storage) DeleteObjects(keys []string) (*storage.BatchDeleteResult, error) {
	if len(keys) > batchDeleteLimit {
		return nil, fmt.Errorf("batch of %d keys exceeds the store limit of %d", len(keys), batchDeleteLimit)
	}

	objects := make([]*s3.ObjectIdentifier, len(keys))
	for i, key := range keys {
		objects[i] = &s3.ObjectIdentifier{Key: aws.String(st.prefix + key)}
	}

	input := &s3.DeleteObjectsInput{
		Bucket: st.awsBucket,
		Delete: &s3.Delete{
			Objects: objects,
			Quiet:   aws.Bool(false),
		},
	}

	for i := uint(0); ; i++ {
		resp, err := st.awsSvc.DeleteObjectsWithContext(st.ctx, input)
		if (err != nil) && (i < st.retryCnt) {
			storage.Log.Debugf("S3 batch removing failed with error: %s", err)
			time.Sleep(st.retryInterval)
			continue
		} else if (err != nil) && (i == st.retryCnt) {
			return nil, err
		}

		result := &storage.BatchDeleteResult{}
		for _, d := range resp.Deleted {
			result.Deleted = append(result.Deleted, strings.TrimPrefix(aws.StringValue(d.Key), st.prefix))
		}
		for _, e := range resp.Errors {
			result.Errors = append(result.Errors, storage.KeyError{
				Key:     strings.TrimPrefix(aws.StringValue(e.Key), st.prefix),
				Code:    aws.StringValue(e.Code),
				Message: aws.StringValue(e.Message),
			})
		}
		return result, nil
	}
}

// DeleteBucket removes the bucket itself. The store refuses unless the
// bucket is empty.
func (st *S3Storage) DeleteBucket() error {
	input := &s3.DeleteBucketInput{Bucket: st.awsBucket}
	_, err := st.awsSvc.DeleteBucketWithContext(st.ctx, input)
	return err
}
