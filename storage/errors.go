package storage

import (
	"context"
	"errors"
	"os"

	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
)

// Transport error shapes are normalized here. Code above this package
// decides on these predicates only and never inspects awserr directly.

func IsErrNotExist(err error) bool {
	var aErr awserr.Error
	if errors.As(err, &aErr) {
		if (aErr.Code() == s3.ErrCodeNoSuchKey) || (aErr.Code() == "NotFound") {
			return true
		}
	}

	if errors.Is(err, os.ErrNotExist) {
		return true
	}
	return false
}

func IsErrPermission(err error) bool {
	var aErr awserr.Error
	if errors.As(err, &aErr) {
		if aErr.Code() == "AccessDenied" {
			return true
		}
	}

	if errors.Is(err, os.ErrPermission) {
		return true
	}
	return false
}

// IsErrAuth reports a credential-level failure. Once one of these is seen
// every further call will fail the same way, so the executor treats it as a
// terminal run error rather than a per-item failure.
func IsErrAuth(err error) bool {
	var aErr awserr.Error
	if errors.As(err, &aErr) {
		switch aErr.Code() {
		case "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken", "TokenRefreshRequired", "CredentialsEndpointError", "NoCredentialProviders":
			return true
		}
	}
	return false
}

func IsErrBucketNotEmpty(err error) bool {
	var aErr awserr.Error
	if errors.As(err, &aErr) {
		return aErr.Code() == "BucketNotEmpty"
	}
	return false
}

func IsContextCanceled(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) {
		return true
	}

	var aErr awserr.Error
	if ok := errors.As(err, &aErr); ok && aErr.OrigErr() == context.Canceled {
		return true
	} else if ok && aErr.Code() == request.CanceledErrorCode {
		return true
	}

	return false
}
