package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
)

// ErrObjectMissing 表示 Bucket 或对象不存在。
var ErrObjectMissing = errors.New("catalog object missing")

// IsNoSuchKey reports a missing object (NoSuchKey/NotFound).
func IsNoSuchKey(err error) bool {
	return matchObjectError(err, []string{"nosuchkey", "notfound"},
		"nosuchkey", "specified key does not exist", "not found")
}

// IsNoSuchBucket reports a missing bucket.
func IsNoSuchBucket(err error) bool {
	return matchObjectError(err, []string{"nosuchbucket"},
		"nosuchbucket", "specified bucket does not exist")
}

// matchObjectError 先比对 S3 错误码，网关把错误转成纯文本时再按消息匹配。
func matchObjectError(err error, codes []string, fragments ...string) bool {
	if err == nil {
		return false
	}

	var minioErr minio.ErrorResponse
	if errors.As(err, &minioErr) {
		code := strings.ToLower(strings.TrimSpace(minioErr.Code))
		for _, c := range codes {
			if code == c {
				return true
			}
		}
	}

	lower := strings.ToLower(err.Error())
	for _, f := range fragments {
		if strings.Contains(lower, f) {
			return true
		}
	}
	return false
}

func wrapObjectError(objectKey string, err error) error {
	if IsNoSuchKey(err) || IsNoSuchBucket(err) {
		return fmt.Errorf("read object %q: %w: %v", objectKey, ErrObjectMissing, err)
	}
	return fmt.Errorf("read object %q: %w", objectKey, err)
}
