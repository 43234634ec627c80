package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// S3Client is the subset of the S3 API the fetcher calls. *s3.Client
// satisfies it.
type S3Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Fetcher resolves s3://bucket/key locators.
type S3Fetcher struct {
	client S3Client
}

func NewS3Fetcher(client S3Client) *S3Fetcher {
	return &S3Fetcher{client: client}
}

func (f *S3Fetcher) Fetch(ctx context.Context, locator string) ([]byte, error) {
	bucket, key, err := parseS3(locator)
	if err != nil {
		return nil, err
	}

	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, fmt.Errorf("s3 get %s: %w", locator, ErrNotFound)
		}
		return nil, fmt.Errorf("s3 get %s: %w", locator, err)
	}
	defer func() {
		_ = out.Body.Close()
	}()

	if out.ContentLength != nil && *out.ContentLength > MaxSize {
		return nil, fmt.Errorf("s3 get %s: %w", locator, ErrTooLarge)
	}

	data, err := readLimited(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 read %s: %w", locator, err)
	}
	return data, nil
}

func parseS3(locator string) (string, string, error) {
	u, err := url.Parse(locator)
	if err != nil {
		return "", "", fmt.Errorf("parse locator: %w", err)
	}
	key := strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return "", "", fmt.Errorf("s3 locator %q must be s3://bucket/key", locator)
	}
	return u.Host, key, nil
}

func isS3NotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "NoSuchBucket":
			return true
		}
	}
	return false
}
