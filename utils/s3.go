package utils

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type s3PutAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ImageArchive uploads analysed images to an S3 bucket.
type ImageArchive struct {
	client    s3PutAPI
	bucket    string
	publicURL string
	now       func() time.Time
}

func NewImageArchive(cfg aws.Config, bucket, publicURL string) *ImageArchive {
	return newImageArchive(s3.NewFromConfig(cfg), bucket, publicURL)
}

func newImageArchive(client s3PutAPI, bucket, publicURL string) *ImageArchive {
	return &ImageArchive{client: client, bucket: bucket, publicURL: publicURL, now: time.Now}
}

// Upload stores data under prefix and returns its public URL. Without a CDN
// URL the virtual-hosted S3 URL is returned.
func (a *ImageArchive) Upload(ctx context.Context, prefix string, data []byte, contentType string) (string, error) {
	key := fmt.Sprintf("%s/%d%s", strings.Trim(prefix, "/"), a.now().UnixNano(), ExtensionFor(contentType))

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		ACL:         s3types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	if a.publicURL != "" {
		return fmt.Sprintf("%s/%s", strings.TrimRight(a.publicURL, "/"), key), nil
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", a.bucket, key), nil
}
