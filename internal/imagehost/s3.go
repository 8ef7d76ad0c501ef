package imagehost

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

const s3Service = "s3"

// PutObjectAPI is the slice of the S3 client the host needs.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Host uploads public-read objects and serves them from a public base URL.
type S3Host struct {
	client    PutObjectAPI
	bucket    string
	prefix    string
	publicURL string
}

// NewS3Host wraps an existing client.
func NewS3Host(client PutObjectAPI, bucket, prefix, publicURL string) *S3Host {
	return &S3Host{
		client:    client,
		bucket:    bucket,
		prefix:    strings.Trim(prefix, "/"),
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

// NewS3HostFromEnv loads the default AWS credential chain for region.
func NewS3HostFromEnv(ctx context.Context, region, bucket, prefix, publicURL string) (*S3Host, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewS3Host(s3.NewFromConfig(cfg), bucket, prefix, publicURL), nil
}

// Service implements Uploader.
func (h *S3Host) Service() string { return s3Service }

// Upload stores the image under prefix/<uuid><ext>.
func (h *S3Host) Upload(ctx context.Context, img Image) (string, error) {
	key := h.objectKey(img)
	_, err := h.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(h.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(img.Data),
		ContentType: aws.String(img.ContentType),
		ACL:         s3types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", &UploadError{Reason: fmt.Sprintf("failed to upload to S3: %v", err), Err: err}
	}
	return h.publicURL + "/" + key, nil
}

func (h *S3Host) objectKey(img Image) string {
	name := uuid.NewString() + extensionFor(img)
	if h.prefix == "" {
		return name
	}
	return path.Join(h.prefix, name)
}

func extensionFor(img Image) string {
	switch img.ContentType {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	}
	if exts, _ := mime.ExtensionsByType(img.ContentType); len(exts) > 0 {
		return exts[0]
	}
	if ext := path.Ext(img.Name); ext != "" {
		return strings.ToLower(ext)
	}
	if _, sub, ok := strings.Cut(img.ContentType, "/"); ok && sub != "" {
		return "." + sub
	}
	return ""
}
