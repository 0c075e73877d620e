package aws

import (
	"context"
	"fmt"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// PresignedUpload is what a browser needs to PUT a file straight into the bucket.
type PresignedUpload struct {
	URL       string            `json:"upload_url"`
	Headers   map[string]string `json:"headers"`
	Key       string            `json:"key"`
	PublicURL string            `json:"public_url"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// ImageUploader presigns product image uploads for one bucket.
type ImageUploader struct {
	presigner  *s3.PresignClient
	bucket     string
	publicBase string
}

// NewImageUploader builds an uploader. publicBase is the URL prefix objects are
// served from; when empty the virtual-hosted S3 URL is used.
func NewImageUploader(cfg sdkaws.Config, bucket, publicBase string) *ImageUploader {
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if Endpoint() != "" {
			o.UsePathStyle = true
		}
	})
	if publicBase == "" {
		publicBase = fmt.Sprintf("https://%s.s3.amazonaws.com", bucket)
	}
	return &ImageUploader{
		presigner:  s3.NewPresignClient(client),
		bucket:     bucket,
		publicBase: publicBase,
	}
}

// PresignPut returns a presigned PUT for key valid for expiry.
func (u *ImageUploader) PresignPut(ctx context.Context, key, contentType string, expiry time.Duration) (*PresignedUpload, error) {
	input := &s3.PutObjectInput{
		Bucket:      sdkaws.String(u.bucket),
		Key:         sdkaws.String(key),
		ContentType: sdkaws.String(contentType),
	}

	presigned, err := u.presigner.PresignPutObject(ctx, input, s3.WithPresignExpires(expiry))
	if err != nil {
		return nil, fmt.Errorf("failed to presign put object: %w", err)
	}

	headers := make(map[string]string, len(presigned.SignedHeader))
	for k, v := range presigned.SignedHeader {
		if len(v) > 0 {
			headers[k] = v[0]
		}
	}

	return &PresignedUpload{
		URL:       presigned.URL,
		Headers:   headers,
		Key:       key,
		PublicURL: u.publicBase + "/" + key,
		ExpiresAt: time.Now().Add(expiry),
	}, nil
}
