// Package r2 keeps an off-site copy of every rendered quote in a Cloudflare
// R2 bucket, reached through the S3 API.
package r2

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Credentials identify the account and bucket documents are archived to.
type Credentials struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
}

// Validate reports every missing field at once.
func (c Credentials) Validate() error {
	fields := []struct{ name, value string }{
		{"account id", c.AccountID},
		{"access key id", c.AccessKeyID},
		{"secret access key", c.SecretAccessKey},
		{"bucket", c.Bucket},
	}
	var missing []string
	for _, f := range fields {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("R2 not configured, missing %s", strings.Join(missing, ", "))
}

// Endpoint is the S3 endpoint of an R2 account.
func (c Credentials) Endpoint() string {
	return "https://" + c.AccountID + ".r2.cloudflarestorage.com"
}

// Bucket stores and removes objects in one R2 bucket.
type Bucket struct {
	api  *s3.Client
	name string
}

// Open builds an S3 client for the R2 account in creds.
func Open(ctx context.Context, creds Credentials) (*Bucket, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(creds.AccessKeyID, creds.SecretAccessKey, "")),
		config.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &Bucket{
		api: s3.NewFromConfig(cfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(creds.Endpoint())
		}),
		name: creds.Bucket,
	}, nil
}

// Put writes body under key, replacing any existing object.
func (b *Bucket) Put(ctx context.Context, key string, body io.Reader, contentType string) error {
	if _, err := b.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &b.name,
		Key:         &key,
		Body:        body,
		ContentType: &contentType,
	}); err != nil {
		return fmt.Errorf("r2 put %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error in S3.
func (b *Bucket) Delete(ctx context.Context, key string) error {
	if _, err := b.api.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &b.name, Key: &key}); err != nil {
		return fmt.Errorf("r2 delete %s: %w", key, err)
	}
	return nil
}

// Exists reports whether key is present.
func (b *Bucket) Exists(ctx context.Context, key string) (bool, error) {
	_, err := b.api.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &b.name, Key: &key})
	var notFound *types.NotFound
	switch {
	case err == nil:
		return true, nil
	case errors.As(err, &notFound):
		return false, nil
	}
	return false, fmt.Errorf("r2 head %s: %w", key, err)
}
