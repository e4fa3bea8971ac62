package spaces

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type Config struct {
	Key    string `toml:"key"`
	Secret string `toml:"secret"`
	Region string `toml:"region"`
	Bucket string `toml:"bucket"`
	Prefix string `toml:"prefix"`
}

func (c Config) Enabled() bool {
	return c.Key != "" && c.Secret != "" && c.Bucket != "" && c.Region != ""
}

// ObjectPutter is the slice of the S3 client the backup uses.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Backup uploads history snapshots to a DigitalOcean Spaces bucket.
type Backup struct {
	client ObjectPutter
	bucket string
	prefix string
}

func NewBackup(ctx context.Context, cfg Config) (*Backup, error) {
	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL: fmt.Sprintf("https://%s.digitaloceanspaces.com", region),
		}, nil
	})

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithEndpointResolverWithOptions(resolver),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.Key, cfg.Secret, "")),
		config.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load Spaces config: %w", err)
	}

	return NewBackupWithClient(s3.NewFromConfig(awsCfg), cfg.Bucket, cfg.Prefix), nil
}

func NewBackupWithClient(client ObjectPutter, bucket, prefix string) *Backup {
	return &Backup{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

// Upload stores body twice: under a timestamped key and as latest.jsonl.
// It returns the timestamped key.
func (b *Backup) Upload(ctx context.Context, body []byte, at time.Time) (string, error) {
	key := path.Join(b.prefix, "history", at.UTC().Format("20060102T150405Z")+".jsonl")
	latest := path.Join(b.prefix, "history", "latest.jsonl")

	for _, k := range []string{key, latest} {
		if _, err := b.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(b.bucket),
			Key:         aws.String(k),
			Body:        bytes.NewReader(body),
			ContentType: aws.String("application/x-ndjson"),
			ACL:         "private",
		}); err != nil {
			return "", fmt.Errorf("failed to upload %s: %w", k, err)
		}
	}
	return key, nil
}
