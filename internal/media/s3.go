package media

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config selects the bucket generated media is copied to.
type S3Config struct {
	Bucket   string `yaml:"bucket"`
	Prefix   string `yaml:"prefix"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
}

// Enabled reports whether a bucket is configured.
func (c S3Config) Enabled() bool { return c.Bucket != "" }

// PutObjectAPI is the subset of the S3 client used by S3Mirror.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Mirror uploads saved media to S3.
type S3Mirror struct {
	client PutObjectAPI
	bucket string
	prefix string
}

// NewS3Mirror loads the default AWS credential chain and builds a mirror.
func NewS3Mirror(ctx context.Context, cfg S3Config) (*S3Mirror, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}
	return NewS3MirrorWithClient(s3.NewFromConfig(awsCfg, s3Opts...), cfg), nil
}

// NewS3MirrorWithClient builds a mirror around an existing client.
func NewS3MirrorWithClient(client PutObjectAPI, cfg S3Config) *S3Mirror {
	return &S3Mirror{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}
}

// Put uploads data under prefix/<dir>/<name> and returns the s3:// URI. dir is
// cleaned to a relative key path, so "./temp" and "/srv/temp" map to "temp"
// and "srv/temp".
func (m *S3Mirror) Put(ctx context.Context, dir, name string, data []byte) (string, error) {
	key := objectKey(m.prefix, dir, name)
	localPath := filepath.Join(dir, name)
	input := &s3.PutObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		input.ContentType = aws.String(ct)
	}
	if _, err := m.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("uploading %s to s3://%s/%s: %w", localPath, m.bucket, key, err)
	}
	return fmt.Sprintf("s3://%s/%s", m.bucket, key), nil
}

func objectKey(prefix, dir, name string) string {
	rel := strings.TrimPrefix(path.Clean("/"+filepath.ToSlash(dir)), "/")
	return path.Join(prefix, rel, name)
}
