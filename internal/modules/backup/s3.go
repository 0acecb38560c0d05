package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	appcfg "github.com/lingokit/core/internal/config"
)

func newS3Client(cfg appcfg.S3Config) (*s3.Client, error) {
	if strings.TrimSpace(cfg.Bucket) == "" || strings.TrimSpace(cfg.Region) == "" {
		return nil, errors.New("incomplete s3 config: bucket and region are required")
	}

	awsCfg := aws.Config{
		Region:      cfg.Region,
		Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
			o.BaseEndpoint = &endpoint
			o.UsePathStyle = true
		}
	}), nil
}

func (s *Service) uploadToS3(ctx context.Context, filename string, payload []byte) error {
	client, err := newS3Client(s.cfg.S3)
	if err != nil {
		return err
	}

	key := objectKey(s.cfg.S3.Prefix, filename, time.Now())
	contentType := "application/zip"
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &s.cfg.S3.Bucket,
		Key:         &key,
		Body:        bytes.NewReader(payload),
		ContentType: &contentType,
	})
	return err
}

// objectKey lays archives out by year and month under the configured prefix.
func objectKey(prefix, filename string, now time.Time) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		prefix = "backups"
	}
	return path.Join(prefix, fmt.Sprintf("%04d", now.Year()), fmt.Sprintf("%02d", now.Month()), filename)
}
