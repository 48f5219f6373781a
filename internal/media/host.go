package media

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	gonanoid "github.com/matoous/go-nanoid/v2"

	config "github.com/socialcast-io/socialcast/configs"
)

// Host turns a transient in-memory file into a publicly reachable URL.
// Platforms with URL-only media protocols (Instagram containers, scheduled
// dispatch) depend on it; everything else uploads buffers directly.
type Host interface {
	Put(ctx context.Context, f *File) (string, error)
}

// R2Host stores files in a Cloudflare R2 bucket fronted by a public URL.
type R2Host struct {
	cfg    config.R2
	client *s3.Client
}

func NewR2Host(ctx context.Context, cfg config.R2) (*R2Host, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("load r2 credentials: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID))
	})

	return &R2Host{cfg: cfg, client: client}, nil
}

func (h *R2Host) Put(ctx context.Context, f *File) (string, error) {
	key, err := gonanoid.New()
	if err != nil {
		return "", err
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(h.cfg.BucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(f.Data),
		ContentType: aws.String(f.MimeType),
	}

	if _, err := h.client.PutObject(ctx, input); err != nil {
		slog.Info(err.Error())
		return "", fmt.Errorf("upload %q to r2: %w", f.Name, err)
	}

	return strings.TrimSuffix(h.cfg.PublicURL, "/") + "/" + key, nil
}
