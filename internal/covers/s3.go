package covers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/prn-tf/lendery/internal/config"
)

// Mirror archives validated cover images to S3-compatible storage so
// listings survive the original image URL going dark.
type Mirror struct {
	client *s3.Client
	bucket string
	logger zerolog.Logger
}

// NewMirror creates a cover image mirror from configuration.
func NewMirror(ctx context.Context, cfg config.CoverMirrorConfig, logger zerolog.Logger) (*Mirror, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Mirror{
		client: client,
		bucket: cfg.Bucket,
		logger: logger.With().Str("component", "cover_mirror").Logger(),
	}, nil
}

// Archive downloads the cover image and stores a copy under the book ID.
// Failures are logged but never surfaced to the listing flow; mirroring
// is best-effort.
func (m *Mirror) Archive(ctx context.Context, bookID int64, imageURL string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		m.logger.Warn().Err(err).Int64("book_id", bookID).Msg("failed to build cover request")
		return
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		m.logger.Warn().Err(err).Int64("book_id", bookID).Msg("failed to fetch cover image")
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		m.logger.Warn().Err(err).Int64("book_id", bookID).Msg("failed to read cover image")
		return
	}

	key := "covers/" + strconv.FormatInt(bookID, 10)
	contentType := resp.Header.Get("Content-Type")

	start := time.Now()
	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(m.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		m.logger.Warn().Err(err).Int64("book_id", bookID).Msg("failed to mirror cover image")
		return
	}

	m.logger.Debug().
		Int64("book_id", bookID).
		Str("key", key).
		Int("bytes", len(body)).
		Dur("duration", time.Since(start)).
		Msg("cover image mirrored")
}
