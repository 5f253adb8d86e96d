// Package covers validates and optionally archives book cover images.
// A book listing carries an image URL supplied by its owner; before the
// listing is accepted, the URL must resolve to an actual image.
package covers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/lendery/internal/domain"
)

// Validator checks that a cover image URL points at an image resource.
type Validator interface {
	Validate(ctx context.Context, imageURL string) error
}

// HTTPValidator fetches the URL and inspects the Content-Type header.
type HTTPValidator struct {
	client *http.Client
	logger zerolog.Logger
}

// NewHTTPValidator creates a validator with the given request timeout.
func NewHTTPValidator(timeout time.Duration, logger zerolog.Logger) *HTTPValidator {
	return &HTTPValidator{
		client: &http.Client{Timeout: timeout},
		logger: logger.With().Str("component", "covers").Logger(),
	}
}

// Validate fetches imageURL and verifies the response is an image.
// Any network failure, non-2xx status or non-image content type is
// reported as domain.ErrInvalidImageURL.
func (v *HTTPValidator) Validate(ctx context.Context, imageURL string) error {
	if imageURL == "" {
		return fmt.Errorf("%w: empty URL", domain.ErrInvalidImageURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidImageURL, err)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		v.logger.Debug().Err(err).Str("url", imageURL).Msg("cover image fetch failed")
		return fmt.Errorf("%w: unreachable", domain.ErrInvalidImageURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d", domain.ErrInvalidImageURL, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image") {
		return fmt.Errorf("%w: content type %q", domain.ErrInvalidImageURL, contentType)
	}

	return nil
}

// Ensure HTTPValidator implements Validator.
var _ Validator = (*HTTPValidator)(nil)
