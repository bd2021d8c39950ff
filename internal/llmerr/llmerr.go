// Package llmerr maps OpenAI-compatible client errors onto the domain error kinds.
package llmerr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	sdk "github.com/openai/openai-go"

	"transcriptqa/internal/domain"
)

// Classify wraps err with domain.ErrModelNotFound or domain.ErrServiceUnavailable
// when it matches one of those kinds. Other errors are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		msg := strings.ToLower(apiErr.Message)
		switch {
		case apiErr.StatusCode == http.StatusNotFound, strings.Contains(msg, "not found"):
			return fmt.Errorf("%w: %w", domain.ErrModelNotFound, err)
		case apiErr.StatusCode >= 500:
			return fmt.Errorf("%w: %w", domain.ErrServiceUnavailable, err)
		default:
			return err
		}
	}
	return fmt.Errorf("%w: %w", domain.ErrServiceUnavailable, err)
}
