package llm

import (
	"context"
	"errors"
	"fmt"

	"calorie-tracker/internal/shared"
)

// ContentResponse contains the generated text and metadata like token usage.
type ContentResponse struct {
	Content string
	Usage   shared.TokenUsage
}

// TextGenerator is an interface for generating text from a prompt.
type TextGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (ContentResponse, error)
}

// VisionGenerator answers an instruction about a publicly reachable image.
type VisionGenerator interface {
	AnalyzeImage(ctx context.Context, instruction, imageURL string) (ContentResponse, error)
}

// Closer is an interface for closing resources.
type Closer interface {
	Close() error
}

// ErrNoContent means the provider answered but returned no candidate text.
var ErrNoContent = errors.New("no content generated")

// StatusError is returned for non-2xx HTTP responses.
type StatusError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s api error: status=%d body=%s", e.Service, e.StatusCode, e.Body)
}
