// Package oracle wraps the external text-classification service behind a
// narrow contract: a prompt goes in, a structured JSON result comes out.
// The pipeline never depends on which underlying model answers, only on
// the shape contract being honored.
package oracle

import (
	"context"
)

// Oracle is the classification oracle contract. Classify sends the prompt
// and decodes the JSON reply into out, which must be a pointer.
// Implementations must fail with an error whose message the retry policy
// can inspect for rate-limit signatures.
type Oracle interface {
	Classify(ctx context.Context, prompt string, out interface{}) error
}
