//go:generate go run go.uber.org/mock/mockgen -source=completer.go -destination=mocks/mock_completer.go -package=mocks
package assistant

import (
	"context"

	"github.com/carebridge/carebridge/internal/platform/llm"
)

// Completer is the hosted model boundary. *llm.Client satisfies it.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}
