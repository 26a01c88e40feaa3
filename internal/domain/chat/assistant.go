//go:generate go run go.uber.org/mock/mockgen -source=assistant.go -destination=mocks/mock_assistant.go -package=mocks
package chat

import (
	"context"

	"github.com/carebridge/carebridge/internal/assistant"
)

// Assistant is satisfied by *assistant.Service.
type Assistant interface {
	Chat(ctx context.Context, req assistant.TurnRequest) assistant.TurnResult
}
