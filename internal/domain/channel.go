package domain

import "context"

// Channel is the interface for a chat platform listener.
type Channel interface {
	Name() string
	Start(ctx context.Context, handler MessageHandler) error
	Stop() error
}

// MessageHandler consumes inbound items one at a time.
type MessageHandler interface {
	Handle(ctx context.Context, item MediaItem) error
}
