package backend

import (
	"context"
	"time"

	"financas/internal/collection"
)

// CleanupFunc releases what CreateBackend opened.
type CleanupFunc func() error

// ConsumeFunc runs a background change consumer until ctx is done.
type ConsumeFunc func(ctx context.Context) error

// BackendResult contains the collection and its optional companions.
type BackendResult struct {
	Collection collection.Collection
	// Consume is nil when no change fan-out is configured.
	Consume ConsumeFunc
	Cleanup CleanupFunc
}

// Factory opens the transaction collection named by a Config.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config is the slice of the application config a backend needs.
type Config struct {
	Type BackendType

	// sqlite only
	SQLiteDBPath string
	PollInterval time.Duration
	AMQPURL      string
	AMQPExchange string
}

// BackendType names where transactions are kept.
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
