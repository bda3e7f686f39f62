package backend

import (
	"context"
	"errors"
	"fmt"

	"financas/internal/amqp"
	"financas/internal/collection/memory"
	"financas/internal/log"
	"financas/internal/metrics"
	"financas/internal/storage"
	"financas/internal/worker"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger  *log.Logger
	metrics *metrics.Metrics
}

// NewFactory creates a new backend factory. Both arguments may be nil.
func NewFactory(logger *log.Logger, m *metrics.Metrics) Factory {
	if logger == nil {
		logger = log.Default()
	}
	return &DefaultFactory{
		logger:  logger.WithComponent(log.ComponentBackend),
		metrics: m,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	opts := []storage.Option{
		storage.WithLogger(f.logger),
		storage.WithPollInterval(config.PollInterval),
	}

	// Initialize AMQP client (optional)
	var amqpClient *amqp.Client
	if config.AMQPURL != "" {
		var err error
		amqpClient, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange,
			amqp.WithLogger(f.logger), amqp.WithMetrics(f.metrics))
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without change fan-out",
				log.FieldError, err)
		} else {
			f.logger.InfoContext(ctx, "Initialized AMQP client", "exchange", config.AMQPExchange)
			opts = append(opts, storage.WithNotifier(amqpClient))
		}
	}

	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, opts...)
	if err != nil {
		if amqpClient != nil {
			amqpClient.Close()
		}
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	result := &BackendResult{
		Collection: repo,
		Cleanup:    repo.Close,
	}
	if amqpClient != nil {
		changes := worker.NewChangeWorker(repo, f.logger)
		result.Consume = func(ctx context.Context) error {
			return amqpClient.Consume(ctx, changes.Handler(ctx))
		}
		result.Cleanup = func() error {
			return errors.Join(repo.Close(), amqpClient.Close())
		}
	}

	f.logger.InfoContext(ctx, "Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"poll_interval", config.PollInterval.String(),
		"amqp_enabled", amqpClient != nil)

	return result, nil
}

func (f *DefaultFactory) createMemoryBackend() (*BackendResult, error) {
	f.logger.Info("Initialized memory backend")

	return &BackendResult{
		Collection: memory.New(),
		Cleanup:    func() error { return nil },
	}, nil
}
