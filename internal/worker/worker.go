package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/fluxolabs/fluxo-backend/internal/agent"
	"github.com/fluxolabs/fluxo-backend/internal/worker/domain"
	"github.com/fluxolabs/fluxo-backend/shared/rabbitmq"
	"github.com/google/uuid"
)

// Store is the job persistence surface the worker needs.
type Store interface {
	ClaimJob(ctx context.Context, jobID string) (*domain.Job, error)
	GetJobState(ctx context.Context, jobID string) (string, error)
	MarkSuccess(ctx context.Context, jobID string, result any) error
	MarkFailure(ctx context.Context, jobID, errorKind, errorMessage string) error
}

// Config holds worker configuration
type Config struct {
	Logger        *slog.Logger
	Storage       Store
	RabbitClient  *rabbitmq.Client
	Registry      *agent.Registry
	Concurrency   int
	PrefetchCount int
	JobTimeout    time.Duration
	QueueName     string
}

// Worker consumes queued analysis jobs and runs them through the
// registered agents.
type Worker struct {
	logger        *slog.Logger
	storage       Store
	rabbitClient  *rabbitmq.Client
	registry      *agent.Registry
	concurrency   int
	prefetchCount int
	jobTimeout    time.Duration
	queueName     string
	workerID      string
	jobsChan      chan *domain.JobMessage
	wg            sync.WaitGroup
	stopChan      chan struct{}
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "worker"
	}

	return &Worker{
		logger:        cfg.Logger,
		storage:       cfg.Storage,
		rabbitClient:  cfg.RabbitClient,
		registry:      cfg.Registry,
		concurrency:   cfg.Concurrency,
		prefetchCount: cfg.PrefetchCount,
		jobTimeout:    cfg.JobTimeout,
		queueName:     cfg.QueueName,
		workerID:      fmt.Sprintf("%s-%s", hostname, uuid.New().String()[:8]),
		jobsChan:      make(chan *domain.JobMessage),
		stopChan:      make(chan struct{}),
	}
}

// Start begins processing jobs. It blocks until the context is
// canceled or the delivery channel closes.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
		slog.Duration("job_timeout", w.jobTimeout),
		slog.Any("agents", w.registry.Names()),
	)

	deliveries, err := w.setupConsumer(ctx)
	if err != nil {
		return fmt.Errorf("failed to set up consumer: %w", err)
	}

	w.spawnWorkerPool(ctx)

	w.startMessageDispatcher(ctx, deliveries)

	return nil
}

// Stop gracefully stops the worker
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	close(w.stopChan)
	w.wg.Wait()
	w.logger.Info("Worker stopped")
}
