package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/fluxolabs/fluxo-backend/internal/agent"
	"github.com/fluxolabs/fluxo-backend/internal/worker/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockStore is an in-memory Store tracking state transitions.
type mockStore struct {
	job        *domain.Job
	claimErr   error
	successes  map[string]any
	failures   map[string][2]string
	markErr    error
	stateReads int
}

func newMockStore(job *domain.Job) *mockStore {
	return &mockStore{
		job:       job,
		successes: make(map[string]any),
		failures:  make(map[string][2]string),
	}
}

func (m *mockStore) ClaimJob(ctx context.Context, jobID string) (*domain.Job, error) {
	if m.claimErr != nil {
		return nil, m.claimErr
	}
	if m.job == nil || m.job.JobID != jobID {
		return nil, domain.ErrJobAlreadyClaimed
	}
	claimed := *m.job
	claimed.State = domain.JobStateRunning
	return &claimed, nil
}

func (m *mockStore) GetJobState(ctx context.Context, jobID string) (string, error) {
	m.stateReads++
	if m.job != nil && m.job.JobID == jobID {
		return m.job.State, nil
	}
	return "", domain.ErrJobNotFound
}

func (m *mockStore) MarkSuccess(ctx context.Context, jobID string, result any) error {
	if m.markErr != nil {
		return m.markErr
	}
	m.successes[jobID] = result
	return nil
}

func (m *mockStore) MarkFailure(ctx context.Context, jobID, errorKind, errorMessage string) error {
	if m.markErr != nil {
		return m.markErr
	}
	m.failures[jobID] = [2]string{errorKind, errorMessage}
	return nil
}

// stubResult is a minimal valid agent result.
type stubResult struct {
	Value       string `json:"value"`
	validateErr error
}

func (r *stubResult) Validate() error {
	return r.validateErr
}

// stubAgent runs a canned analyze function.
type stubAgent struct {
	name    string
	analyze func(ctx context.Context, payload json.RawMessage) (agent.Result, error)
}

func (a *stubAgent) Name() string { return a.name }

func (a *stubAgent) Analyze(ctx context.Context, payload json.RawMessage) (agent.Result, error) {
	return a.analyze(ctx, payload)
}

func newTestWorker(store Store, agents ...agent.Agent) *Worker {
	return NewWorker(&Config{
		Logger:      slog.New(slog.DiscardHandler),
		Storage:     store,
		Registry:    agent.NewRegistry(agents...),
		Concurrency: 1,
		JobTimeout:  time.Second,
	})
}

func pendingJob(jobID, agentName string) *domain.Job {
	return &domain.Job{
		JobID:   jobID,
		Agent:   agentName,
		Payload: json.RawMessage(`{"wallet":"0xabc"}`),
		State:   domain.JobStatePending,
	}
}

func TestProcessJob_Success(t *testing.T) {
	store := newMockStore(pendingJob("job-1", "onchain"))

	ag := &stubAgent{
		name: "onchain",
		analyze: func(ctx context.Context, payload json.RawMessage) (agent.Result, error) {
			return &stubResult{Value: "ok"}, nil
		},
	}

	w := newTestWorker(store, ag)

	err := w.processJob(context.Background(), &domain.JobMessage{JobID: "job-1", Agent: "onchain"})
	require.NoError(t, err, "success must ack")

	require.Contains(t, store.successes, "job-1")
	assert.Empty(t, store.failures)
}

func TestProcessJob_AgentFailureIsStoredAndAcked(t *testing.T) {
	tests := []struct {
		name        string
		analyzeErr  error
		wantKind    string
		wantMessage string
	}{
		{
			name:        "typed invalid payload",
			analyzeErr:  agent.NewError(agent.KindInvalidPayload, "invalid wallet address"),
			wantKind:    "invalid_payload",
			wantMessage: "invalid wallet address",
		},
		{
			name:        "typed provider error",
			analyzeErr:  agent.WrapError(agent.KindProviderError, "rpc unavailable", errors.New("dial tcp: refused")),
			wantKind:    "provider_error",
			wantMessage: "rpc unavailable",
		},
		{
			name:       "untyped error maps to internal",
			analyzeErr: errors.New("something broke"),
			wantKind:   "internal",
		},
		{
			name:       "deadline maps to provider timeout",
			analyzeErr: context.DeadlineExceeded,
			wantKind:   "provider_timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMockStore(pendingJob("job-1", "onchain"))

			ag := &stubAgent{
				name: "onchain",
				analyze: func(ctx context.Context, payload json.RawMessage) (agent.Result, error) {
					return nil, tt.analyzeErr
				},
			}

			w := newTestWorker(store, ag)

			err := w.processJob(context.Background(), &domain.JobMessage{JobID: "job-1", Agent: "onchain"})
			require.NoError(t, err, "stored failure must still ack")

			require.Contains(t, store.failures, "job-1")
			assert.Equal(t, tt.wantKind, store.failures["job-1"][0])
			if tt.wantMessage != "" {
				assert.Equal(t, tt.wantMessage, store.failures["job-1"][1])
			}
			assert.Empty(t, store.successes)
		})
	}
}

func TestProcessJob_InvalidResult(t *testing.T) {
	store := newMockStore(pendingJob("job-1", "onchain"))

	ag := &stubAgent{
		name: "onchain",
		analyze: func(ctx context.Context, payload json.RawMessage) (agent.Result, error) {
			return &stubResult{validateErr: errors.New("total value must not be negative")}, nil
		},
	}

	w := newTestWorker(store, ag)

	err := w.processJob(context.Background(), &domain.JobMessage{JobID: "job-1", Agent: "onchain"})
	require.NoError(t, err)

	require.Contains(t, store.failures, "job-1")
	assert.Equal(t, "invalid_result", store.failures["job-1"][0])
	assert.Empty(t, store.successes, "invalid results must never be stored as SUCCESS")
}

func TestProcessJob_PanicIsRecovered(t *testing.T) {
	store := newMockStore(pendingJob("job-1", "onchain"))

	ag := &stubAgent{
		name: "onchain",
		analyze: func(ctx context.Context, payload json.RawMessage) (agent.Result, error) {
			panic("boom")
		},
	}

	w := newTestWorker(store, ag)

	require.NotPanics(t, func() {
		err := w.processJob(context.Background(), &domain.JobMessage{JobID: "job-1", Agent: "onchain"})
		require.NoError(t, err)
	})

	require.Contains(t, store.failures, "job-1")
	assert.Equal(t, "internal", store.failures["job-1"][0])
}

func TestProcessJob_AlreadyClaimedIsAckedNoOp(t *testing.T) {
	t.Run("row held by another worker", func(t *testing.T) {
		running := pendingJob("job-1", "onchain")
		running.State = domain.JobStateRunning
		store := newMockStore(running)
		store.claimErr = domain.ErrJobAlreadyClaimed

		w := newTestWorker(store, &stubAgent{name: "onchain", analyze: nil})

		err := w.processJob(context.Background(), &domain.JobMessage{JobID: "job-1", Agent: "onchain"})
		require.NoError(t, err, "redelivery of a claimed job must ack without reprocessing")

		assert.Equal(t, 1, store.stateReads, "current state is read for the log")
		assert.Empty(t, store.successes)
		assert.Empty(t, store.failures)
	})

	t.Run("row missing entirely", func(t *testing.T) {
		store := newMockStore(nil)

		w := newTestWorker(store, &stubAgent{name: "onchain", analyze: nil})

		err := w.processJob(context.Background(), &domain.JobMessage{JobID: "job-1", Agent: "onchain"})
		require.NoError(t, err, "messages without a row can never succeed, ack them")

		assert.Equal(t, 1, store.stateReads)
		assert.Empty(t, store.successes)
		assert.Empty(t, store.failures)
	})
}

func TestProcessJob_ClaimDBErrorIsRetryable(t *testing.T) {
	store := newMockStore(pendingJob("job-1", "onchain"))
	store.claimErr = errors.New("connection reset")

	w := newTestWorker(store, &stubAgent{name: "onchain", analyze: nil})

	err := w.processJob(context.Background(), &domain.JobMessage{JobID: "job-1", Agent: "onchain"})
	require.Error(t, err)

	var retryable *domain.RetryableError
	assert.ErrorAs(t, err, &retryable, "transient claim errors must requeue")
}

func TestProcessJob_UnknownAgent(t *testing.T) {
	store := newMockStore(pendingJob("job-1", "quant"))

	w := newTestWorker(store, &stubAgent{name: "onchain", analyze: nil})

	err := w.processJob(context.Background(), &domain.JobMessage{JobID: "job-1", Agent: "quant"})
	require.NoError(t, err)

	require.Contains(t, store.failures, "job-1")
	assert.Equal(t, "internal", store.failures["job-1"][0])
}

func TestShouldRequeueJob(t *testing.T) {
	w := newTestWorker(newMockStore(nil))

	assert.True(t, w.shouldRequeueJob(domain.NewRetryableError(errors.New("transient"))))
	assert.False(t, w.shouldRequeueJob(errors.New("permanent")))
	assert.False(t, w.shouldRequeueJob(domain.ErrJobAlreadyClaimed))
}
