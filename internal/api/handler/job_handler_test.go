package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fluxolabs/fluxo-backend/internal/api/domain"
	"github.com/fluxolabs/fluxo-backend/internal/api/dto"
	"github.com/fluxolabs/fluxo-backend/internal/api/handler"
	"github.com/fluxolabs/fluxo-backend/internal/api/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeJobs(n int) []model.Job {
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	jobs := make([]model.Job, n)
	for i := range jobs {
		jobs[i] = model.Job{
			JobID:     uuid.New().String(),
			Agent:     domain.AgentOnchain,
			State:     domain.JobStatePending,
			CreatedAt: base.Add(-time.Duration(i) * time.Minute),
			UpdatedAt: base.Add(-time.Duration(i) * time.Minute),
		}
	}
	return jobs
}

func TestListJobs(t *testing.T) {
	tests := []struct {
		name         string
		url          string
		storeResult  []model.Job
		wantStatus   int
		wantJobs     int
		wantMorePage bool
	}{
		{
			name:        "empty listing",
			url:         "/api/v1/jobs",
			storeResult: nil,
			wantStatus:  http.StatusOK,
			wantJobs:    0,
		},
		{
			name:        "single page",
			url:         "/api/v1/jobs",
			storeResult: makeJobs(3),
			wantStatus:  http.StatusOK,
			wantJobs:    3,
		},
		{
			name: "extra row signals next page",
			url:  "/api/v1/jobs?page_size=5",
			// Store returns page_size+1 rows when more exist.
			storeResult:  makeJobs(6),
			wantStatus:   http.StatusOK,
			wantJobs:     5,
			wantMorePage: true,
		},
		{
			name:       "invalid cursor",
			url:        "/api/v1/jobs?cursor=%21%21%21",
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			store.listResult = tt.storeResult
			r := setupTestRouter(store, &fakePublisher{}, nil)

			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			require.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus != http.StatusOK {
				return
			}

			var resp dto.ListJobsResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Len(t, resp.Jobs, tt.wantJobs)

			if tt.wantMorePage {
				require.NotEmpty(t, resp.NextCursor)

				cursor, err := handler.DecodeJobCursor(resp.NextCursor)
				require.NoError(t, err)
				last := tt.storeResult[tt.wantJobs-1]
				assert.Equal(t, last.JobID, cursor.JobID)
				assert.True(t, last.CreatedAt.Equal(cursor.CreatedAt))
			} else {
				assert.Empty(t, resp.NextCursor)
			}
		})
	}
}

func TestListJobs_ProjectionOmitsPayloads(t *testing.T) {
	store := newFakeStore()
	jobs := makeJobs(1)
	jobs[0].Payload = json.RawMessage(`{"wallet":"0xdeadbeef"}`)
	jobs[0].Result = json.RawMessage(`{"secret":"large result"}`)
	store.listResult = jobs

	r := setupTestRouter(store, &fakePublisher{}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/jobs", nil))
	require.Equal(t, http.StatusOK, w.Code)

	assert.NotContains(t, w.Body.String(), "0xdeadbeef")
	assert.NotContains(t, w.Body.String(), "large result")
}

func TestListJobs_PageSizeClamped(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		wantSize int
	}{
		{name: "default page size", url: "/api/v1/jobs", wantSize: 20},
		{name: "explicit page size", url: "/api/v1/jobs?page_size=50", wantSize: 50},
		{name: "oversized page size clamped", url: "/api/v1/jobs?page_size=5000", wantSize: 100},
		{name: "negative page size falls back to default", url: "/api/v1/jobs?page_size=-1", wantSize: 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			r := setupTestRouter(store, &fakePublisher{}, nil)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.url, nil))
			require.Equal(t, http.StatusOK, w.Code)

			assert.Equal(t, tt.wantSize, store.lastFilter.PageSize)
		})
	}
}
