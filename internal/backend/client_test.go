package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexanderramin/tasktree/internal/contract"
	"github.com/alexanderramin/tasktree/internal/domain"
)

func testConfig(baseURL string) Config {
	cfg := DefaultConfig()
	cfg.BaseURL = baseURL
	cfg.TimeoutMs = 2000
	return cfg
}

type recordingObserver struct {
	mu     sync.Mutex
	events []CallEvent
}

func (o *recordingObserver) OnCallComplete(e CallEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, e)
}

func (o *recordingObserver) last() CallEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.events[len(o.events)-1]
}

func samplePayload() contract.AssignmentPayload {
	return contract.AssignmentPayload{
		ProjectID:  "p 1",
		Categories: []contract.CategoryRecord{{ID: "c1", Name: "Operations", Rank: 1, Implicit: true}},
		Groups:     []contract.GroupRecord{{ID: "g1", Name: "Finance", Rank: 1, ParentID: "c1", Implicit: true}},
		Templates:  []contract.TemplateRecord{{ID: "t1", Name: "Audit", Rank: 1, BudgetedHours: 8, GroupID: "g1"}},
		Subtasks:   []contract.SubtaskRecord{},
	}
}

func TestClient_ListProjects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/projects", r.URL.Path)
		assert.Equal(t, "active", r.URL.Query().Get("status"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":1,"name":"Apollo","status":"active"},{"id":"p2","name":"Gemini"}]`))
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Token = "secret"
	obs := &recordingObserver{}
	projects, err := NewHTTPClient(cfg, obs).ListProjects(context.Background(), "active")

	require.NoError(t, err)
	assert.Equal(t, []contract.ProjectRef{
		{ID: "1", Name: "Apollo", Status: "active"},
		{ID: "p2", Name: "Gemini"},
	}, projects)
	assert.Equal(t, CallEvent{
		Op: "list_projects", Method: http.MethodGet, Path: "/api/projects?status=active",
		Status: http.StatusOK, Attempts: 1, LatencyMs: obs.last().LatencyMs, Success: true,
	}, obs.last())
}

func TestClient_FetchTree(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/task-categories/tree", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Write([]byte(`[{"id":"c1","name":"Ops","rank":1,"groups":[{"id":7,"name":"Fin","rank":1,
			"templates":[{"id":"t1","name":"Audit","rank":1,"budgetedHours":8,"subtasks":[]}]}]}]`))
	}))
	defer srv.Close()

	tree, err := NewHTTPClient(testConfig(srv.URL), nil).FetchTree(context.Background())

	require.NoError(t, err)
	require.Len(t, tree, 1)
	require.Len(t, tree[0].Groups, 1)
	assert.Equal(t, contract.ID("7"), tree[0].Groups[0].ID)
	assert.Equal(t, 8.0, tree[0].Groups[0].Templates[0].BudgetedHours)
}

func TestClient_ReadRetriesServerErrors(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("internal error"))
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.MaxRetries = 1
	obs := &recordingObserver{}
	_, err := NewHTTPClient(cfg, obs).FetchTree(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int32(2), attempts.Load())
	assert.Equal(t, 2, obs.last().Attempts)
}

func TestClient_ReadGivesUpAfterRetries(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(contract.ErrorResponse{Message: "upstream down"})
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.MaxRetries = 2
	_, err := NewHTTPClient(cfg, nil).ListProjects(context.Background(), "")

	var terr *TransportError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, http.StatusBadGateway, terr.Status)
	assert.Equal(t, "upstream down", terr.Message)
	assert.True(t, terr.Temporary())
	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestClient_ReadDoesNotRetryClientErrors(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"token expired"}`))
	}))
	defer srv.Close()

	_, err := NewHTTPClient(testConfig(srv.URL), nil).ListProjects(context.Background(), "")

	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.Contains(t, err.Error(), "token expired")
	assert.Equal(t, int32(1), attempts.Load())
}

func TestClient_SubmitSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/projects/p 1/assignments", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var got contract.AssignmentPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, samplePayload(), got)

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(contract.AssignmentResult{AssignmentID: "a1", Created: 3})
	}))
	defer srv.Close()

	res, err := NewHTTPClient(testConfig(srv.URL), nil).SubmitAssignment(context.Background(), samplePayload())

	require.NoError(t, err)
	assert.Equal(t, &contract.AssignmentResult{AssignmentID: "a1", Created: 3}, res)
}

func TestClient_SubmitEmptySuccessBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	res, err := NewHTTPClient(testConfig(srv.URL), nil).SubmitAssignment(context.Background(), samplePayload())

	require.NoError(t, err)
	assert.Equal(t, &contract.AssignmentResult{}, res)
}

func TestClient_SubmitDuplicates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"duplicates":[{"id":"t2","name":"Audit FY24","kind":"template"}]}`))
	}))
	defer srv.Close()

	obs := &recordingObserver{}
	_, err := NewHTTPClient(testConfig(srv.URL), obs).SubmitAssignment(context.Background(), samplePayload())

	require.ErrorIs(t, err, domain.ErrDuplicateNames)
	assert.NotErrorIs(t, err, domain.ErrTransport)
	var dup *DuplicateNamesError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, []contract.Duplicate{{ID: "t2", Name: "Audit FY24", Kind: "template"}}, dup.Duplicates)
	assert.Equal(t, "CONFLICT", obs.last().ErrorCode)
	assert.False(t, obs.last().Success)
}

func TestClient_SubmitConflictWithoutTriplesIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"message":"project is archived"}`))
	}))
	defer srv.Close()

	_, err := NewHTTPClient(testConfig(srv.URL), nil).SubmitAssignment(context.Background(), samplePayload())

	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.Contains(t, err.Error(), "project is archived")
}

func TestClient_SubmitIsNeverRetried(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.MaxRetries = 3
	_, err := NewHTTPClient(cfg, nil).SubmitAssignment(context.Background(), samplePayload())

	var terr *TransportError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, http.StatusServiceUnavailable, terr.Status)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(500 * time.Millisecond):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.TimeoutMs = 50
	obs := &recordingObserver{}
	_, err := NewHTTPClient(cfg, obs).SubmitAssignment(context.Background(), samplePayload())

	assert.ErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.Equal(t, "TIMEOUT", obs.last().ErrorCode)
}

func TestClient_Unavailable(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1") // nothing listening
	cfg.MaxRetries = 0

	_, err := NewHTTPClient(cfg, nil).FetchTree(context.Background())

	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, domain.ErrTransport)
}

func TestClient_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not":"a list"}`))
	}))
	defer srv.Close()

	_, err := NewHTTPClient(testConfig(srv.URL), nil).FetchTree(context.Background())

	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.Contains(t, err.Error(), "decoding response")
}

func TestLogObserver(t *testing.T) {
	var buf bytes.Buffer
	obs := NewLogObserver(slog.New(slog.NewTextHandler(&buf, nil)))

	obs.OnCallComplete(CallEvent{Op: "fetch_tree", Method: "GET", Path: "/api/task-categories/tree", Status: 200, Attempts: 1, Success: true})
	obs.OnCallComplete(CallEvent{Op: "submit_assignment", Method: "POST", Status: 409, Attempts: 1, ErrorCode: "CONFLICT"})

	out := buf.String()
	assert.Contains(t, out, "msg=backend_call")
	assert.Contains(t, out, "op=fetch_tree")
	assert.Contains(t, out, "status=ok")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "status=err:CONFLICT")
}
