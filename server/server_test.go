package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ewa/raredx/internal/types"
)

type fakeService struct {
	state   types.SystemState
	lastReq types.QueryRequest
	answer  string
}

func (s *fakeService) State() types.SystemState {
	return s.state
}

func (s *fakeService) Query(ctx context.Context, req types.QueryRequest) types.QueryResponse {
	s.lastReq = req
	if s.state != types.StateReady {
		return types.QueryResponse{Answer: "System is not ready. Please check the logs."}
	}
	return types.QueryResponse{Answer: s.answer}
}

func newTestServer(state types.SystemState) (*fakeService, *httptest.Server) {
	service := &fakeService{state: state, answer: "synthesized answer"}
	srv := New(service, []string{"Fabry Disease", "Gaucher Disease"})
	return service, httptest.NewServer(srv.Handler())
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(types.StateReady)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ready", body["state"])
}

func TestDiseasesListsSentinelFirst(t *testing.T) {
	_, ts := newTestServer(types.StateReady)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/diseases")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string][]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, []string{types.AllDiseases, "Fabry Disease", "Gaucher Disease"}, body["diseases"])
}

func TestExamples(t *testing.T) {
	_, ts := newTestServer(types.StateReady)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/examples")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string][]Example
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body["examples"], 3)
	assert.Equal(t, "Fabry Disease", body["examples"][0].Disease)
}

func TestQueryEndpoint(t *testing.T) {
	service, ts := newTestServer(types.StateReady)
	defer ts.Close()

	payload := `{"question": "What are the main clinical manifestations?", "disease": "Fabry Disease"}`
	resp, err := http.Post(ts.URL+"/api/query", "application/json", strings.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body types.QueryResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "synthesized answer", body.Answer)
	assert.Equal(t, "Fabry Disease", service.lastReq.Disease)
	assert.Equal(t, "What are the main clinical manifestations?", service.lastReq.Question)
}

func TestQueryRequiresQuestion(t *testing.T) {
	_, ts := newTestServer(types.StateReady)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/query", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestQueryRejectsGet(t *testing.T) {
	_, ts := newTestServer(types.StateReady)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/query")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestQueryWhileNotReady(t *testing.T) {
	_, ts := newTestServer(types.StateFailed)
	defer ts.Close()

	payload := `{"question": "anything"}`
	resp, err := http.Post(ts.URL+"/api/query", "application/json", strings.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()

	var body types.QueryResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body.Answer, "not ready")
}
