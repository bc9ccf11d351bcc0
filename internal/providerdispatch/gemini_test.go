package providerdispatch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeTokenSource struct {
	token     string
	projectID string
	err       error
}

func (f fakeTokenSource) Token(ctx context.Context, provider, model string) (string, string, error) {
	return f.token, f.projectID, f.err
}

func TestGeminiPlannerReturnsCandidateText(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{\"selected_model\":\"gemini-2.5-pro\"}"}]}}]}`))
	}))
	defer server.Close()

	planner := GeminiPlanner{
		Tokens:   fakeTokenSource{token: "gcp-token", projectID: "proj-1"},
		Endpoint: server.URL,
	}
	require.Equal(t, "gemini", planner.Name())

	out, err := planner.Plan(context.Background(), "gemini-2.5-pro", "pick a model")
	require.NoError(t, err)
	require.Equal(t, `{"selected_model":"gemini-2.5-pro"}`, out)
	require.Equal(t, "Bearer gcp-token", gotAuth)
}

func TestGeminiPlannerSurfacesTokenError(t *testing.T) {
	planner := GeminiPlanner{
		Tokens: fakeTokenSource{err: errors.New("token pool is empty")},
	}
	_, err := planner.Plan(context.Background(), "gemini-2.5-pro", "pick a model")
	require.Error(t, err)
}

func TestGeminiPlannerSurfacesHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":"unavailable"}`))
	}))
	defer server.Close()

	planner := GeminiPlanner{
		Tokens:   fakeTokenSource{token: "t"},
		Endpoint: server.URL,
	}
	_, err := planner.Plan(context.Background(), "gemini-2.5-pro", "pick a model")
	require.Error(t, err)
}
