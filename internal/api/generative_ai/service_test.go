package generativeAI

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/FACorreiaa/go-tour-itinerary-studio/internal/api/credentials"
	"github.com/FACorreiaa/go-tour-itinerary-studio/internal/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeGemini answers generateContent and model lookups the way the Gemini REST API does.
func fakeGemini(t *testing.T, status int, body string, calls *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			atomic.AddInt32(calls, 1)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAIClient_GenerateContent(t *testing.T) {
	var calls int32
	srv := fakeGemini(t, http.StatusOK,
		`{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"mainTitle\":\"x\"}"}]}}]}`, &calls)

	client := NewAIClient(credentials.NewEnvProvider("AIzaSyTESTKEY123"), Options{
		TextModel: "gemini-test",
		BaseURL:   srv.URL + "/",
	}, discardLogger())

	text, err := client.GenerateContent(context.Background(), []*genai.Part{genai.NewPartFromText("hi")}, nil)
	require.NoError(t, err)
	assert.Equal(t, `{"mainTitle":"x"}`, text)

	_, err = client.GenerateContent(context.Background(), []*genai.Part{genai.NewPartFromText("again")}, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestAIClient_GenerateContent_NoCredential(t *testing.T) {
	client := NewAIClient(credentials.NewEnvProvider(""), Options{TextModel: "gemini-test"}, discardLogger())
	_, err := client.GenerateContent(context.Background(), []*genai.Part{genai.NewPartFromText("hi")}, nil)
	require.ErrorIs(t, err, types.ErrAuth)
}

func TestAIClient_GenerateContent_InvalidKey(t *testing.T) {
	srv := fakeGemini(t, http.StatusBadRequest,
		`{"error":{"code":400,"message":"API key not valid. Please pass a valid API key.","status":"INVALID_ARGUMENT"}}`, nil)
	client := NewAIClient(credentials.NewEnvProvider("AIzaSyBADKEY0000"), Options{
		TextModel: "gemini-test",
		BaseURL:   srv.URL + "/",
	}, discardLogger())

	_, err := client.GenerateContent(context.Background(), []*genai.Part{genai.NewPartFromText("hi")}, nil)
	require.ErrorIs(t, err, types.ErrAuth)
}

func TestKeyVerifier(t *testing.T) {
	ok := fakeGemini(t, http.StatusOK, `{"name":"models/gemini-test"}`, nil)
	require.NoError(t, NewKeyVerifier(Options{TextModel: "gemini-test", BaseURL: ok.URL + "/"}).
		Verify(context.Background(), "AIzaSyTESTKEY123"))

	denied := fakeGemini(t, http.StatusForbidden,
		`{"error":{"code":403,"message":"Permission denied","status":"PERMISSION_DENIED"}}`, nil)
	err := NewKeyVerifier(Options{TextModel: "gemini-test", BaseURL: denied.URL + "/"}).
		Verify(context.Background(), "AIzaSyTESTKEY123")
	require.ErrorIs(t, err, types.ErrAuth)
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"unauthenticated", genai.APIError{Code: 401, Status: "UNAUTHENTICATED", Message: "bad"}, types.ErrAuth},
		{"entity not found", genai.APIError{Code: 404, Status: "NOT_FOUND", Message: "Requested entity was not found."}, types.ErrAuth},
		{"invalid key message", genai.APIError{Code: 400, Message: "API key not valid"}, types.ErrAuth},
		{"server error", genai.APIError{Code: 500, Status: "INTERNAL", Message: "oops"}, types.ErrTransport},
		{"network", errors.New("dial tcp: connection refused"), types.ErrTransport},
		{"already classified", fmt.Errorf("%w: x", types.ErrAuth), types.ErrAuth},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, ClassifyError(tt.err), tt.want)
		})
	}
	assert.Nil(t, ClassifyError(nil))
}

func TestClassifyError_KeepsMessage(t *testing.T) {
	err := ClassifyError(errors.New("upstream exploded"))
	assert.True(t, strings.Contains(err.Error(), "upstream exploded"))
}
