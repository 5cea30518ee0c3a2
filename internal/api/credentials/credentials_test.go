package credentials

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-tour-itinerary-studio/internal/types"
)

type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) Verify(ctx context.Context, apiKey string) error {
	args := m.Called(ctx, apiKey)
	return args.Error(0)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBootstrap_SelectStaysPendingUntilVerified(t *testing.T) {
	verifier := new(MockVerifier)
	b := NewBootstrap(verifier, discardLogger())

	_, err := b.APIKey(context.Background())
	require.ErrorIs(t, err, types.ErrAuth)

	status, err := b.Select("AIzaSyTESTKEY123")
	require.NoError(t, err)
	assert.Equal(t, StatePending, status.State)

	_, err = b.APIKey(context.Background())
	require.ErrorIs(t, err, types.ErrAuth)
	require.ErrorIs(t, err, types.ErrCredentialPending)

	verifier.On("Verify", mock.Anything, "AIzaSyTESTKEY123").Return(nil).Once()
	status, err = b.Verify(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateConfirmed, status.State)
	assert.False(t, status.VerifiedAt.IsZero())

	key, err := b.APIKey(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AIzaSyTESTKEY123", key)
	verifier.AssertExpectations(t)
}

func TestBootstrap_VerifyFailureReturnsToNotSelected(t *testing.T) {
	verifier := new(MockVerifier)
	b := NewBootstrap(verifier, discardLogger())
	_, err := b.Select("bad-key-value")
	require.NoError(t, err)

	verifier.On("Verify", mock.Anything, "bad-key-value").Return(errors.New("API key not valid")).Once()
	status, err := b.Verify(context.Background())
	require.ErrorIs(t, err, types.ErrAuth)
	assert.Equal(t, StateNotSelected, status.State)
	assert.Contains(t, status.LastError, "API key not valid")
	assert.Empty(t, status.MaskedKey)
}

func TestBootstrap_VerifyWithoutSelection(t *testing.T) {
	b := NewBootstrap(new(MockVerifier), discardLogger())
	_, err := b.Verify(context.Background())
	require.ErrorIs(t, err, types.ErrAuth)
}

func TestBootstrap_SelectRejectsBlank(t *testing.T) {
	b := NewBootstrap(new(MockVerifier), discardLogger())
	_, err := b.Select("   ")
	require.ErrorIs(t, err, types.ErrValidation)
	assert.Equal(t, StateNotSelected, b.Status().State)
}

func TestBootstrap_InvalidateAndClear(t *testing.T) {
	verifier := new(MockVerifier)
	verifier.On("Verify", mock.Anything, mock.Anything).Return(nil)
	b := NewBootstrap(verifier, discardLogger())
	_, _ = b.Select("AIzaSyTESTKEY123")
	_, err := b.Verify(context.Background())
	require.NoError(t, err)

	b.Invalidate("expired")
	assert.Equal(t, StateNotSelected, b.Status().State)
	assert.Equal(t, "expired", b.Status().LastError)

	_, _ = b.Select("AIzaSyTESTKEY456")
	assert.Equal(t, StateNotSelected, b.Clear().State)
}

func TestEnvProvider(t *testing.T) {
	p := NewEnvProvider("AIzaSyENVKEY0000")
	key, err := p.APIKey(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AIzaSyENVKEY0000", key)
	assert.Equal(t, StateConfirmed, p.Status().State)
	assert.Equal(t, "AIza********0000", p.Status().MaskedKey)

	_, err = p.Select("other")
	require.ErrorIs(t, err, types.ErrInvalidTransition)

	empty := NewEnvProvider("")
	_, err = empty.APIKey(context.Background())
	require.ErrorIs(t, err, types.ErrAuth)
	assert.Equal(t, StateNotSelected, empty.Status().State)
}

func TestResolve(t *testing.T) {
	t.Setenv(EnvKey, "AIzaSyFROMENV000")
	m := Resolve("env", nil, discardLogger())
	assert.IsType(t, &EnvProvider{}, m)

	m = Resolve("bootstrap", new(MockVerifier), discardLogger())
	assert.IsType(t, &Bootstrap{}, m)
	assert.Equal(t, StateNotSelected, m.Status().State)
}

func TestRequireCredential_BlocksUntilConfirmed(t *testing.T) {
	verifier := new(MockVerifier)
	verifier.On("Verify", mock.Anything, mock.Anything).Return(nil)
	b := NewBootstrap(verifier, discardLogger())

	called := false
	h := RequireCredential(b)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/generate", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)

	_, _ = b.Select("AIzaSyTESTKEY123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/generate", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "pending key must still block")

	_, err := b.Verify(context.Background())
	require.NoError(t, err)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/generate", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, called)
}

func TestHandler_SelectAndVerify(t *testing.T) {
	verifier := new(MockVerifier)
	verifier.On("Verify", mock.Anything, "AIzaSyTESTKEY123").Return(nil).Once()
	h := NewHandlerImpl(NewBootstrap(verifier, discardLogger()), discardLogger())

	rec := httptest.NewRecorder()
	h.Select(rec, httptest.NewRequest(http.MethodPost, "/api/v1/credentials", bytes.NewBufferString(`{"api_key":"AIzaSyTESTKEY123"}`)))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), `"state":"pending"`)

	rec = httptest.NewRecorder()
	h.Verify(rec, httptest.NewRequest(http.MethodPost, "/api/v1/credentials/verify", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"state":"confirmed"`)

	rec = httptest.NewRecorder()
	h.GetStatus(rec, httptest.NewRequest(http.MethodGet, "/api/v1/credentials", nil))
	assert.Contains(t, rec.Body.String(), `"state":"confirmed"`)
	verifier.AssertExpectations(t)
}
