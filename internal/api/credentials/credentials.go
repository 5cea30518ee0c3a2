package credentials

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/FACorreiaa/go-tour-itinerary-studio/internal/types"
)

// EnvKey is the environment variable holding the out-of-band Gemini key.
const EnvKey = "GOOGLE_GEMINI_API_KEY"

// CredentialProvider resolves the API key for the generative collaborators.
// It is injected into the AI client once at construction.
type CredentialProvider interface {
	APIKey(ctx context.Context) (string, error)
}

// Verifier checks that a key is accepted by the collaborator.
type Verifier interface {
	Verify(ctx context.Context, apiKey string) error
}

// State is the bootstrap state of the selected credential.
type State string

const (
	StateNotSelected State = "not_selected"
	StatePending     State = "pending"
	StateConfirmed   State = "confirmed"
)

// Status is the externally visible view of the credential.
type Status struct {
	State      State     `json:"state"`
	Source     string    `json:"source"`
	MaskedKey  string    `json:"masked_key,omitempty"`
	LastError  string    `json:"last_error,omitempty"`
	VerifiedAt time.Time `json:"verified_at,omitempty"`
}

// Manager is the credential surface used by handlers and middleware.
type Manager interface {
	CredentialProvider
	Status() Status
	Select(apiKey string) (Status, error)
	Verify(ctx context.Context) (Status, error)
	Clear() Status
	Invalidate(reason string)
}

// --- environment provider ---

// EnvProvider serves a key injected through the environment. It is
// confirmed from the start and cannot be re-selected.
type EnvProvider struct {
	key string
}

func NewEnvProvider(key string) *EnvProvider {
	return &EnvProvider{key: strings.TrimSpace(key)}
}

func (e *EnvProvider) APIKey(_ context.Context) (string, error) {
	if e.key == "" {
		return "", fmt.Errorf("%w: %s is not set", types.ErrAuth, EnvKey)
	}
	return e.key, nil
}

func (e *EnvProvider) Status() Status {
	if e.key == "" {
		return Status{State: StateNotSelected, Source: "env", LastError: EnvKey + " is not set"}
	}
	return Status{State: StateConfirmed, Source: "env", MaskedKey: mask(e.key)}
}

func (e *EnvProvider) Select(string) (Status, error) {
	return e.Status(), fmt.Errorf("%w: credential is provided by the environment, check %s", types.ErrInvalidTransition, EnvKey)
}

func (e *EnvProvider) Verify(context.Context) (Status, error) {
	if e.key == "" {
		return e.Status(), fmt.Errorf("%w: %s is not set", types.ErrAuth, EnvKey)
	}
	return e.Status(), nil
}

func (e *EnvProvider) Clear() Status { return e.Status() }

// Invalidate is a no-op: an environment key can only be fixed by redeploying.
func (e *EnvProvider) Invalidate(string) {}

// --- bootstrap provider ---

// Bootstrap holds a key selected at runtime. A freshly selected key stays
// pending until Verify succeeds; only a confirmed key is handed out.
type Bootstrap struct {
	mu         sync.RWMutex
	verifier   Verifier
	logger     *slog.Logger
	state      State
	key        string
	lastErr    string
	verifiedAt time.Time
	now        func() time.Time
}

func NewBootstrap(verifier Verifier, logger *slog.Logger) *Bootstrap {
	return &Bootstrap{
		verifier: verifier,
		logger:   logger,
		state:    StateNotSelected,
		now:      time.Now,
	}
}

func (b *Bootstrap) APIKey(_ context.Context) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	switch b.state {
	case StateConfirmed:
		return b.key, nil
	case StatePending:
		return "", fmt.Errorf("%w: %w", types.ErrAuth, types.ErrCredentialPending)
	default:
		return "", fmt.Errorf("%w: no credential selected", types.ErrAuth)
	}
}

func (b *Bootstrap) Status() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.statusLocked()
}

func (b *Bootstrap) statusLocked() Status {
	s := Status{State: b.state, Source: "bootstrap", LastError: b.lastErr, VerifiedAt: b.verifiedAt}
	if b.key != "" {
		s.MaskedKey = mask(b.key)
	}
	return s
}

func (b *Bootstrap) Select(apiKey string) (Status, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return b.Status(), fmt.Errorf("%w: api key is required", types.ErrValidation)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.key = apiKey
	b.state = StatePending
	b.lastErr = ""
	b.verifiedAt = time.Time{}
	b.logger.Info("Credential selected, awaiting verification", slog.String("key", mask(apiKey)))
	return b.statusLocked(), nil
}

// Verify confirms a pending key. The lock is not held across the network
// call; a Select or Clear that lands meanwhile wins over the stale result.
func (b *Bootstrap) Verify(ctx context.Context) (Status, error) {
	b.mu.RLock()
	state, key := b.state, b.key
	b.mu.RUnlock()

	switch state {
	case StateConfirmed:
		return b.Status(), nil
	case StateNotSelected:
		return b.Status(), fmt.Errorf("%w: no credential selected", types.ErrAuth)
	}

	err := b.verifier.Verify(ctx, key)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.key != key || b.state != StatePending {
		return b.statusLocked(), fmt.Errorf("%w: credential changed during verification", types.ErrInvalidTransition)
	}
	if err != nil {
		b.state = StateNotSelected
		b.key = ""
		b.lastErr = err.Error()
		b.logger.WarnContext(ctx, "Credential verification failed", slog.Any("error", err))
		return b.statusLocked(), fmt.Errorf("%w: %w", types.ErrAuth, err)
	}
	b.state = StateConfirmed
	b.verifiedAt = b.now()
	b.logger.InfoContext(ctx, "Credential confirmed", slog.String("key", mask(key)))
	return b.statusLocked(), nil
}

func (b *Bootstrap) Clear() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateNotSelected
	b.key = ""
	b.lastErr = ""
	b.verifiedAt = time.Time{}
	return b.statusLocked()
}

// Invalidate drops a confirmed key after the collaborator rejected it, which
// sends the user back to credential selection.
func (b *Bootstrap) Invalidate(reason string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateNotSelected {
		return
	}
	b.state = StateNotSelected
	b.key = ""
	b.lastErr = reason
	b.logger.Warn("Credential invalidated", slog.String("reason", reason))
}

// Resolve picks the credential source once at startup.
func Resolve(mode string, verifier Verifier, logger *slog.Logger) Manager {
	if mode == "bootstrap" {
		logger.Info("Using runtime credential bootstrap")
		return NewBootstrap(verifier, logger)
	}
	logger.Info("Using environment credential", slog.String("variable", EnvKey))
	return NewEnvProvider(os.Getenv(EnvKey))
}

func mask(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
