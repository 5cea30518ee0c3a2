package planEditor

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/go-tour-itinerary-studio/internal/types"
)

// State is the view state of an editing session.
type State string

const (
	StateIdle       State = "idle"
	StateGenerating State = "generating"
	StateEditing    State = "editing"
	StatePreviewing State = "previewing"
)

// Event drives a State transition.
type Event string

const (
	EventGenerate Event = "generate"
	EventSucceed  Event = "succeed"
	EventFail     Event = "fail"
	EventConfirm  Event = "confirm"
	EventEdit     Event = "edit"
	EventReset    Event = "reset"
)

var transitions = map[Event]map[State]State{
	EventGenerate: {StateIdle: StateGenerating, StateEditing: StateGenerating, StatePreviewing: StateGenerating},
	EventSucceed:  {StateGenerating: StateEditing},
	EventFail:     {StateGenerating: StateIdle},
	EventConfirm:  {StateEditing: StatePreviewing},
	EventEdit:     {StatePreviewing: StateEditing},
	EventReset:    {StateEditing: StateIdle, StatePreviewing: StateIdle},
}

// Next returns the state reached from `from` on ev.
func Next(from State, ev Event) (State, error) {
	to, ok := transitions[ev][from]
	if !ok {
		return from, fmt.Errorf("%w: cannot %s while %s", types.ErrInvalidTransition, ev, from)
	}
	return to, nil
}

// hasPlan reports whether a plan must be present in s.
func (s State) hasPlan() bool {
	return s == StateEditing || s == StatePreviewing
}

// Input is the last generation input, kept so a failed request can be retried
// without retyping.
type Input struct {
	Category      types.TourType `json:"category"`
	ProductName   string         `json:"product_name"`
	ExtraText     string         `json:"extra_content,omitempty"`
	ReferenceName string         `json:"reference_name,omitempty"`

	reference *types.ReferenceFile
}

// Session holds the state machine and plan of one editor page session.
// All fields are guarded by mu.
type Session struct {
	mu sync.Mutex

	id        uuid.UUID
	state     State
	plan      *types.TourPlan
	input     Input
	lastError string
	version   int
	op        uuid.UUID
	opKind    string
	createdAt time.Time
	updatedAt time.Time
}

func newSession(now time.Time) *Session {
	return &Session{
		id:        uuid.New(),
		state:     StateIdle,
		createdAt: now,
		updatedAt: now,
	}
}

// View is the read-only snapshot of a session returned to clients.
type View struct {
	ID        uuid.UUID       `json:"id"`
	State     State           `json:"state"`
	Input     Input           `json:"input"`
	Plan      *types.TourPlan `json:"plan,omitempty"`
	LastError string          `json:"last_error,omitempty"`
	Version   int             `json:"version"`
	Busy      bool            `json:"busy"`
	Operation string          `json:"operation,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (s *Session) viewLocked() View {
	return View{
		ID:        s.id,
		State:     s.state,
		Input:     s.input,
		Plan:      s.plan.Clone(),
		LastError: s.lastError,
		Version:   s.version,
		Busy:      s.op != uuid.Nil,
		Operation: s.opKind,
		CreatedAt: s.createdAt,
		UpdatedAt: s.updatedAt,
	}
}

// beginOp claims the single in-flight operation slot.
func (s *Session) beginOp(kind string) (uuid.UUID, error) {
	if s.op != uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: %s is still running", types.ErrBusy, s.opKind)
	}
	s.op = uuid.New()
	s.opKind = kind
	return s.op, nil
}

// ownsOp reports whether token is still the current operation. Reset and a
// new generation clear it, which makes late results stale.
func (s *Session) ownsOp(token uuid.UUID) bool {
	return token != uuid.Nil && s.op == token
}

func (s *Session) endOp(token uuid.UUID) {
	if s.ownsOp(token) {
		s.op = uuid.Nil
		s.opKind = ""
	}
}
