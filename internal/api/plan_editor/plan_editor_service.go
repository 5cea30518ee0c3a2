package planEditor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-tour-itinerary-studio/app/observability/metrics"
	dayImages "github.com/FACorreiaa/go-tour-itinerary-studio/internal/api/day_images"
	tourPlan "github.com/FACorreiaa/go-tour-itinerary-studio/internal/api/tour_plan"
	"github.com/FACorreiaa/go-tour-itinerary-studio/internal/types"
)

// Ensure implementation satisfies the interface
var _ Service = (*ServiceImpl)(nil)

// CredentialInvalidator is told when the collaborator rejects the credential.
type CredentialInvalidator interface {
	Invalidate(reason string)
}

// GenerateInput is a request to (re)generate the session's plan.
type GenerateInput struct {
	Category    string
	ProductName string
	ExtraText   string
	Reference   *types.ReferenceFile
}

// Service drives the editor state machine of each session.
type Service interface {
	CreateSession(ctx context.Context) View
	GetSession(ctx context.Context, id uuid.UUID) (View, error)
	DeleteSession(ctx context.Context, id uuid.UUID) error
	Generate(ctx context.Context, id uuid.UUID, in GenerateInput) (View, error)
	ApplyCommands(ctx context.Context, id uuid.UUID, cmds []Command) (View, error)
	RegenerateDayImages(ctx context.Context, id uuid.UUID, day int) (View, error)
	UploadDayImages(ctx context.Context, id uuid.UUID, day int, files []UploadedFile, replace bool) (View, error)
	Confirm(ctx context.Context, id uuid.UUID) (View, error)
	Edit(ctx context.Context, id uuid.UUID) (View, error)
	Reset(ctx context.Context, id uuid.UUID) (View, error)
	Snapshot(ctx context.Context, id uuid.UUID) (*types.TourPlan, types.TourType, error)
}

type Options struct {
	GenerateImagesOnCreate bool
	Upload                 UploadOptions
}

type ServiceImpl struct {
	store       *Store
	planner     tourPlan.Service
	images      dayImages.Service
	credentials CredentialInvalidator
	opts        Options
	logger      *slog.Logger
}

func NewServiceImpl(store *Store, planner tourPlan.Service, images dayImages.Service,
	credentials CredentialInvalidator, opts Options, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		store:       store,
		planner:     planner,
		images:      images,
		credentials: credentials,
		opts:        opts,
		logger:      logger,
	}
}

func (s *ServiceImpl) CreateSession(ctx context.Context) View {
	sess := s.store.Create()
	sess.mu.Lock()
	defer sess.mu.Unlock()
	s.logger.InfoContext(ctx, "Session created", slog.String("session_id", sess.id.String()))
	return sess.viewLocked()
}

func (s *ServiceImpl) GetSession(_ context.Context, id uuid.UUID) (View, error) {
	sess, err := s.store.Get(id)
	if err != nil {
		return View{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.viewLocked(), nil
}

func (s *ServiceImpl) DeleteSession(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Delete(id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Session deleted", slog.String("session_id", id.String()))
	return nil
}

// fire moves sess along ev. Callers hold sess.mu.
func (s *ServiceImpl) fire(ctx context.Context, sess *Session, ev Event) error {
	to, err := Next(sess.state, ev)
	if err != nil {
		return err
	}
	from := sess.state
	sess.state = to
	if !to.hasPlan() {
		sess.plan = nil
	}
	sess.version++
	sess.updatedAt = s.store.now()
	metrics.Get().SessionTransitionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event", string(ev)),
		attribute.String("to", string(to)),
	))
	s.logger.InfoContext(ctx, "Session state changed",
		slog.String("session_id", sess.id.String()),
		slog.String("from", string(from)),
		slog.String("to", string(to)),
		slog.String("event", string(ev)))
	return nil
}

// Generate runs the full pipeline: plan request, then images for every day.
// Validation failures leave the session untouched. Collaborator failures
// return the session to idle with the input preserved.
func (s *ServiceImpl) Generate(ctx context.Context, id uuid.UUID, in GenerateInput) (View, error) {
	ctx, span := otel.Tracer("PlanEditorService").Start(ctx, "Generate", trace.WithAttributes(
		attribute.String("session.id", id.String()),
		attribute.String("tour.category", in.Category),
	))
	defer span.End()

	sess, err := s.store.Get(id)
	if err != nil {
		return View{}, err
	}

	req, err := planRequest(in)
	if err != nil {
		span.RecordError(err)
		return s.reject(sess, err)
	}

	sess.mu.Lock()
	token, err := sess.beginOp("generate")
	if err == nil {
		if err = s.fire(ctx, sess, EventGenerate); err != nil {
			sess.endOp(token)
		}
	}
	if err != nil {
		sess.mu.Unlock()
		span.RecordError(err)
		return s.reject(sess, err)
	}
	sess.input = Input{
		Category:      req.Category,
		ProductName:   req.ProductName,
		ExtraText:     req.ExtraText,
		reference:     req.Reference,
		ReferenceName: referenceName(req.Reference),
	}
	sess.lastError = ""
	sess.mu.Unlock()

	plan, genErr := s.planner.RequestPlan(ctx, req)
	if genErr == nil && s.opts.GenerateImagesOnCreate {
		plan = s.images.RequestPlanImages(ctx, plan, req.Category)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if !sess.ownsOp(token) {
		return sess.viewLocked(), fmt.Errorf("%w: generation superseded", types.ErrInvalidTransition)
	}
	sess.endOp(token)
	if genErr != nil {
		sess.lastError = genErr.Error()
		_ = s.fire(ctx, sess, EventFail)
		s.handleAuth(genErr)
		span.RecordError(genErr)
		span.SetStatus(codes.Error, "Generation failed")
		return sess.viewLocked(), genErr
	}
	_ = s.fire(ctx, sess, EventSucceed)
	sess.plan = plan
	span.SetStatus(codes.Ok, "Plan ready for editing")
	return sess.viewLocked(), nil
}

func planRequest(in GenerateInput) (tourPlan.PlanRequest, error) {
	category, err := types.ParseTourType(in.Category)
	if err != nil {
		return tourPlan.PlanRequest{}, err
	}
	if strings.TrimSpace(in.ProductName) == "" {
		return tourPlan.PlanRequest{}, fmt.Errorf("%w: product name is required", types.ErrValidation)
	}
	return tourPlan.PlanRequest{
		Category:    category,
		ProductName: strings.TrimSpace(in.ProductName),
		ExtraText:   in.ExtraText,
		Reference:   in.Reference,
	}, nil
}

func referenceName(ref *types.ReferenceFile) string {
	if ref == nil {
		return ""
	}
	return ref.Name
}

func (s *ServiceImpl) reject(sess *Session, err error) (View, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.viewLocked(), err
}

func (s *ServiceImpl) handleAuth(err error) {
	if errors.Is(err, types.ErrAuth) && s.credentials != nil {
		s.credentials.Invalidate(err.Error())
	}
}

// ApplyCommands applies a batch of edits atomically. Edits are only accepted
// while editing.
func (s *ServiceImpl) ApplyCommands(ctx context.Context, id uuid.UUID, cmds []Command) (View, error) {
	ctx, span := otel.Tracer("PlanEditorService").Start(ctx, "ApplyCommands", trace.WithAttributes(
		attribute.String("session.id", id.String()),
		attribute.Int("commands", len(cmds)),
	))
	defer span.End()

	sess, err := s.store.Get(id)
	if err != nil {
		return View{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.state != StateEditing {
		err := fmt.Errorf("%w: edits require editing state, session is %s", types.ErrInvalidTransition, sess.state)
		span.RecordError(err)
		return sess.viewLocked(), err
	}
	next, err := ApplyAll(sess.plan, cmds)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Command rejected")
		return sess.viewLocked(), err
	}
	sess.plan = next
	sess.version++
	sess.updatedAt = s.store.now()
	for _, cmd := range cmds {
		metrics.Get().PlanCommandsAppliedTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("type", string(cmd.Type()))))
	}
	s.logger.DebugContext(ctx, "Plan commands applied",
		slog.String("session_id", id.String()), slog.Int("commands", len(cmds)), slog.Int("version", sess.version))
	return sess.viewLocked(), nil
}

// RegenerateDayImages fetches a fresh image set for one day using its current
// image count. On failure the existing images stay as they are.
func (s *ServiceImpl) RegenerateDayImages(ctx context.Context, id uuid.UUID, day int) (View, error) {
	ctx, span := otel.Tracer("PlanEditorService").Start(ctx, "RegenerateDayImages", trace.WithAttributes(
		attribute.String("session.id", id.String()),
		attribute.Int("day", day),
	))
	defer span.End()

	sess, err := s.store.Get(id)
	if err != nil {
		return View{}, err
	}

	sess.mu.Lock()
	if sess.state != StateEditing {
		sess.mu.Unlock()
		return s.reject(sess, fmt.Errorf("%w: regenerate requires editing state, session is %s", types.ErrInvalidTransition, sess.state))
	}
	idx := sess.plan.DayIndex(day)
	if idx < 0 {
		sess.mu.Unlock()
		return s.reject(sess, fmt.Errorf("%w: day %d does not exist", types.ErrValidation, day))
	}
	token, err := sess.beginOp("regenerate")
	if err != nil {
		sess.mu.Unlock()
		return s.reject(sess, err)
	}
	target := sess.plan.Days[idx].Clone()
	trip := dayImages.TripOf(sess.plan, sess.input.Category)
	sess.mu.Unlock()

	images, regenErr := s.images.RegenerateDayImages(ctx, target, target.ImageCount, trip)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if !sess.ownsOp(token) {
		return sess.viewLocked(), fmt.Errorf("%w: regeneration superseded", types.ErrInvalidTransition)
	}
	sess.endOp(token)
	if regenErr != nil {
		s.handleAuth(regenErr)
		span.RecordError(regenErr)
		span.SetStatus(codes.Error, "Regeneration failed")
		return sess.viewLocked(), regenErr
	}
	next, err := Apply(sess.plan, SetCustomImages{Day: day, Images: images})
	if err != nil {
		return sess.viewLocked(), err
	}
	sess.plan = next
	sess.version++
	sess.updatedAt = s.store.now()
	span.SetStatus(codes.Ok, "Day images regenerated")
	return sess.viewLocked(), nil
}

// UploadDayImages embeds local files into a day. New images are appended
// unless replace is set; the result is clamped to four and the display
// count follows it.
func (s *ServiceImpl) UploadDayImages(ctx context.Context, id uuid.UUID, day int, files []UploadedFile, replace bool) (View, error) {
	ctx, span := otel.Tracer("PlanEditorService").Start(ctx, "UploadDayImages", trace.WithAttributes(
		attribute.String("session.id", id.String()),
		attribute.Int("day", day),
		attribute.Int("files", len(files)),
	))
	defer span.End()

	sess, err := s.store.Get(id)
	if err != nil {
		return View{}, err
	}
	if len(files) == 0 {
		return s.reject(sess, fmt.Errorf("%w: no files uploaded", types.ErrValidation))
	}

	uploaded := make([]types.ImageBlob, 0, len(files))
	for _, f := range files {
		blob, err := encodeUpload(f, s.opts.Upload)
		if err != nil {
			span.RecordError(err)
			return s.reject(sess, err)
		}
		uploaded = append(uploaded, blob)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.state != StateEditing {
		return sess.viewLocked(), fmt.Errorf("%w: uploads require editing state, session is %s", types.ErrInvalidTransition, sess.state)
	}
	idx := sess.plan.DayIndex(day)
	if idx < 0 {
		return sess.viewLocked(), fmt.Errorf("%w: day %d does not exist", types.ErrValidation, day)
	}

	var combined []types.ImageBlob
	if !replace {
		combined = append(combined, sess.plan.Days[idx].CustomImages...)
	}
	combined = append(combined, uploaded...)
	if len(combined) > types.MaxImagesPerDay {
		combined = combined[:types.MaxImagesPerDay]
	}

	next, err := Apply(sess.plan, SetCustomImages{Day: day, Images: combined, SyncCount: true})
	if err != nil {
		return sess.viewLocked(), err
	}
	sess.plan = next
	sess.version++
	sess.updatedAt = s.store.now()
	s.logger.InfoContext(ctx, "Day images uploaded",
		slog.String("session_id", id.String()), slog.Int("day", day), slog.Int("images", len(combined)))
	return sess.viewLocked(), nil
}

func (s *ServiceImpl) Confirm(ctx context.Context, id uuid.UUID) (View, error) {
	return s.transition(ctx, id, EventConfirm)
}

func (s *ServiceImpl) Edit(ctx context.Context, id uuid.UUID) (View, error) {
	return s.transition(ctx, id, EventEdit)
}

// Reset discards the plan and any outstanding operation. A regeneration that
// finishes afterwards is dropped.
func (s *ServiceImpl) Reset(ctx context.Context, id uuid.UUID) (View, error) {
	return s.transition(ctx, id, EventReset)
}

func (s *ServiceImpl) transition(ctx context.Context, id uuid.UUID, ev Event) (View, error) {
	sess, err := s.store.Get(id)
	if err != nil {
		return View{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := s.fire(ctx, sess, ev); err != nil {
		return sess.viewLocked(), err
	}
	if ev == EventReset {
		sess.op = uuid.Nil
		sess.opKind = ""
	}
	return sess.viewLocked(), nil
}

// Snapshot returns the plan and category of a session in previewing state.
func (s *ServiceImpl) Snapshot(_ context.Context, id uuid.UUID) (*types.TourPlan, types.TourType, error) {
	sess, err := s.store.Get(id)
	if err != nil {
		return nil, "", err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.state != StatePreviewing {
		return nil, "", fmt.Errorf("%w: preview requires previewing state, session is %s", types.ErrInvalidTransition, sess.state)
	}
	return sess.plan.Clone(), sess.input.Category, nil
}
