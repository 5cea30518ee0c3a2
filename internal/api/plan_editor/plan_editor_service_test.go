package planEditor

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	dayImages "github.com/FACorreiaa/go-tour-itinerary-studio/internal/api/day_images"
	tourPlan "github.com/FACorreiaa/go-tour-itinerary-studio/internal/api/tour_plan"
	"github.com/FACorreiaa/go-tour-itinerary-studio/internal/types"
)

type MockPlanner struct {
	mock.Mock
}

func (m *MockPlanner) RequestPlan(ctx context.Context, req tourPlan.PlanRequest) (*types.TourPlan, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.TourPlan), args.Error(1)
}

type MockImages struct {
	mock.Mock
}

func (m *MockImages) RequestDayImages(ctx context.Context, day types.DayPlan, count int, trip dayImages.Trip) []types.ImageBlob {
	args := m.Called(ctx, day, count, trip)
	return args.Get(0).([]types.ImageBlob)
}

func (m *MockImages) RequestPlanImages(ctx context.Context, plan *types.TourPlan, category types.TourType) *types.TourPlan {
	args := m.Called(ctx, plan, category)
	return args.Get(0).(*types.TourPlan)
}

func (m *MockImages) RegenerateDayImages(ctx context.Context, day types.DayPlan, count int, trip dayImages.Trip) ([]types.ImageBlob, error) {
	args := m.Called(ctx, day, count, trip)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.ImageBlob), args.Error(1)
}

func (m *MockImages) Placeholders() dayImages.Placeholders {
	return dayImages.Placeholders{BaseURL: "https://picsum.photos/seed", Width: 800, Height: 600}
}

type MockInvalidator struct {
	mock.Mock
}

func (m *MockInvalidator) Invalidate(reason string) {
	m.Called(reason)
}

type fixture struct {
	svc         *ServiceImpl
	planner     *MockPlanner
	images      *MockImages
	credentials *MockInvalidator
}

func setupService(t *testing.T, imagesOnCreate bool) fixture {
	t.Helper()
	f := fixture{planner: new(MockPlanner), images: new(MockImages), credentials: new(MockInvalidator)}
	f.svc = NewServiceImpl(NewStore(time.Hour, time.Hour), f.planner, f.images, f.credentials, Options{
		GenerateImagesOnCreate: imagesOnCreate,
		Upload:                 UploadOptions{MaxBytes: 1 << 20, MaxEdgePx: 16, JPEGQuality: 80},
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return f
}

var validInput = GenerateInput{Category: "domestic", ProductName: "阿里山日出三日遊"}

// editingSession returns a session that already holds samplePlan.
func editingSession(t *testing.T, f fixture) uuid.UUID {
	t.Helper()
	f.planner.On("RequestPlan", mock.Anything, mock.Anything).Return(samplePlan(), nil).Once()
	view := f.svc.CreateSession(context.Background())
	got, err := f.svc.Generate(context.Background(), view.ID, validInput)
	require.NoError(t, err)
	require.Equal(t, StateEditing, got.State)
	return view.ID
}

func TestGenerate_PlanWithImagesEntersEditing(t *testing.T) {
	f := setupService(t, true)
	withImages := samplePlan()
	withImages.Days[1].CustomImages = f.images.Placeholders().Images(withImages.Days[1], 2)

	f.planner.On("RequestPlan", mock.Anything, tourPlan.PlanRequest{
		Category: types.TourTypeDomestic, ProductName: "阿里山日出三日遊",
	}).Return(samplePlan(), nil).Once()
	f.images.On("RequestPlanImages", mock.Anything, mock.Anything, types.TourTypeDomestic).Return(withImages).Once()

	id := f.svc.CreateSession(context.Background()).ID
	view, err := f.svc.Generate(context.Background(), id, validInput)
	require.NoError(t, err)

	assert.Equal(t, StateEditing, view.State)
	require.NotNil(t, view.Plan)
	assert.Len(t, view.Plan.Days[1].CustomImages, 2)
	assert.False(t, view.Busy)
	f.planner.AssertExpectations(t)
	f.images.AssertExpectations(t)
}

func TestGenerate_ValidationMakesNoCall(t *testing.T) {
	f := setupService(t, true)
	id := f.svc.CreateSession(context.Background()).ID

	view, err := f.svc.Generate(context.Background(), id, GenerateInput{Category: "domestic", ProductName: ""})
	require.ErrorIs(t, err, types.ErrValidation)
	assert.Equal(t, StateIdle, view.State)
	assert.Equal(t, 0, view.Version)

	_, err = f.svc.Generate(context.Background(), id, GenerateInput{Category: "cruise", ProductName: "x"})
	require.ErrorIs(t, err, types.ErrValidation)
	f.planner.AssertNotCalled(t, "RequestPlan", mock.Anything, mock.Anything)
}

func TestGenerate_FailureReturnsToIdleWithInput(t *testing.T) {
	f := setupService(t, true)
	f.planner.On("RequestPlan", mock.Anything, mock.Anything).
		Return(nil, errors.Join(types.ErrTransport, errors.New("503 overloaded"))).Once()

	id := f.svc.CreateSession(context.Background()).ID
	in := validInput
	in.ExtraText = "含小火車"
	view, err := f.svc.Generate(context.Background(), id, in)
	require.ErrorIs(t, err, types.ErrTransport)

	assert.Equal(t, StateIdle, view.State)
	assert.Nil(t, view.Plan)
	assert.Equal(t, "阿里山日出三日遊", view.Input.ProductName)
	assert.Equal(t, "含小火車", view.Input.ExtraText)
	assert.Contains(t, view.LastError, "503 overloaded")
	f.images.AssertNotCalled(t, "RequestPlanImages", mock.Anything, mock.Anything, mock.Anything)
	f.credentials.AssertNotCalled(t, "Invalidate", mock.Anything)
}

func TestGenerate_AuthFailureInvalidatesCredential(t *testing.T) {
	f := setupService(t, false)
	f.planner.On("RequestPlan", mock.Anything, mock.Anything).Return(nil, types.ErrAuth).Once()
	f.credentials.On("Invalidate", mock.Anything).Once()

	id := f.svc.CreateSession(context.Background()).ID
	_, err := f.svc.Generate(context.Background(), id, validInput)
	require.ErrorIs(t, err, types.ErrAuth)
	f.credentials.AssertExpectations(t)
}

func TestGenerate_UnknownSession(t *testing.T) {
	f := setupService(t, false)
	_, err := f.svc.Generate(context.Background(), uuid.New(), validInput)
	require.ErrorIs(t, err, types.ErrSessionNotFound)
}

func TestEditPreviewRoundTripPreservesEdits(t *testing.T) {
	f := setupService(t, false)
	id := editingSession(t, f)

	edited, err := f.svc.ApplyCommands(context.Background(), id, []Command{
		SetMainTitle{Value: "阿里山雲海"},
		SetImagePosition{Day: 1, Position: types.ImagePositionBottom},
		SetImageCount{Day: 1, Count: 3},
	})
	require.NoError(t, err)

	previewing, err := f.svc.Confirm(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, StatePreviewing, previewing.State)

	_, err = f.svc.ApplyCommands(context.Background(), id, []Command{SetMainTitle{Value: "x"}})
	require.ErrorIs(t, err, types.ErrInvalidTransition, "previewing is read-only")

	back, err := f.svc.Edit(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, StateEditing, back.State)
	assert.Equal(t, edited.Plan, back.Plan)
}

func TestConfirmWithoutPlanIsRejected(t *testing.T) {
	f := setupService(t, false)
	id := f.svc.CreateSession(context.Background()).ID
	_, err := f.svc.Confirm(context.Background(), id)
	require.ErrorIs(t, err, types.ErrInvalidTransition)
	_, _, err = f.svc.Snapshot(context.Background(), id)
	require.ErrorIs(t, err, types.ErrInvalidTransition)
}

func TestReset_DiscardsPlan(t *testing.T) {
	f := setupService(t, false)
	id := editingSession(t, f)

	view, err := f.svc.Reset(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, view.State)
	assert.Nil(t, view.Plan)

	_, err = f.svc.Reset(context.Background(), id)
	require.ErrorIs(t, err, types.ErrInvalidTransition)
}

func TestRegenerateDayImages(t *testing.T) {
	fresh := []types.ImageBlob{
		{Source: types.ImageSourceGenerated, MIMEType: "image/png", URL: "data:image/png;base64,AA=="},
		{Source: types.ImageSourceGenerated, MIMEType: "image/png", URL: "data:image/png;base64,AB=="},
	}

	t.Run("success replaces only that day", func(t *testing.T) {
		f := setupService(t, false)
		id := editingSession(t, f)
		f.images.On("RegenerateDayImages", mock.Anything, mock.MatchedBy(func(d types.DayPlan) bool { return d.Day == 2 }), 2,
			dayImages.Trip{Category: types.TourTypeDomestic}).Return(fresh, nil).Once()

		view, err := f.svc.RegenerateDayImages(context.Background(), id, 2)
		require.NoError(t, err)
		assert.Equal(t, fresh, view.Plan.Days[1].CustomImages)
		assert.Equal(t, samplePlan().Days[0].CustomImages, view.Plan.Days[0].CustomImages)
	})

	t.Run("failure keeps existing images", func(t *testing.T) {
		f := setupService(t, false)
		id := editingSession(t, f)
		f.images.On("RegenerateDayImages", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, types.ErrImageGeneration).Once()

		view, err := f.svc.RegenerateDayImages(context.Background(), id, 1)
		require.ErrorIs(t, err, types.ErrImageGeneration)
		assert.Equal(t, samplePlan().Days[0].CustomImages, view.Plan.Days[0].CustomImages)
		assert.False(t, view.Busy)
	})

	t.Run("unknown day", func(t *testing.T) {
		f := setupService(t, false)
		id := editingSession(t, f)
		_, err := f.svc.RegenerateDayImages(context.Background(), id, 7)
		require.ErrorIs(t, err, types.ErrValidation)
	})
}

func TestOverlappingOperations(t *testing.T) {
	f := setupService(t, false)
	id := editingSession(t, f)

	started := make(chan struct{})
	release := make(chan struct{})
	f.images.On("RegenerateDayImages", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return([]types.ImageBlob{{Source: types.ImageSourceGenerated, URL: "data:image/png;base64,AA=="}}, nil).Once()

	type result struct {
		view View
		err  error
	}
	done := make(chan result, 1)
	go func() {
		v, err := f.svc.RegenerateDayImages(context.Background(), id, 1)
		done <- result{v, err}
	}()
	<-started

	view, err := f.svc.GetSession(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, view.Busy)
	assert.Equal(t, "regenerate", view.Operation)

	_, err = f.svc.RegenerateDayImages(context.Background(), id, 2)
	require.ErrorIs(t, err, types.ErrBusy)
	_, err = f.svc.Generate(context.Background(), id, validInput)
	require.ErrorIs(t, err, types.ErrBusy)

	_, err = f.svc.Reset(context.Background(), id)
	require.NoError(t, err)
	close(release)

	res := <-done
	require.ErrorIs(t, res.err, types.ErrInvalidTransition)
	assert.Equal(t, StateIdle, res.view.State)
	assert.Nil(t, res.view.Plan, "late regeneration result must be discarded")
	assert.False(t, res.view.Busy)
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func decodeDataURL(t *testing.T, url string) image.Config {
	t.Helper()
	const prefix = "data:image/jpeg;base64,"
	require.True(t, strings.HasPrefix(url, prefix))
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(url, prefix))
	require.NoError(t, err)
	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	return cfg
}

func TestUploadDayImages(t *testing.T) {
	t.Run("append clamps to four and syncs count", func(t *testing.T) {
		f := setupService(t, false)
		id := editingSession(t, f)
		files := []UploadedFile{
			{Name: "a.png", Data: pngBytes(t, 64, 32)},
			{Name: "b.png", Data: pngBytes(t, 8, 8)},
			{Name: "c.png", Data: pngBytes(t, 8, 8)},
			{Name: "d.png", Data: pngBytes(t, 8, 8)},
		}
		view, err := f.svc.UploadDayImages(context.Background(), id, 1, files, false)
		require.NoError(t, err)

		day := view.Plan.Days[0]
		require.Len(t, day.CustomImages, types.MaxImagesPerDay)
		assert.Equal(t, types.MaxImagesPerDay, day.ImageCount)
		assert.Equal(t, types.ImageSourcePlaceholder, day.CustomImages[0].Source, "existing image kept first")
		assert.Equal(t, types.ImageSourceUploaded, day.CustomImages[1].Source)

		cfg := decodeDataURL(t, day.CustomImages[1].URL)
		assert.LessOrEqual(t, cfg.Width, 16)
		assert.LessOrEqual(t, cfg.Height, 16)
	})

	t.Run("replace", func(t *testing.T) {
		f := setupService(t, false)
		id := editingSession(t, f)
		view, err := f.svc.UploadDayImages(context.Background(), id, 1, []UploadedFile{{Name: "a.png", Data: pngBytes(t, 8, 8)}}, true)
		require.NoError(t, err)
		require.Len(t, view.Plan.Days[0].CustomImages, 1)
		assert.Equal(t, types.ImageSourceUploaded, view.Plan.Days[0].CustomImages[0].Source)
		assert.Equal(t, 1, view.Plan.Days[0].ImageCount)
	})

	t.Run("not an image", func(t *testing.T) {
		f := setupService(t, false)
		id := editingSession(t, f)
		_, err := f.svc.UploadDayImages(context.Background(), id, 1, []UploadedFile{{Name: "a.txt", Data: []byte("hello")}}, false)
		require.ErrorIs(t, err, types.ErrValidation)
	})

	t.Run("no files", func(t *testing.T) {
		f := setupService(t, false)
		id := editingSession(t, f)
		_, err := f.svc.UploadDayImages(context.Background(), id, 1, nil, false)
		require.ErrorIs(t, err, types.ErrValidation)
	})
}

func TestSnapshotAndDelete(t *testing.T) {
	f := setupService(t, false)
	id := editingSession(t, f)
	_, err := f.svc.Confirm(context.Background(), id)
	require.NoError(t, err)

	plan, category, err := f.svc.Snapshot(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, types.TourTypeDomestic, category)
	assert.Equal(t, samplePlan().MainTitle, plan.MainTitle)

	require.NoError(t, f.svc.DeleteSession(context.Background(), id))
	_, err = f.svc.GetSession(context.Background(), id)
	require.ErrorIs(t, err, types.ErrSessionNotFound)
	require.ErrorIs(t, f.svc.DeleteSession(context.Background(), id), types.ErrSessionNotFound)
}
