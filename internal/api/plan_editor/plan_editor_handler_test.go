package planEditor

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-tour-itinerary-studio/internal/api"
	tourPlan "github.com/FACorreiaa/go-tour-itinerary-studio/internal/api/tour_plan"
	"github.com/FACorreiaa/go-tour-itinerary-studio/internal/types"
)

func setupRouter(t *testing.T) (http.Handler, fixture) {
	t.Helper()
	f := setupService(t, false)
	h := NewHandlerImpl(f.svc, 1<<20, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	r.Post("/sessions", h.CreateSession)
	r.Route("/sessions/{sessionID}", func(r chi.Router) {
		r.Get("/", h.GetSession)
		r.Delete("/", h.DeleteSession)
		r.Post("/generate", h.Generate)
		r.Patch("/plan", h.ApplyCommands)
		r.Post("/days/{day}/images", h.UploadDayImages)
		r.Post("/days/{day}/images/regenerate", h.RegenerateDayImages)
		r.Post("/confirm", h.Confirm)
		r.Post("/edit", h.Edit)
		r.Post("/reset", h.Reset)
	})
	return r, f
}

func do(t *testing.T, h http.Handler, method, path string, body io.Reader, contentType string) (*httptest.ResponseRecorder, View) {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var view View
	if rec.Code < 300 && rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	}
	return rec, view
}

func TestHandler_EditorFlow(t *testing.T) {
	router, f := setupRouter(t)
	f.planner.On("RequestPlan", mock.Anything, mock.Anything).Return(samplePlan(), nil).Once()

	rec, created := do(t, router, http.MethodPost, "/sessions", nil, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, StateIdle, created.State)
	base := "/sessions/" + created.ID.String()

	rec, view := do(t, router, http.MethodPost, base+"/generate",
		strings.NewReader(`{"category":"domestic","product_name":"阿里山日出三日遊"}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, StateEditing, view.State)

	rec, view = do(t, router, http.MethodPatch, base+"/plan", strings.NewReader(`{"commands":[
		{"type":"set_image_position","day":2,"position":"bottom"},
		{"type":"set_image_count","day":2,"count":3}
	]}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, types.ImagePositionBottom, view.Plan.Days[1].ImagePosition)
	assert.Equal(t, 3, view.Plan.Days[1].ImageCount)

	rec, _ = do(t, router, http.MethodPatch, base+"/plan",
		strings.NewReader(`{"commands":[{"type":"set_image_position","day":2,"position":"top"}]}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, view = do(t, router, http.MethodPost, base+"/confirm", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, StatePreviewing, view.State)

	rec, _ = do(t, router, http.MethodPost, base+"/confirm", nil, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, view = do(t, router, http.MethodPost, base+"/edit", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, view.Plan.Days[1].ImageCount)

	rec, view = do(t, router, http.MethodPost, base+"/reset", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, StateIdle, view.State)

	rec, _ = do(t, router, http.MethodDelete, base+"/", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var deleted api.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &deleted))
	assert.True(t, deleted.Success)
	assert.Equal(t, "session deleted", deleted.Message)
	rec, _ = do(t, router, http.MethodGet, base+"/", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_GenerateValidation(t *testing.T) {
	router, f := setupRouter(t)
	_, created := do(t, router, http.MethodPost, "/sessions", nil, "")

	rec, _ := do(t, router, http.MethodPost, "/sessions/"+created.ID.String()+"/generate",
		strings.NewReader(`{"category":"domestic","product_name":""}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	f.planner.AssertNotCalled(t, "RequestPlan", mock.Anything, mock.Anything)

	rec, _ = do(t, router, http.MethodPost, "/sessions/not-a-uuid/generate",
		strings.NewReader(`{"category":"domestic","product_name":"x"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_GenerateMultipartReference(t *testing.T) {
	router, f := setupRouter(t)
	f.planner.On("RequestPlan", mock.Anything, mock.MatchedBy(func(req tourPlan.PlanRequest) bool {
		return req.Reference != nil && req.Reference.Name == "notes.txt" && string(req.Reference.Data) == "含小火車" &&
			req.Category == types.TourTypeInternational
	})).Return(samplePlan(), nil).Once()
	_, created := do(t, router, http.MethodPost, "/sessions", nil, "")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("category", "international"))
	require.NoError(t, mw.WriteField("product_name", "京都賞楓五日"))
	fw, err := mw.CreateFormFile("reference", "notes.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte("含小火車"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	rec, view := do(t, router, http.MethodPost, "/sessions/"+created.ID.String()+"/generate", &body, mw.FormDataContentType())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "notes.txt", view.Input.ReferenceName)
	f.planner.AssertExpectations(t)
}

func TestHandler_UploadDayImages(t *testing.T) {
	router, f := setupRouter(t)
	id := editingSession(t, f)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("replace", "true"))
	for _, name := range []string{"a.png", "b.png"} {
		fw, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = fw.Write(pngBytes(t, 8, 8))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	rec, view := do(t, router, http.MethodPost, "/sessions/"+id.String()+"/days/1/images", &body, mw.FormDataContentType())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, view.Plan.Days[0].CustomImages, 2)
	assert.Equal(t, 2, view.Plan.Days[0].ImageCount)

	rec, _ = do(t, router, http.MethodPost, "/sessions/"+id.String()+"/days/zero/images", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_RegenerateFailureIsBadGateway(t *testing.T) {
	router, f := setupRouter(t)
	id := editingSession(t, f)
	f.images.On("RegenerateDayImages", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, types.ErrImageGeneration).Once()

	rec, _ := do(t, router, http.MethodPost, "/sessions/"+id.String()+"/days/1/images/regenerate", nil, "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
