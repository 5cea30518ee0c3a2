package generativeAI

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"

	"github.com/FACorreiaa/go-tour-itinerary-studio/internal/api/credentials"
	"github.com/FACorreiaa/go-tour-itinerary-studio/internal/types"
)

// ErrNoImageData is returned when the image model answers without bytes.
var ErrNoImageData = errors.New("image model returned no image data")

// Options configures the models and transport of an AIClient.
type Options struct {
	TextModel  string
	ImageModel string
	// BaseURL overrides the Gemini endpoint; empty uses the SDK default.
	BaseURL    string
	HTTPClient *http.Client
}

// AIClient talks to Gemini with whatever key the injected provider resolves.
// The underlying genai client is rebuilt only when that key changes.
type AIClient struct {
	provider credentials.CredentialProvider
	opts     Options
	logger   *slog.Logger

	mu     sync.Mutex
	key    string
	client *genai.Client
}

func NewAIClient(provider credentials.CredentialProvider, opts Options, logger *slog.Logger) *AIClient {
	return &AIClient{
		provider: provider,
		opts:     opts,
		logger:   logger,
	}
}

func (ai *AIClient) TextModel() string { return ai.opts.TextModel }

func (ai *AIClient) ImageModel() string { return ai.opts.ImageModel }

func (ai *AIClient) genaiClient(ctx context.Context) (*genai.Client, error) {
	key, err := ai.provider.APIKey(ctx)
	if err != nil {
		return nil, err
	}

	ai.mu.Lock()
	defer ai.mu.Unlock()
	if ai.client != nil && ai.key == key {
		return ai.client, nil
	}
	client, err := newGenaiClient(ctx, key, ai.opts)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create client: %w", types.ErrTransport, err)
	}
	ai.key = key
	ai.client = client
	return client, nil
}

func newGenaiClient(ctx context.Context, key string, opts Options) (*genai.Client, error) {
	cfg := &genai.ClientConfig{
		APIKey:     key,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: opts.HTTPClient,
	}
	if opts.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}
	return genai.NewClient(ctx, cfg)
}

// GenerateContent sends parts as a single user turn and returns the response text.
func (ai *AIClient) GenerateContent(ctx context.Context, parts []*genai.Part, config *genai.GenerateContentConfig) (string, error) {
	ctx, span := otel.Tracer("GenerativeAI").Start(ctx, "GenerateContent", trace.WithAttributes(
		attribute.Int("prompt.parts", len(parts)),
		attribute.String("model", ai.opts.TextModel),
	))
	defer span.End()

	client, err := ai.genaiClient(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "No client")
		return "", err
	}

	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	result, err := client.Models.GenerateContent(ctx, ai.opts.TextModel, contents, config)
	if err != nil {
		err = ClassifyError(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to generate content")
		return "", err
	}

	responseText := result.Text()
	span.SetAttributes(attribute.Int("response.length", len(responseText)))
	span.SetStatus(codes.Ok, "Content generated successfully")
	return responseText, nil
}

// GenerateImage renders one image for req.Prompt.
func (ai *AIClient) GenerateImage(ctx context.Context, req types.ImageRequest) (*types.ImageResponse, error) {
	ctx, span := otel.Tracer("GenerativeAI").Start(ctx, "GenerateImage", trace.WithAttributes(
		attribute.Int("prompt.length", len(req.Prompt)),
		attribute.String("model", ai.opts.ImageModel),
		attribute.String("aspect_ratio", req.AspectRatio),
	))
	defer span.End()

	client, err := ai.genaiClient(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	resp, err := client.Models.GenerateImages(ctx, ai.opts.ImageModel, req.Prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		AspectRatio:    req.AspectRatio,
	})
	if err != nil {
		err = ClassifyError(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to generate image")
		return nil, err
	}
	for _, img := range resp.GeneratedImages {
		if img == nil || img.Image == nil || len(img.Image.ImageBytes) == 0 {
			continue
		}
		mime := img.Image.MIMEType
		if mime == "" {
			mime = "image/png"
		}
		span.SetAttributes(attribute.Int("image.bytes", len(img.Image.ImageBytes)))
		span.SetStatus(codes.Ok, "Image generated")
		return &types.ImageResponse{Data: img.Image.ImageBytes, MIMEType: mime}, nil
	}
	span.SetStatus(codes.Error, "No image data")
	return nil, ErrNoImageData
}

// KeyVerifier confirms a candidate key with a cheap model metadata lookup.
type KeyVerifier struct {
	opts Options
}

func NewKeyVerifier(opts Options) *KeyVerifier {
	return &KeyVerifier{opts: opts}
}

func (v *KeyVerifier) Verify(ctx context.Context, apiKey string) error {
	ctx, span := otel.Tracer("GenerativeAI").Start(ctx, "VerifyKey")
	defer span.End()

	client, err := newGenaiClient(ctx, apiKey, v.opts)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create client: %w", err)
	}
	if _, err := client.Models.Get(ctx, v.opts.TextModel, nil); err != nil {
		err = ClassifyError(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Key rejected")
		return err
	}
	span.SetStatus(codes.Ok, "Key accepted")
	return nil
}

// ClassifyError maps collaborator failures onto the shared taxonomy. Invalid,
// expired and not-found credentials become ErrAuth; everything else is a
// transport error with the upstream message kept verbatim.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, types.ErrAuth) || errors.Is(err, types.ErrTransport) {
		return err
	}
	code, status, message := 0, "", err.Error()
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		code, status, message = apiErr.Code, apiErr.Status, apiErr.Message
	case errors.As(err, &apiErrPtr) && apiErrPtr != nil:
		code, status, message = apiErrPtr.Code, apiErrPtr.Status, apiErrPtr.Message
	}
	lower := strings.ToLower(message)
	switch {
	case code == http.StatusUnauthorized, code == http.StatusForbidden,
		status == "UNAUTHENTICATED", status == "PERMISSION_DENIED",
		strings.Contains(lower, "api key not valid"),
		strings.Contains(lower, "api key expired"),
		strings.Contains(lower, "requested entity was not found"):
		return fmt.Errorf("%w: %s", types.ErrAuth, message)
	}
	return fmt.Errorf("%w: %w", types.ErrTransport, err)
}
