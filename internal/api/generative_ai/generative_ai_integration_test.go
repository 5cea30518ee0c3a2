//go:build integration

package generativeAI

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/FACorreiaa/go-tour-itinerary-studio/internal/api/credentials"
	"github.com/FACorreiaa/go-tour-itinerary-studio/internal/types"
)

func TestMain(m *testing.M) {
	// Skip all tests if no API key is provided
	if os.Getenv(credentials.EnvKey) == "" {
		os.Exit(0)
	}
	os.Exit(m.Run())
}

func integrationClient() *AIClient {
	return NewAIClient(credentials.NewEnvProvider(os.Getenv(credentials.EnvKey)), Options{
		TextModel:  "gemini-2.5-flash",
		ImageModel: "imagen-4.0-generate-001",
	}, discardLogger())
}

func TestAIClient_GenerateContent_Integration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0.1), // Low temperature for consistent results
	}
	response, err := integrationClient().GenerateContent(ctx,
		[]*genai.Part{genai.NewPartFromText("What is the capital of Portugal? Answer with one word.")}, config)
	require.NoError(t, err)
	assert.Contains(t, response, "Lisbon")
}

func TestAIClient_GenerateImage_Integration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	img, err := integrationClient().GenerateImage(ctx, types.ImageRequest{
		Prompt:      "Alishan sunrise above a sea of clouds, travel photography",
		AspectRatio: "16:9",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, img.Data)
	assert.NotEmpty(t, img.MIMEType)
}

func TestKeyVerifier_Integration(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, NewKeyVerifier(Options{TextModel: "gemini-2.5-flash"}).Verify(ctx, os.Getenv(credentials.EnvKey)))

	err := NewKeyVerifier(Options{TextModel: "gemini-2.5-flash"}).Verify(ctx, "not-a-real-key")
	require.ErrorIs(t, err, types.ErrAuth)
}
