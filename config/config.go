package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

type Config struct {
	Mode   string `mapstructure:"mode"`
	Dotenv string `mapstructure:"dotenv"`
	Server struct {
		HTTPPort       string        `mapstructure:"HTTPPort"`
		Timeout        time.Duration `mapstructure:"HTTPTimeout"`
		AllowedOrigins []string      `mapstructure:"allowedOrigins"`
		// GenerateRateLimit is requests per minute per IP on generation routes.
		GenerateRateLimit int `mapstructure:"generateRateLimit"`
	} `mapstructure:"server"`
	Metrics struct {
		Port    string `mapstructure:"port"`
		Enabled bool   `mapstructure:"enabled"`
	} `mapstructure:"metrics"`
	GenAI struct {
		TextModel   string  `mapstructure:"textModel"`
		ImageModel  string  `mapstructure:"imageModel"`
		Temperature float32 `mapstructure:"temperature"`
		AspectRatio string  `mapstructure:"aspectRatio"`
		// BaseURL overrides the Gemini endpoint, mainly for tests and proxies.
		BaseURL string `mapstructure:"baseURL"`
		// CredentialMode is "env" (GOOGLE_GEMINI_API_KEY) or "bootstrap" (selected over the API).
		CredentialMode string `mapstructure:"credentialMode"`
	} `mapstructure:"genai"`
	Images struct {
		PlaceholderBaseURL string `mapstructure:"placeholderBaseURL"`
		PlaceholderWidth   int    `mapstructure:"placeholderWidth"`
		PlaceholderHeight  int    `mapstructure:"placeholderHeight"`
		Concurrency        int    `mapstructure:"concurrency"`
		GenerateOnCreate   bool   `mapstructure:"generateOnCreate"`
	} `mapstructure:"images"`
	Sessions struct {
		TTL     time.Duration `mapstructure:"ttl"`
		Cleanup time.Duration `mapstructure:"cleanup"`
	} `mapstructure:"sessions"`
	Cache struct {
		Enabled bool          `mapstructure:"enabled"`
		PlanTTL time.Duration `mapstructure:"planTTL"`
	} `mapstructure:"cache"`
	Upload struct {
		MaxBytes    int64 `mapstructure:"maxBytes"`
		MaxEdgePx   int   `mapstructure:"maxEdgePx"`
		JPEGQuality int   `mapstructure:"jpegQuality"`
	} `mapstructure:"upload"`
	Export struct {
		PDFFontPath string `mapstructure:"pdfFontPath"`
	} `mapstructure:"export"`
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	// Add file-based config paths
	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")
	v.AddConfigPath("/usr/local/bin")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	v.SetEnvPrefix("TOUR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Try to load file-based config
	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %s", err)
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %s", err)
	}
	config.applyDefaults()
	fmt.Println("Successfully loaded app configs...")
	return config, nil
}

// applyDefaults fills zero values a partial config file may leave behind.
func (c *Config) applyDefaults() {
	if c.Server.HTTPPort == "" {
		c.Server.HTTPPort = "8000"
	}
	if c.Server.Timeout == 0 {
		c.Server.Timeout = 180 * time.Second
	}
	if c.GenAI.TextModel == "" {
		c.GenAI.TextModel = "gemini-2.5-pro"
	}
	if c.GenAI.ImageModel == "" {
		c.GenAI.ImageModel = "imagen-4.0-generate-001"
	}
	if c.GenAI.AspectRatio == "" {
		c.GenAI.AspectRatio = "16:9"
	}
	if c.GenAI.CredentialMode == "" {
		c.GenAI.CredentialMode = "env"
	}
	if c.Images.PlaceholderBaseURL == "" {
		c.Images.PlaceholderBaseURL = "https://picsum.photos/seed"
	}
	if c.Images.PlaceholderWidth == 0 {
		c.Images.PlaceholderWidth = 800
	}
	if c.Images.PlaceholderHeight == 0 {
		c.Images.PlaceholderHeight = 600
	}
	if c.Images.Concurrency <= 0 {
		c.Images.Concurrency = 8
	}
	if c.Sessions.TTL == 0 {
		c.Sessions.TTL = 2 * time.Hour
	}
	if c.Sessions.Cleanup == 0 {
		c.Sessions.Cleanup = 10 * time.Minute
	}
	if c.Cache.PlanTTL == 0 {
		c.Cache.PlanTTL = 24 * time.Hour
	}
	if c.Upload.MaxBytes == 0 {
		c.Upload.MaxBytes = 20 << 20
	}
	if c.Upload.MaxEdgePx == 0 {
		c.Upload.MaxEdgePx = 1600
	}
	if c.Upload.JPEGQuality == 0 {
		c.Upload.JPEGQuality = 85
	}
}
