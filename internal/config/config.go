package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr     string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"10m"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`

	AuthToken string `env:"AUTH_TOKEN"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`

	// File areas. Uploads hold raw audio, temp holds segment and
	// preprocessing artifacts, generated holds rendered documents.
	UploadDir    string        `env:"UPLOAD_DIR" envDefault:"./uploads"`
	TempDir      string        `env:"TEMP_DIR" envDefault:"./temp"`
	GeneratedDir string        `env:"GENERATED_DIR" envDefault:"./generated"`
	Retention    time.Duration `env:"FILE_RETENTION" envDefault:"24h"`
	MaxUploadMB  int           `env:"MAX_UPLOAD_MB" envDefault:"100"`

	HotFolder string `env:"HOT_FOLDER_DIR"`

	Audio     AudioConfig
	Whisper   WhisperConfig
	Extract   ExtractConfig
	PDF       PDFConfig
	RateLimit RateLimitConfig
	S3        S3Config
}

// AudioConfig holds the long-audio pipeline constants. The 600s window and
// 120min ceiling are product policy, overridable per deployment.
type AudioConfig struct {
	SegmentWindow time.Duration `env:"SEGMENT_WINDOW" envDefault:"600s"`
	MaxDuration   time.Duration `env:"MAX_AUDIO_DURATION" envDefault:"120m"`
	Preprocess    bool          `env:"ENABLE_PREPROCESSING" envDefault:"true"`
	Concurrency   int           `env:"AUDIO_CONCURRENCY" envDefault:"2"`
	FFmpegPath    string        `env:"FFMPEG_PATH" envDefault:"ffmpeg"`
	FFprobePath   string        `env:"FFPROBE_PATH" envDefault:"ffprobe"`
}

type WhisperConfig struct {
	URL         string        `env:"WHISPER_URL" envDefault:"https://api.openai.com/v1/audio/transcriptions"`
	APIKey      string        `env:"OPENAI_API_KEY"`
	Model       string        `env:"WHISPER_MODEL" envDefault:"whisper-1"`
	Timeout     time.Duration `env:"WHISPER_TIMEOUT" envDefault:"90s"`
	MaxAttempts int           `env:"WHISPER_MAX_RETRIES" envDefault:"3"`
	Language    string        `env:"WHISPER_LANGUAGE" envDefault:"ja"`
}

type ExtractConfig struct {
	APIKey      string        `env:"EXTRACT_API_KEY"`
	BaseURL     string        `env:"EXTRACT_BASE_URL"`
	Model       string        `env:"EXTRACT_MODEL" envDefault:"gpt-4o"`
	Timeout     time.Duration `env:"EXTRACT_TIMEOUT" envDefault:"60s"`
	MaxAttempts int           `env:"EXTRACT_MAX_RETRIES" envDefault:"3"`
	Concurrency int           `env:"EXTRACT_CONCURRENCY" envDefault:"3"`
}

type PDFConfig struct {
	RendererURL string        `env:"PDF_RENDERER_URL"`
	Timeout     time.Duration `env:"PDF_TIMEOUT" envDefault:"30s"`
	Concurrency int           `env:"PDF_CONCURRENCY" envDefault:"3"`
}

type RateLimitConfig struct {
	Requests int           `env:"RATE_LIMIT" envDefault:"100"`
	Window   time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"15m"`
}

// S3Config enables archival of uploads and generated documents to an
// S3-compatible object store. Disabled unless a bucket is set.
type S3Config struct {
	Bucket        string        `env:"S3_BUCKET"`
	Region        string        `env:"S3_REGION" envDefault:"ap-northeast-1"`
	Endpoint      string        `env:"S3_ENDPOINT"`
	AccessKey     string        `env:"S3_ACCESS_KEY"`
	SecretKey     string        `env:"S3_SECRET_KEY"`
	Prefix        string        `env:"S3_PREFIX" envDefault:"kiroku"`
	PresignExpiry time.Duration `env:"S3_PRESIGN_EXPIRY" envDefault:"1h"`
}

func (c S3Config) Enabled() bool { return c.Bucket != "" }

// Overrides holds CLI flag values that take priority over env vars.
type Overrides struct {
	EnvFile   string
	HTTPAddr  string
	LogLevel  string
	UploadDir string
	HotFolder string
}

// Load reads configuration from .env file, environment variables, and CLI
// overrides. Priority: CLI flags > environment variables > .env file >
// struct defaults.
func Load(overrides Overrides) (*Config, error) {
	envFile := overrides.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		_ = godotenv.Load(envFile)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if overrides.HTTPAddr != "" {
		cfg.HTTPAddr = overrides.HTTPAddr
	}
	if overrides.LogLevel != "" {
		cfg.LogLevel = overrides.LogLevel
	}
	if overrides.UploadDir != "" {
		cfg.UploadDir = overrides.UploadDir
	}
	if overrides.HotFolder != "" {
		cfg.HotFolder = overrides.HotFolder
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Audio.SegmentWindow <= 0 {
		return fmt.Errorf("SEGMENT_WINDOW must be positive, got %s", c.Audio.SegmentWindow)
	}
	if c.Audio.MaxDuration < c.Audio.SegmentWindow {
		return fmt.Errorf("MAX_AUDIO_DURATION %s is below SEGMENT_WINDOW %s", c.Audio.MaxDuration, c.Audio.SegmentWindow)
	}
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("MAX_UPLOAD_MB must be positive, got %d", c.MaxUploadMB)
	}
	return nil
}
