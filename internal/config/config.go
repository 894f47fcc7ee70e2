package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// APIKeyEnv is the environment variable holding the hosted API key
const APIKeyEnv = "OPENAI_API_KEY"

// APIKeyFileEnv points at a mounted secrets file
const APIKeyFileEnv = "OPENAI_API_KEY_FILE"

const placeholderKey = "your_api_key_here"

// ErrMissingAPIKey is returned when no credential could be resolved
var ErrMissingAPIKey = errors.New("OpenAI API key not configured")

// Config represents the application configuration
type Config struct {
	Server struct {
		Port int    `yaml:"port" validate:"gt=0,lte=65535"`
		Host string `yaml:"host"`
	} `yaml:"server"`

	OpenAI struct {
		BaseURL            string `yaml:"base_url"`
		TranscriptionModel string `yaml:"transcription_model" validate:"required"`
		AnalysisModel      string `yaml:"analysis_model" validate:"required"`
		SpeechModel        string `yaml:"speech_model" validate:"required"`
		SpeechVoice        string `yaml:"speech_voice" validate:"required"`
		Language           string `yaml:"language"`
		TimeoutSeconds     int    `yaml:"timeout_seconds" validate:"gt=0"`
	} `yaml:"openai"`

	Speakers struct {
		Mode        string `yaml:"mode" validate:"oneof=heuristic llm"`
		MaxSpeakers int    `yaml:"max_speakers" validate:"gte=1,lte=26"`
	} `yaml:"speakers"`

	Storage struct {
		TempDir   string `yaml:"temp_dir" validate:"required"`
		SampleDir string `yaml:"sample_dir" validate:"required"`
	} `yaml:"storage"`

	Cleanup struct {
		IntervalMinutes int `yaml:"interval_minutes" validate:"gt=0"`
		MaxAgeHours     int `yaml:"max_age_hours" validate:"gt=0"`
	} `yaml:"cleanup"`

	GoogleDrive struct {
		Enabled         bool   `yaml:"enabled"`
		CredentialsFile string `yaml:"credentials_file" validate:"required_if=Enabled true"`
		TokenFile       string `yaml:"token_file" validate:"required_if=Enabled true"`
		FolderName      string `yaml:"folder_name" validate:"required_if=Enabled true"`
	} `yaml:"google_drive"`

	Limits struct {
		MaxFileSizeMB  int      `yaml:"max_file_size_mb" validate:"gt=0"`
		AllowedFormats []string `yaml:"allowed_formats" validate:"min=1,dive,required"`
	} `yaml:"limits"`

	Secrets struct {
		File string `yaml:"file"`
	} `yaml:"secrets"`

	LogLevel  string `yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string `yaml:"log_format" validate:"oneof=text json"`
}

// Default returns a Config with the demo's defaults
func Default() *Config {
	cfg := &Config{}
	cfg.Server.Port = 8501
	cfg.Server.Host = "0.0.0.0"

	cfg.OpenAI.TranscriptionModel = "whisper-1"
	cfg.OpenAI.AnalysisModel = "gpt-4o-mini"
	cfg.OpenAI.SpeechModel = "tts-1"
	cfg.OpenAI.SpeechVoice = "alloy"
	cfg.OpenAI.TimeoutSeconds = 120

	cfg.Speakers.Mode = "heuristic"
	cfg.Speakers.MaxSpeakers = 2

	cfg.Storage.TempDir = "temp"
	cfg.Storage.SampleDir = "sample_audio"

	cfg.Cleanup.IntervalMinutes = 30
	cfg.Cleanup.MaxAgeHours = 2

	cfg.GoogleDrive.CredentialsFile = "config/credentials.json"
	cfg.GoogleDrive.TokenFile = "config/token.json"
	cfg.GoogleDrive.FolderName = "Conversation Analysis"

	cfg.Limits.MaxFileSizeMB = 25
	cfg.Limits.AllowedFormats = []string{"mp3", "wav", "m4a", "flac", "ogg"}

	cfg.Secrets.File = "config/secrets.yaml"

	cfg.LogLevel = "info"
	cfg.LogFormat = "text"
	return cfg
}

// Load reads a YAML config file over the defaults. A missing file is not an
// error; the defaults are returned instead.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	for i, f := range cfg.Limits.AllowedFormats {
		cfg.Limits.AllowedFormats[i] = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(f), "."))
	}

	return cfg, nil
}

// Validate checks the config for invalid values
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s failed on the '%s' tag", fe.Namespace(), fe.Tag())
		}
		return err
	}
	return nil
}

// MaxFileSizeBytes returns the upload cap in bytes
func (c *Config) MaxFileSizeBytes() int64 {
	return int64(c.Limits.MaxFileSizeMB) * 1024 * 1024
}

// LoadDotEnv loads .env files into the process environment. Variables
// already set are left alone and missing files are skipped.
func LoadDotEnv(paths ...string) error {
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// ResolveAPIKey looks up the hosted API key: the secrets file first (the
// configured one, or the path in OPENAI_API_KEY_FILE), then the environment.
func (c *Config) ResolveAPIKey() (string, error) {
	files := []string{os.Getenv(APIKeyFileEnv), c.Secrets.File}
	for _, f := range files {
		if f == "" {
			continue
		}
		key, err := keyFromSecretsFile(f)
		if err != nil {
			return "", err
		}
		if usableKey(key) {
			return key, nil
		}
	}

	if key := strings.TrimSpace(os.Getenv(APIKeyEnv)); usableKey(key) {
		return key, nil
	}
	return "", ErrMissingAPIKey
}

// keyFromSecretsFile reads OPENAI_API_KEY from a YAML secrets map. A file
// holding only the bare key is accepted too.
func keyFromSecretsFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("reading secrets file: %w", err)
	}

	raw := strings.TrimSpace(string(data))
	if raw == "" {
		return "", nil
	}

	var secrets map[string]string
	if err := yaml.Unmarshal(data, &secrets); err != nil {
		if !strings.ContainsAny(raw, ":\n") {
			return raw, nil
		}
		return "", fmt.Errorf("parsing secrets file: %w", err)
	}
	if secrets == nil {
		return "", nil
	}
	return strings.TrimSpace(secrets[APIKeyEnv]), nil
}

func usableKey(key string) bool {
	return key != "" && key != placeholderKey
}
