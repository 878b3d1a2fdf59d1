package app

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	PlatformURL string `yaml:"platform_url"`
	AgentURL    string `yaml:"agent_url"`
	AuthToken   string `yaml:"auth_token"`
	TeacherID   string `yaml:"teacher_id"`
	DefaultFlow string `yaml:"flow"`

	PollIntervalSec int `yaml:"poll_interval_sec"`
	PollMaxAttempts int `yaml:"poll_max_attempts"`

	AllowedUploadTypes []string `yaml:"allowed_upload_types"`
	LogFile            string   `yaml:"log_file"`
}

func DefaultAllowedUploadTypes() []string {
	return []string{".pdf", ".docx", ".pptx", ".xlsx", ".md", ".markdown"}
}

func DefaultConfig() Config {
	return Config{
		PlatformURL:        "http://localhost:8000",
		AgentURL:           "http://localhost:8001",
		DefaultFlow:        string(FlowDoubtClearance),
		PollIntervalSec:    3,
		PollMaxAttempts:    60,
		AllowedUploadTypes: DefaultAllowedUploadTypes(),
	}
}

func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "sudar")
	}
	return filepath.Join(home, ".sudar")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// LoadConfig reads the yaml config at path (a missing file keeps defaults),
// then a .env beside it, then the environment. Env always wins so a token
// never has to live in the config file.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = DefaultConfigPath()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return cfg, err
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}

	// Best effort; a missing .env is the normal case.
	_ = godotenv.Load(filepath.Join(filepath.Dir(path), ".env"))

	if v := os.Getenv("SUDAR_PLATFORM_URL"); v != "" {
		cfg.PlatformURL = v
	}
	if v := os.Getenv("SUDAR_AGENT_URL"); v != "" {
		cfg.AgentURL = v
	}
	if v := os.Getenv("SUDAR_TOKEN"); v != "" {
		cfg.AuthToken = v
	}
	if v := os.Getenv("SUDAR_TEACHER_ID"); v != "" {
		cfg.TeacherID = v
	}

	if _, ok := ParseFlow(cfg.DefaultFlow); !ok {
		cfg.DefaultFlow = string(FlowDoubtClearance)
	}
	if cfg.PollIntervalSec <= 0 {
		cfg.PollIntervalSec = 3
	}
	if cfg.PollMaxAttempts <= 0 {
		cfg.PollMaxAttempts = 60
	}
	if len(cfg.AllowedUploadTypes) == 0 {
		cfg.AllowedUploadTypes = DefaultAllowedUploadTypes()
	}
	return cfg, nil
}

func SaveConfig(cfg Config, path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (c Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSec) * time.Second
}
