package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigMissingFileKeepsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.PlatformURL != "http://localhost:8000" || cfg.AgentURL != "http://localhost:8001" {
		t.Fatalf("default urls: %+v", cfg)
	}
	if cfg.DefaultFlow != string(FlowDoubtClearance) {
		t.Fatalf("default flow = %q", cfg.DefaultFlow)
	}
	if cfg.PollInterval() != 3*time.Second || cfg.PollMaxAttempts != 60 {
		t.Fatalf("poll defaults: %+v", cfg)
	}
	if len(cfg.AllowedUploadTypes) == 0 {
		t.Fatal("allowed upload types empty")
	}
}

func TestLoadConfigReadsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(
		"platform_url: https://platform.example.com\n" +
			"agent_url: https://agent.example.com\n" +
			"teacher_id: teacher-7\n" +
			"flow: worksheet_generation\n" +
			"poll_interval_sec: 5\n",
	)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.PlatformURL != "https://platform.example.com" {
		t.Fatalf("platform url = %q", cfg.PlatformURL)
	}
	if cfg.TeacherID != "teacher-7" {
		t.Fatalf("teacher id = %q", cfg.TeacherID)
	}
	if cfg.DefaultFlow != string(FlowWorksheetGeneration) {
		t.Fatalf("flow = %q", cfg.DefaultFlow)
	}
	if cfg.PollIntervalSec != 5 {
		t.Fatalf("poll interval = %d", cfg.PollIntervalSec)
	}
	// Fields the file omits stay at their defaults.
	if cfg.PollMaxAttempts != 60 {
		t.Fatalf("poll attempts = %d", cfg.PollMaxAttempts)
	}
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("auth_token: from-file\nteacher_id: file-teacher\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SUDAR_TOKEN", "from-env")
	t.Setenv("SUDAR_TEACHER_ID", "env-teacher")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AuthToken != "from-env" {
		t.Fatalf("token = %q", cfg.AuthToken)
	}
	if cfg.TeacherID != "env-teacher" {
		t.Fatalf("teacher id = %q", cfg.TeacherID)
	}
}

func TestInvalidFlowFallsBackToDoubtClearance(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("flow: essay_writing\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DefaultFlow != string(FlowDoubtClearance) {
		t.Fatalf("flow = %q", cfg.DefaultFlow)
	}
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	want := DefaultConfig()
	want.TeacherID = "teacher-9"
	want.LogFile = "/tmp/sudar.log"

	if err := SaveConfig(want, path); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.TeacherID != want.TeacherID || got.LogFile != want.LogFile {
		t.Fatalf("round trip: %+v", got)
	}
}
