package config

import "testing"

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/notifier_test?sslmode=disable")
	t.Setenv("PORT", "")
	t.Setenv("API_BASE_URL", "")
	t.Setenv("SCHEDULER_BACKEND", "")
	t.Setenv("EMAIL_BACKEND", "")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Port != "3000" {
		t.Errorf("Port = %q, want 3000", cfg.Port)
	}
	if cfg.APIBaseURL != "http://localhost:3000" {
		t.Errorf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.SchedulerBackend != SchedulerBackendLocal {
		t.Errorf("SchedulerBackend = %q, want local", cfg.SchedulerBackend)
	}
	if cfg.EmailBackend != EmailBackendFile {
		t.Errorf("EmailBackend = %q, want file", cfg.EmailBackend)
	}
	if cfg.SchedulerTimeZone == "" {
		t.Error("SchedulerTimeZone is empty")
	}
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	if _, err := Load(); err == nil {
		t.Error("Load() without DATABASE_URL expected error, got nil")
	}
}

func TestLoad_CloudBackendRequiresProject(t *testing.T) {
	setRequired(t)
	t.Setenv("SCHEDULER_BACKEND", "cloud")
	t.Setenv("GCP_PROJECT_ID", "")
	if _, err := Load(); err == nil {
		t.Error("Load() with cloud backend and no project expected error, got nil")
	}

	t.Setenv("GCP_PROJECT_ID", "acme-project")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.SchedulerBackend != SchedulerBackendCloud {
		t.Errorf("SchedulerBackend = %q, want cloud", cfg.SchedulerBackend)
	}
}

func TestLoad_InvalidBackends(t *testing.T) {
	setRequired(t)
	t.Setenv("SCHEDULER_BACKEND", "quartz")
	if _, err := Load(); err == nil {
		t.Error("Load() with invalid scheduler backend expected error, got nil")
	}

	t.Setenv("SCHEDULER_BACKEND", "local")
	t.Setenv("EMAIL_BACKEND", "carrier-pigeon")
	if _, err := Load(); err == nil {
		t.Error("Load() with invalid email backend expected error, got nil")
	}
}
