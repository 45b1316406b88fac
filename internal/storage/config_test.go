package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadServerConfig(t *testing.T) {
	t.Run("creates defaults", func(t *testing.T) {
		dir := t.TempDir()
		cfg, err := LoadServerConfig(dir)
		if err != nil {
			t.Fatalf("LoadServerConfig: %v", err)
		}
		if *cfg != DefaultServerConfig() {
			t.Errorf("cfg = %+v, want defaults", *cfg)
		}
		if cfg.RateLimits != (RateLimits{}) {
			t.Errorf("RateLimits = %+v, want unlimited by default", cfg.RateLimits)
		}
		if _, err := os.Stat(filepath.Join(dir, ConfigFile)); err != nil {
			t.Errorf("config file not written: %v", err)
		}
	})
	t.Run("reads overrides", func(t *testing.T) {
		dir := t.TempDir()
		data := `{"max_request_body_bytes": 2048, "rate_limits": {"write_rate_per_min": 30}}`
		if err := os.WriteFile(filepath.Join(dir, ConfigFile), []byte(data), 0o644); err != nil {
			t.Fatal(err)
		}
		cfg, err := LoadServerConfig(dir)
		if err != nil {
			t.Fatalf("LoadServerConfig: %v", err)
		}
		if cfg.MaxRequestBodyBytes != 2048 {
			t.Errorf("MaxRequestBodyBytes = %d", cfg.MaxRequestBodyBytes)
		}
		if cfg.RateLimits.WriteRatePerMin != 30 {
			t.Errorf("WriteRatePerMin = %d", cfg.RateLimits.WriteRatePerMin)
		}
		if cfg.RateLimits.ReadRatePerMin != DefaultRateLimits().ReadRatePerMin {
			t.Errorf("ReadRatePerMin = %d, want default", cfg.RateLimits.ReadRatePerMin)
		}
	})
	t.Run("rejects invalid", func(t *testing.T) {
		tests := []struct {
			name    string
			data    string
			wantErr string
		}{
			{"bad json", `{`, "failed to parse"},
			{"zero body", `{"max_request_body_bytes": 0}`, "max_request_body_bytes"},
			{"negative rate", `{"rate_limits": {"read_rate_per_min": -1}}`, "read_rate_per_min"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				dir := t.TempDir()
				if err := os.WriteFile(filepath.Join(dir, ConfigFile), []byte(tt.data), 0o644); err != nil {
					t.Fatal(err)
				}
				_, err := LoadServerConfig(dir)
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("err = %v, want containing %q", err, tt.wantErr)
				}
			})
		}
	})
}
