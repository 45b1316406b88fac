package handlers

import (
	"context"
	"testing"

	"github.com/maruel/contactcrm/internal/server/dto"
)

func TestHealthHandler_Health(t *testing.T) {
	tests := []struct {
		name    string
		version string
	}{
		{"basic health check", "1.0.0"},
		{"dev version", "dev"},
		{"empty version", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := NewHealthHandler(tt.version).Health(context.Background(), &dto.HealthRequest{})
			if err != nil {
				t.Fatalf("Health() error = %v", err)
			}
			if resp.Status != "ok" {
				t.Errorf("Status = %q, want %q", resp.Status, "ok")
			}
			if resp.Version != tt.version {
				t.Errorf("Version = %q, want %q", resp.Version, tt.version)
			}
		})
	}
}
