package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	got, err := loadDotEnv(dir)
	if err != nil || len(got) != 0 {
		t.Fatalf("missing .env = %v, %v", got, err)
	}
	content := "# comment\nPORT=8080\n\nHOST = \"127.0.0.1\"\nbroken line\nLOG_LEVEL=debug\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	got, err = loadDotEnv(dir)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{"PORT": "8080", "HOST": "127.0.0.1", "LOG_LEVEL": "debug"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("loadDotEnv (-want +got):\n%s", diff)
	}

	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("A='x'\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := loadDotEnv(dir); err == nil {
		t.Error("single quotes accepted")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{"PORT": "4000", "HOST": "localhost", "LOG_LEVEL": "warn", "SCHEMA": "f.yaml", "GIT_HISTORY": "true"}
	tests := []struct {
		name        string
		set         map[string]bool
		env         map[string]string
		processPort string
		want        options
		wantErr     bool
	}{
		{
			name: "defaults",
			want: options{Port: 3000, LogLevel: "info"},
		},
		{
			name: "dotenv",
			env:  env,
			want: options{Port: 4000, Host: "localhost", LogLevel: "warn", Schema: "f.yaml", GitHistory: true},
		},
		{
			name:        "process PORT wins over dotenv",
			env:         env,
			processPort: "5000",
			want:        options{Port: 5000, Host: "localhost", LogLevel: "warn", Schema: "f.yaml", GitHistory: true},
		},
		{
			name:        "flags win",
			set:         map[string]bool{"port": true, "log-level": true},
			env:         env,
			processPort: "5000",
			want:        options{Port: 3000, Host: "localhost", LogLevel: "info", Schema: "f.yaml", GitHistory: true},
		},
		{
			name:    "bad port",
			env:     map[string]string{"PORT": "http"},
			wantErr: true,
		},
		{
			name:    "bad bool",
			env:     map[string]string{"GIT_HISTORY": "maybe"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := options{Port: 3000, LogLevel: "info"}
			err := o.applyEnv(tt.set, tt.env, tt.processPort)
			if (err != nil) != tt.wantErr {
				t.Fatalf("applyEnv() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if diff := cmp.Diff(tt.want, o); diff != "" {
				t.Errorf("options (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadSchema(t *testing.T) {
	dir := t.TempDir()
	d, err := loadSchema("", dir)
	if err != nil || d.Primary() != "name" {
		t.Fatalf("default schema = %v, %v", d, err)
	}
	yaml := "fields:\n  - name: title\n    tags: [primary]\n  - name: price\n"
	if err := os.WriteFile(filepath.Join(dir, schemaFile), []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	d, err = loadSchema("", dir)
	if err != nil {
		t.Fatal(err)
	}
	if d.Primary() != "title" {
		t.Errorf("Primary() = %q", d.Primary())
	}
	if _, err := loadSchema(filepath.Join(dir, "missing.yaml"), dir); err == nil {
		t.Error("missing explicit schema accepted")
	}
}
