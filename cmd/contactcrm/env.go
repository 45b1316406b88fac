package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// options are the settings that a .env file may supply.
type options struct {
	Port       int
	Host       string
	LogLevel   string
	Schema     string
	GitHistory bool
}

// applyEnv fills options whose flag was not set from the .env values. A
// non-empty PORT in the process environment wins over .env.
func (o *options) applyEnv(set map[string]bool, env map[string]string, processPort string) error {
	if !set["port"] {
		v := env["PORT"]
		if processPort != "" {
			v = processPort
		}
		if v != "" {
			p, err := strconv.Atoi(v)
			if err != nil || p <= 0 || p > 65535 {
				return fmt.Errorf("invalid PORT %q", v)
			}
			o.Port = p
		}
	}
	if !set["host"] {
		if v := env["HOST"]; v != "" {
			o.Host = v
		}
	}
	if !set["log-level"] {
		if v := env["LOG_LEVEL"]; v != "" {
			o.LogLevel = v
		}
	}
	if !set["schema"] {
		if v := env["SCHEMA"]; v != "" {
			o.Schema = v
		}
	}
	if !set["git-history"] {
		if v := env["GIT_HISTORY"]; v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid GIT_HISTORY %q", v)
			}
			o.GitHistory = b
		}
	}
	if o.Port <= 0 || o.Port > 65535 {
		return fmt.Errorf("invalid port %d", o.Port)
	}
	return nil
}

func loadDotEnv(dataDir string) (map[string]string, error) {
	env := make(map[string]string)
	path := filepath.Join(dataDir, ".env")
	envContent, err := os.ReadFile(path) //nolint:gosec // G304: path is constructed from dataDir flag, not user input
	if err != nil {
		if os.IsNotExist(err) {
			return env, nil
		}
		return nil, err
	}

	for line := range strings.SplitSeq(string(envContent), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)

		if strings.HasPrefix(val, "'") || strings.HasSuffix(val, "'") {
			if strings.HasPrefix(val, "'") && strings.HasSuffix(val, "'") {
				return nil, fmt.Errorf("single quotes are not supported for wrapping in .env: %s", line)
			}
			return nil, fmt.Errorf("unbalanced single quotes in .env: %s", line)
		}
		if strings.HasPrefix(val, "\"") {
			unquoted, err := strconv.Unquote(val)
			if err != nil {
				return nil, fmt.Errorf("failed to unquote %s: %w", key, err)
			}
			val = unquoted
		}
		env[key] = val
	}
	return env, nil
}
