// Package frontend provides the embedded browser shell: a static page and
// script driven by GET /api/schema.
package frontend

import "embed"

// Files contains the embedded web frontend.
//
//go:embed dist/*
var Files embed.FS
