// Package jsondoc provides a file-backed JSON document with locked
// read-modify-write cycles and read-repair.
//
// # Overview
//
// [File] persists one JSON value (the document) in one file. Every operation
// reads the whole file, and every mutation rewrites the whole file. There is
// no in-memory cache: the file is the source of truth, so edits made by hand
// while the process runs are picked up by the next operation.
//
// # Concurrency
//
// [File.Modify] holds an in-process mutex and an advisory cross-process lock
// (a sibling ".lock" file) for the entire read-modify-write cycle, so two
// concurrent callers cannot lose each other's update. Writers that bypass the
// lock file are not supported.
//
// # Read-repair
//
// A file that does not decode into the document type, or whose decoded value
// fails [Document.Validate], is copied to a backup path
// ("<name>-corrupt-<unix-ms>.json") and replaced by a fresh empty document.
// The caller sees the empty document, not an error.
package jsondoc
