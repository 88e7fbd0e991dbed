package database

import (
	"context"
	"path/filepath"
	"testing"
)

func TestOpen_CreatesFileAndDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "nested", "ventana.db")

	db, err := Open(Config{Path: path, WALMode: true, BusyTimeout: 5})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	if db.Path() != path {
		t.Errorf("Path() = %q, want %q", db.Path(), path)
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	// A path below an existing file cannot be created as a directory.
	tmpDir := t.TempDir()
	blocker := filepath.Join(tmpDir, "blocker")
	db, err := Open(Config{Path: blocker, WALMode: false, BusyTimeout: 1})
	if err != nil {
		t.Fatalf("Open() setup error = %v", err)
	}
	db.Close()

	_, err = Open(Config{Path: filepath.Join(blocker, "sub", "x.db"), BusyTimeout: 1})
	if err == nil {
		t.Error("Open() expected error for path below a file, got nil")
	}
}

func TestHealthCheck(t *testing.T) {
	tmpDir := t.TempDir()
	db, err := Open(Config{Path: filepath.Join(tmpDir, "ventana.db"), WALMode: true, BusyTimeout: 5})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	if err := db.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestClose_Idempotent(t *testing.T) {
	tmpDir := t.TempDir()
	db, err := Open(Config{Path: filepath.Join(tmpDir, "ventana.db"), BusyTimeout: 1})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if err := db.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	// Second close on database/sql is safe.
	if err := db.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}
