package session

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token")
	s := NewFileStore(path)

	if _, ok := s.Token(); ok {
		t.Fatal("expected no token before SetToken")
	}
	if s.Authenticated() {
		t.Fatal("expected not authenticated before SetToken")
	}

	if err := s.SetToken("abc123"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tok, ok := s.Token()
	if !ok || tok != "abc123" {
		t.Fatalf("expected token abc123, got %q (present=%v)", tok, ok)
	}
	if !s.Authenticated() {
		t.Fatal("expected authenticated after SetToken")
	}

	// Token survives a fresh store pointing at the same file.
	s2 := NewFileStore(path)
	tok, ok = s2.Token()
	if !ok || tok != "abc123" {
		t.Fatalf("expected persisted token, got %q (present=%v)", tok, ok)
	}
}

func TestFileStore_Clear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	s := NewFileStore(path)

	// Clearing when nothing is stored must not error.
	if err := s.Clear(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := s.SetToken("tok"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Authenticated() {
		t.Fatal("expected not authenticated after Clear")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("expected token file removed")
	}
}

func TestFileStore_EmptyFileMeansNoSession(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte("  \n"), 0o600); err != nil {
		t.Fatal(err)
	}

	s := NewFileStore(path)
	if _, ok := s.Token(); ok {
		t.Fatal("expected whitespace-only file to count as no session")
	}
}

func TestFileStore_RejectsEmptyToken(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "token"))
	if err := s.SetToken(""); err == nil {
		t.Fatal("expected error for empty token")
	}
}

func TestMemStore(t *testing.T) {
	s := NewMemStore()
	if s.Authenticated() {
		t.Fatal("expected empty store")
	}
	if err := s.SetToken("t"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok, ok := s.Token(); !ok || tok != "t" {
		t.Fatalf("expected token t, got %q", tok)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Authenticated() {
		t.Fatal("expected cleared store")
	}
}
