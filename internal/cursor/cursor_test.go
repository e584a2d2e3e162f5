package cursor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last_uid.txt")
	s := NewFileStore(path, zap.NewNop())
	ctx := context.Background()

	s.Write(ctx, 42)
	if got := s.Read(ctx); got != 42 {
		t.Fatalf("Read = %d, want 42", got)
	}

	s.Write(ctx, 43)
	if got := s.Read(ctx); got != 43 {
		t.Fatalf("Read after rewrite = %d, want 43", got)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "43" {
		t.Errorf("file content = %q, want plain integer text", data)
	}
}

func TestFileStoreMissingFileReadsZero(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "absent.txt"), zap.NewNop())
	if got := s.Read(context.Background()); got != 0 {
		t.Fatalf("Read = %d, want 0 for missing file", got)
	}
}

func TestFileStoreGarbledFileReadsZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last_uid.txt")
	if err := os.WriteFile(path, []byte("not a number"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewFileStore(path, zap.NewNop())
	if got := s.Read(context.Background()); got != 0 {
		t.Fatalf("Read = %d, want 0 for garbled file", got)
	}
}

func TestParseMarkerTrimsWhitespace(t *testing.T) {
	if got := parseMarker("  17\n"); got != 17 {
		t.Fatalf("parseMarker = %d, want 17", got)
	}
	if got := parseMarker("-5"); got != 0 {
		t.Fatalf("parseMarker negative = %d, want 0", got)
	}
}
