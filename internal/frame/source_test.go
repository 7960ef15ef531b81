package frame

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func writeFrameFile(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestDirSourceLexicalOrder(t *testing.T) {
	dir := t.TempDir()
	writeFrameFile(t, dir, "frame-0002.jpg", []byte("two"))
	writeFrameFile(t, dir, "frame-0000.jpg", []byte("zero"))
	writeFrameFile(t, dir, "frame-0001.png", []byte("one"))
	writeFrameFile(t, dir, "notes.txt", []byte("ignored"))

	src, err := NewDirSource(dir)
	if err != nil {
		t.Fatalf("NewDirSource: %v", err)
	}
	if src.Len() != 3 {
		t.Fatalf("expected 3 frames, got %d", src.Len())
	}

	ctx := context.Background()
	want := []struct {
		data     string
		encoding string
	}{
		{"zero", "jpeg"},
		{"one", "png"},
		{"two", "jpeg"},
	}
	for i, w := range want {
		f, err := src.Next(ctx)
		if err != nil {
			t.Fatalf("Next %d: %v", i, err)
		}
		if f.Index != i {
			t.Fatalf("expected index %d, got %d", i, f.Index)
		}
		if string(f.Data) != w.data {
			t.Fatalf("frame %d: expected %q, got %q", i, w.data, f.Data)
		}
		if f.Encoding != w.encoding {
			t.Fatalf("frame %d: expected encoding %s, got %s", i, w.encoding, f.Encoding)
		}
	}

	if _, err := src.Next(ctx); err != io.EOF {
		t.Fatalf("expected io.EOF after last frame, got %v", err)
	}
}

func TestDirSourceEmptyDirectory(t *testing.T) {
	if _, err := NewDirSource(t.TempDir()); err == nil {
		t.Fatal("expected error for directory without frames")
	}
}

func TestDirSourceMissingDirectory(t *testing.T) {
	if _, err := NewDirSource(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestDirSourceHonorsContext(t *testing.T) {
	dir := t.TempDir()
	writeFrameFile(t, dir, "0.jpg", []byte("x"))
	src, err := NewDirSource(dir)
	if err != nil {
		t.Fatalf("NewDirSource: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := src.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestMemorySource(t *testing.T) {
	src := NewMemorySource("jpeg", []byte("a"), []byte("b"))
	if src.Len() != 2 {
		t.Fatalf("expected 2 frames, got %d", src.Len())
	}

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		f, err := src.Next(ctx)
		if err != nil {
			t.Fatalf("Next %d: %v", i, err)
		}
		if f.Index != i {
			t.Fatalf("expected index %d, got %d", i, f.Index)
		}
	}
	if _, err := src.Next(ctx); err != io.EOF {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}
