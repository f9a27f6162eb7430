package fsutil

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	if runtime.GOOS == "windows" {
		t.Setenv("USERPROFILE", home)
	}
	if got, err := ExpandHome("/tmp"); err != nil || got != "/tmp" {
		t.Fatalf("got %q err=%v", got, err)
	}
	if got, err := ExpandHome(""); err != nil || got != "" {
		t.Fatalf("got %q err=%v", got, err)
	}
	if got, err := ExpandHome("~"); err != nil || got != home {
		t.Fatalf("got %q err=%v", got, err)
	}
	got, err := ExpandHome("~/models")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if got != filepath.Join(home, "models") {
		t.Fatalf("unexpected expanded path: %q", got)
	}
}

func TestArtifactPath(t *testing.T) {
	root := t.TempDir()
	p, err := ArtifactPath(root, "Xenova/bert-base-NER", "onnx/model.onnx")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if want := filepath.Join(root, "Xenova", "bert-base-NER", "onnx", "model.onnx"); p != want {
		t.Fatalf("got %q want %q", p, want)
	}
	if _, err := ArtifactPath(root, "../../etc", "passwd"); err == nil {
		t.Fatalf("expected escape to be rejected")
	}
}

func TestWriteFileAtomicAndSize(t *testing.T) {
	p := filepath.Join(t.TempDir(), "a", "b", "tokenizer.json")
	if _, ok := FileSize(p); ok {
		t.Fatalf("file should not exist yet")
	}
	n, err := WriteFileAtomic(p, strings.NewReader("{}"))
	if err != nil || n != 2 {
		t.Fatalf("n=%d err=%v", n, err)
	}
	if size, ok := FileSize(p); !ok || size != 2 {
		t.Fatalf("size=%d ok=%v", size, ok)
	}
	if _, ok := FileSize(filepath.Dir(p)); ok {
		t.Fatalf("directories are not files")
	}

	// a failing reader leaves no file and no temp behind
	q := filepath.Join(filepath.Dir(p), "model.onnx")
	if _, err := WriteFileAtomic(q, failingReader{}); err == nil {
		t.Fatalf("expected error")
	}
	entries, _ := os.ReadDir(filepath.Dir(p))
	if len(entries) != 1 {
		t.Fatalf("expected only tokenizer.json, got %d entries", len(entries))
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("boom") }
