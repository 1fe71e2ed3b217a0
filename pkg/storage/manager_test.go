package storage

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestManager(t *testing.T) {
	tempDir := t.TempDir()

	manager, err := NewManager(tempDir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	if manager.SavedCount() != 0 {
		t.Error("Expected initial saved count to be 0")
	}

	dir, err := manager.Dir(ModeTag, "some tag", "photo")
	if err != nil {
		t.Fatalf("Failed to resolve directory: %v", err)
	}
	if want := filepath.Join(tempDir, "tag", "some tag", "photo"); dir != want {
		t.Errorf("Expected directory %s, got %s", want, dir)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("Expected directory to be created: %v", err)
	}

	path := filepath.Join(dir, "photo (1).jpg")
	if manager.IsDownloaded(path) {
		t.Error("Expected IsDownloaded to return false before saving")
	}

	testData := []byte("test photo data")
	if err := manager.Save(path, bytes.NewReader(testData)); err != nil {
		t.Fatalf("Failed to save file: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read saved file: %v", err)
	}
	if !bytes.Equal(content, testData) {
		t.Error("File content does not match expected data")
	}

	if !manager.IsDownloaded(path) {
		t.Error("Expected IsDownloaded to return true after saving")
	}
	if manager.SavedCount() != 1 {
		t.Errorf("Expected saved count 1, got %d", manager.SavedCount())
	}

	// No temp file left behind
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("Expected temporary file to be removed")
	}
}

func TestManagerRejectsInvalidMode(t *testing.T) {
	manager, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	if _, err := manager.Dir(Mode("video"), "name"); err == nil {
		t.Error("Expected an error for an invalid mode")
	}
}

func TestManagerDetectsFilesFromPreviousRuns(t *testing.T) {
	tempDir := t.TempDir()
	existing := filepath.Join(tempDir, "already-there.txt")
	if err := os.WriteFile(existing, []byte("old"), 0644); err != nil {
		t.Fatalf("Failed to create fixture file: %v", err)
	}

	manager, err := NewManager(tempDir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	if !manager.IsDownloaded(existing) {
		t.Error("Expected IsDownloaded to detect a file on disk")
	}
}

func TestManagerSaveJSON(t *testing.T) {
	tempDir := t.TempDir()
	manager, err := NewManager(tempDir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	path := filepath.Join(tempDir, "post.json")
	payload := map[string]interface{}{"title": "hello", "id": 42}
	if err := manager.SaveJSON(path, payload); err != nil {
		t.Fatalf("Failed to save JSON: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read saved file: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Saved JSON does not parse: %v", err)
	}
	if decoded["title"] != "hello" {
		t.Errorf("Unexpected decoded content: %v", decoded)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"invalid characters", `a/b\c:d*e?f"g<h>i|j`, "a_b_c_d_e_f_g_h_i_j"},
		{"unicode kept", "夏日随笔", "夏日随笔"},
		{"empty becomes placeholder", "", "untitled"},
		{"whitespace trimmed", "  spaced  ", "spaced"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeFilename(tt.input); got != tt.expected {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}

	long := strings.Repeat("标", 150)
	if got := SanitizeFilename(long); len([]rune(got)) != 100 {
		t.Errorf("Expected long names capped at 100 runes, got %d", len([]rune(got)))
	}
}

func TestPostFilename(t *testing.T) {
	if got := PostFilename("My Post", "someone", ""); got != "(My Post by someone)" {
		t.Errorf("Unexpected filename: %q", got)
	}
	if got := PostFilename("a:b", "x|y", "003"); got != "003 (a_b by x_y)" {
		t.Errorf("Unexpected prefixed filename: %q", got)
	}
	if got := ImageFilename("(My Post by someone)", 2, ".png"); got != "(My Post by someone) (2).png" {
		t.Errorf("Unexpected image filename: %q", got)
	}
}
