package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

// Mode is the crawl mode a file belongs to. It picks the first
// directory level under the output root.
type Mode string

const (
	ModeTag          Mode = "tag"
	ModeCollection   Mode = "collection"
	ModeBlog         Mode = "blog"
	ModeComment      Mode = "comment"
	ModeSubscription Mode = "subscription"
)

var validModes = map[Mode]bool{
	ModeTag:          true,
	ModeCollection:   true,
	ModeBlog:         true,
	ModeComment:      true,
	ModeSubscription: true,
}

var unsafeFilenameChars = regexp.MustCompile(`[\\/*?:"<>|]`)

// Manager handles file storage and duplicate detection. Files are laid
// out as <baseDir>/<mode>/<name>/<sub...>/<filename>; writes go through
// a temp file and rename so a crash never leaves a partial file.
type Manager struct {
	baseDir string
	saved   map[string]bool
	mu      sync.RWMutex
}

// NewManager creates a storage manager rooted at baseDir.
func NewManager(baseDir string) (*Manager, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Manager{
		baseDir: baseDir,
		saved:   make(map[string]bool),
	}, nil
}

// BaseDir returns the output root.
func (m *Manager) BaseDir() string {
	return m.baseDir
}

// Dir resolves and creates the directory for a mode and name, with
// optional subdirectories (photo, json, comments).
func (m *Manager) Dir(mode Mode, name string, sub ...string) (string, error) {
	if !validModes[mode] {
		return "", fmt.Errorf("invalid storage mode %q", mode)
	}
	parts := append([]string{m.baseDir, string(mode), SanitizeFilename(name)}, sub...)
	dir := filepath.Join(parts...)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return dir, nil
}

// IsDownloaded reports whether path has already been written, checking
// the in-memory record first and the filesystem second.
func (m *Manager) IsDownloaded(path string) bool {
	m.mu.RLock()
	known := m.saved[path]
	m.mu.RUnlock()
	if known {
		return true
	}

	if _, err := os.Stat(path); err == nil {
		m.mu.Lock()
		m.saved[path] = true
		m.mu.Unlock()
		return true
	}
	return false
}

// Save writes the reader's content to path atomically.
func (m *Manager) Save(path string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tempFile := path + ".tmp"
	out, err := os.Create(tempFile)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	_, err = io.Copy(out, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to write data: %w", err)
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	m.mu.Lock()
	m.saved[path] = true
	m.mu.Unlock()

	return nil
}

// SaveText writes a UTF-8 text file atomically.
func (m *Manager) SaveText(path, content string) error {
	return m.Save(path, strings.NewReader(content))
}

// SaveJSON marshals v with indentation and writes it atomically.
func (m *Manager) SaveJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return m.Save(path, strings.NewReader(string(data)))
}

// SavedCount returns the number of files written or seen this run.
func (m *Manager) SavedCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.saved)
}

// SanitizeFilename scrubs characters that are invalid in filenames on
// common filesystems. Titles are capped so the path stays well under
// OS limits.
func SanitizeFilename(name string) string {
	cleaned := unsafeFilenameChars.ReplaceAllString(name, "_")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		cleaned = "untitled"
	}
	runes := []rune(cleaned)
	if len(runes) > 100 {
		cleaned = string(runes[:100])
	}
	return cleaned
}

// PostFilename builds the base filename for one post's files, in the
// "(title by author)" form. A non-empty prefix is prepended with a
// space, the way collection posts carry their ordinal.
func PostFilename(title, author, prefix string) string {
	base := fmt.Sprintf("(%s by %s)", SanitizeFilename(title), SanitizeFilename(author))
	if prefix != "" {
		base = prefix + " " + base
	}
	return base
}

// ImageFilename names the i-th image of a post, 1-based.
func ImageFilename(base string, index int, ext string) string {
	if ext == "" {
		ext = ".jpg"
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return fmt.Sprintf("%s (%d)%s", base, index, ext)
}
