package platform

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain title", "My Video Title", "My Video Title"},
		{"path separators", "a/b\\c", "a_b_c"},
		{"reserved characters", `what? "title": <part 1>|*`, "what_ _title__ _part 1___"},
		{"collapses whitespace", "too   many \t spaces", "too many spaces"},
		{"trims dots and spaces", " . title . ", "title"},
		{"empty becomes video", "", "video"},
		{"only dots becomes video", "...", "video"},
		{"long name truncated", strings.Repeat("a", 200), strings.Repeat("a", MaxFilenameLength)},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := SanitizeFilename(test.input); got != test.expected {
				t.Errorf("SanitizeFilename(%q) = %q, expected %q", test.input, got, test.expected)
			}
		})
	}
}

func TestCreateDirectoryIfNotExists(t *testing.T) {
	base := t.TempDir()
	target := filepath.Join(base, "nested", "dir")

	if err := CreateDirectoryIfNotExists(target); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	info, err := os.Stat(target)
	if err != nil {
		t.Fatalf("directory was not created: %v", err)
	}
	if !info.IsDir() {
		t.Error("expected a directory")
	}

	// Second call on an existing directory is a no-op
	if err := CreateDirectoryIfNotExists(target); err != nil {
		t.Errorf("unexpected error for existing directory: %v", err)
	}
}

func TestOpenFileInManager_MissingFile(t *testing.T) {
	if err := OpenFileInManager(filepath.Join(t.TempDir(), "missing.mp4")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestOpenFileWithDefaultApp_MissingFile(t *testing.T) {
	if err := OpenFileWithDefaultApp(filepath.Join(t.TempDir(), "missing.mp4")); err == nil {
		t.Error("expected error for missing file")
	}
}
