package scanner

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/panbanda/fortmap/pkg/config"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("Failed to create directory: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to create file %s: %v", name, err)
		}
	}
}

func relSet(t *testing.T, root string, files []string) map[string]bool {
	t.Helper()
	set := make(map[string]bool, len(files))
	for _, f := range files {
		rel, err := filepath.Rel(root, f)
		if err != nil {
			t.Fatal(err)
		}
		set[rel] = true
	}
	return set
}

func TestNewScanner(t *testing.T) {
	s := NewScanner(nil)
	if s == nil {
		t.Fatal("NewScanner(nil) returned nil")
	}
	if s.config == nil {
		t.Error("config should default when nil")
	}
	if len(s.extensions) != len(config.DefaultConfig().Scan.Extensions) {
		t.Errorf("extensions = %v, want the defaults", s.extensions)
	}
}

func TestIsSource(t *testing.T) {
	s := NewScanner(nil)

	tests := []struct {
		path string
		want bool
	}{
		{"solver.f", true},
		{"SOLVER.F", true},
		{"lib/util.for", true},
		{"old.f77", true},
		{"x.ftn", true},
		{"modern.f90", false},
		{"README", false},
		{"main.go", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := s.IsSource(tt.path); got != tt.want {
				t.Errorf("IsSource(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestIsSourceCustomExtensions(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Scan.Extensions = []string{".FPP"}
	s := NewScanner(cfg)

	if !s.IsSource("a.fpp") {
		t.Error("extension match should ignore case")
	}
	if s.IsSource("a.f") {
		t.Error("only configured extensions should match")
	}
}

func TestScanDir(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, map[string]string{
		"main.f":          "      call solve\n",
		"lib/solve.for":   "      subroutine solve\n      end\n",
		"lib/deep/io.f77": "      subroutine io\n      end\n",
		"notes.txt":       "not source\n",
		"build/out.o":     "",
	})

	s := NewScanner(nil)
	result, err := s.ScanDir(tmpDir)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}

	if len(result) != 3 {
		t.Fatalf("ScanDir() found %d files, want 3: %v", len(result), result)
	}
	found := relSet(t, tmpDir, result)
	for _, want := range []string{"main.f", filepath.Join("lib", "solve.for"), filepath.Join("lib", "deep", "io.f77")} {
		if !found[want] {
			t.Errorf("ScanDir() should find %s", want)
		}
	}
	for i := 1; i < len(result); i++ {
		if result[i-1] > result[i] {
			t.Errorf("results not sorted: %v", result)
			break
		}
	}
}

func TestScanDirExcludePatterns(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, map[string]string{
		"main.f":             "",
		"vendor/blas/ddot.f": "",
		"gen/auto_1.f":       "",
		"gen/keep.f":         "",
	})

	cfg := config.DefaultConfig()
	cfg.Scan.Exclude = []string{"vendor/", "auto_*.f"}
	s := NewScanner(cfg)

	result, err := s.ScanDir(tmpDir)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}
	found := relSet(t, tmpDir, result)

	if !found["main.f"] || !found[filepath.Join("gen", "keep.f")] {
		t.Errorf("expected main.f and gen/keep.f, got %v", result)
	}
	if found[filepath.Join("vendor", "blas", "ddot.f")] {
		t.Error("vendor/ should be excluded")
	}
	if found[filepath.Join("gen", "auto_1.f")] {
		t.Error("auto_*.f should be excluded")
	}
}

func TestScanDirWithGitignore(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.Mkdir(filepath.Join(tmpDir, ".git"), 0755); err != nil {
		t.Fatal(err)
	}
	writeTree(t, tmpDir, map[string]string{
		".gitignore":     "skipme\n",
		"main.f":         "",
		"skipme/skip.f":  "",
		"src/app.f":      "",
		".git/hooks/x.f": "",
	})

	cfg := config.DefaultConfig()
	cfg.Scan.Gitignore = true
	s := NewScanner(cfg)

	result, err := s.ScanDir(tmpDir)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}
	found := relSet(t, tmpDir, result)

	if !found["main.f"] {
		t.Error("Should find main.f")
	}
	if !found[filepath.Join("src", "app.f")] {
		t.Error("Should find src/app.f")
	}
	if found[filepath.Join("skipme", "skip.f")] {
		t.Error("gitignored directory should be skipped")
	}
	if found[filepath.Join(".git", "hooks", "x.f")] {
		t.Error(".git should never be scanned")
	}
}

func TestScanDirDisabledGitignore(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.Mkdir(filepath.Join(tmpDir, ".git"), 0755); err != nil {
		t.Fatal(err)
	}
	writeTree(t, tmpDir, map[string]string{
		".gitignore":     "ignored/\n",
		"ignored/file.f": "",
	})

	cfg := config.DefaultConfig()
	cfg.Scan.Gitignore = false
	s := NewScanner(cfg)

	result, err := s.ScanDir(tmpDir)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}
	if len(result) != 1 {
		t.Errorf("gitignore disabled: want 1 file, got %v", result)
	}
}

func TestScanDirEmptyDirectory(t *testing.T) {
	tmpDir := t.TempDir()

	s := NewScanner(nil)
	result, err := s.ScanDir(tmpDir)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}
	if len(result) != 0 {
		t.Errorf("ScanDir() on empty dir should return 0 files, got %d", len(result))
	}
}

func TestScanDirNonExistent(t *testing.T) {
	s := NewScanner(nil)
	if _, err := s.ScanDir(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("ScanDir() should fail for a missing root")
	}
}

func TestScanPaths(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, map[string]string{
		"src/b.f":       "",
		"src/a.f":       "",
		"src/skip.txt":  "",
		"explicit.inc":  "",
		"other/solve.f": "",
	})

	explicit := filepath.Join(tmpDir, "explicit.inc")
	srcA := filepath.Join(tmpDir, "src", "a.f")
	srcB := filepath.Join(tmpDir, "src", "b.f")

	s := NewScanner(nil)
	result, err := s.ScanPaths([]string{explicit, filepath.Join(tmpDir, "src"), srcA})
	if err != nil {
		t.Fatalf("ScanPaths() error: %v", err)
	}

	want := []string{explicit, srcA, srcB}
	if len(result) != len(want) {
		t.Fatalf("ScanPaths() = %v, want %v", result, want)
	}
	for i := range want {
		if result[i] != want[i] {
			t.Errorf("result[%d] = %s, want %s", i, result[i], want[i])
		}
	}
}

func TestScanPathsMissing(t *testing.T) {
	s := NewScanner(nil)
	_, err := s.ScanPaths([]string{filepath.Join(t.TempDir(), "missing.f")})
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestIsWithinRoot(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name string
		path string
		root string
		want bool
	}{
		{"same path", tmpDir, tmpDir, true},
		{"child path", filepath.Join(tmpDir, "subdir", "file.f"), tmpDir, true},
		{"path outside root", "/some/other/path", tmpDir, false},
		{"parent path", filepath.Dir(tmpDir), tmpDir, false},
		{"similar prefix but different dir", tmpDir + "2/file.f", tmpDir, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isWithinRoot(tt.path, tt.root); got != tt.want {
				t.Errorf("isWithinRoot(%q, %q) = %v, want %v", tt.path, tt.root, got, tt.want)
			}
		})
	}
}

func TestFindGitRoot(t *testing.T) {
	tmpDir := t.TempDir()
	if result := findGitRoot(tmpDir); result != "" {
		t.Errorf("findGitRoot() on non-git dir should return empty string, got %q", result)
	}

	if err := os.Mkdir(filepath.Join(tmpDir, ".git"), 0755); err != nil {
		t.Fatalf("Failed to create .git dir: %v", err)
	}
	if result := findGitRoot(tmpDir); result != tmpDir {
		t.Errorf("findGitRoot() should return %q, got %q", tmpDir, result)
	}

	subDir := filepath.Join(tmpDir, "src", "pkg")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatalf("Failed to create subdir: %v", err)
	}
	if result := findGitRoot(subDir); result != tmpDir {
		t.Errorf("findGitRoot() from subdir should return %q, got %q", tmpDir, result)
	}
}

func TestScanDirWithUnresolvableSymlink(t *testing.T) {
	tmpDir := t.TempDir()

	if err := os.Symlink("/nonexistent/path/file.f", filepath.Join(tmpDir, "dangling.f")); err != nil {
		t.Skip("Symlinks not supported on this system")
	}
	writeTree(t, tmpDir, map[string]string{"real.f": ""})

	s := NewScanner(nil)
	result, err := s.ScanDir(tmpDir)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}
	if len(result) != 1 {
		t.Errorf("ScanDir() should find 1 file (skipping dangling symlink), got %d", len(result))
	}
}

func TestScanDirWithSymlinkOutsideRoot(t *testing.T) {
	tmpDir := t.TempDir()
	outsideDir := t.TempDir()
	writeTree(t, outsideDir, map[string]string{"outside.f": ""})

	if err := os.Symlink(filepath.Join(outsideDir, "outside.f"), filepath.Join(tmpDir, "linked.f")); err != nil {
		t.Skip("Symlinks not supported on this system")
	}

	s := NewScanner(nil)
	result, err := s.ScanDir(tmpDir)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}
	if len(result) != 0 {
		t.Errorf("ScanDir() should not follow symlinks outside the root, got %v", result)
	}
}
