package cli

import (
	"path/filepath"
	"strings"

	"github.com/toyz/tyx/internal/errors"
	"github.com/toyz/tyx/internal/utils"
)

// DirectoryScanner handles recursive directory scanning for Go files
type DirectoryScanner struct {
	fileProcessor *utils.FileProcessor
}

// NewDirectoryScanner creates a new directory scanner
func NewDirectoryScanner() *DirectoryScanner {
	return &DirectoryScanner{
		fileProcessor: utils.NewFileProcessor(),
	}
}

// ScanDirectories returns the directories under rootDirs that hold Go
// packages. Go-style patterns like "./..." scan recursively; a plain
// directory is scanned on its own.
func (s *DirectoryScanner) ScanDirectories(rootDirs []string) ([]string, error) {
	var recursive []string
	var dirs []string

	for _, rootDir := range rootDirs {
		baseDir, isPattern := strings.CutSuffix(filepath.ToSlash(rootDir), "/...")
		if baseDir == "..." {
			baseDir, isPattern = ".", true
		}
		if baseDir == "" {
			baseDir = "."
		}

		cleanPath, err := filepath.Abs(filepath.FromSlash(baseDir))
		if err != nil {
			return nil, errors.WrapWithOperation("resolve", "path "+rootDir, err)
		}

		if isPattern {
			recursive = append(recursive, cleanPath)
			continue
		}
		ok, err := s.fileProcessor.HasGoFiles(cleanPath)
		if err != nil {
			return nil, err
		}
		if ok {
			dirs = append(dirs, cleanPath)
		}
	}

	if len(recursive) > 0 {
		found, err := s.fileProcessor.ScanDirectoriesWithGoFiles(recursive)
		if err != nil {
			return nil, err
		}
		dirs = append(dirs, found...)
	}
	return dedupe(dirs), nil
}

func dedupe(dirs []string) []string {
	seen := make(map[string]bool, len(dirs))
	out := dirs[:0]
	for _, dir := range dirs {
		if seen[dir] {
			continue
		}
		seen[dir] = true
		out = append(out, dir)
	}
	return out
}
