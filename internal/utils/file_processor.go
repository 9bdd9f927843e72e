package utils

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/toyz/tyx/internal/errors"
)

// FileProcessor finds package directories and parses their Go files into a
// shared file set, so positions from every file resolve through one FileSet.
type FileProcessor struct {
	fileSet *token.FileSet
}

// NewFileProcessor creates a new file processor
func NewFileProcessor() *FileProcessor {
	return &FileProcessor{
		fileSet: token.NewFileSet(),
	}
}

// FileSet returns the file set every parsed file is registered with
func (fp *FileProcessor) FileSet() *token.FileSet {
	return fp.fileSet
}

// FileFilter defines a function that determines whether a file should be processed
type FileFilter func(path string, info os.DirEntry) bool

// DirectoryFilter defines a function that determines whether a directory should be processed
type DirectoryFilter func(path string, info os.DirEntry) bool

// DefaultGoFileFilter selects .go files, excluding tests
func DefaultGoFileFilter() FileFilter {
	return func(path string, info os.DirEntry) bool {
		if info.IsDir() {
			return false
		}
		name := info.Name()
		return strings.HasSuffix(name, ".go") && !strings.HasSuffix(name, "_test.go")
	}
}

// DefaultDirectoryFilter skips directories that shouldn't contain scanned source
func DefaultDirectoryFilter() DirectoryFilter {
	skipDirs := map[string]bool{
		"vendor":       true,
		"node_modules": true,
		"testdata":     true,
	}

	return func(path string, info os.DirEntry) bool {
		if !info.IsDir() {
			return true
		}
		name := info.Name()
		if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
			return false
		}
		return !skipDirs[name]
	}
}

// ScanDirectoriesWithGoFiles walks rootDirs and returns every directory that
// holds Go source, sorted and without duplicates.
func (fp *FileProcessor) ScanDirectoriesWithGoFiles(rootDirs []string) ([]string, error) {
	visited := make(map[string]bool)
	var packageDirs []string
	dirFilter := DefaultDirectoryFilter()

	for _, root := range rootDirs {
		err := filepath.WalkDir(root, func(path string, entry os.DirEntry, err error) error {
			if err != nil {
				return errors.WrapFileSystemError("walk", path, err)
			}
			if !entry.IsDir() {
				return nil
			}
			if path != root && !dirFilter(path, entry) {
				return filepath.SkipDir
			}
			abs, err := filepath.Abs(path)
			if err != nil {
				return errors.WrapFileSystemError("resolve", path, err)
			}
			if visited[abs] {
				return filepath.SkipDir
			}
			visited[abs] = true

			hasGoFiles, err := fp.HasGoFiles(path)
			if err != nil {
				return err
			}
			if hasGoFiles {
				packageDirs = append(packageDirs, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sort.Strings(packageDirs)
	return packageDirs, nil
}

// HasGoFiles checks if a directory contains any non-test .go files
func (fp *FileProcessor) HasGoFiles(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, errors.WrapFileSystemError("read directory", dir, err)
	}

	fileFilter := DefaultGoFileFilter()
	for _, entry := range entries {
		if fileFilter(filepath.Join(dir, entry.Name()), entry) {
			return true, nil
		}
	}
	return false, nil
}

// ParseDirectoryFiles parses all Go files in a directory. It returns the
// files keyed by path and the package name they share.
func (fp *FileProcessor) ParseDirectoryFiles(dirPath string) (map[string]*ast.File, string, error) {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, "", errors.WrapFileSystemError("read directory", dirPath, err)
	}

	files := make(map[string]*ast.File)
	var packageName string
	fileFilter := DefaultGoFileFilter()

	for _, entry := range entries {
		filePath := filepath.Join(dirPath, entry.Name())
		if !fileFilter(filePath, entry) {
			continue
		}

		file, err := parser.ParseFile(fp.fileSet, filePath, nil, parser.ParseComments)
		if err != nil {
			return nil, "", errors.WrapParseError(filePath, err)
		}

		if packageName == "" {
			packageName = file.Name.Name
		} else if file.Name.Name != packageName {
			return nil, "", errors.ParseError("multiple packages found in directory %s: %s and %s",
				dirPath, packageName, file.Name.Name)
		}
		files[filePath] = file
	}

	if len(files) == 0 {
		return nil, "", errors.New(errors.FileSystemErrorCode, "no Go files found in directory "+dirPath)
	}
	return files, packageName, nil
}

// ParseSource parses Go source held in memory
func (fp *FileProcessor) ParseSource(filename, source string) (*ast.File, error) {
	file, err := parser.ParseFile(fp.fileSet, filename, source, parser.ParseComments)
	if err != nil {
		return nil, errors.WrapParseError(filename, err)
	}
	return file, nil
}
