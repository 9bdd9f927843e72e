package utils

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/mod/modfile"
	"golang.org/x/mod/module"

	"github.com/toyz/tyx/internal/errors"
)

// GoModParser resolves module paths and package import paths from go.mod files
type GoModParser struct {
	modules map[string]string // go.mod path -> module path
}

// NewGoModParser creates a new go.mod parser
func NewGoModParser() *GoModParser {
	return &GoModParser{
		modules: make(map[string]string),
	}
}

// ParseModuleName extracts the module name from a go.mod file
func (p *GoModParser) ParseModuleName(goModPath string) (string, error) {
	cleanPath := filepath.Clean(goModPath)
	if filepath.Base(cleanPath) != "go.mod" {
		return "", errors.ValidateError("go.mod path", "a go.mod file", goModPath)
	}
	if name, ok := p.modules[cleanPath]; ok {
		return name, nil
	}

	content, err := os.ReadFile(cleanPath)
	if err != nil {
		return "", errors.WrapFileSystemError("read", cleanPath, err)
	}

	modFile, err := modfile.ParseLax(cleanPath, content, nil)
	if err != nil {
		return "", errors.WrapParseError(cleanPath, err)
	}
	if modFile.Module == nil {
		return "", errors.ParseError("no module declaration found in %s", cleanPath)
	}

	name := modFile.Module.Mod.Path
	p.modules[cleanPath] = name
	return name, nil
}

// FindGoModFile searches for go.mod starting from startDir and walking up
func (p *GoModParser) FindGoModFile(startDir string) (string, error) {
	currentDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", errors.WrapFileSystemError("resolve", startDir, err)
	}

	for {
		goModPath := filepath.Join(currentDir, "go.mod")
		if info, err := os.Stat(goModPath); err == nil && !info.IsDir() {
			return goModPath, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			break
		}
		currentDir = parentDir
	}

	return "", errors.New(errors.FileSystemErrorCode, "go.mod file not found above "+startDir).
		WithSuggestion("run inside a Go module or pass --module")
}

// ImportPath returns the import path of the package in dir. When module is
// set it is used as the module path of the go.mod that contains dir.
func (p *GoModParser) ImportPath(dir, modulePath string) (string, error) {
	goModPath, err := p.FindGoModFile(dir)
	if err != nil {
		return "", err
	}
	if modulePath == "" {
		if modulePath, err = p.ParseModuleName(goModPath); err != nil {
			return "", err
		}
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", errors.WrapFileSystemError("resolve", dir, err)
	}
	rel, err := filepath.Rel(filepath.Dir(goModPath), absDir)
	if err != nil {
		return "", errors.WrapFileSystemError("resolve", dir, err)
	}

	importPath := modulePath
	if rel != "." {
		importPath = path.Join(modulePath, filepath.ToSlash(rel))
	}
	if err := module.CheckImportPath(importPath); err != nil {
		return "", errors.ValidateError("import path", "a valid Go import path", importPath).WithCause(err)
	}
	return importPath, nil
}

// PackageName guesses the package name for an import path: the last element
// without its major version suffix or a go- prefix.
func PackageName(importPath string) string {
	prefix, _, ok := module.SplitPathVersion(importPath)
	if ok && prefix != "" {
		importPath = prefix
	}
	return strings.TrimPrefix(path.Base(importPath), "go-")
}
