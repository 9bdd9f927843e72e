package cli

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/toyz/tyx/internal/errors"
	"github.com/toyz/tyx/internal/utils"
)

// ModuleResolver handles resolving Go module information
type ModuleResolver struct {
	gomod *utils.GoModParser
}

// NewModuleResolver creates a new module resolver
func NewModuleResolver() *ModuleResolver {
	return &ModuleResolver{gomod: utils.NewGoModParser()}
}

// ResolveModuleName resolves the module name for imports.
// If customModule is provided, it uses that; otherwise reads the go.mod
// governing the working directory.
func (r *ModuleResolver) ResolveModuleName(customModule string) (string, error) {
	if customModule != "" {
		return customModule, nil
	}

	currentDir, err := os.Getwd()
	if err != nil {
		return "", errors.WrapFileSystemError("get", "working directory", err)
	}
	goMod, err := r.gomod.FindGoModFile(currentDir)
	if err != nil {
		return "", err
	}
	return r.gomod.ParseModuleName(goMod)
}

// BuildPackagePath builds the full import path for a package directory.
// With an empty moduleName the path is derived from the nearest go.mod;
// a custom module outside any go.mod is rooted at the working directory.
func (r *ModuleResolver) BuildPackagePath(moduleName, packageDir string) (string, error) {
	absPackageDir, err := filepath.Abs(packageDir)
	if err != nil {
		return "", errors.WrapFileSystemError("resolve", packageDir, err)
	}
	importPath, err := r.gomod.ImportPath(absPackageDir, moduleName)
	if err == nil || moduleName == "" || errors.CodeOf(err) != errors.FileSystemErrorCode {
		return importPath, err
	}

	currentDir, err := os.Getwd()
	if err != nil {
		return "", errors.WrapFileSystemError("get", "working directory", err)
	}
	relPath, err := filepath.Rel(currentDir, absPackageDir)
	if err != nil || strings.HasPrefix(relPath, "..") {
		return "", errors.ValidateError("package directory", "a directory below "+currentDir, packageDir)
	}
	if relPath == "." {
		return moduleName, nil
	}
	return path.Join(moduleName, filepath.ToSlash(relPath)), nil
}
