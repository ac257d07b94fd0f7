package config

import (
	"errors"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	perrors "git.home.luguber.info/inful/buildplan/internal/errors"
)

// Starter returns the declaration written by Init: the whole workspace with the
// usual build output excluded, default targets and unit tests.
func Starter() File {
	return File{
		Version: CurrentVersion,
		Root:    ".",
		Exclude: []string{"target", "result", "*.log"},
		Source:  SourceConfig{RespectGitignore: true},
		Policy:  PolicyConfig{LintStrict: true, TestScope: "unit"},
	}
}

// Init writes a starter declaration to path. An existing file is only replaced
// when force is set.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return perrors.New(perrors.CategoryConfig, perrors.SeverityFatal, "declaration already exists (use --force to overwrite)").
			WithContext("path", path)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return perrors.FileSystemError("stat", path, err)
	}

	data, err := yaml.Marshal(Starter())
	if err != nil {
		return perrors.InternalError("failed to marshal starter declaration", err)
	}
	header := []byte("# buildplan declaration\n")
	// #nosec G306 -- declaration files are meant to be shared
	if err := os.WriteFile(path, append(header, data...), 0o644); err != nil {
		return perrors.FileSystemError("write", path, err)
	}
	return nil
}
