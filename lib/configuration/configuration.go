package configuration

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// localName derives the override file name next to a config file:
// snassist.json5 -> snassist.local.json5. The local file is meant to
// hold credentials and machine-specific values kept out of version
// control.
func localName(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".local" + ext
}

// Load reads a json5 config file and merges the values of its
// `.local.` sibling on top, the override winning field by field.
// When neither file exists it returns os.ErrNotExist.
func Load[T any](path string) (T, error) {
	var config T

	baseFound, err := decodeFile(path, &config)
	if err != nil {
		return config, err
	}

	overridePath := localName(path)
	var override T
	overrideFound, err := decodeFile(overridePath, &override)
	if err != nil {
		return config, err
	}
	if overrideFound {
		err = mergo.Merge(&config, override, mergo.WithOverride)
		if err != nil {
			return config, err
		}
		slog.Info("merged local config overrides", "local", overridePath)
	}

	if !baseFound && !overrideFound {
		return config, os.ErrNotExist
	}
	return config, nil
}

func decodeFile[T any](path string, out *T) (bool, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(raw) == 0 {
		return false, nil
	}
	err = json5.Unmarshal(raw, out)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", path, err)
	}
	return true, nil
}

// Search looks for a config file with the given name in the working
// directory and every directory above it, loading the first hit. This
// lets tests and the CLI run from anywhere inside the repo.
func Search[T any](name string) (T, error) {
	var config T

	dir, err := os.Getwd()
	if err != nil {
		return config, err
	}
	for {
		loaded, err := Load[T](filepath.Join(dir, name))
		if err == nil {
			return loaded, nil
		}
		if !os.IsNotExist(err) {
			return config, err
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return config, os.ErrNotExist
		}
		dir = parent
	}
}
