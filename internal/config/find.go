package config

import (
	"errors"
	"os"
	"path/filepath"
)

// FileNames are the config files FindFile looks for, in order of preference.
var FileNames = []string{"daybook.yaml", "daybook.yml", ".daybook.yaml"}

// ErrNoConfigFile is returned by FindFile when no directory up to the
// filesystem root holds a config file.
var ErrNoConfigFile = errors.New("config file not found")

// FindFile walks upward from startDir and returns the first config file found.
func FindFile(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		for _, name := range FileNames {
			path := filepath.Join(dir, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNoConfigFile
		}
		dir = parent
	}
}
