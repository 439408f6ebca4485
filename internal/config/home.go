package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// DirName is the per-project state directory.
const DirName = ".researchflow"

// HomeEnv overrides the base directory researchflow state lives under.
const HomeEnv = "RESEARCHFLOW_HOME"

// BaseDir returns the directory containing the .researchflow state directory
// Priority order:
//  1. RESEARCHFLOW_HOME environment variable (if set)
//  2. Current working directory
func BaseDir() (string, error) {
	if home := os.Getenv(HomeEnv); home != "" {
		return home, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}
	return cwd, nil
}

// EnsureStateDir creates <base>/.researchflow if missing and returns its path.
func EnsureStateDir(base string) (string, error) {
	dir := filepath.Join(base, DirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create state directory: %w", err)
	}
	return dir, nil
}

// Load reads the configuration for base and resolves its relative paths
// against base.
func Load(base string) (*Config, error) {
	cfg, err := LoadConfigFromDir(base)
	if err != nil {
		return nil, err
	}
	cfg.ResolvePaths(base)
	return cfg, nil
}
