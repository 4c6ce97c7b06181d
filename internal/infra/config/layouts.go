package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// applyLayouts overlays the layout files named by cfg.Layouts onto cfg, in
// order. A layout carries the board and ui sections for one screen size so a
// device config only has to name it. Paths are relative to baseDir and may
// not leave it; globs are expanded in lexical order. Layouts cannot name
// further layouts.
func applyLayouts(cfg *Config, baseDir string) error {
	patterns := cfg.Layouts
	cfg.Layouts = nil

	for _, pattern := range patterns {
		paths, err := resolveLayout(pattern, baseDir)
		if err != nil {
			return err
		}
		for _, p := range paths {
			if err := overlayFile(cfg, p); err != nil {
				return err
			}
		}
	}
	return nil
}

func resolveLayout(pattern, baseDir string) ([]string, error) {
	if !filepath.IsAbs(pattern) {
		pattern = filepath.Join(baseDir, pattern)
	}
	pattern = filepath.Clean(pattern)

	if rel, err := filepath.Rel(baseDir, pattern); err == nil && strings.HasPrefix(rel, "..") {
		return nil, fmt.Errorf("layout %q escapes config directory", pattern)
	}

	if !strings.ContainsAny(pattern, "*?[") {
		return []string{pattern}, nil
	}
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("layout glob %q: %w", pattern, err)
	}
	return matches, nil
}

func overlayFile(cfg *Config, path string) error {
	if err := validatePermissions(path); err != nil {
		return fmt.Errorf("layout: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read layout: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse layout %q: %w", path, err)
	}
	if len(cfg.Layouts) > 0 {
		return fmt.Errorf("layout %q: nested layouts are not supported", path)
	}
	return nil
}
