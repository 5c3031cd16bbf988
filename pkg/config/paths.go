// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package config

import (
	"os"
	"path/filepath"
	"strings"
)

// GetWayfarerDataDir returns the Wayfarer data directory.
//
// Priority:
// 1. WAYFARER_DATA_DIR environment variable (if set and non-empty)
// 2. ~/.wayfarer (default)
//
// The returned path is always absolute. Tilde (~) in WAYFARER_DATA_DIR is expanded to the user's home directory.
// Relative paths in WAYFARER_DATA_DIR are converted to absolute paths.
//
// This function is called during bootstrap (before config file is loaded) to locate the config file itself.
// After config is loaded, use config.DataDir for consistency.
//
// Examples:
//
//	WAYFARER_DATA_DIR=/custom/wayfarer    -> /custom/wayfarer
//	WAYFARER_DATA_DIR=~/my-wayfarer       -> /home/user/my-wayfarer
//	WAYFARER_DATA_DIR=relative/path       -> /current/dir/relative/path
//	WAYFARER_DATA_DIR not set             -> /home/user/.wayfarer
//
// Note: This function reads directly from os.Getenv(), not from viper, to avoid
// circular dependency during config initialization.
func GetWayfarerDataDir() string {
	// Check environment variable first
	if dataDir := os.Getenv("WAYFARER_DATA_DIR"); dataDir != "" {
		return expandPath(dataDir)
	}

	// Fall back to ~/.wayfarer
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home dir cannot be determined
		return ".wayfarer"
	}
	return filepath.Join(homeDir, ".wayfarer")
}

// GetWayfarerSubDir returns a subdirectory within the Wayfarer data directory.
// Example: GetWayfarerSubDir("prompts") returns ~/.wayfarer/prompts
func GetWayfarerSubDir(subdir string) string {
	return filepath.Join(GetWayfarerDataDir(), subdir)
}

// expandPath expands ~ and resolves to absolute path
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path // Return as-is if we can't get home dir
		}
		return filepath.Join(homeDir, path[2:])
	}

	// Make path absolute
	absPath, err := filepath.Abs(path)
	if err != nil {
		return path // Return as-is if we can't make it absolute
	}
	return absPath
}
