// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package prompts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// FileRegistry serves prompts from YAML files in a directory, falling back
// to the compiled-in defaults for any name the directory does not cover.
// Edits to the directory are picked up automatically through fsnotify.
//
// One file per prompt:
//
//	name: planner.summary
//	description: Writes the final summary and the regeneration verdict.
//	variables: [current_date]
//	template: |
//	  You are the supervising editor ...
//
// The filename itself carries no meaning; the name field is the key.
type FileRegistry struct {
	dir    string
	logger *zap.Logger

	watcher   *fsnotify.Watcher
	watchDone chan struct{}
	closeOnce sync.Once

	mu       sync.RWMutex
	fromDisk map[string]Prompt
	defaults map[string]Prompt
}

var _ Registry = (*FileRegistry)(nil)

// NewFileRegistry loads every prompt file under dir and starts watching for
// changes. A file that fails to parse at startup is an error; a file that
// breaks during a later edit is logged and the previous set stays live.
func NewFileRegistry(dir string, logger *zap.Logger) (*FileRegistry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &FileRegistry{
		dir:       dir,
		logger:    logger,
		watchDone: make(chan struct{}),
		fromDisk:  make(map[string]Prompt),
		defaults:  make(map[string]Prompt),
	}
	for _, p := range Defaults() {
		r.defaults[p.Name] = p
	}

	if err := r.Reload(context.Background()); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create prompt watcher: %w", err)
	}
	if err := addWatchTree(watcher, dir); err != nil {
		watcher.Close()
		return nil, err
	}
	r.watcher = watcher

	go r.watch()

	return r, nil
}

// Get returns the raw template for name, preferring the on-disk version.
func (r *FileRegistry) Get(_ context.Context, name string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.fromDisk[name]; ok {
		return p.Template, nil
	}
	if p, ok := r.defaults[name]; ok {
		return p.Template, nil
	}
	return "", fmt.Errorf("prompt not found: %s", name)
}

// GetWithVariables returns the interpolated template for name.
func (r *FileRegistry) GetWithVariables(ctx context.Context, name string, vars map[string]interface{}) (string, error) {
	template, err := r.Get(ctx, name)
	if err != nil {
		return "", err
	}
	return Interpolate(template, vars), nil
}

// List returns the union of on-disk and default prompt names, sorted.
func (r *FileRegistry) List(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]bool, len(r.fromDisk)+len(r.defaults))
	names := make([]string, 0, len(r.fromDisk)+len(r.defaults))
	for name := range r.fromDisk {
		seen[name] = true
		names = append(names, name)
	}
	for name := range r.defaults {
		if !seen[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Reload re-reads the whole directory and atomically swaps the prompt set.
func (r *FileRegistry) Reload(_ context.Context) error {
	loaded := make(map[string]Prompt)

	err := filepath.Walk(r.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		p, err := loadPromptFile(path)
		if err != nil {
			return err
		}
		loaded[p.Name] = p
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to load prompts from %s: %w", r.dir, err)
	}

	r.mu.Lock()
	r.fromDisk = loaded
	r.mu.Unlock()

	return nil
}

// Close stops the file watcher. Safe to call more than once.
func (r *FileRegistry) Close() error {
	var err error
	r.closeOnce.Do(func() {
		err = r.watcher.Close()
		<-r.watchDone
	})
	return err
}

// watch reloads the directory whenever a prompt file changes. Runs until
// the watcher is closed.
func (r *FileRegistry) watch() {
	defer close(r.watchDone)

	for {
		select {
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if !r.relevant(event) {
				continue
			}
			if err := r.Reload(context.Background()); err != nil {
				// Keep serving the previous set; a half-saved file
				// must not take prompts away from a live run.
				r.logger.Warn("prompt reload failed, keeping previous set",
					zap.String("event", event.Name),
					zap.Error(err))
				continue
			}
			r.logger.Debug("prompts reloaded",
				zap.String("event", event.Name),
				zap.String("op", event.Op.String()))

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.logger.Warn("prompt watcher error", zap.Error(err))
		}
	}
}

// relevant reports whether an fsnotify event should trigger a reload, and
// registers newly created subdirectories with the watcher as a side effect.
func (r *FileRegistry) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := r.watcher.Add(event.Name); err != nil {
				r.logger.Warn("failed to watch new prompt directory",
					zap.String("dir", event.Name),
					zap.Error(err))
			}
			return true
		}
	}
	ext := filepath.Ext(event.Name)
	return ext == ".yaml" || ext == ".yml"
}

// addWatchTree registers dir and every subdirectory with the watcher.
func addWatchTree(watcher *fsnotify.Watcher, dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch prompt directory %s: %w", path, err)
		}
		return nil
	})
}

// loadPromptFile parses one YAML prompt file.
func loadPromptFile(path string) (Prompt, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Prompt{}, err
	}
	var p Prompt
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Prompt{}, fmt.Errorf("%s: %w", path, err)
	}
	if p.Name == "" {
		return Prompt{}, fmt.Errorf("%s: missing name", path)
	}
	if p.Template == "" {
		return Prompt{}, fmt.Errorf("%s: missing template", path)
	}
	return p, nil
}
