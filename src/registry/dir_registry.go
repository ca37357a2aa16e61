/*
This file is part of the AtomBPMN (R) project.
Copyright (c) 2025 Matreska Market LLC (ООО «Matreska Market»).
Authors: Matreska Team.

This project is dual-licensed under AGPL-3.0 and AtomBPMN Commercial License.
*/

package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"plugin"

	"bpmflow/src/core/logger"
)

// DirRegistry scans a directory for Go plugin objects (*.so built with
// `-buildmode=plugin`) at startup, each exporting a `Register(*InMemoryRegistry)`
// symbol, and merges them into an InMemoryRegistry. This is the only
// concern in the module where the standard library's `plugin` package is
// used directly rather than a third-party library: no plugin-loader
// library appears anywhere in the reference pack, and `plugin` is the only
// mechanism Go itself offers for loading `.so` task implementations
// discovered at runtime (see DESIGN.md).
// Реестр задач, загружаемых из директории плагинов
type DirRegistry struct {
	*InMemoryRegistry
	dir string
}

// NewDirRegistry scans dir for plugin objects. A missing or empty
// directory is not an error — the registry simply stays empty (spec §4.6).
func NewDirRegistry(dir string) (*DirRegistry, error) {
	reg := &DirRegistry{InMemoryRegistry: NewInMemoryRegistry(), dir: dir}

	if dir == "" {
		return reg, nil
	}
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return reg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan plugin directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".so" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := reg.loadPlugin(path); err != nil {
			logger.Warn("failed to load task plugin", logger.String("path", path), logger.Any("error", err.Error()))
			continue
		}
		logger.Info("loaded task plugin", logger.String("path", path))
	}
	return reg, nil
}

func (r *DirRegistry) loadPlugin(path string) error {
	p, err := plugin.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open plugin: %w", err)
	}
	sym, err := p.Lookup("Register")
	if err != nil {
		return fmt.Errorf("plugin missing Register symbol: %w", err)
	}
	registerFn, ok := sym.(func(*InMemoryRegistry))
	if !ok {
		return fmt.Errorf("plugin Register has unexpected signature")
	}
	registerFn(r.InMemoryRegistry)
	return nil
}
