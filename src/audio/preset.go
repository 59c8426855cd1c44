package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// presetManager reads <dir>/<name>.json files in the ToJSON format.
type presetManager struct {
	dir string
}

func newPresetManager(dir string) *presetManager {
	return &presetManager{
		dir: dir,
	}
}

func (pm *presetManager) getList() ([]string, error) {
	if pm.dir == "" {
		return nil, nil
	}
	paths, err := filepath.Glob(filepath.Join(pm.dir, "*.json"))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(paths))
	for _, path := range paths {
		names = append(names, strings.TrimSuffix(filepath.Base(path), ".json"))
	}
	sort.Strings(names)
	return names, nil
}

func (pm *presetManager) apply(name string, target *state) error {
	if pm.dir == "" {
		return fmt.Errorf("no preset directory")
	}
	if name == "" || filepath.Base(name) != name {
		return fmt.Errorf("invalid preset name %q", name)
	}
	bytes, err := os.ReadFile(filepath.Join(pm.dir, name+".json"))
	if err != nil {
		return err
	}
	return target.applyJSON(bytes)
}

// Presets lists the names accepted by the "preset" command.
func (a *Audio) Presets() ([]string, error) {
	return a.presets.getList()
}
