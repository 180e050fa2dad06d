package sports

import (
	"fmt"
	"os"

	"github.com/mcdev12/streamscore/go/internal/models"
	"gopkg.in/yaml.v3"
)

// presetFile is the on-disk shape of SPORT_PRESETS_FILE
type presetFile struct {
	Sports struct {
		Presets []models.SportPreset `yaml:"presets"`
	} `yaml:"sports"`
}

// LoadFile reads presets from a YAML file and registers them over the existing ones
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read presets file: %w", err)
	}
	return r.LoadYAML(data)
}

// LoadYAML registers presets from YAML bytes
func (r *Registry) LoadYAML(data []byte) error {
	var file presetFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse presets: %w", err)
	}

	for _, p := range file.Sports.Presets {
		if err := r.Register(p); err != nil {
			return fmt.Errorf("failed to register preset: %w", err)
		}
	}
	return nil
}
