package config

import (
	"path/filepath"
	"strings"

	"github.com/google/renameio"
	"github.com/pelletier/go-toml/v2"
	"go.yaml.in/yaml/v3"
)

// WriteConfig serializes cfg and writes it to path, as TOML when the path
// ends in .toml and as YAML otherwise.
func WriteConfig(cfg *Config, path string) error {
	var (
		data []byte
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		data, err = toml.Marshal(cfg)
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return err
	}
	content := "# archaeo configuration\n" + string(data)
	return renameio.WriteFile(path, []byte(content), 0644)
}
