package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"

	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

// Load reads and validates the configuration in dir.
func Load(dir string) (*Configuration, error) {
	return LoadFs(afero.NewBasePathFs(afero.NewOsFs(), dir))
}

// LoadFs reads and validates the configuration at the root of configFs.
// Fields missing from the file keep their default values.
func LoadFs(configFs afero.Fs) (*Configuration, error) {
	data, err := afero.ReadFile(configFs, ConfigurationName)
	if err != nil {
		return nil, err
	}

	out := defaultConfig()
	if err := yaml.UnmarshalStrict(data, out); err != nil {
		return nil, fmt.Errorf("%s: %w", ConfigurationName, err)
	}
	out.configFs = configFs

	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", ConfigurationName, err)
	}
	return out, nil
}

// Initialize writes the default configuration to dir if there isn't one and
// loads it.
func Initialize(dir string, logger *log.Logger) (*Configuration, error) {
	return InitializeFs(afero.NewBasePathFs(afero.NewOsFs(), dir), logger)
}

// InitializeFs is Initialize for an arbitrary filesystem.
func InitializeFs(configFs afero.Fs, logger *log.Logger) (*Configuration, error) {
	_, err := configFs.Stat(ConfigurationName)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		logger.Printf("Writing default %s\n", ConfigurationName)
		if err := afero.WriteFile(configFs, ConfigurationName, defaultConfigData, 0600); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		logger.Printf("%s already exists, leaving it alone\n", ConfigurationName)
	}

	return LoadFs(configFs)
}
