// Package config loads tool settings from the settings directory, a
// .env file, and NBG_YNAB_* environment variables, in that order of
// increasing precedence.
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"
)

// SettingsDirName is the per-user settings directory under $HOME.
const SettingsDirName = ".nbg-ynab-export"

const settingsFile = "config.yaml"

// Settings holds everything the tool needs beyond secrets.
type Settings struct {
	LogLevel     string `yaml:"log_level" env:"NBG_YNAB_LOG_LEVEL"`
	BridgeScript string `yaml:"bridge_script" env:"NBG_YNAB_BRIDGE_SCRIPT"`
	NodeBin      string `yaml:"node_bin" env:"NBG_YNAB_NODE_BIN"`
	DataDir      string `yaml:"data_dir" env:"NBG_YNAB_DATA_DIR"`
	OutputDir    string `yaml:"output_dir" env:"NBG_YNAB_OUTPUT_DIR"`
	CutoffDedupe bool   `yaml:"cutoff_dedupe" env:"NBG_YNAB_CUTOFF_DEDUPE"`
}

// Default returns the settings used when nothing is configured.
func Default() Settings {
	return Settings{
		LogLevel: "info",
		NodeBin:  "node",
	}
}

// SettingsDir returns the per-user settings directory.
func SettingsDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home dir: %w", err)
	}
	return filepath.Join(home, SettingsDirName), nil
}

// Load reads settings from dir and overlays .env and environment
// variables. A missing settings file is not an error.
func Load(ctx context.Context, dir string) (Settings, error) {
	settings := Default()

	data, err := os.ReadFile(filepath.Join(dir, settingsFile))
	switch {
	case os.IsNotExist(err):
		// first run, defaults apply
	case err != nil:
		return Settings{}, fmt.Errorf("reading settings: %w", err)
	default:
		if err := yaml.Unmarshal(data, &settings); err != nil {
			return Settings{}, fmt.Errorf("parsing settings: %w", err)
		}
	}

	// .env in the working directory feeds the env overlay below.
	_ = godotenv.Load()

	if err := envconfig.Process(ctx, &settings); err != nil {
		return Settings{}, fmt.Errorf("reading environment: %w", err)
	}
	return settings, nil
}

// Save writes settings to dir, creating it if needed.
func Save(dir string, settings Settings) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating settings dir: %w", err)
	}
	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshaling settings: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, settingsFile), data, 0o600); err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}
	return nil
}
