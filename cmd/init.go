package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/gnoswap-labs/kprove/prove"
)

const defaultConfigFile = ".kprove.yaml"

// initCmd: kprove init
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a prover configuration file with the default settings",
	Run: func(cmd *cobra.Command, args []string) {
		path := cfgFile
		if path == "" {
			path = defaultConfigFile
		}
		if err := initConfigurationFile(path); err != nil {
			logger.Error("Error initializing config file", zap.Error(err))
			return
		}
		fmt.Printf("Configuration file created/updated: %s\n", path)
	},
}

func initConfigurationFile(configurationPath string) error {
	d, err := yaml.Marshal(prove.DefaultConfig())
	if err != nil {
		return err
	}
	return os.WriteFile(configurationPath, d, 0o644)
}

// loadConfig reads a prover configuration. Missing keys keep their
// default values.
func loadConfig(configurationPath string) (prove.Config, error) {
	cfg := prove.DefaultConfig()
	if configurationPath == "" {
		return cfg, nil
	}
	f, err := os.Open(configurationPath)
	if err != nil {
		return cfg, err
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", configurationPath, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
