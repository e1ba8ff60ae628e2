// Package config loads jobfolder configuration files.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/temirov/jobfolder/internal/utils"
)

// LoadOptions controls how application configuration is discovered.
type LoadOptions struct {
	WorkingDirectory string
	ExplicitFilePath string
}

// ApplicationConfiguration holds command defaults read from configuration files.
type ApplicationConfiguration struct {
	Format   string                `mapstructure:"format"`
	Summary  SummaryConfiguration  `mapstructure:"summary"`
	Store    StoreConfiguration    `mapstructure:"store"`
	Validate ValidateConfiguration `mapstructure:"validate"`
}

// SummaryConfiguration controls how folder summaries are rendered.
type SummaryConfiguration struct {
	Mode            string   `mapstructure:"mode"`
	Manifest        *bool    `mapstructure:"manifest"`
	Exclude         []string `mapstructure:"exclude"`
	OutputDirectory string   `mapstructure:"output_directory"`
	Copy            *bool    `mapstructure:"copy"`
}

// StoreConfiguration locates the local job database and job output directories.
type StoreConfiguration struct {
	Path          string `mapstructure:"path"`
	JobsDirectory string `mapstructure:"jobs_directory"`
}

// ValidateConfiguration controls the validate command.
type ValidateConfiguration struct {
	Parallelism *int `mapstructure:"parallelism"`
}

// LoadApplicationConfiguration loads configuration from the global file and then
// overlays the local (or explicitly named) file.
func LoadApplicationConfiguration(options LoadOptions) (ApplicationConfiguration, error) {
	workingDirectory := options.WorkingDirectory
	if workingDirectory == "" {
		currentDirectory, err := os.Getwd()
		if err != nil {
			return ApplicationConfiguration{}, fmt.Errorf("determine working directory: %w", err)
		}
		workingDirectory = currentDirectory
	}

	var merged ApplicationConfiguration

	if homeDirectory, err := os.UserHomeDir(); err == nil && homeDirectory != "" {
		globalPath := filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName, utils.ConfigFileName)
		globalConfig, loadErr := loadConfigurationFromPath(globalPath)
		if loadErr != nil {
			return ApplicationConfiguration{}, loadErr
		}
		merged = merged.Merge(globalConfig)
	}

	localPath := resolveLocalConfigPath(workingDirectory, options.ExplicitFilePath)
	if options.ExplicitFilePath != "" {
		if _, statErr := os.Stat(localPath); statErr != nil {
			return ApplicationConfiguration{}, fmt.Errorf("configuration %s: %w", localPath, statErr)
		}
	}
	localConfig, loadErr := loadConfigurationFromPath(localPath)
	if loadErr != nil {
		return ApplicationConfiguration{}, loadErr
	}
	merged = merged.Merge(localConfig)

	merged.Summary.Exclude = utils.DeduplicatePatterns(merged.Summary.Exclude)
	return merged, nil
}

func resolveLocalConfigPath(workingDirectory, explicitPath string) string {
	if explicitPath != "" {
		if filepath.IsAbs(explicitPath) {
			return explicitPath
		}
		return filepath.Join(workingDirectory, explicitPath)
	}
	return filepath.Join(workingDirectory, utils.LocalConfigFileName)
}

func loadConfigurationFromPath(path string) (ApplicationConfiguration, error) {
	info, statErr := os.Stat(path)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return ApplicationConfiguration{}, nil
		}
		return ApplicationConfiguration{}, fmt.Errorf("stat configuration %s: %w", path, statErr)
	}
	if info.IsDir() {
		return ApplicationConfiguration{}, fmt.Errorf("configuration path %s is a directory", path)
	}

	reader := viper.New()
	reader.SetConfigFile(path)
	if filepath.Ext(path) == "" {
		reader.SetConfigType("yaml")
	}
	if readErr := reader.ReadInConfig(); readErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("read configuration from %s: %w", path, readErr)
	}
	var config ApplicationConfiguration
	if decodeErr := reader.Unmarshal(&config); decodeErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("decode configuration from %s: %w", path, decodeErr)
	}
	return config, nil
}

// Merge overlays override onto the receiver returning the combined configuration.
func (config ApplicationConfiguration) Merge(override ApplicationConfiguration) ApplicationConfiguration {
	result := config
	if override.Format != "" {
		result.Format = override.Format
	}
	result.Summary = result.Summary.merge(override.Summary)
	result.Store = result.Store.merge(override.Store)
	result.Validate = result.Validate.merge(override.Validate)
	return result
}

func (config SummaryConfiguration) merge(override SummaryConfiguration) SummaryConfiguration {
	result := config
	if override.Mode != "" {
		result.Mode = override.Mode
	}
	if override.Manifest != nil {
		result.Manifest = cloneBool(override.Manifest)
	}
	if len(override.Exclude) > 0 {
		result.Exclude = append([]string{}, utils.DeduplicatePatterns(override.Exclude)...)
	}
	if override.OutputDirectory != "" {
		result.OutputDirectory = override.OutputDirectory
	}
	if override.Copy != nil {
		result.Copy = cloneBool(override.Copy)
	}
	return result
}

func (config StoreConfiguration) merge(override StoreConfiguration) StoreConfiguration {
	result := config
	if override.Path != "" {
		result.Path = override.Path
	}
	if override.JobsDirectory != "" {
		result.JobsDirectory = override.JobsDirectory
	}
	return result
}

func (config ValidateConfiguration) merge(override ValidateConfiguration) ValidateConfiguration {
	result := config
	if override.Parallelism != nil {
		result.Parallelism = cloneInt(override.Parallelism)
	}
	return result
}

// StorePathOrDefault returns the configured database path or the one in the global directory.
func (config StoreConfiguration) StorePathOrDefault() (string, error) {
	if config.Path != "" {
		return config.Path, nil
	}
	homeDirectory, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory for job store: %w", err)
	}
	return filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName, utils.StoreFileName), nil
}

// JobsDirectoryOrDefault returns the configured jobs directory or the one in the global directory.
func (config StoreConfiguration) JobsDirectoryOrDefault() (string, error) {
	if config.JobsDirectory != "" {
		return config.JobsDirectory, nil
	}
	homeDirectory, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory for jobs: %w", err)
	}
	return filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName, utils.JobsDirectoryName), nil
}

func cloneBool(value *bool) *bool {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}

func cloneInt(value *int) *int {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}
