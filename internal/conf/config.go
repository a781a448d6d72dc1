package conf

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Listen   string       `yaml:"listen"`
	Database string       `yaml:"database"`
	Auth     AuthConfig   `yaml:"auth"`
	IMAP     IMAPConfig   `yaml:"imap"`
	Backup   BackupConfig `yaml:"backup"`
}

type AuthConfig struct {
	// Secret signs the bearer tokens issued at login. Empty disables
	// request authentication.
	Secret string `yaml:"secret"`
}

type IMAPConfig struct {
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

// BackupConfig points snapshot uploads at an S3-compatible bucket.
type BackupConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	Bucket          string `yaml:"bucket"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	UsePathStyle    bool   `yaml:"use_path_style"`
	Key             string `yaml:"key"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func LoadConfig() (*Config, error) {
	var cfg Config

	// Try multiple possible paths
	configPaths := []string{
		"/etc/mailgate/mailgate.yaml",
		"./config/mailgate.yaml",
		"./mailgate.yaml",
		"config/mailgate.yaml",
	}

	var data []byte
	var err error
	for _, path := range configPaths {
		data, err = os.ReadFile(filepath.Clean(path))
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// LoadConfigFile reads one explicit path, for deployments that do not
// use the default probe list.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:9001"
	}
	if c.Database == "" {
		c.Database = "mail.db"
	}
	if c.Backup.Key == "" {
		c.Backup.Key = "mail.db"
	}
}
