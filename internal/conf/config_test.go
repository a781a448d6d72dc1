package conf

import (
	"os"
	"path/filepath"
	"testing"
)

func chdir(t *testing.T, dir string) {
	t.Helper()

	originalDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get current directory: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(originalDir) })

	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory: %v", err)
	}
}

func TestLoadConfig_Success(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "mailgate.yaml")

	configContent := `listen: "0.0.0.0:9100"
database: cache.db
auth:
  secret: topsecret
imap:
  insecure_skip_verify: true
backup:
  enabled: true
  endpoint: "https://s3.test.example.com"
  region: us-east-1
  bucket: mail-snapshots
  access_key_id: AKIATEST
  secret_access_key: shhh
  use_path_style: true
  key: snapshots/mail.db
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	chdir(t, tmpDir)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.Listen != "0.0.0.0:9100" {
		t.Errorf("Expected listen '0.0.0.0:9100', got '%s'", cfg.Listen)
	}
	if cfg.Database != "cache.db" {
		t.Errorf("Expected database 'cache.db', got '%s'", cfg.Database)
	}
	if cfg.Auth.Secret != "topsecret" {
		t.Errorf("Expected auth secret 'topsecret', got '%s'", cfg.Auth.Secret)
	}
	if !cfg.IMAP.InsecureSkipVerify {
		t.Error("Expected insecure_skip_verify true")
	}
	if !cfg.Backup.Enabled || cfg.Backup.Bucket != "mail-snapshots" {
		t.Errorf("Backup config not loaded: %+v", cfg.Backup)
	}
	if cfg.Backup.Key != "snapshots/mail.db" {
		t.Errorf("Expected backup key 'snapshots/mail.db', got '%s'", cfg.Backup.Key)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	chdir(t, t.TempDir())

	if _, err := LoadConfig(); err == nil {
		t.Error("Expected error for missing config file, got nil")
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "mailgate.yaml")

	invalidYAML := `listen: "0.0.0.0:9100"
backup: [invalid yaml structure
  missing closing bracket
`
	if err := os.WriteFile(configPath, []byte(invalidYAML), 0600); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	chdir(t, tmpDir)

	if _, err := LoadConfig(); err == nil {
		t.Error("Expected error for invalid YAML, got nil")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "mailgate.yaml")

	if err := os.WriteFile(configPath, []byte(""), 0600); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	chdir(t, tmpDir)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("Expected no error for empty file, got: %v", err)
	}

	if cfg.Listen != "127.0.0.1:9001" {
		t.Errorf("Expected default listen, got '%s'", cfg.Listen)
	}
	if cfg.Database != "mail.db" {
		t.Errorf("Expected default database, got '%s'", cfg.Database)
	}
	if cfg.Backup.Key != "mail.db" {
		t.Errorf("Expected default backup key, got '%s'", cfg.Backup.Key)
	}
	if cfg.Auth.Secret != "" {
		t.Errorf("Expected empty auth secret, got '%s'", cfg.Auth.Secret)
	}
}

func TestLoadConfig_ConfigSubdirectory(t *testing.T) {
	tmpDir := t.TempDir()
	configDir := filepath.Join(tmpDir, "config")
	if err := os.Mkdir(configDir, 0755); err != nil {
		t.Fatalf("Failed to create config directory: %v", err)
	}

	configContent := `database: subdir.db
`
	if err := os.WriteFile(filepath.Join(configDir, "mailgate.yaml"), []byte(configContent), 0600); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	chdir(t, tmpDir)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if cfg.Database != "subdir.db" {
		t.Errorf("Expected database 'subdir.db', got '%s'", cfg.Database)
	}
}

func TestLoadConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "custom.yaml")

	configContent := `listen: "127.0.0.1:9999"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	cfg, err := LoadConfigFile(configPath)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if cfg.Listen != "127.0.0.1:9999" {
		t.Errorf("Expected listen '127.0.0.1:9999', got '%s'", cfg.Listen)
	}
}
