package cliconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestApplyFileConfig(t *testing.T) {
	trueVal := true

	tests := []struct {
		name       string
		fileConfig FileConfig
		changed    map[string]bool
		initial    Config
		expected   Config
		wantErr    bool
	}{
		{
			name: "applies all valid config values",
			fileConfig: FileConfig{
				WatchDir:     "/test/watch",
				Prefix:       "run",
				SetSize:      200,
				ScanInterval: "5m",
				Verify:       &trueVal,
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				WatchDir:     "/test/watch",
				Prefix:       "run",
				SetSize:      200,
				ScanInterval: 5 * time.Minute,
				Verify:       true,
			},
			wantErr: false,
		},
		{
			name: "respects changed flags",
			fileConfig: FileConfig{
				WatchDir: "/config/watch",
				Prefix:   "config-prefix",
			},
			changed: map[string]bool{"watch-dir": true},
			initial: Config{
				WatchDir: "/flag/watch",
				Prefix:   "flag-prefix",
			},
			expected: Config{
				WatchDir: "/flag/watch", // unchanged because flag was set
				Prefix:   "config-prefix",
			},
			wantErr: false,
		},
		{
			name: "handles all field types correctly",
			fileConfig: FileConfig{
				WatchDir:             "/tmp/watch",
				OutputDir:            "/tmp/archive",
				Prefix:               "test",
				SetSize:              150,
				MaxProcesses:         2,
				MaxThreads:           8,
				ScanInterval:         "1s",
				Codec:                "snappy",
				MergeFrameNumDivisor: 5,
				ConfigWatch:          &trueVal,
				Verify:               &trueVal,
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				WatchDir:             "/tmp/watch",
				OutputDir:            "/tmp/archive",
				Prefix:               "test",
				SetSize:              150,
				MaxProcesses:         2,
				MaxThreads:           8,
				ScanInterval:         time.Second,
				Codec:                "snappy",
				MergeFrameNumDivisor: 5,
				ConfigWatch:          true,
				Verify:               true,
			},
			wantErr: false,
		},
		{
			name: "invalid scan interval string is an error",
			fileConfig: FileConfig{
				ScanInterval: "not-a-duration",
			},
			changed: map[string]bool{},
			initial: Config{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.initial
			err := ApplyFileConfig(&cfg, tt.fileConfig, tt.changed)

			if tt.wantErr && err == nil {
				t.Error("ApplyFileConfig() expected error but got nil")
				return
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ApplyFileConfig() unexpected error: %v", err)
				return
			}
			if tt.wantErr {
				return
			}

			if cfg != tt.expected {
				t.Errorf("cfg = %+v, want %+v", cfg, tt.expected)
			}
		})
	}
}

func TestLoadFileConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.toml")

	tomlContent := `
watch_dir = "/tmp/watch"
prefix = "test"
set_size = 100
scan_interval = "300ms"
verify = true
`

	if err := os.WriteFile(configPath, []byte(tomlContent), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	fc, err := LoadFileConfig(configPath)
	if err != nil {
		t.Fatalf("LoadFileConfig() error = %v", err)
	}

	if fc.WatchDir != "/tmp/watch" {
		t.Errorf("WatchDir = %v, want /tmp/watch", fc.WatchDir)
	}
	if fc.Prefix != "test" {
		t.Errorf("Prefix = %v, want test", fc.Prefix)
	}
	if fc.SetSize != 100 {
		t.Errorf("SetSize = %v, want 100", fc.SetSize)
	}
	if fc.ScanInterval != "300ms" {
		t.Errorf("ScanInterval = %v, want 300ms", fc.ScanInterval)
	}
	if fc.Verify == nil || *fc.Verify != true {
		t.Errorf("Verify = %v, want true", fc.Verify)
	}
}

func TestLoadFileConfig_InvalidFile(t *testing.T) {
	_, err := LoadFileConfig("/nonexistent/path/config.toml")
	if err == nil {
		t.Error("LoadFileConfig() expected error for nonexistent file")
	}
}

func TestLoadFileConfig_InvalidTOML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.toml")

	invalidContent := `
watch_dir = "/test"
this is not valid toml
`

	if err := os.WriteFile(configPath, []byte(invalidContent), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	_, err := LoadFileConfig(configPath)
	if err == nil {
		t.Error("LoadFileConfig() expected error for invalid TOML")
	}
}

func TestDefaultConfigPath(t *testing.T) {
	path := DefaultConfigPath()

	if path != "" && !strings.Contains(path, ".frameark") {
		t.Errorf("DefaultConfigPath() = %v, should contain .frameark", path)
	}
}

func TestFileExists(t *testing.T) {
	tmpDir := t.TempDir()
	existingFile := filepath.Join(tmpDir, "exists.txt")

	if err := os.WriteFile(existingFile, []byte("test"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	if !FileExists(existingFile) {
		t.Error("FileExists() = false, want true for existing file")
	}

	if FileExists(filepath.Join(tmpDir, "nonexistent.txt")) {
		t.Error("FileExists() = true, want false for nonexistent file")
	}
}
