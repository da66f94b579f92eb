package cliconfig

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Prefix != DefaultPrefix {
		t.Errorf("Prefix = %v, want %v", cfg.Prefix, DefaultPrefix)
	}
	if cfg.SetSize != 100 {
		t.Errorf("SetSize = %v, want 100", cfg.SetSize)
	}
	if cfg.ScanInterval != 300*time.Millisecond {
		t.Errorf("ScanInterval = %v, want 300ms", cfg.ScanInterval)
	}
	if cfg.Codec != "lz4" {
		t.Errorf("Codec = %v, want lz4", cfg.Codec)
	}
	if cfg.MergeFrameNumDivisor != 10 {
		t.Errorf("MergeFrameNumDivisor = %v, want 10", cfg.MergeFrameNumDivisor)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name          string
		config        Config
		wantErr       bool
		wantOutputDir string
	}{
		{
			name: "valid minimal config",
			config: Config{
				WatchDir:     "/data/incoming",
				SetSize:      100,
				MaxProcesses: 1,
				MaxThreads:   4,
				ScanInterval: time.Second,
				Codec:        "lz4",
			},
			wantErr: false,
		},
		{
			name: "missing watch-dir is always an error",
			config: Config{
				SetSize:      100,
				MaxProcesses: 1,
				MaxThreads:   4,
				ScanInterval: time.Second,
				Codec:        "lz4",
			},
			wantErr: true,
		},
		{
			name: "output-dir defaults to watch-dir when omitted",
			config: Config{
				WatchDir:     "/data/incoming",
				SetSize:      100,
				MaxProcesses: 1,
				MaxThreads:   4,
				ScanInterval: time.Second,
				Codec:        "lz4",
			},
			wantErr:       false,
			wantOutputDir: "/data/incoming",
		},
		{
			name: "non-positive set-size is an error",
			config: Config{
				WatchDir:     "/data/incoming",
				SetSize:      0,
				MaxProcesses: 1,
				MaxThreads:   4,
				ScanInterval: time.Second,
				Codec:        "lz4",
			},
			wantErr: true,
		},
		{
			name: "negative scan interval is an error",
			config: Config{
				WatchDir:     "/data/incoming",
				SetSize:      100,
				MaxProcesses: 1,
				MaxThreads:   4,
				ScanInterval: -time.Second,
				Codec:        "lz4",
			},
			wantErr: true,
		},
		{
			name: "unknown codec is an error",
			config: Config{
				WatchDir:     "/data/incoming",
				SetSize:      100,
				MaxProcesses: 1,
				MaxThreads:   4,
				ScanInterval: time.Second,
				Codec:        "zstd",
			},
			wantErr: true,
		},
		{
			name: "snappy codec is accepted",
			config: Config{
				WatchDir:     "/data/incoming",
				SetSize:      100,
				MaxProcesses: 1,
				MaxThreads:   4,
				ScanInterval: time.Second,
				Codec:        "snappy",
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && tt.wantOutputDir != "" && tt.config.OutputDir != tt.wantOutputDir {
				t.Errorf("OutputDir = %v, want %v", tt.config.OutputDir, tt.wantOutputDir)
			}
		})
	}
}

func TestConfig_Validate_EmptyPrefixDefaults(t *testing.T) {
	cfg := Config{
		WatchDir:     "/data/incoming",
		SetSize:      100,
		MaxProcesses: 1,
		MaxThreads:   4,
		ScanInterval: time.Second,
		Codec:        "lz4",
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if cfg.Prefix != DefaultPrefix {
		t.Errorf("Prefix = %v, want %v", cfg.Prefix, DefaultPrefix)
	}
}

func TestConfig_Validate_MergeFrameNumDivisorDefaults(t *testing.T) {
	cfg := Config{
		WatchDir:             "/data/incoming",
		SetSize:              100,
		MaxProcesses:         1,
		MaxThreads:           4,
		ScanInterval:         time.Second,
		Codec:                "lz4",
		MergeFrameNumDivisor: 0,
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if cfg.MergeFrameNumDivisor != 10 {
		t.Errorf("MergeFrameNumDivisor = %v, want 10", cfg.MergeFrameNumDivisor)
	}
}
