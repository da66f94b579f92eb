package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	WatchDir  string `toml:"watch_dir"`
	OutputDir string `toml:"output_dir"`
	Prefix    string `toml:"prefix"`

	SetSize      int `toml:"set_size"`
	MaxProcesses int `toml:"max_processes"`
	MaxThreads   int `toml:"max_threads"`

	ScanInterval string `toml:"scan_interval"`
	Codec        string `toml:"codec"`

	MergeFrameNumDivisor int `toml:"merge_frame_num_divisor"`

	ConfigWatch *bool `toml:"config_watch"`
	Verify      *bool `toml:"verify"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path,
// "~/.frameark/config.toml", or "" if the user's home directory cannot
// be determined.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".frameark", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("watch-dir", fc.WatchDir, &cfg.WatchDir)
	s.setString("output-dir", fc.OutputDir, &cfg.OutputDir)
	s.setString("prefix", fc.Prefix, &cfg.Prefix)
	s.setString("codec", fc.Codec, &cfg.Codec)

	s.setInt("set-size", fc.SetSize, &cfg.SetSize)
	s.setInt("max-processes", fc.MaxProcesses, &cfg.MaxProcesses)
	s.setInt("max-threads", fc.MaxThreads, &cfg.MaxThreads)
	s.setInt("merge-frame-num-divisor", fc.MergeFrameNumDivisor, &cfg.MergeFrameNumDivisor)

	if err := s.setDuration("scan-interval", fc.ScanInterval, &cfg.ScanInterval); err != nil {
		return err
	}

	s.setBool("config-watch", fc.ConfigWatch, &cfg.ConfigWatch)
	s.setBool("verify", fc.Verify, &cfg.Verify)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
