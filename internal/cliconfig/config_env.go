package cliconfig

import "os"

// ApplyEnvConfig applies FRAMEARK_* environment variables to cfg. It
// respects flags that have been explicitly set (changed map), so
// precedence is CLI flag > environment variable > config file > default.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("watch-dir", os.Getenv("FRAMEARK_WATCH_DIR"), &cfg.WatchDir)
	s.setString("output-dir", os.Getenv("FRAMEARK_OUTPUT_DIR"), &cfg.OutputDir)
	s.setString("prefix", os.Getenv("FRAMEARK_PREFIX"), &cfg.Prefix)
	s.setString("codec", os.Getenv("FRAMEARK_CODEC"), &cfg.Codec)

	if err := s.setIntFromString("set-size", os.Getenv("FRAMEARK_SET_SIZE"), &cfg.SetSize); err != nil {
		return err
	}
	if err := s.setIntFromString("max-processes", os.Getenv("FRAMEARK_MAX_PROCESSES"), &cfg.MaxProcesses); err != nil {
		return err
	}
	if err := s.setIntFromString("max-threads", os.Getenv("FRAMEARK_MAX_THREADS"), &cfg.MaxThreads); err != nil {
		return err
	}
	if err := s.setIntFromString("merge-frame-num-divisor", os.Getenv("FRAMEARK_MERGE_FRAME_NUM_DIVISOR"), &cfg.MergeFrameNumDivisor); err != nil {
		return err
	}

	if err := s.setDuration("scan-interval", os.Getenv("FRAMEARK_SCAN_INTERVAL"), &cfg.ScanInterval); err != nil {
		return err
	}

	if v := os.Getenv("FRAMEARK_VERIFY"); v != "" {
		s.setBoolFromString("verify", v, &cfg.Verify)
	}
	if v := os.Getenv("FRAMEARK_CONFIG_WATCH"); v != "" {
		s.setBoolFromString("config-watch", v, &cfg.ConfigWatch)
	}

	return nil
}
