package btree

import (
	"github.com/pkg/errors"
	"gopkg.in/ini.v1"
)

// Config is optional ambient configuration for a Handle, loaded from
// an .ini file. It never changes the on-disk format; it only picks
// the branching factor and log verbosity a caller wants for a fresh
// index, and the file-name suffixes the Pager uses.
type Config struct {
	T              int
	LogLevel       string
	TreeFileSuffix string
	DataFileSuffix string
}

// DefaultConfig mirrors the values Open uses when no Config is given.
func DefaultConfig() *Config {
	return &Config{
		T:              4,
		LogLevel:       "info",
		TreeFileSuffix: ".tree",
		DataFileSuffix: ".data",
	}
}

// LoadConfig parses an .ini file shaped like:
//
//	[btree]
//	branching_factor = 4
//	log_level = info
//
//	[paths]
//	tree_file_suffix = .tree
//	data_file_suffix = .data
//
// Missing keys fall back to DefaultConfig's values.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	raw, err := ini.Load(path)
	if err != nil {
		return nil, errors.Wrapf(err, "load config %q", path)
	}

	if sec := raw.Section("btree"); sec != nil {
		cfg.T = sec.Key("branching_factor").MustInt(cfg.T)
		cfg.LogLevel = sec.Key("log_level").MustString(cfg.LogLevel)
	}
	if sec := raw.Section("paths"); sec != nil {
		cfg.TreeFileSuffix = sec.Key("tree_file_suffix").MustString(cfg.TreeFileSuffix)
		cfg.DataFileSuffix = sec.Key("data_file_suffix").MustString(cfg.DataFileSuffix)
	}

	if cfg.T < 2 {
		return nil, errors.Errorf("invalid branching_factor %d: must be >= 2", cfg.T)
	}
	return cfg, nil
}
