// Package config holds the typed Config struct shared by cmd/mkfs and
// cmd/fsutil, plus the pflag/viper wiring that populates it -- the same
// split GoogleCloudPlatform-gcsfuse draws between its cfg package (typed
// config struct) and cmd package (cobra command tree binding flags into
// viper). Precedence, highest first: explicit flag > UNIXFS_* environment
// variable > --config file > struct defaults.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the superset of settings either binary can consume; a given
// command only reads the fields relevant to it (e.g. cmd/mkfs ignores
// NBuf/NInode, cmd/fsutil ignores LogBlocks/InodeCount).
type Config struct {
	// Image is the path to the backing filesystem image file.
	Image string `mapstructure:"image"`

	// Formatting knobs (cmd/mkfs), mirroring format.FormatOption.
	TotalBlocks uint32 `mapstructure:"total_blocks"`
	LogBlocks   uint32 `mapstructure:"log_blocks"`
	InodeCount  uint32 `mapstructure:"inode_count"`

	// Mount knobs (cmd/fsutil), mirroring unixfs.Option.
	NBuf   int `mapstructure:"nbuf"`
	NInode int `mapstructure:"ninode"`

	// Logging.
	LogFormat   string `mapstructure:"log_format"`
	LogSeverity string `mapstructure:"log_severity"`
	LogFile     string `mapstructure:"log_file"`

	// Metrics.
	MetricsAddr string `mapstructure:"metrics_addr"`

	// internal/imgarchive knobs for backup/restore.
	ArchiveXZ bool `mapstructure:"archive_xz"`
}

// RegisterFlags adds every Config field as a pflag on fs, binds each to v
// under its mapstructure tag, and sets up UNIXFS_*-prefixed environment
// variable binding -- the pattern cmd/root.go follows with cobra/pflag/
// viper, generalized to one function both cmd/mkfs and cmd/fsutil call.
func RegisterFlags(fs *pflag.FlagSet, v *viper.Viper) {
	fs.String("image", "", "path to the backing filesystem image file")
	fs.Uint32("total-blocks", 65536, "total block count for a newly formatted image")
	fs.Uint32("log-blocks", 0, "log region size in blocks (0 = package default)")
	fs.Uint32("inode-count", 200, "number of on-disk inode slots")
	fs.Int("nbuf", 0, "buffer cache pool size (0 = package default)")
	fs.Int("ninode", 0, "in-memory inode cache size (0 = package default)")
	fs.String("log-format", "text", "log output format: text or json")
	fs.String("log-severity", "INFO", "minimum log severity: TRACE, DEBUG, INFO, WARNING, ERROR, OFF")
	fs.String("log-file", "", "log file path (empty = stderr); rotated via lumberjack when set")
	fs.String("metrics-addr", "", "Prometheus /metrics address (accepted but unused: no command serves metrics)")
	fs.Bool("archive-xz", false, "use xz instead of zstd for backup/restore compression")

	v.SetEnvPrefix("unixfs")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	_ = v.BindPFlags(fs)
}

// Load reads an optional config file (if cfgFile is non-empty) into v and
// unmarshals the merged flag/env/file view into a Config.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("unixfs: reading config file %s: %w", cfgFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unixfs: decoding configuration: %w", err)
	}
	return &cfg, nil
}
