// Command fsutil is the day-to-day driver for a unixfs image: ls, cat,
// stat, mkdir, ln, rm, write, fsck, backup, restore, and (build tag fuse)
// mount. One cobra root command, pflag-registered flags bound through
// viper -- the same tree shape cmd/root.go in gcsfuse builds, generalized
// from "one mount command" to "many small subcommands over one image".
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/lab9fs/unixfs"
	"github.com/lab9fs/unixfs/internal/config"
	"github.com/lab9fs/unixfs/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	v       = viper.New()
	cfgFile string
)

func main() {
	root := &cobra.Command{
		Use:   "fsutil",
		Short: "Inspect and manipulate a unixfs filesystem image",
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "optional TOML/YAML configuration file")
	config.RegisterFlags(root.PersistentFlags(), v)

	root.AddCommand(
		newLsCmd(),
		newCatCmd(),
		newStatCmd(),
		newMkdirCmd(),
		newLnCmd(),
		newRmCmd(),
		newWriteCmd(),
		newFsckCmd(),
		newBackupCmd(),
		newRestoreCmd(),
		newMountCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "fsutil:", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	return config.Load(v, cfgFile)
}

func newLogger(cfg *config.Config) *slog.Logger {
	return logger.New(logger.Config{Format: cfg.LogFormat, Severity: cfg.LogSeverity, FilePath: cfg.LogFile})
}

// withFS opens cfg.Image and mounts it, runs fn, and unconditionally closes
// the backing disk afterward -- the common "open, do one thing, close"
// shape every subcommand except backup/restore needs. Fatal structural
// violations raised inside fn surface as a panic(*unixfs.FatalError); per
// §7 this is the composition root that recovers it.
func withFS(fn func(fs *unixfs.FS) error) (err error) {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Image == "" {
		return fmt.Errorf("--image is required")
	}
	log := newLogger(cfg)

	disk, err := unixfs.OpenFileDisk(cfg.Image)
	if err != nil {
		return err
	}
	defer disk.Close()

	var opts []unixfs.Option
	opts = append(opts, unixfs.WithLogger(log))
	if cfg.NBuf > 0 {
		opts = append(opts, unixfs.WithBufCount(cfg.NBuf))
	}
	if cfg.NInode > 0 {
		opts = append(opts, unixfs.WithInodeCacheSize(cfg.NInode))
	}

	defer func() {
		if r := recover(); r != nil {
			if fe, ok := r.(*unixfs.FatalError); ok {
				err = fmt.Errorf("fatal: %w", fe)
				return
			}
			panic(r)
		}
	}()

	fsys, err := unixfs.Mount(disk, opts...)
	if err != nil {
		return err
	}
	return fn(fsys)
}
