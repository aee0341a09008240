// Command mkfs formats a fresh unixfs image, replacing the teacher's
// hand-rolled os.Args parsing in cmd/sqfs/main.go with the cobra/pflag/
// viper stack internal/config wires up.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/lab9fs/unixfs"
	"github.com/lab9fs/unixfs/internal/config"
	"github.com/lab9fs/unixfs/internal/logger"
	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "mkfs:", err)
		os.Exit(1)
	}
}

func run() error {
	v := viper.New()
	var cfgFile string

	root := &cobra.Command{
		Use:   "mkfs",
		Short: "Format a fresh unixfs filesystem image",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFormat(v, cfgFile)
		},
	}

	config.RegisterFlags(root.Flags(), v)
	root.Flags().StringVar(&cfgFile, "config", "", "optional TOML/YAML configuration file")
	pflag.CommandLine = root.Flags()

	return root.Execute()
}

func runFormat(v *viper.Viper, cfgFile string) (err error) {
	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		return err
	}
	if cfg.Image == "" {
		return fmt.Errorf("--image is required")
	}

	log := logger.New(logger.Config{Format: cfg.LogFormat, Severity: cfg.LogSeverity, FilePath: cfg.LogFile})

	// Fatal structural violations inside Format (corrupt state it cannot
	// locally recover from) surface as a panic(*unixfs.FatalError); this is
	// the composition root that recovers it, per §7's "panic(reason),
	// caught only at cmd/'s main" convention.
	defer func() {
		if r := recover(); r != nil {
			if fe, ok := r.(*unixfs.FatalError); ok {
				err = fmt.Errorf("mkfs: fatal: %w", fe)
				return
			}
			panic(r)
		}
	}()

	tmpPath, err := formatToTemp(cfg)
	if err != nil {
		return err
	}
	defer os.Remove(tmpPath)

	log.Info("mkfs: replacing image atomically", "image", cfg.Image, "tmp", tmpPath)
	if err := atomic.ReplaceFile(tmpPath, cfg.Image); err != nil {
		return fmt.Errorf("mkfs: atomic replace: %w", err)
	}

	log.Info("mkfs: done", "image", cfg.Image, "total_blocks", cfg.TotalBlocks, "inodes", cfg.InodeCount)
	return nil
}

// formatToTemp writes the new image to a sibling temp file so a crash
// mid-format never corrupts an existing image at cfg.Image; the caller
// swaps it into place with atomic.ReplaceFile once Format succeeds.
func formatToTemp(cfg *config.Config) (string, error) {
	dir := filepath.Dir(cfg.Image)
	tmp, err := os.CreateTemp(dir, ".mkfs-*.img")
	if err != nil {
		return "", fmt.Errorf("mkfs: create temp image: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()

	disk, err := unixfs.CreateFileDisk(tmpPath, cfg.TotalBlocks)
	if err != nil {
		os.Remove(tmpPath)
		return "", err
	}
	defer disk.Close()

	var opts []unixfs.FormatOption
	if cfg.LogBlocks > 0 {
		opts = append(opts, unixfs.WithLogBlocks(cfg.LogBlocks))
	}
	if cfg.InodeCount > 0 {
		opts = append(opts, unixfs.WithInodeCount(cfg.InodeCount))
	}

	if err := unixfs.Format(disk, cfg.TotalBlocks, opts...); err != nil {
		os.Remove(tmpPath)
		return "", err
	}
	if err := disk.Sync(); err != nil {
		os.Remove(tmpPath)
		return "", err
	}
	return tmpPath, nil
}
