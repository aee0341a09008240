package main

import (
	"fmt"

	"github.com/lab9fs/unixfs/internal/config"
	"github.com/lab9fs/unixfs/internal/imgarchive"
	"github.com/spf13/cobra"
)

func archiveFormat(cfg *config.Config) imgarchive.Format {
	if cfg.ArchiveXZ {
		return imgarchive.XZ
	}
	return imgarchive.Zstd
}

func newBackupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup <archive>",
		Short: "Compress the backing image to a standalone archive file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Image == "" {
				return fmt.Errorf("--image is required")
			}
			return imgarchive.Backup(cfg.Image, args[0], archiveFormat(cfg))
		},
	}
}
