package main

import (
	"fmt"

	"github.com/lab9fs/unixfs/internal/imgarchive"
	"github.com/spf13/cobra"
)

func newRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <archive>",
		Short: "Decompress an archive produced by backup back into the backing image, atomically",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Image == "" {
				return fmt.Errorf("--image is required")
			}
			return imgarchive.Restore(args[0], cfg.Image, archiveFormat(cfg))
		},
	}
}
