//go:build !fuse

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mount <mountpoint>",
		Short: "Mount the image over FUSE (requires building with -tags fuse)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("fsutil: built without the fuse tag; rebuild with -tags fuse to enable mount")
		},
	}
}
