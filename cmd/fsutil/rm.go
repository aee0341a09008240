package main

import (
	"github.com/lab9fs/unixfs"
	"github.com/spf13/cobra"
)

func newRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <path>",
		Short: "Remove a directory entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withFS(func(fsys *unixfs.FS) error {
				return fsys.Unlink(args[0])
			})
		},
	}
}
