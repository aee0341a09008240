package main

import (
	"github.com/lab9fs/unixfs"
	"github.com/spf13/cobra"
)

func newMkdirCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mkdir <path>",
		Short: "Create a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withFS(func(fsys *unixfs.FS) error {
				ip, err := fsys.Mkdir(args[0])
				if err != nil {
					return err
				}
				fsys.Release(ip)
				return nil
			})
		},
	}
}
