package main

import (
	"github.com/lab9fs/unixfs"
	"github.com/spf13/cobra"
)

func newLnCmd() *cobra.Command {
	var symbolic bool
	cmd := &cobra.Command{
		Use:   "ln <target> <path>",
		Short: "Create a hard link, or a symlink with -s",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withFS(func(fsys *unixfs.FS) error {
				if symbolic {
					return fsys.Symlink(args[0], args[1])
				}
				return fsys.Link(args[0], args[1])
			})
		},
	}
	cmd.Flags().BoolVarP(&symbolic, "symbolic", "s", false, "create a symbolic link instead of a hard link")
	return cmd
}
