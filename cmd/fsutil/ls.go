package main

import (
	"fmt"
	"io/fs"

	"github.com/lab9fs/unixfs"
	"github.com/spf13/cobra"
)

func newLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls <path>",
		Short: "List a directory's entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withFS(func(fsys *unixfs.FS) error {
				entries, err := fsys.ReadDir(toFSPath(args[0]))
				if err != nil {
					return err
				}
				for _, e := range entries {
					info, err := e.Info()
					if err != nil {
						return err
					}
					kind := "-"
					switch {
					case info.Mode()&fs.ModeDir != 0:
						kind = "d"
					case info.Mode()&fs.ModeSymlink != 0:
						kind = "l"
					case info.Mode()&fs.ModeDevice != 0:
						kind = "c"
					}
					fmt.Printf("%s %8d %s\n", kind, info.Size(), e.Name())
				}
				return nil
			})
		},
	}
}

// toFSPath translates this library's own absolute "/a/b" path convention
// into io/fs's "a/b" (no leading slash, "." for the root).
func toFSPath(p string) string {
	for len(p) > 0 && p[0] == '/' {
		p = p[1:]
	}
	if p == "" {
		return "."
	}
	return p
}
