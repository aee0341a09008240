package main

import (
	"fmt"

	"github.com/lab9fs/unixfs"
	"github.com/spf13/cobra"
)

func newStatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stat <path>",
		Short: "Print an inode's Dev/Ino/Type/Nlink/Size",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withFS(func(fsys *unixfs.FS) error {
				ip, err := fsys.Open(args[0], unixfs.ORdOnly|unixfs.ONoFollow)
				if err != nil {
					return err
				}
				defer fsys.Release(ip)

				st := fsys.StatInode(ip)
				fmt.Printf("dev=%d ino=%d type=%v nlink=%d size=%d\n", st.Dev, st.Ino, st.Type, st.Nlink, st.Size)
				return nil
			})
		},
	}
}
