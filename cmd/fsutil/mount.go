//go:build fuse

package main

import (
	"github.com/lab9fs/unixfs"
	"github.com/spf13/cobra"
)

func newMountCmd() *cobra.Command {
	var debug, allowOther bool
	cmd := &cobra.Command{
		Use:   "mount <mountpoint>",
		Short: "Mount the image over FUSE and block until unmounted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withFS(func(fsys *unixfs.FS) error {
				var opts []unixfs.FuseOption
				if debug {
					opts = append(opts, unixfs.WithFuseDebug())
				}
				if allowOther {
					opts = append(opts, unixfs.WithFuseAllowOther())
				}
				server, err := unixfs.MountFUSE(fsys, args[0], opts...)
				if err != nil {
					return err
				}
				server.Wait()
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&debug, "debug", false, "enable go-fuse debug logging")
	cmd.Flags().BoolVar(&allowOther, "allow-other", false, "allow access by users other than the mount owner")
	return cmd
}
