package main

import (
	"io"
	"os"

	"github.com/lab9fs/unixfs"
	"github.com/spf13/cobra"
)

func newWriteCmd() *cobra.Command {
	var from string
	cmd := &cobra.Command{
		Use:   "write <path>",
		Short: "Write stdin (or --from a local file) to a regular file, creating it if needed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var src io.Reader = os.Stdin
			if from != "" {
				f, err := os.Open(from)
				if err != nil {
					return err
				}
				defer f.Close()
				src = f
			}
			data, err := io.ReadAll(src)
			if err != nil {
				return err
			}
			return withFS(func(fsys *unixfs.FS) error {
				ip, err := fsys.Open(args[0], unixfs.OCreate|unixfs.OTrunc)
				if err != nil {
					return err
				}
				defer fsys.Release(ip)
				_, err = fsys.WriteAt(ip, data, 0)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "local file to read instead of stdin")
	return cmd
}
