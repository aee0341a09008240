package main

import (
	"context"
	"fmt"

	"github.com/lab9fs/unixfs"
	"github.com/spf13/cobra"
)

func newFsckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fsck",
		Short: "Walk the image checking bitmap, link-count, and directory invariants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withFS(func(fsys *unixfs.FS) error {
				report, err := fsys.Fsck(context.Background())
				if err != nil {
					return err
				}
				fmt.Println(report)
				if len(report.Violations) > 0 {
					return fmt.Errorf("fsck: %d violation(s) found", len(report.Violations))
				}
				return nil
			})
		},
	}
}
