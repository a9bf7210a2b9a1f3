package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newBucketsCmd checks that the configured object store is reachable.
func newBucketsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "buckets",
		Short: "List buckets visible to the configured object store",
		RunE: func(cmd *cobra.Command, args []string) error {
			objects, _, err := openObjects(cmd.Context())
			if err != nil {
				return err
			}
			names, err := objects.ListBuckets(cmd.Context())
			if err != nil {
				return fmt.Errorf("list buckets: %w", err)
			}

			out := cmd.OutOrStdout()
			for _, name := range names {
				marker := " "
				if name == objects.Bucket() {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %s\n", marker, name)
			}
			return nil
		},
	}
}
