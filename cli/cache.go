package cli

import (
	"fmt"

	"github.com/levelsai/levels/api/cache"
	"github.com/morikuni/failure/v2"
	"github.com/spf13/cobra"
)

var (
	cacheCmd = &cobra.Command{
		Use:   "cache",
		Short: "Manage cached predictor metadata",
	}

	cacheClearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached predictor metadata",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadSettings(); err != nil {
				return err
			}
			if err := cache.Clear(); err != nil {
				return failure.Wrap(err, failure.Message("Failed to clear cache"))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s\n", cache.DefaultDir)
			return nil
		},
	}
)

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}
