package cli

import (
	"strings"

	"github.com/levelsai/levels/api"
	"github.com/spf13/cobra"
)

var (
	searchFormat  = formatText
	searchRefresh bool

	searchCmd = &cobra.Command{
		Use:   "search <query>",
		Short: "Search predictors for a task",
		Long: `Search the configured predictors for a task and print their signatures.

Every predictor that still exists is printed, the ones matching the most
query words first.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runSearch,
	}
)

func init() {
	searchCmd.Flags().VarP(&searchFormat, "format", "f", "Output format: text, json or yaml")
	searchCmd.Flags().BoolVar(&searchRefresh, "refresh", false, "Ignore cached predictor metadata")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	query := strings.Join(args, " ")
	predictors, err := api.SearchPredictors(cmd.Context(), newClient(cfg), query, api.SearchOptions{
		Tags:        cfg.SearchableTags,
		ForceUpdate: searchRefresh,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	return printPredictors(out, predictors, searchFormat, isTerminal(out))
}
