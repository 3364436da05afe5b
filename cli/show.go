package cli

import (
	"fmt"

	"github.com/levelsai/levels/log"
	"github.com/morikuni/failure/v2"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"
)

var (
	showBrowser bool
	showNoPager bool

	showCmd = &cobra.Command{
		Use:   "show <tag>",
		Short: "Show a predictor card",
		Long: `Show the signature and card of a predictor.

On a terminal the card is rendered and paged; use --browser to open the
predictor page on muna.ai instead.`,
		Args: cobra.ExactArgs(1),
		RunE: runShow,
	}
)

func init() {
	showCmd.Flags().BoolVarP(&showBrowser, "browser", "b", false, "Open the predictor page in a browser")
	showCmd.Flags().BoolVar(&showNoPager, "no-pager", false, "Print the card without paging")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	tag := args[0]
	out := cmd.OutOrStdout()

	if showBrowser {
		u := predictorURL(tag)
		fmt.Fprintf(out, "Opening predictor in browser: %s\n", u)
		if err := browser.OpenURL(u); err != nil {
			return failure.Wrap(err, failure.Message("Failed to open browser"), failure.Context{"url": u})
		}
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	p, err := newClient(cfg).RetrievePredictor(cmd.Context(), tag)
	if err != nil {
		return err
	}
	if p == nil {
		return failure.New(PredictorNotFound,
			failure.Messagef("Predictor %s was not found", tag))
	}

	md := predictorMarkdown(*p)
	if p.Card != "" {
		md += "\n---\n\n" + p.Card + "\n"
	}

	if !isTerminal(out) {
		fmt.Fprint(out, md)
		return nil
	}

	rendered, err := renderMarkdown(md)
	if err != nil {
		return err
	}
	if showNoPager {
		fmt.Fprint(out, rendered)
		return nil
	}
	log.Debug("Paging predictor card", "tag", tag)
	return runPager(tag, rendered)
}
