package cli

import (
	"context"
	"fmt"

	"github.com/levelsai/levels/api"
	"github.com/levelsai/levels/api/cache"
	"github.com/levelsai/levels/api/muna"
	"github.com/levelsai/levels/api/value"
	"github.com/levelsai/levels/config"
	"github.com/levelsai/levels/log"
	"github.com/levelsai/levels/mcp"
	"github.com/morikuni/failure/v2"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	envFileFlag string
	configFlag  string
	debugFlag   bool

	// Root command
	rootCmd = &cobra.Command{
		Use:           "levels",
		Short:         "Run Muna prediction functions from MCP clients and the terminal",
		SilenceErrors: true,
		SilenceUsage:  true,
		Long: `levels is an MCP server that lets AI editors discover and run prediction
functions hosted on Muna. It can also search and run predictors from the terminal.

Put your access key in a .env file:

  MUNA_ACCESS_KEY=<your access key>

then print the editor configuration with "levels register".`,
	}

	// Version command
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "levels version %s\n", api.Version)
			if api.VersionCommit != "" {
				fmt.Fprintf(out, "  commit: %s\n", api.VersionCommit)
			}
		},
	}
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&envFileFlag, "env-file", "", "Load environment variables from a dotenv file")
	pf.StringVar(&configFlag, "config", "", "Path to a TOML config file")
	pf.BoolVar(&debugFlag, "debug", false, "Log debug messages and HTTP traffic to stderr")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(mcp.Command(newDeps))
}

// Run executes the main CLI functionality
func Run() error {
	return rootCmd.ExecuteContext(context.Background())
}

// loadConfig loads settings that are complete enough to call the Muna API
func loadConfig() (*config.Config, error) {
	cfg, err := loadSettings()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadSettings reads the settings and applies them to logging and the predictor cache
func loadSettings() (*config.Config, error) {
	cfg, err := config.Load(config.LoadOptions{
		EnvFile:    envFileFlag,
		ConfigFile: configFlag,
	})
	if err != nil {
		return nil, err
	}
	if debugFlag {
		cfg.Debug = true
	}
	log.SetDebug(cfg.Debug)

	ttl, err := cfg.TTL()
	if err != nil {
		return nil, err
	}
	cache.SetTTL(ttl)
	if cfg.CacheDir != "" {
		if err := cache.SetDir(cfg.CacheDir); err != nil {
			return nil, failure.Wrap(err, failure.WithCode(config.ErrInvalidConfig),
				failure.Message("Cannot create cache directory"),
				failure.Context{"dir": cfg.CacheDir})
		}
	}

	log.Debug("Configuration loaded", "api_url", cfg.APIURL, "tags", len(cfg.SearchableTags), "output_dir", cfg.OutputDir)
	return cfg, nil
}

func newClient(cfg *config.Config) *muna.Client {
	return muna.NewClient(cfg.AccessKey,
		muna.WithBaseURL(cfg.APIURL),
		muna.WithRateLimit(cfg.RateLimit()),
		muna.WithUserAgent(api.UserAgent()),
	)
}

func newDeps(cmd *cobra.Command) (mcp.Deps, error) {
	cfg, err := loadConfig()
	if err != nil {
		return mcp.Deps{}, err
	}
	client := newClient(cfg)
	return mcp.Deps{
		Predictors:  client,
		Predictions: client,
		Files:       value.DirWriter{Dir: cfg.OutputDir},
		Search:      api.SearchOptions{Tags: cfg.SearchableTags},
	}, nil
}
