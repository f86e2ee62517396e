package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/talentrag/internal/config"
)

// NewRootCmd builds the command tree. The root command ingests the corpus and
// then answers queries interactively.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "talentrag [query]",
		Short: "Match resumes to hiring queries",
		Long: `Ingest a resume corpus into a vector index, then answer recruiter queries
with the best matching candidates and a model-written discussion of each.`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          runRoot,
	}

	addPersistentFlags(rootCmd)
	rootCmd.Flags().Bool("skip-ingest", false, "Query an existing index without ingesting")

	rootCmd.AddCommand(
		NewIngestCmd(),
		NewQueryCmd(),
	)
	return rootCmd
}

func addPersistentFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("config", "", "Path to a config file (overrides --env)")
	cmd.PersistentFlags().String("env", "", "Config environment name, reads config/<env>.yaml (default: $ENV or local)")
	cmd.PersistentFlags().String("mode", "", "Pipeline mode (single|category)")
	cmd.PersistentFlags().Float64("threshold", 0, "Similarity threshold for single mode")
	cmd.PersistentFlags().Int("top-k", 0, "Matches requested per index query")
}

func runRoot(cmd *cobra.Command, args []string) error {
	skip, _ := cmd.Flags().GetBool("skip-ingest")

	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if skip {
		err = a.attach(cmd.Context())
	} else {
		err = a.ingest(cmd.Context(), cmd.OutOrStdout())
	}
	if err != nil {
		return err
	}
	return a.serve(cmd, initialQuery(args))
}

// loadConfig resolves the config file from flags and applies flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, string, error) {
	path, _ := cmd.Flags().GetString("config")
	env, _ := cmd.Flags().GetString("env")
	if env == "" {
		env = config.GetEnv()
	}

	var (
		cfg config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load(env)
	}
	if err != nil {
		return config.Config{}, "", err
	}

	flags := cmd.Flags()
	if flags.Changed("mode") {
		cfg.Pipeline.Mode, _ = flags.GetString("mode")
	}
	if flags.Changed("threshold") {
		cfg.Pipeline.Threshold, _ = flags.GetFloat64("threshold")
	}
	if flags.Changed("top-k") {
		if cfg.Pipeline.TopK, _ = flags.GetInt("top-k"); cfg.Pipeline.TopK <= 0 {
			return config.Config{}, "", fmt.Errorf("--top-k must be positive")
		}
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, "", fmt.Errorf("invalid config: %w", err)
	}
	return cfg, env, nil
}

func initialQuery(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
