// Package cli implements the command-line interface for routegen.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/imyousuf/routegen/internal/config"
	"github.com/imyousuf/routegen/internal/generator"
)

var (
	cfgFile string
	verbose bool
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7571F9"})
	labelStyle = lipgloss.NewStyle().
			Faint(true).
			Width(18)
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#C5303E", Dark: "#F2617A"})
)

// rootCmd is the base command. Running it without a subcommand performs one
// generation pass; --watch keeps regenerating on file changes.
var rootCmd = &cobra.Command{
	Use:   "routegen",
	Short: "routegen - Route, client, and API-document generation from handler signatures",
	Long: `routegen scans a tree of TypeScript handler modules, reads the exported
function signatures, and generates one route handler per function, one
client stub module per source module, and a single OpenAPI document.

Function name prefixes pick the HTTP verb (getX -> GET, createX -> POST,
updateX -> PUT, patchX -> PATCH, deleteX -> DELETE); everything else
defaults to POST.

Commands:
  init       Initialize a .routegen.yaml config file
  docs       Serve the generated API document with a Swagger UI
  version    Print version information`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		watch, _ := cmd.Flags().GetBool("watch")
		return runGenerate(cmd, watch)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .routegen.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.Flags().BoolP("watch", "w", false, "keep running and regenerate on file changes")

	// Bind flags to viper
	bindFlag := func(key, flag string) {
		if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(fmt.Sprintf("failed to bind %s flag: %v", flag, err))
		}
	}
	bindFlag("config_file", "config")

	// Add subcommands
	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newDocsCmd())
	rootCmd.AddCommand(newVersionCmd())
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

// newGenerator builds a Generator from the loaded configuration.
func newGenerator(cfg *config.Config, logf func(string, ...any)) (*generator.Generator, error) {
	return generator.New(generator.Options{
		SourceDir:             cfg.Source.Dir,
		RoutesDir:             cfg.Output.RoutesDir,
		ClientDir:             cfg.Output.ClientDir,
		DocsPath:              cfg.Output.DocsPath,
		Title:                 cfg.Project.Name,
		Version:               cfg.Project.Version,
		Extensions:            cfg.Source.Extensions,
		ExcludePatterns:       cfg.Source.Exclude,
		VerbPrefixes:          cfg.VerbPrefixes(),
		SingleParamDowngrade:  cfg.Classify.SingleParamCreateDowngrade,
		ContextTypeNames:      cfg.Context.TypeNames,
		ContextAccessors:      cfg.Context.Accessors,
		Debounce:              cfg.Scan.Debounce,
		Staleness:             cfg.Scan.Staleness,
		MaxFilesPerScan:       cfg.Scan.MaxFilesPerScan,
		FullScanDirtyFraction: cfg.Scan.FullScanDirtyFraction,
		Verbose:               verbose,
		Logf:                  logf,
	})
}

// runGenerate performs one generation pass, or keeps watching when watch is
// set, and prints the scan summary.
func runGenerate(cmd *cobra.Command, watch bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	out := cmd.OutOrStdout()
	logf := func(format string, args ...any) {
		fmt.Fprintf(cmd.ErrOrStderr(), format+"\n", args...)
	}

	gen, err := newGenerator(cfg, logf)
	if err != nil {
		return err
	}

	if !watch {
		stats, err := gen.Run(cmd.Context())
		if err != nil {
			return err
		}
		printSummary(out, stats)
		if len(stats.Errors) > 0 {
			return fmt.Errorf("%d file(s) failed to generate", len(stats.Errors))
		}
		return nil
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(out, "\nShutting down...")
		cancel()
	}()

	fmt.Fprintf(out, "%s\n", headerStyle.Render("Watching "+cfg.Source.Dir))
	if err := gen.Watch(ctx); err != nil {
		return err
	}
	printSummary(out, gen.LastStats())
	return nil
}

// printSummary renders the scan stats as a labeled block, with each per-file
// failure on its own line.
func printSummary(out io.Writer, stats generator.ScanStats) {
	fmt.Fprintln(out, headerStyle.Render("Generation summary"))
	line := func(label string, value any) {
		fmt.Fprintf(out, "%s%v\n", labelStyle.Render(label), value)
	}
	line("Files scanned", stats.FilesScanned)
	line("Cache hits", stats.CacheHits)
	line("Functions", stats.FunctionsFound)
	line("Routes written", stats.RoutesWritten)
	line("Clients written", stats.ClientsWritten)
	line("Orphans removed", stats.OrphansRemoved)
	line("Docs written", stats.DocsWritten)
	line("Duration", stats.Duration)

	if len(stats.Errors) > 0 {
		fmt.Fprintln(out, errorStyle.Render(fmt.Sprintf("Failures (%d):", len(stats.Errors))))
		for _, e := range stats.Errors {
			fmt.Fprintf(out, "  %s\n", errorStyle.Render(e))
		}
	}
}
