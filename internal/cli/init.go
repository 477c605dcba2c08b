package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/imyousuf/routegen/internal/config"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize a .routegen.yaml config file",
		Long: `Initialize routegen in the current directory.

Writes a .routegen.yaml with the default layout:
  src/server                        handler modules (scanned)
  src/server/generated/routes      generated route handlers
  src/client/generated             generated client stubs
  src/server/generated/openapi.json  generated API document`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("get working directory: %w", err)
			}

			configPath := filepath.Join(cwd, config.DefaultConfigFile+"."+config.DefaultConfigType)
			if _, err := os.Stat(configPath); err == nil {
				return fmt.Errorf("%s already exists; project is already initialized", configPath)
			}

			cfg := starterConfig(filepath.Base(cwd))
			if err := config.WriteConfig(cfg, configPath); err != nil {
				return fmt.Errorf("write config file: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Created %s\n", configPath)
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Next steps:")
			fmt.Fprintln(out, "  1. Edit .routegen.yaml to point source.dir at your handler modules")
			fmt.Fprintln(out, "  2. Add the generated directories to .gitignore if you do not commit them")
			fmt.Fprintln(out, "  3. Run 'routegen' for a one-shot generation")
			fmt.Fprintln(out, "  4. Run 'routegen --watch' during development")

			return nil
		},
	}
}

// starterConfig is the configuration `routegen init` writes: the documented
// defaults, spelled out so the file is self-explanatory.
func starterConfig(projectName string) *config.Config {
	return &config.Config{
		Project: config.ProjectConfig{
			Name:    projectName,
			Version: "0.1.0",
		},
		Source: config.SourceConfig{
			Dir:        "src/server",
			Extensions: []string{".ts"},
			Exclude: []string{
				"**/node_modules/**",
				"**/.git/**",
				"**/dist/**",
				"**/build/**",
				"**/generated/**",
			},
		},
		Output: config.OutputConfig{
			RoutesDir: "src/server/generated/routes",
			ClientDir: "src/client/generated",
			DocsPath:  "src/server/generated/openapi.json",
		},
		Scan: config.ScanConfig{
			Debounce:              300 * time.Millisecond,
			Staleness:             5 * time.Minute,
			MaxFilesPerScan:       500,
			FullScanDirtyFraction: 0.5,
		},
	}
}
