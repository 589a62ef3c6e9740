package cmd

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"loopcast/internal/config"
	"loopcast/internal/logging"
	"loopcast/internal/orchestrator"
	"loopcast/internal/source"
)

// CreateCheckCmd creates the check command: validate configuration, resolve
// every source, and print the encoder commands without starting anything.
func CreateCheckCmd() *cobra.Command {
	var cacheDir string
	var showCommands bool

	cmd := &cobra.Command{
		Use:   "check <endpoints-file>",
		Short: "Validate an endpoints file and its sources",
		Long: `Loads the endpoints file, resolves every source (downloading remote ` +
			`files and expanding directories as the streamer would), and reports the ` +
			`resulting encoder groups. Exits nonzero if anything is invalid.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(_ *cobra.Command, args []string) error {
			logging.Initialize(logging.Config{Level: "warn", Format: "text"})
			logger := logging.GetLogger("check")

			endpoints, err := config.Load(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("config ok: %d endpoint(s)\n", len(endpoints))

			resolver := source.NewResolver(cacheDir, logger)
			groups, err := orchestrator.BuildGroups(endpoints, resolver, true, logger)
			if err != nil {
				return err
			}
			fmt.Printf("sources ok: %d encoder group(s)\n", len(groups))

			if _, err := exec.LookPath("ffmpeg"); err != nil {
				fmt.Fprintln(os.Stderr, "warning: ffmpeg not found in PATH")
			}

			for _, g := range groups {
				fmt.Printf("  %s -> %v\n", g.ID(), g.EndpointIDs())
				if showCommands {
					fmt.Printf("    %s\n", orchestrator.CommandForGroup(g))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&cacheDir, "cache-dir", defaultCacheDir(), "Directory for downloaded sources and playlists")
	cmd.Flags().BoolVar(&showCommands, "commands", false, "Print the full encoder command per group")
	return cmd
}
