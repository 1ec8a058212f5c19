package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/smazurov/streamgate/internal/updater"
	"github.com/smazurov/streamgate/internal/version"
	"github.com/spf13/cobra"
)

// CreateUpdateCmd creates the update command.
func CreateUpdateCmd() *cobra.Command {
	var repository string
	var prerelease bool
	var checkOnly bool

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update the binary from GitHub releases",
		Long:  `Checks GitHub releases for a newer build and replaces the running binary in place. Use --check to only report the latest version.`,
		Run: func(_ *cobra.Command, _ []string) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			up, err := updater.New(repository, prerelease)
			if err != nil {
				fmt.Fprintf(os.Stderr, "update: %v\n", err)
				os.Exit(1)
			}

			release, err := up.Check(ctx)
			if err != nil {
				fmt.Fprintf(os.Stderr, "update: %v\n", err)
				os.Exit(1)
			}
			if release == nil {
				fmt.Printf("already up to date (%s)\n", version.String())
				return
			}

			fmt.Printf("latest release: %s (current %s)\n", release.Version(), version.String())
			if checkOnly {
				return
			}

			if err := up.Apply(ctx, release); err != nil {
				fmt.Fprintf(os.Stderr, "update: %v\n", err)
				os.Exit(1)
			}
			fmt.Println("update applied, restart to take effect")
		},
	}

	cmd.Flags().StringVar(&repository, "repository", "smazurov/streamgate", "GitHub repository slug")
	cmd.Flags().BoolVar(&prerelease, "prerelease", false, "Consider prerelease versions")
	cmd.Flags().BoolVar(&checkOnly, "check", false, "Only check for a newer version")
	return cmd
}
