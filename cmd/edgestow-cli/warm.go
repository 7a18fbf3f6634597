package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

var warmCmd = &cobra.Command{
	Use:   "warm <url> [url...]",
	Short: "Pre-load objects into the proxy's cache",
	Long: `Ask the proxy to fetch objects from the origin into its cache
ahead of demand, through the admin API.

Each argument is an object path, optionally with query parameters, as
clients would request it. Objects the cache policy refuses (non-2xx,
partial content, no-store) are reported per URL.

Examples:
  edgestow-cli warm /images/hero.jpg /downloads/setup.pkg
  edgestow-cli warm "/images/hero.jpg?w=800"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWarm,
}

func runWarm(_ *cobra.Command, args []string) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	statuses, err := client.Warm(context.Background(), args)
	if err != nil {
		return handleError(os.Stderr, err)
	}

	formatter := getFormatter()
	if err := formatter.FormatWarm(os.Stdout, statuses); err != nil {
		return err
	}

	for _, s := range statuses {
		if s.Error != "" {
			return errPartialFailure
		}
	}

	return nil
}
