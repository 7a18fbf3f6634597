package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

var purgePatterns []string

var purgeCmd = &cobra.Command{
	Use:   "purge <cache-key> [cache-key...]",
	Short: "Drop entries from the proxy's cache",
	Long: `Drop cache entries by exact cache key through the admin API.

Cache keys are the composite strings the proxy derives from requests; the
debug header and warm responses both report them. Patterns are forwarded
but the proxy rejects them per entry, so mixing patterns with keys still
purges the keys.

Examples:
  edgestow-cli purge "v1|/images/hero.jpg|"
  edgestow-cli purge --pattern "images/*" "v1|/index.html|"`,
	Args: cobra.ArbitraryArgs,
	RunE: runPurge,
}

func init() {
	purgeCmd.Flags().StringSliceVar(&purgePatterns, "pattern", nil, "key pattern (unsupported server-side, reported per entry)")
}

func runPurge(_ *cobra.Command, args []string) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	result, err := client.Purge(context.Background(), args, purgePatterns)
	if err != nil {
		return handleError(os.Stderr, err)
	}

	formatter := getFormatter()
	if err := formatter.FormatPurge(os.Stdout, result); err != nil {
		return err
	}

	if len(result.Failed) > 0 {
		return errPartialFailure
	}

	return nil
}
