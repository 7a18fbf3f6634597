package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
)

var signValidity time.Duration

var signCmd = &cobra.Command{
	Use:   "sign <remote-path>",
	Short: "Produce a signed URL for an object",
	Long: `Produce a time-limited signed URL for an object, using the
profile's signing secret. The signature covers the path and any query
parameters, so renditions selected by query survive signing.

Examples:
  edgestow-cli sign /private/report.pdf
  edgestow-cli sign --validity 24h "/images/hero.jpg?w=800"`,
	Args: cobra.ExactArgs(1),
	RunE: runSign,
}

func init() {
	signCmd.Flags().DurationVar(&signValidity, "validity", 15*time.Minute, "how long the URL stays valid")
}

func runSign(_ *cobra.Command, args []string) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	signedURL, err := client.SignURL(args[0], signValidity)
	if err != nil {
		return handleError(os.Stderr, err)
	}

	formatter := getFormatter()
	return formatter.FormatSignedURL(os.Stdout, signedURL)
}
