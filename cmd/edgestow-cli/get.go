package main

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sagarc03/edgestow/clientcli"
)

var (
	getOutput string
	getStdout bool
)

var getCmd = &cobra.Command{
	Use:   "get <remote-path> [local-path]",
	Short: "Download an object through the proxy",
	Long: `Download an object through the proxy.

When the profile carries a signing secret the request URL is signed
automatically. With cache debugging enabled on the proxy, the result
reports whether the cache or the origin served the object.

Examples:
  edgestow-cli get images/hero.jpg
  edgestow-cli get images/hero.jpg ./hero.jpg
  edgestow-cli get --stdout config/app.json | jq .
  edgestow-cli get -o ./report.pdf private/report.pdf`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runGet,
}

func init() {
	getCmd.Flags().StringVarP(&getOutput, "output", "o", "", "output file path")
	getCmd.Flags().BoolVar(&getStdout, "stdout", false, "write to stdout")
}

func runGet(_ *cobra.Command, args []string) error {
	remotePath := args[0]

	// Determine local path
	localPath := ""
	if len(args) > 1 {
		localPath = args[1]
	}
	if getOutput != "" {
		localPath = getOutput
	}
	if getStdout {
		localPath = "-"
	}

	// If no local path specified, derive from remote
	if localPath == "" {
		localPath = filepath.Base(remotePath)
	}

	client, err := getClient()
	if err != nil {
		return err
	}

	opts := clientcli.FetchOptions{
		RemotePath: remotePath,
		LocalPath:  localPath,
	}

	result, reader, err := client.Fetch(context.Background(), opts)
	if err != nil {
		return handleError(os.Stderr, err)
	}

	// If stdout, write content to stdout
	if reader != nil {
		defer func() { _ = reader.Close() }()
		_, err := io.Copy(os.Stdout, reader)
		if err != nil {
			return err
		}
		// Don't print metadata when writing to stdout (unless JSON mode)
		if jsonOutput {
			formatter := getFormatter()
			return formatter.FormatFetch(os.Stderr, result)
		}
		return nil
	}

	// Otherwise, format the result
	formatter := getFormatter()
	return formatter.FormatFetch(os.Stdout, result)
}
