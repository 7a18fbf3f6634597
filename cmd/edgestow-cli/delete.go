package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <key> [key...]",
	Short: "Delete objects from the origin",
	Long: `Delete one or more objects from the origin bucket through the
proxy's admin API.

Deleting an object does not purge cached copies of it; purge those keys
separately or let their TTL expire.

Examples:
  edgestow-cli delete path/file.txt
  edgestow-cli delete old/a.txt old/b.txt old/c.txt`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDelete,
}

func runDelete(_ *cobra.Command, args []string) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	result, err := client.Delete(context.Background(), args)
	if err != nil {
		return handleError(os.Stderr, err)
	}

	formatter := getFormatter()
	return formatter.FormatDelete(os.Stdout, result)
}
