package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/edgestow/clientcli"
)

var (
	listPrefix    string
	listMaxKeys   int
	listAll       bool
	listToken     string
	listDelimiter string
)

var listCmd = &cobra.Command{
	Use:   "list [prefix]",
	Short: "List objects behind the proxy",
	Long: `List objects in the origin bucket through the proxy.

The prefix goes through the proxy's sanitizer: traversal sequences and
characters outside its allow-set are rejected with a 400.

Examples:
  edgestow-cli list
  edgestow-cli list images/
  edgestow-cli list --prefix documents/ --max-keys 10
  edgestow-cli list --all
  edgestow-cli list --delimiter / images/`,
	Args: cobra.MaximumNArgs(1),
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVar(&listPrefix, "prefix", "", "filter by key prefix")
	listCmd.Flags().IntVarP(&listMaxKeys, "max-keys", "l", 100, "max results per page (max: 1000)")
	listCmd.Flags().BoolVar(&listAll, "all", false, "fetch all pages")
	listCmd.Flags().StringVar(&listToken, "token", "", "pagination continuation token")
	listCmd.Flags().StringVar(&listDelimiter, "delimiter", "", "group keys by delimiter")
}

func runList(_ *cobra.Command, args []string) error {
	// Prefix can come from positional arg or flag
	prefix := listPrefix
	if len(args) > 0 {
		prefix = args[0]
	}

	client, err := getClient()
	if err != nil {
		return err
	}

	opts := clientcli.ListOptions{
		Prefix:    prefix,
		MaxKeys:   listMaxKeys,
		Token:     listToken,
		Delimiter: listDelimiter,
		All:       listAll,
	}

	result, err := client.List(context.Background(), opts)
	if err != nil {
		return handleError(os.Stderr, err)
	}

	formatter := getFormatter()
	return formatter.FormatList(os.Stdout, result)
}
