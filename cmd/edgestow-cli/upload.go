package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/edgestow/clientcli"
)

var (
	uploadRecursive    bool
	uploadContentType  string
	uploadCacheControl string
)

var uploadCmd = &cobra.Command{
	Use:   "upload <local-path> <remote-path>",
	Short: "Upload files to the origin through the proxy",
	Long: `Upload files to the origin bucket through the proxy's admin API.

A Cache-Control value set here is stored on the origin object and drives
the proxy's TTL for it later (unless the proxy overrides origin headers).

Examples:
  edgestow-cli upload ./file.txt path/file.txt
  edgestow-cli upload -r ./images/ media/images/
  edgestow-cli upload --cache-control "max-age=86400" ./logo.svg assets/logo.svg`,
	Args: cobra.ExactArgs(2),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().BoolVarP(&uploadRecursive, "recursive", "r", false, "upload directory recursively")
	uploadCmd.Flags().StringVarP(&uploadContentType, "content-type", "t", "", "override content-type")
	uploadCmd.Flags().StringVar(&uploadCacheControl, "cache-control", "", "Cache-Control header stored on the object")
}

func runUpload(_ *cobra.Command, args []string) error {
	localPath := args[0]
	remotePath := args[1]

	client, err := getClient()
	if err != nil {
		return err
	}

	opts := clientcli.UploadOptions{
		LocalPath:    localPath,
		RemotePath:   remotePath,
		ContentType:  uploadContentType,
		CacheControl: uploadCacheControl,
		Recursive:    uploadRecursive,
	}

	results, err := client.Upload(context.Background(), opts)
	if err != nil {
		return handleError(os.Stderr, err)
	}

	formatter := getFormatter()
	if err := formatter.FormatUpload(os.Stdout, results); err != nil {
		return err
	}

	if clientcli.HasUploadErrors(results) {
		return errPartialFailure
	}

	return nil
}
