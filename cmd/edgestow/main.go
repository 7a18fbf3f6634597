package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/edgestow/config"
)

var version = "dev"

var configFiles []string

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "edgestow",
	Short:   "Edge caching proxy for S3-compatible object stores",
	Long: `Edgestow is an edge caching reverse proxy that fronts an
S3-compatible object store, adding signed-URL access control and a
two-tier response cache with conditional-request support.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFiles, cmd.Flags())
		if err != nil {
			return err
		}
		setupLogging(cfg.Log)
		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringSliceVarP(&configFiles, "config", "c", nil,
		"config file paths, later files override earlier ones (default: ./config.yaml)")
	rootCmd.PersistentFlags().String("store-type", "",
		"cache store backend: memory, leveldb, sqlite, postgres, dynamodb, tiered (env: EDGESTOW_STORE_TYPE)")
	rootCmd.PersistentFlags().String("store-dsn", "",
		"cache store connection string for sqlite/postgres (env: EDGESTOW_STORE_DSN)")
	rootCmd.PersistentFlags().String("store-path", "",
		"cache store directory for leveldb/tiered (env: EDGESTOW_STORE_PATH)")
	rootCmd.PersistentFlags().String("origin-endpoint", "",
		"origin S3 endpoint override (env: EDGESTOW_ORIGIN_ENDPOINT)")
	rootCmd.PersistentFlags().String("origin-bucket", "",
		"origin bucket name (env: EDGESTOW_ORIGIN_BUCKET)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
