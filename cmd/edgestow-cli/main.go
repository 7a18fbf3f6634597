package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/edgestow/clientcli"
)

var (
	version = "dev"

	cfgFile    string
	profile    string
	endpoint   string
	secret     string
	adminToken string
	jsonOutput bool
	quiet      bool
)

var rootCmd = &cobra.Command{
	Use:     "edgestow-cli",
	Version: version,
	Short:   "Client for the edgestow caching proxy",
	Long: `Edgestow CLI - client for the edgestow caching proxy

Read commands (get, list, sign) need the signing secret when the proxy
enforces signed URLs. Management commands (upload, delete, purge, warm)
go through the admin API and need the admin token.

Profiles in ~/.edgestow/config.yaml hold per-proxy settings; select one
with --profile or EDGESTOW_PROFILE.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ~/.edgestow/config.yaml, env: EDGESTOW_CONFIG)")
	rootCmd.PersistentFlags().StringVarP(&profile, "profile", "p", "", "profile name (env: EDGESTOW_PROFILE)")
	rootCmd.PersistentFlags().StringVarP(&endpoint, "endpoint", "e", "", "proxy URL (default: http://localhost:5807, env: EDGESTOW_ENDPOINT)")
	rootCmd.PersistentFlags().StringVarP(&secret, "secret", "k", "", "signing secret (env: EDGESTOW_SECRET)")
	rootCmd.PersistentFlags().StringVarP(&adminToken, "admin-token", "t", "", "admin bearer token (env: EDGESTOW_ADMIN_TOKEN)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-essential output")

	rootCmd.AddCommand(configureCmd)
	rootCmd.AddCommand(signCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(purgeCmd)
	rootCmd.AddCommand(warmCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// getConfigPath resolves the config file path: flag > env > default.
func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if envPath := clientcli.ConfigPathFromEnv(); envPath != "" {
		return envPath
	}
	return clientcli.DefaultConfigPath()
}

// buildConfig merges config from the selected profile, env vars, and flags
// (flags take precedence).
func buildConfig() (*clientcli.Config, error) {
	var configs []*clientcli.Config

	// 1. Load from the profile in the config file
	configPath := getConfigPath()
	if configPath != "" {
		fileCfg, err := clientcli.LoadConfigFile(configPath)
		if err != nil {
			// Only error when the user explicitly pointed at a file.
			if cfgFile != "" {
				return nil, err
			}
		} else {
			profileName := profile
			if profileName == "" {
				profileName = clientcli.ProfileFromEnv()
			}
			p, profErr := fileCfg.GetProfile(profileName)
			if profErr != nil {
				// A named profile that does not exist is an error; having no
				// profiles at all just means flags and env must carry it.
				if profileName != "" {
					return nil, profErr
				}
			} else {
				configs = append(configs, clientcli.ConfigFromProfile(p))
			}
		}
	}

	// 2. Load from environment variables
	configs = append(configs, clientcli.ConfigFromEnv())

	// 3. Load from flags
	configs = append(configs, &clientcli.Config{
		Endpoint:   endpoint,
		Secret:     secret,
		AdminToken: adminToken,
	})

	return clientcli.MergeConfig(configs...), nil
}

// getFormatter returns the appropriate formatter based on flags.
func getFormatter() clientcli.Formatter {
	return clientcli.NewFormatter(jsonOutput, quiet)
}

// getClient creates and returns a configured client.
func getClient() (*clientcli.Client, error) {
	cfg, err := buildConfig()
	if err != nil {
		return nil, err
	}

	return clientcli.New(cfg)
}

// handleError writes the error through the formatter and passes it back to
// cobra for the exit status.
func handleError(w io.Writer, err error) error {
	formatter := getFormatter()
	_ = formatter.FormatError(w, err)
	return err
}

// exitError is returned when we want to exit with a non-zero code but have
// already printed per-entry failures.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return ""
}

var errPartialFailure = &exitError{code: 1}
