// Package clientcli provides a client library for interacting with edgestow proxies.
//
// It supports fetch, list, upload, purge, warm, and delete operations. Reads are
// authenticated with the proxy's signed-URL scheme; the admin operations use the
// proxy's bearer token. The package includes profile-based configuration for
// managing connections to multiple proxies.
//
// # Basic Usage
//
// Create a client and fetch an object:
//
//	cfg := &clientcli.Config{
//		Endpoint: "http://localhost:5807",
//		Secret:   "your-signing-secret",
//	}
//
//	client, err := clientcli.New(cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, _, err := client.Fetch(ctx, clientcli.FetchOptions{
//		RemotePath: "documents/file.txt",
//		LocalPath:  "./file.txt",
//	})
//
// # Signed URLs
//
// Produce a shareable URL without performing a request:
//
//	signedURL, err := client.SignURL("documents/file.txt", 15*time.Minute)
//
// # Profile Configuration
//
// Use profiles to manage multiple proxy configurations:
//
//	configFile, err := clientcli.LoadConfigFile("~/.edgestow/config.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	profile, err := configFile.GetProfile("production")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	cfg := clientcli.ConfigFromProfile(profile)
//	client, err := clientcli.New(cfg)
//
// # Output Formatting
//
// Use formatters for human-readable or JSON output:
//
//	formatter := clientcli.NewFormatter(jsonOutput, quiet)
//	formatter.FormatList(os.Stdout, result)
package clientcli
