package clientcli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Formatter formats results for output.
type Formatter interface {
	FormatFetch(w io.Writer, result *FetchResult) error
	FormatList(w io.Writer, result *ListResult) error
	FormatUpload(w io.Writer, results []UploadResult) error
	FormatPurge(w io.Writer, result *PurgeResult) error
	FormatWarm(w io.Writer, statuses []WarmStatus) error
	FormatDelete(w io.Writer, result *DeleteResult) error
	FormatSignedURL(w io.Writer, signedURL string) error
	FormatError(w io.Writer, err error) error
	FormatProfileList(w io.Writer, profiles []Profile, defaultName string, showSecrets bool) error
	FormatProfileShow(w io.Writer, profile Profile, isDefault, showSecrets bool) error
}

// NewFormatter returns the appropriate formatter based on flags.
func NewFormatter(jsonOutput, quiet bool) Formatter {
	if jsonOutput {
		return &JSONFormatter{}
	}
	return &HumanFormatter{Quiet: quiet}
}

// HumanFormatter outputs human-readable text.
type HumanFormatter struct {
	Quiet bool
}

// FormatFetch formats a fetch result as human-readable text.
func (f *HumanFormatter) FormatFetch(w io.Writer, result *FetchResult) error {
	if !f.Quiet {
		if result.LocalPath == "-" {
			_, _ = fmt.Fprintf(w, "Fetched: %s (%s)\n", result.RemotePath, formatSize(result.Size))
		} else {
			_, _ = fmt.Fprintf(w, "Fetched: %s -> %s (%s)\n", result.RemotePath, result.LocalPath, formatSize(result.Size))
		}
		_, _ = fmt.Fprintf(w, "  ETag: %s\n", result.ETag)
		if result.CacheStatus != "" {
			_, _ = fmt.Fprintf(w, "  Cache: %s\n", result.CacheStatus)
		}
	}
	return nil
}

// FormatList formats list results as human-readable text.
func (f *HumanFormatter) FormatList(w io.Writer, result *ListResult) error {
	if len(result.Objects) == 0 && len(result.Prefixes) == 0 {
		_, _ = fmt.Fprintln(w, "No objects found")
		return nil
	}

	// Calculate column widths
	maxKeyLen := 3 // "KEY"
	for i := range result.Objects {
		if len(result.Objects[i].Key) > maxKeyLen {
			maxKeyLen = len(result.Objects[i].Key)
		}
	}
	if maxKeyLen > 60 {
		maxKeyLen = 60
	}

	// Print prefixes first, the way a directory listing would
	for _, p := range result.Prefixes {
		_, _ = fmt.Fprintf(w, "%s\n", p)
	}

	if len(result.Objects) > 0 {
		// Print header
		_, _ = fmt.Fprintf(w, "%-*s  %10s  %s\n", maxKeyLen, "KEY", "SIZE", "MODIFIED")
		_, _ = fmt.Fprintf(w, "%s  %s  %s\n", strings.Repeat("-", maxKeyLen), strings.Repeat("-", 10), strings.Repeat("-", 19))

		// Print objects
		for i := range result.Objects {
			o := &result.Objects[i]
			key := o.Key
			if len(key) > maxKeyLen {
				key = key[:maxKeyLen-3] + "..."
			}
			_, _ = fmt.Fprintf(w, "%-*s  %10s  %s\n",
				maxKeyLen,
				key,
				formatSize(o.Size),
				o.LastModified.Format("2006-01-02 15:04:05"),
			)
		}
	}

	// Print summary
	_, _ = fmt.Fprintf(w, "\n%d object(s) (%s total)\n", len(result.Objects), formatSize(result.TotalSize()))

	if result.NextToken != "" {
		_, _ = fmt.Fprintf(w, "Next page: use --token %q\n", result.NextToken)
	}

	return nil
}

// FormatUpload formats upload results as human-readable text.
func (f *HumanFormatter) FormatUpload(w io.Writer, results []UploadResult) error {
	for i := range results {
		r := &results[i]
		if r.Err != nil {
			_, _ = fmt.Fprintf(w, "Error: %s - %v\n", r.LocalPath, r.Err)
			continue
		}
		if !f.Quiet {
			_, _ = fmt.Fprintf(w, "Uploaded: %s (%s)\n", r.RemotePath, formatSize(r.Size))
			_, _ = fmt.Fprintf(w, "  ETag: %s\n", r.ETag)
		}
	}
	return nil
}

// FormatPurge formats a purge result as human-readable text.
func (f *HumanFormatter) FormatPurge(w io.Writer, result *PurgeResult) error {
	if !f.Quiet {
		for _, key := range result.Purged {
			_, _ = fmt.Fprintf(w, "Purged: %s\n", key)
		}
	}
	for key, reason := range result.Failed {
		_, _ = fmt.Fprintf(w, "Error: %s - %s\n", key, reason)
	}
	if !f.Quiet {
		_, _ = fmt.Fprintf(w, "\n%d purged, %d failed\n", len(result.Purged), len(result.Failed))
	}
	return nil
}

// FormatWarm formats warm statuses as human-readable text.
func (f *HumanFormatter) FormatWarm(w io.Writer, statuses []WarmStatus) error {
	for i := range statuses {
		s := &statuses[i]
		if s.Error != "" {
			_, _ = fmt.Fprintf(w, "Error: %s - %s\n", s.URL, s.Error)
			continue
		}
		if !f.Quiet {
			_, _ = fmt.Fprintf(w, "Warmed: %s (key %s)\n", s.URL, s.Key)
		}
	}
	return nil
}

// FormatDelete formats a delete result as human-readable text.
func (f *HumanFormatter) FormatDelete(w io.Writer, result *DeleteResult) error {
	if !f.Quiet {
		for _, key := range result.Deleted {
			_, _ = fmt.Fprintf(w, "Deleted: %s\n", key)
		}
		_, _ = fmt.Fprintf(w, "\n%d object(s) deleted\n", len(result.Deleted))
	}
	return nil
}

// FormatSignedURL prints a signed URL. The URL is the output, so quiet
// mode does not suppress it.
func (f *HumanFormatter) FormatSignedURL(w io.Writer, signedURL string) error {
	_, _ = fmt.Fprintln(w, signedURL)
	return nil
}

// FormatError formats an error as human-readable text.
func (f *HumanFormatter) FormatError(w io.Writer, err error) error {
	_, _ = fmt.Fprintf(w, "Error: %v\n", err)
	return nil
}

// JSONFormatter outputs JSON.
type JSONFormatter struct{}

// FormatFetch formats a fetch result as JSON.
func (f *JSONFormatter) FormatFetch(w io.Writer, result *FetchResult) error {
	return writeJSON(w, result)
}

// FormatList formats list results as JSON.
func (f *JSONFormatter) FormatList(w io.Writer, result *ListResult) error {
	return writeJSON(w, result)
}

// FormatUpload formats upload results as JSON.
func (f *JSONFormatter) FormatUpload(w io.Writer, results []UploadResult) error {
	// Convert errors to strings for JSON output
	type jsonResult struct {
		LocalPath  string `json:"local_path"`
		RemotePath string `json:"remote_path"`
		ETag       string `json:"etag,omitempty"`
		Location   string `json:"location,omitempty"`
		Size       int64  `json:"size_bytes,omitempty"`
		Error      string `json:"error,omitempty"`
	}

	output := make([]jsonResult, len(results))
	for i := range results {
		r := &results[i]
		jr := jsonResult{
			LocalPath:  r.LocalPath,
			RemotePath: r.RemotePath,
		}
		if r.Err != nil {
			jr.Error = r.Err.Error()
		} else {
			jr.ETag = r.ETag
			jr.Location = r.Location
			jr.Size = r.Size
		}
		output[i] = jr
	}

	return writeJSON(w, output)
}

// FormatPurge formats a purge result as JSON.
func (f *JSONFormatter) FormatPurge(w io.Writer, result *PurgeResult) error {
	return writeJSON(w, result)
}

// FormatWarm formats warm statuses as JSON.
func (f *JSONFormatter) FormatWarm(w io.Writer, statuses []WarmStatus) error {
	output := struct {
		Results []WarmStatus `json:"results"`
	}{Results: statuses}
	return writeJSON(w, output)
}

// FormatDelete formats a delete result as JSON.
func (f *JSONFormatter) FormatDelete(w io.Writer, result *DeleteResult) error {
	return writeJSON(w, result)
}

// FormatSignedURL formats a signed URL as JSON.
func (f *JSONFormatter) FormatSignedURL(w io.Writer, signedURL string) error {
	output := struct {
		URL string `json:"url"`
	}{URL: signedURL}
	return writeJSON(w, output)
}

// FormatError formats an error as JSON.
func (f *JSONFormatter) FormatError(w io.Writer, err error) error {
	output := struct {
		Error string `json:"error"`
	}{
		Error: err.Error(),
	}
	return writeJSON(w, output)
}

// writeJSON writes a value as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatSize formats bytes as human-readable size.
func formatSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
		TB = GB * 1024
	)

	switch {
	case bytes >= TB:
		return fmt.Sprintf("%.1f TB", float64(bytes)/TB)
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// FormatProfileList formats a list of profiles as human-readable text.
func (f *HumanFormatter) FormatProfileList(w io.Writer, profiles []Profile, defaultName string, showSecrets bool) error {
	// Calculate column widths
	maxNameLen := 4     // "NAME"
	maxEndpointLen := 8 // "ENDPOINT"
	for i := range profiles {
		if len(profiles[i].Name) > maxNameLen {
			maxNameLen = len(profiles[i].Name)
		}
		if len(profiles[i].Endpoint) > maxEndpointLen {
			maxEndpointLen = len(profiles[i].Endpoint)
		}
	}
	if maxNameLen > 20 {
		maxNameLen = 20
	}
	if maxEndpointLen > 50 {
		maxEndpointLen = 50
	}

	// Print header
	_, _ = fmt.Fprintf(w, "  %-*s  %-*s  %s\n", maxNameLen, "NAME", maxEndpointLen, "ENDPOINT", "SECRET")
	_, _ = fmt.Fprintf(w, "  %s  %s  %s\n", strings.Repeat("-", maxNameLen), strings.Repeat("-", maxEndpointLen), strings.Repeat("-", 20))

	// Print profiles
	for i := range profiles {
		p := &profiles[i]
		marker := " "
		if p.Name == defaultName {
			marker = "*"
		}

		name := p.Name
		if len(name) > maxNameLen {
			name = name[:maxNameLen-3] + "..."
		}

		endpoint := p.Endpoint
		if len(endpoint) > maxEndpointLen {
			endpoint = endpoint[:maxEndpointLen-3] + "..."
		}

		secret := maskSecret(p.Secret, showSecrets)

		_, _ = fmt.Fprintf(w, "%s %-*s  %-*s  %s\n", marker, maxNameLen, name, maxEndpointLen, endpoint, secret)
	}

	return nil
}

// FormatProfileShow formats a single profile as human-readable text.
func (f *HumanFormatter) FormatProfileShow(w io.Writer, profile Profile, isDefault, showSecrets bool) error {
	_, _ = fmt.Fprintf(w, "Name:        %s", profile.Name)
	if isDefault {
		_, _ = fmt.Fprintf(w, " (default)")
	}
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintf(w, "Endpoint:    %s\n", profile.Endpoint)
	_, _ = fmt.Fprintf(w, "Secret:      %s\n", maskSecret(profile.Secret, showSecrets))
	_, _ = fmt.Fprintf(w, "Admin Token: %s\n", maskSecret(profile.AdminToken, showSecrets))
	return nil
}

// FormatProfileList formats a list of profiles as JSON.
func (f *JSONFormatter) FormatProfileList(w io.Writer, profiles []Profile, defaultName string, showSecrets bool) error {
	type jsonProfile struct {
		Name       string `json:"name"`
		Endpoint   string `json:"endpoint"`
		Secret     string `json:"secret,omitempty"`
		AdminToken string `json:"admin_token,omitempty"`
		Default    bool   `json:"default,omitempty"`
	}

	output := struct {
		Profiles []jsonProfile `json:"profiles"`
	}{
		Profiles: make([]jsonProfile, len(profiles)),
	}

	for i := range profiles {
		p := &profiles[i]
		jp := jsonProfile{
			Name:     p.Name,
			Endpoint: p.Endpoint,
			Default:  p.Name == defaultName,
		}
		if showSecrets {
			jp.Secret = p.Secret
			jp.AdminToken = p.AdminToken
		} else {
			jp.Secret = maskSecret(p.Secret, false)
			jp.AdminToken = maskSecret(p.AdminToken, false)
		}
		output.Profiles[i] = jp
	}

	return writeJSON(w, output)
}

// FormatProfileShow formats a single profile as JSON.
func (f *JSONFormatter) FormatProfileShow(w io.Writer, profile Profile, isDefault, showSecrets bool) error {
	output := struct {
		Name       string `json:"name"`
		Endpoint   string `json:"endpoint"`
		Secret     string `json:"secret"`
		AdminToken string `json:"admin_token"`
		Default    bool   `json:"default"`
	}{
		Name:     profile.Name,
		Endpoint: profile.Endpoint,
		Default:  isDefault,
	}

	if showSecrets {
		output.Secret = profile.Secret
		output.AdminToken = profile.AdminToken
	} else {
		output.Secret = maskSecret(profile.Secret, false)
		output.AdminToken = maskSecret(profile.AdminToken, false)
	}

	return writeJSON(w, output)
}

// maskSecret masks a secret string, showing only first 4 and last 4 characters.
// If showSecrets is true, returns the original value.
// If the secret is too short, returns all asterisks.
func maskSecret(secret string, showSecrets bool) string {
	if showSecrets {
		return secret
	}
	if secret == "" {
		return "(not set)"
	}
	if len(secret) <= 8 {
		return "********"
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}
