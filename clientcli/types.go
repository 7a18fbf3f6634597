package clientcli

import "time"

// FetchOptions configures a fetch operation.
type FetchOptions struct {
	RemotePath string
	LocalPath  string // empty = derive from remote, "-" = stdout
}

// FetchResult represents the result of fetching a single object.
type FetchResult struct {
	RemotePath  string `json:"remote_path"`
	LocalPath   string `json:"local_path"`
	ETag        string `json:"etag"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size_bytes"`
	CacheStatus string `json:"cache_status,omitempty"` // from the proxy's debug header, when enabled
}

// ListOptions configures a list operation.
type ListOptions struct {
	Prefix    string
	MaxKeys   int
	Token     string
	Delimiter string
	All       bool // auto-paginate through all results
}

// ObjectInfo mirrors one listed object in the proxy's response.
type ObjectInfo struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	ETag         string    `json:"etag,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// ListResult contains paginated list results.
type ListResult struct {
	Objects   []ObjectInfo `json:"objects"`
	Prefixes  []string     `json:"prefixes,omitempty"`
	NextToken string       `json:"next_token,omitempty"`
	Truncated bool         `json:"truncated"`
}

// TotalSize calculates the total size of all objects in bytes.
func (r *ListResult) TotalSize() int64 {
	var total int64
	for _, o := range r.Objects {
		total += o.Size
	}
	return total
}

// UploadOptions configures an upload operation.
type UploadOptions struct {
	LocalPath    string
	RemotePath   string
	ContentType  string // optional, auto-detect if empty
	CacheControl string // optional, stored on the origin object
	Recursive    bool
}

// UploadResult represents the result of uploading a single file.
type UploadResult struct {
	LocalPath  string `json:"local_path"`
	RemotePath string `json:"remote_path"`
	ETag       string `json:"etag,omitempty"`
	Location   string `json:"location,omitempty"`
	Size       int64  `json:"size_bytes"`
	Err        error  `json:"-"` // nil on success
}

// PurgeResult mirrors the proxy's purge response: keys dropped from the
// cache, and per-entry failure reasons for the rest.
type PurgeResult struct {
	Purged []string          `json:"purged"`
	Failed map[string]string `json:"failed,omitempty"`
}

// WarmStatus is the outcome of warming one URL.
type WarmStatus struct {
	URL    string `json:"url"`
	Key    string `json:"key,omitempty"`
	Status int    `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}

// DeleteResult mirrors the proxy's delete response.
type DeleteResult struct {
	Deleted []string `json:"deleted"`
}

// uploadResponse mirrors the JSON the proxy returns for an upload.
type uploadResponse struct {
	Key      string `json:"key"`
	ETag     string `json:"etag,omitempty"`
	Location string `json:"location,omitempty"`
}

// warmResponse mirrors the envelope around per-URL warm outcomes.
type warmResponse struct {
	Results []WarmStatus `json:"results"`
}
