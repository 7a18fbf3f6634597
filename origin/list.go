package origin

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/sagarc03/edgestow"
)

// ObjectInfo describes one listed object.
type ObjectInfo struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	ETag         string    `json:"etag,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// ListQuery selects a page of the bucket listing. The prefix must already
// be sanitized by the caller.
type ListQuery struct {
	Prefix    string
	Delimiter string
	Token     string
	MaxKeys   int32
}

// Listing is one page of results plus the token for the next page.
type Listing struct {
	Objects   []ObjectInfo `json:"objects"`
	Prefixes  []string     `json:"prefixes,omitempty"`
	NextToken string       `json:"next_token,omitempty"`
	Truncated bool         `json:"truncated"`
}

// List returns a page of objects under a prefix, using the origin's
// continuation tokens for pagination.
func (c *Client) List(ctx context.Context, q ListQuery) (*Listing, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
	}
	if q.Prefix != "" {
		input.Prefix = aws.String(q.Prefix)
	}
	if q.Delimiter != "" {
		input.Delimiter = aws.String(q.Delimiter)
	}
	if q.Token != "" {
		input.ContinuationToken = aws.String(q.Token)
	}
	if q.MaxKeys > 0 {
		input.MaxKeys = aws.Int32(q.MaxKeys)
	}

	out, err := c.api.ListObjectsV2(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("list %q: %w: %w", q.Prefix, edgestow.ErrUpstream, err)
	}

	listing := &Listing{
		Objects: make([]ObjectInfo, 0, len(out.Contents)),
	}
	for _, obj := range out.Contents {
		info := ObjectInfo{}
		if obj.Key != nil {
			info.Key = *obj.Key
		}
		if obj.Size != nil {
			info.Size = *obj.Size
		}
		if obj.ETag != nil {
			info.ETag = *obj.ETag
		}
		if obj.LastModified != nil {
			info.LastModified = obj.LastModified.UTC()
		}
		listing.Objects = append(listing.Objects, info)
	}
	for _, p := range out.CommonPrefixes {
		if p.Prefix != nil {
			listing.Prefixes = append(listing.Prefixes, *p.Prefix)
		}
	}
	if out.IsTruncated != nil {
		listing.Truncated = *out.IsTruncated
	}
	if out.NextContinuationToken != nil {
		listing.NextToken = *out.NextContinuationToken
	}
	return listing, nil
}
