package origin

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/sagarc03/edgestow"
)

// UploadInput describes one object to write through to the origin.
type UploadInput struct {
	Key          string
	ContentType  string
	CacheControl string
	Body         io.Reader
}

// UploadResult reports where the uploaded object landed.
type UploadResult struct {
	Key      string `json:"key"`
	ETag     string `json:"etag,omitempty"`
	Location string `json:"location,omitempty"`
}

// Upload writes an object to the origin, splitting large bodies into
// multipart uploads automatically.
func (c *Client) Upload(ctx context.Context, in UploadInput) (*UploadResult, error) {
	if in.Key == "" {
		return nil, fmt.Errorf("upload: key is required: %w", edgestow.ErrInvalidInput)
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(in.Key),
		Body:   in.Body,
	}
	if in.ContentType != "" {
		input.ContentType = aws.String(in.ContentType)
	}
	if in.CacheControl != "" {
		input.CacheControl = aws.String(in.CacheControl)
	}

	out, err := c.uploader.Upload(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w: %w", in.Key, edgestow.ErrUpstream, err)
	}

	result := &UploadResult{Key: in.Key, Location: out.Location}
	if out.ETag != nil {
		result.ETag = *out.ETag
	}
	return result, nil
}

// Delete removes one object. Deleting an absent key is not an error; the
// origin treats it as already gone.
func (c *Client) Delete(ctx context.Context, key string) error {
	_, err := c.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w: %w", key, edgestow.ErrUpstream, err)
	}
	return nil
}

// BatchDelete removes up to 1000 objects in one origin round trip and
// returns the keys confirmed deleted.
func (c *Client) BatchDelete(ctx context.Context, keys []string) ([]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	identifiers := make([]types.ObjectIdentifier, 0, len(keys))
	for _, key := range keys {
		identifiers = append(identifiers, types.ObjectIdentifier{Key: aws.String(key)})
	}

	out, err := c.api.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(c.bucket),
		Delete: &types.Delete{Objects: identifiers},
	})
	if err != nil {
		return nil, fmt.Errorf("batch delete: %w: %w", edgestow.ErrUpstream, err)
	}

	deleted := make([]string, 0, len(out.Deleted))
	for _, d := range out.Deleted {
		if d.Key != nil {
			deleted = append(deleted, *d.Key)
		}
	}
	if len(out.Errors) > 0 {
		first := out.Errors[0]
		return deleted, fmt.Errorf("batch delete: %d of %d keys failed, first: %s %s: %w",
			len(out.Errors), len(keys), aws.ToString(first.Key), aws.ToString(first.Message),
			edgestow.ErrUpstream)
	}
	return deleted, nil
}
