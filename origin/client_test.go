package origin

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/edgestow"
)

// fakeAPI scripts SDK responses. testify mocks do not sit well with the
// SDK's variadic option parameters, so this is a plain hand fake.
type fakeAPI struct {
	getOut  *s3.GetObjectOutput
	getErr  error
	getIn   *s3.GetObjectInput
	headOut *s3.HeadObjectOutput
	headErr error
	listOut *s3.ListObjectsV2Output
	listErr error
	listIn  *s3.ListObjectsV2Input
	delErr  error
	bdelOut *s3.DeleteObjectsOutput
	bdelErr error
}

func (f *fakeAPI) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.getIn = in
	return f.getOut, f.getErr
}

func (f *fakeAPI) HeadObject(_ context.Context, _ *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	return f.headOut, f.headErr
}

func (f *fakeAPI) DeleteObject(_ context.Context, _ *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	return &s3.DeleteObjectOutput{}, f.delErr
}

func (f *fakeAPI) DeleteObjects(_ context.Context, _ *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	return f.bdelOut, f.bdelErr
}

func (f *fakeAPI) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.listIn = in
	return f.listOut, f.listErr
}

type fakeUploader struct {
	in  *s3.PutObjectInput
	out *manager.UploadOutput
	err error
}

func (f *fakeUploader) Upload(_ context.Context, in *s3.PutObjectInput, _ ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	f.in = in
	return f.out, f.err
}

func newTestClient(api *fakeAPI, up *fakeUploader) *Client {
	return newClientWithAPI(api, up, "assets")
}

func responseError(status int) error {
	return &awshttp.ResponseError{
		ResponseError: &smithyhttp.ResponseError{
			Response: &smithyhttp.Response{Response: &http.Response{StatusCode: status}},
			Err:      errors.New("origin said no"),
		},
	}
}

func TestFetchGet(t *testing.T) {
	modified := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	api := &fakeAPI{
		getOut: &s3.GetObjectOutput{
			Body:          io.NopCloser(strings.NewReader("png bytes")),
			ContentType:   aws.String("image/png"),
			ContentLength: aws.Int64(9),
			ETag:          aws.String(`"abc"`),
			CacheControl:  aws.String("max-age=600"),
			LastModified:  aws.Time(modified),
		},
	}
	client := newTestClient(api, nil)

	res, err := client.Fetch(context.Background(), edgestow.FetchRequest{Method: "GET", Key: "img/a.png"})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, []byte("png bytes"), res.Body)
	assert.Equal(t, "image/png", res.Headers["Content-Type"])
	assert.Equal(t, `"abc"`, res.Headers["ETag"])
	assert.Equal(t, "9", res.Headers["Content-Length"])
	assert.Equal(t, "max-age=600", res.Headers["Cache-Control"])
	assert.Equal(t, "Sun, 01 Mar 2026 00:00:00 GMT", res.Headers["Last-Modified"])
	assert.Equal(t, "bytes", res.Headers["Accept-Ranges"])

	require.NotNil(t, api.getIn)
	assert.Equal(t, "assets", *api.getIn.Bucket)
	assert.Equal(t, "img/a.png", *api.getIn.Key)
	assert.Nil(t, api.getIn.Range)
}

func TestFetchGetRange(t *testing.T) {
	api := &fakeAPI{
		getOut: &s3.GetObjectOutput{
			Body:          io.NopCloser(strings.NewReader("chunk")),
			ContentRange:  aws.String("bytes 0-4/4096"),
			ContentLength: aws.Int64(5),
		},
	}
	client := newTestClient(api, nil)

	res, err := client.Fetch(context.Background(), edgestow.FetchRequest{
		Method: "GET",
		Key:    "video.mp4",
		Range:  "bytes=0-4",
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusPartialContent, res.Status)
	assert.Equal(t, "bytes 0-4/4096", res.Headers["Content-Range"])
	require.NotNil(t, api.getIn.Range)
	assert.Equal(t, "bytes=0-4", *api.getIn.Range)
}

func TestFetchHead(t *testing.T) {
	api := &fakeAPI{
		headOut: &s3.HeadObjectOutput{
			ContentType:   aws.String("application/pdf"),
			ContentLength: aws.Int64(1024),
			ETag:          aws.String(`"pdf1"`),
		},
	}
	client := newTestClient(api, nil)

	res, err := client.Fetch(context.Background(), edgestow.FetchRequest{Method: "HEAD", Key: "report.pdf"})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Empty(t, res.Body)
	assert.Equal(t, "application/pdf", res.Headers["Content-Type"])
	assert.Equal(t, "1024", res.Headers["Content-Length"])
}

func TestFetchOriginErrorsBecomeResults(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "response error keeps its status", err: responseError(503), wantStatus: 503},
		{name: "not found", err: responseError(404), wantStatus: 404},
		{
			name:       "api error without response maps by code",
			err:        &smithy.GenericAPIError{Code: "NoSuchKey", Message: "no such key"},
			wantStatus: 404,
		},
		{
			name:       "access denied code",
			err:        &smithy.GenericAPIError{Code: "AccessDenied", Message: "denied"},
			wantStatus: 403,
		},
		{
			name:       "unknown api code degrades to bad gateway",
			err:        &smithy.GenericAPIError{Code: "TeapotOverflow", Message: "???"},
			wantStatus: 502,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(&fakeAPI{getErr: tt.err}, nil)

			res, err := client.Fetch(context.Background(), edgestow.FetchRequest{Method: "GET", Key: "k"})

			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, res.Status)
		})
	}
}

func TestFetchTransportErrorStaysError(t *testing.T) {
	client := newTestClient(&fakeAPI{getErr: errors.New("dial tcp: connection refused")}, nil)

	res, err := client.Fetch(context.Background(), edgestow.FetchRequest{Method: "GET", Key: "k"})

	assert.Nil(t, res)
	assert.ErrorContains(t, err, "connection refused")
}

func TestFetchUnsupportedMethod(t *testing.T) {
	client := newTestClient(&fakeAPI{}, nil)

	_, err := client.Fetch(context.Background(), edgestow.FetchRequest{Method: "POST", Key: "k"})
	assert.ErrorIs(t, err, edgestow.ErrInvalidInput)
}

func TestList(t *testing.T) {
	modified := time.Date(2026, time.February, 10, 8, 0, 0, 0, time.UTC)
	api := &fakeAPI{
		listOut: &s3.ListObjectsV2Output{
			Contents: []s3types.Object{
				{Key: aws.String("images/2024/a.png"), Size: aws.Int64(100), ETag: aws.String(`"e1"`), LastModified: aws.Time(modified)},
				{Key: aws.String("images/2024/b.png"), Size: aws.Int64(200)},
			},
			CommonPrefixes:        []s3types.CommonPrefix{{Prefix: aws.String("images/2024/thumbs/")}},
			IsTruncated:           aws.Bool(true),
			NextContinuationToken: aws.String("token-2"),
		},
	}
	client := newTestClient(api, nil)

	listing, err := client.List(context.Background(), ListQuery{
		Prefix:    "images/2024",
		Delimiter: "/",
		MaxKeys:   2,
	})

	require.NoError(t, err)
	require.Len(t, listing.Objects, 2)
	assert.Equal(t, "images/2024/a.png", listing.Objects[0].Key)
	assert.Equal(t, int64(100), listing.Objects[0].Size)
	assert.Equal(t, `"e1"`, listing.Objects[0].ETag)
	assert.Equal(t, modified, listing.Objects[0].LastModified)
	assert.Equal(t, []string{"images/2024/thumbs/"}, listing.Prefixes)
	assert.True(t, listing.Truncated)
	assert.Equal(t, "token-2", listing.NextToken)

	require.NotNil(t, api.listIn)
	assert.Equal(t, "images/2024", *api.listIn.Prefix)
	assert.Equal(t, int32(2), *api.listIn.MaxKeys)
}

func TestListErrorIsUpstream(t *testing.T) {
	client := newTestClient(&fakeAPI{listErr: errors.New("dial tcp: connection refused")}, nil)

	_, err := client.List(context.Background(), ListQuery{Prefix: "images/"})
	assert.ErrorIs(t, err, edgestow.ErrUpstream)
}

func TestUpload(t *testing.T) {
	up := &fakeUploader{out: &manager.UploadOutput{
		Location: "https://assets.example.com/docs/new.pdf",
		ETag:     aws.String(`"up1"`),
	}}
	client := newTestClient(&fakeAPI{}, up)

	res, err := client.Upload(context.Background(), UploadInput{
		Key:          "docs/new.pdf",
		ContentType:  "application/pdf",
		CacheControl: "max-age=3600",
		Body:         strings.NewReader("%PDF"),
	})

	require.NoError(t, err)
	assert.Equal(t, `"up1"`, res.ETag)
	assert.Equal(t, "docs/new.pdf", res.Key)

	require.NotNil(t, up.in)
	assert.Equal(t, "application/pdf", *up.in.ContentType)
	assert.Equal(t, "max-age=3600", *up.in.CacheControl)

	_, err = client.Upload(context.Background(), UploadInput{Body: strings.NewReader("x")})
	assert.ErrorContains(t, err, "key is required")
	assert.ErrorIs(t, err, edgestow.ErrInvalidInput)
}

func TestBatchDelete(t *testing.T) {
	t.Run("all deleted", func(t *testing.T) {
		api := &fakeAPI{bdelOut: &s3.DeleteObjectsOutput{
			Deleted: []s3types.DeletedObject{
				{Key: aws.String("a")},
				{Key: aws.String("b")},
			},
		}}
		client := newTestClient(api, nil)

		deleted, err := client.BatchDelete(context.Background(), []string{"a", "b"})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, deleted)
	})

	t.Run("partial failure reported", func(t *testing.T) {
		api := &fakeAPI{bdelOut: &s3.DeleteObjectsOutput{
			Deleted: []s3types.DeletedObject{{Key: aws.String("a")}},
			Errors: []s3types.Error{
				{Key: aws.String("b"), Message: aws.String("access denied")},
			},
		}}
		client := newTestClient(api, nil)

		deleted, err := client.BatchDelete(context.Background(), []string{"a", "b"})
		assert.Equal(t, []string{"a"}, deleted)
		assert.ErrorContains(t, err, "1 of 2 keys failed")
		assert.ErrorIs(t, err, edgestow.ErrUpstream)
	})

	t.Run("empty input is a no-op", func(t *testing.T) {
		client := newTestClient(&fakeAPI{}, nil)
		deleted, err := client.BatchDelete(context.Background(), nil)
		assert.NoError(t, err)
		assert.Nil(t, deleted)
	})
}
