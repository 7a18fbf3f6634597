package origin

import (
	"errors"
	"net/http"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/smithy-go"

	"github.com/sagarc03/edgestow"
)

// apiStatusCodes maps S3 error codes to HTTP statuses for the rare case
// where the SDK surfaces an API error without its HTTP response. Codes not
// listed degrade to 502: the origin said something we cannot interpret.
var apiStatusCodes = map[string]int{
	"NoSuchKey":             http.StatusNotFound,
	"NotFound":              http.StatusNotFound,
	"NoSuchBucket":          http.StatusNotFound,
	"AccessDenied":          http.StatusForbidden,
	"InvalidAccessKeyId":    http.StatusForbidden,
	"SignatureDoesNotMatch": http.StatusForbidden,
	"PreconditionFailed":    http.StatusPreconditionFailed,
	"InvalidRange":          http.StatusRequestedRangeNotSatisfiable,
	"RequestTimeout":        http.StatusRequestTimeout,
	"SlowDown":              http.StatusServiceUnavailable,
	"ServiceUnavailable":    http.StatusServiceUnavailable,
	"InternalError":         http.StatusInternalServerError,
}

// resultFromError recovers the origin's HTTP answer from an SDK error. The
// boolean is false for transport-level failures that never produced a
// response; those stay errors so the fetcher treats them as transient.
func resultFromError(err error) (*edgestow.FetchResult, bool) {
	var re *awshttp.ResponseError
	if errors.As(err, &re) {
		return &edgestow.FetchResult{
			Status:  re.HTTPStatusCode(),
			Headers: map[string]string{},
		}, true
	}

	var ae smithy.APIError
	if errors.As(err, &ae) {
		status, ok := apiStatusCodes[ae.ErrorCode()]
		if !ok {
			status = http.StatusBadGateway
		}
		return &edgestow.FetchResult{
			Status:  status,
			Headers: map[string]string{},
		}, true
	}

	return nil, false
}
