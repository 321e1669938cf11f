package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	apierrors "github.com/storynest/storynest/client/internal/errors"
)

// Response is the raw outcome of a request that reached the backend.
type Response struct {
	StatusCode int
	Body       []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool { return r.StatusCode >= 200 && r.StatusCode < 300 }

// Doer sends a single request relative to the backend base URL. A nil error
// means a response was received, whatever its status.
type Doer interface {
	Do(ctx context.Context, method, path string, body []byte) (*Response, error)
}

// Transport is the resty-backed Doer used by the SDK. Authorization and debug
// dumps are handled by the round-trippers of the injected http.Client.
type Transport struct {
	r *resty.Client
}

// NewTransport builds a Transport rooted at baseURL. Retries are disabled;
// callers decide how to react to failures.
func NewTransport(baseURL string, httpClient *http.Client, log zerolog.Logger) *Transport {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	r := resty.NewWithClient(httpClient).
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetRetryCount(0).
		SetLogger(restyLogger{log: log})
	return &Transport{r: r}
}

// Do implements Doer.
func (t *Transport) Do(ctx context.Context, method, path string, body []byte) (*Response, error) {
	req := t.r.R().
		SetContext(ctx).
		SetHeader("X-Request-ID", uuid.NewString())
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, err
	}
	return &Response{StatusCode: resp.StatusCode(), Body: resp.Body()}, nil
}

// restyLogger routes resty's internal warnings through zerolog.
type restyLogger struct{ log zerolog.Logger }

func (l restyLogger) Errorf(format string, v ...interface{}) { l.log.Error().Msgf(format, v...) }
func (l restyLogger) Warnf(format string, v ...interface{})  { l.log.Warn().Msgf(format, v...) }
func (l restyLogger) Debugf(format string, v ...interface{}) { l.log.Debug().Msgf(format, v...) }

// call performs one request and classifies failures for op. On success the
// response body is returned unchanged.
func call(ctx context.Context, d Doer, op apierrors.Op, resource, method, path string, body []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp, err := d.Do(ctx, method, path, body)
	if err != nil {
		return nil, apierrors.NewTransportError(op, resource, err)
	}
	if !resp.OK() {
		return nil, apierrors.NewStatusError(op, resource, resp.StatusCode, string(resp.Body))
	}
	return resp.Body, nil
}

func itemPath(resource, id string) string {
	return fmt.Sprintf("/%s/%s", resource, url.PathEscape(id))
}
