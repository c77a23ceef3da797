package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// apiError is the service's error body. Multi-step responses also carry the pending
// token and the data needed for the next step.
type apiError struct {
	Status                     int               `json:"-"`
	Code                       string            `json:"code"`
	Message                    string            `json:"message"`
	OAuthError                 string            `json:"error"`
	ErrorDescription           string            `json:"error_description"`
	PendingAuthenticationToken string            `json:"pending_authentication_token"`
	User                       *apiUser          `json:"user"`
	Organizations              []apiOrganization `json:"organizations"`
}

func (e *apiError) Error() string {
	code := e.Code
	if code == "" {
		code = e.OAuthError
	}
	msg := e.Message
	if msg == "" {
		msg = e.ErrorDescription
	}
	return fmt.Sprintf("hosted api %d %s: %s", e.Status, code, msg)
}

// leveledLogger routes retry diagnostics into zerolog.
type leveledLogger struct {
	logger zerolog.Logger
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Trace().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn().Fields(keysAndValues).Msg(msg)
}

func newAPIClient() *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.RetryMax = 3
	c.RetryWaitMin = 200 * time.Millisecond
	c.RetryWaitMax = 2 * time.Second
	c.HTTPClient.Timeout = 10 * time.Second
	c.Logger = leveledLogger{logger: log.With().Str("component", "remote-auth").Logger()}
	c.ErrorHandler = retryablehttp.PassthroughErrorHandler
	c.CheckRetry = idempotentRetryPolicy
	return c
}

type noRetryKey struct{}

// idempotentRetryPolicy retries like the default policy, except for requests marked
// as unsafe to repeat.
func idempotentRetryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Value(noRetryKey{}) != nil {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

func idempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete, http.MethodOptions:
		return true
	}
	return false
}

// do sends a JSON request and decodes a 2xx body into out. Non-2xx responses become
// *apiError; transport failures are returned as they are. Only idempotent methods
// are retried.
func (p *Provider) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if !idempotent(method) {
		ctx = context.WithValue(ctx, noRetryKey{}, true)
	}
	target := p.cfg.APIURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		payload = bytes.NewReader(raw)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, target, payload)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &apiError{Status: resp.StatusCode}
		if len(raw) > 0 && json.Unmarshal(raw, apiErr) != nil {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	return errors.Wrap(json.Unmarshal(raw, out), "decode response")
}
