package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
)

const turnstileVerifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

// ChallengeVerifier checks a solved human-verification challenge.
type ChallengeVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) error
}

type TurnstileVerifier struct {
	secret   string
	endpoint string
	client   *retryablehttp.Client
}

type TurnstileOption func(*TurnstileVerifier)

func WithTurnstileEndpoint(endpoint string) TurnstileOption {
	return func(v *TurnstileVerifier) {
		v.endpoint = endpoint
	}
}

func NewTurnstileVerifier(secret string, opts ...TurnstileOption) (*TurnstileVerifier, error) {
	if secret == "" {
		return nil, errors.New("[server.NewTurnstileVerifier] secret is required")
	}
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.RetryWaitMin = 100 * time.Millisecond
	client.RetryWaitMax = time.Second
	client.HTTPClient.Timeout = 5 * time.Second
	client.Logger = nil

	v := &TurnstileVerifier{secret: secret, endpoint: turnstileVerifyURL, client: client}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

func (v *TurnstileVerifier) Verify(ctx context.Context, token, remoteIP string) error {
	form := url.Values{"secret": {v.secret}, "response": {token}}
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return errors.Wrap(err, "[TurnstileVerifier.Verify] build request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "[TurnstileVerifier.Verify] siteverify")
	}
	defer resp.Body.Close()

	var out siteverifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return errors.Wrap(err, "[TurnstileVerifier.Verify] decode response")
	}
	if !out.Success {
		return errors.Errorf("[TurnstileVerifier.Verify] challenge rejected: %s", strings.Join(out.ErrorCodes, ","))
	}
	return nil
}
