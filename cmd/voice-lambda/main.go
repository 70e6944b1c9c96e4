// Command voice-lambda relays API Gateway voice webhooks to the booking API.
package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/wolfman30/practice-booking/pkg/logging"
)

// allowed maps relayed paths to the methods they accept.
var allowed = map[string][]string{
	"/voice":                {http.MethodPost},
	"/voice/twilio-webhook": {http.MethodPost},
	"/voice/status":         {http.MethodPost},
	"/voice/test":           {http.MethodGet, http.MethodPost},
}

type relay struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
	logger  *logging.Logger
}

func newRelay() (*relay, error) {
	baseURL := strings.TrimSpace(os.Getenv("UPSTREAM_BASE_URL"))
	if baseURL == "" {
		return nil, errors.New("UPSTREAM_BASE_URL is required")
	}
	timeout := 8 * time.Second
	if raw := strings.TrimSpace(os.Getenv("UPSTREAM_TIMEOUT")); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid UPSTREAM_TIMEOUT: %w", err)
		}
		timeout = parsed
	}
	return &relay{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
		logger:  logging.New(os.Getenv("LOG_LEVEL")).Component("voice-lambda"),
	}, nil
}

func main() {
	r, err := newRelay()
	if err != nil {
		panic(err)
	}
	lambda.Start(r.handle)
}

func (r *relay) handle(ctx context.Context, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	method := strings.ToUpper(strings.TrimSpace(evt.RequestContext.HTTP.Method))
	path := strings.TrimRight(strings.TrimSpace(evt.RawPath), "/")
	if path == "" {
		path = strings.TrimRight(strings.TrimSpace(evt.RequestContext.HTTP.Path), "/")
	}

	if path == "/health" {
		return textResponse(http.StatusOK, "ok"), nil
	}
	methods, ok := allowed[path]
	if !ok {
		return textResponse(http.StatusNotFound, "not found"), nil
	}
	if !contains(methods, method) {
		return textResponse(http.StatusMethodNotAllowed, "method not allowed"), nil
	}

	body, err := decodeBody(evt)
	if err != nil {
		return textResponse(http.StatusBadRequest, "invalid body"), nil
	}

	target := r.baseURL + path
	if qs := strings.TrimSpace(evt.RawQueryString); qs != "" {
		target += "?" + qs
	}

	reqCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, method, target, bytes.NewReader(body))
	if err != nil {
		return textResponse(http.StatusInternalServerError, "internal error"), nil
	}
	if ct := headerValue(evt.Headers, "content-type"); ct != "" {
		req.Header.Set("Content-Type", ct)
	}
	if sig := headerValue(evt.Headers, "x-twilio-signature"); sig != "" {
		req.Header.Set("X-Twilio-Signature", sig)
	}
	if id := evt.RequestContext.RequestID; id != "" {
		req.Header.Set("X-Request-Id", id)
	}
	// Twilio signs the public URL, so the API must see the original host.
	host := strings.TrimSpace(evt.RequestContext.DomainName)
	if host == "" {
		host = headerValue(evt.Headers, "host")
	}
	if host != "" {
		req.Header.Set("X-Forwarded-Host", host)
	}
	proto := headerValue(evt.Headers, "x-forwarded-proto")
	if proto == "" {
		proto = "https"
	}
	req.Header.Set("X-Forwarded-Proto", proto)

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Error("upstream request failed", "path", path, "error", err)
		return textResponse(http.StatusBadGateway, "upstream error"), nil
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		r.logger.Error("read upstream body", "path", path, "error", err)
		return textResponse(http.StatusBadGateway, "upstream error"), nil
	}
	r.logger.Info("voice webhook relayed", "path", path, "status", resp.StatusCode)

	out := events.APIGatewayV2HTTPResponse{
		StatusCode: resp.StatusCode,
		Body:       string(respBody),
		Headers:    map[string]string{},
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		out.Headers["content-type"] = ct
	}
	return out, nil
}

func textResponse(status int, body string) events.APIGatewayV2HTTPResponse {
	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Body:       body,
		Headers:    map[string]string{"content-type": "text/plain; charset=utf-8"},
	}
}

func decodeBody(evt events.APIGatewayV2HTTPRequest) ([]byte, error) {
	if !evt.IsBase64Encoded {
		return []byte(evt.Body), nil
	}
	return base64.StdEncoding.DecodeString(evt.Body)
}

func headerValue(headers map[string]string, key string) string {
	for k, v := range headers {
		if strings.EqualFold(k, key) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
