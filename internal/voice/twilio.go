package voice

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// ValidateTwilioSignature checks X-Twilio-Signature against the request form.
func ValidateTwilioSignature(r *http.Request, authToken, webhookURL string) bool {
	signature := r.Header.Get("X-Twilio-Signature")
	if signature == "" {
		return false
	}
	if err := r.ParseForm(); err != nil {
		return false
	}
	expected := computeSignature(buildSignaturePayload(webhookURL, r.PostForm), authToken)
	return hmac.Equal([]byte(signature), []byte(expected))
}

// buildSignaturePayload appends the sorted form params to the URL.
func buildSignaturePayload(webhookURL string, params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var payload strings.Builder
	payload.WriteString(webhookURL)
	for _, key := range keys {
		for _, value := range params[key] {
			payload.WriteString(key)
			payload.WriteString(value)
		}
	}
	return payload.String()
}

func computeSignature(data, key string) string {
	h := hmac.New(sha1.New, []byte(key))
	h.Write([]byte(data))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// CallWebhook holds the Twilio voice webhook fields we use.
type CallWebhook struct {
	CallSid      string
	CallStatus   string
	From         string
	To           string
	SpeechResult string
	Confidence   string
}

// ParseCallWebhook reads a Twilio voice webhook form.
func ParseCallWebhook(r *http.Request) (*CallWebhook, error) {
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("voice: parse form: %w", err)
	}
	return &CallWebhook{
		CallSid:      r.FormValue("CallSid"),
		CallStatus:   r.FormValue("CallStatus"),
		From:         strings.TrimSpace(r.FormValue("From")),
		To:           strings.TrimSpace(r.FormValue("To")),
		SpeechResult: strings.TrimSpace(r.FormValue("SpeechResult")),
		Confidence:   r.FormValue("Confidence"),
	}, nil
}

func buildAbsoluteURL(r *http.Request, publicBaseURL string) string {
	if r.URL == nil {
		return ""
	}
	if publicBaseURL != "" {
		return strings.TrimRight(publicBaseURL, "/") + r.URL.RequestURI()
	}
	if r.URL.Scheme != "" {
		return r.URL.String()
	}
	scheme := r.Header.Get("X-Forwarded-Proto")
	if scheme == "" {
		scheme = "https"
		if r.TLS == nil {
			scheme = "http"
		}
	}
	host := r.Header.Get("X-Forwarded-Host")
	if host == "" {
		host = r.Host
	}
	return fmt.Sprintf("%s://%s%s", scheme, host, r.URL.RequestURI())
}
