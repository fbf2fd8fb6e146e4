package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/frostdev-ops/home-panel-go/internal/ai"
)

// errorMessage extracts a human readable message from a provider error body
type errorMessage func(body []byte) string

func makeRequest(ctx context.Context, client *http.Client, provider, method, url string, body interface{}, extract errorMessage) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, &ai.ProviderError{
				Provider:   provider,
				Type:       "internal",
				Message:    "Failed to marshal request body",
				Underlying: err,
			}
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, &ai.ProviderError{
			Provider:   provider,
			Type:       "internal",
			Message:    "Failed to create request",
			Underlying: err,
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", "HomePanel/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return nil, &ai.ProviderError{
			Provider:   provider,
			Type:       "network",
			Message:    "Network error during request",
			Retryable:  true,
			Underlying: err,
		}
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ai.ProviderError{
			Provider:   provider,
			Type:       "network",
			Message:    "Failed to read response body",
			Underlying: err,
		}
	}

	if resp.StatusCode >= 400 {
		errorType := "internal"
		retryable := false
		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			errorType = "auth"
		case resp.StatusCode == http.StatusTooManyRequests:
			errorType = "rate_limit"
			retryable = true
		case resp.StatusCode >= 500:
			retryable = true
		}

		msg := ""
		if extract != nil {
			msg = extract(responseBody)
		}
		return nil, &ai.ProviderError{
			Provider:  provider,
			Type:      errorType,
			Message:   fmt.Sprintf("HTTP %d: %s", resp.StatusCode, msg),
			Retryable: retryable,
		}
	}

	return responseBody, nil
}
