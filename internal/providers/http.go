package providers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// maxResponseBytes caps how much of a provider response body is read.
const maxResponseBytes = 32 << 20

// jsonRequest describes one authenticated JSON POST to a provider.
type jsonRequest struct {
	provider string
	url      string
	apiKey   string
	headers  map[string]string
	body     any
}

// postJSON sends req and decodes a 2xx body into out. Failures are mapped to
// AuthenticationError, ServiceError or TimeoutError.
func postJSON(ctx context.Context, client *http.Client, req jsonRequest, out any) error {
	bodyBytes, err := json.Marshal(req.body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.url, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+req.apiKey)
	for k, v := range req.headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return transportError(ctx, req.provider, client.Timeout, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return transportError(ctx, req.provider, client.Timeout, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(req.provider, resp.StatusCode, respBody)
	}
	if len(bytes.TrimSpace(respBody)) == 0 {
		return malformedResponse(req.provider, "empty response body", nil)
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return malformedResponse(req.provider, "malformed response body", err)
	}
	return nil
}

func dataURL(mimeType string, data []byte) string {
	if mimeType == "" {
		mimeType = "image/png"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
