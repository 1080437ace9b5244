package dagflow

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// executeHTTPRequest makes an HTTP call. URL, header values, and body are
// rendered as templates. Any response is a success at this layer; callers
// read status_code and success from the outputs.
func (e *DefaultStepExecutor) executeHTTPRequest(ctx context.Context, action *HTTPRequestAction, execCtx *ExecutionContext) (map[string]any, error) {
	if action.URL == "" {
		return nil, Fatalf("url cannot be empty")
	}
	globals := e.scriptGlobals(execCtx)

	url, err := e.render(ctx, action.URL, globals)
	if err != nil {
		return nil, fmt.Errorf("failed to render url: %w", err)
	}
	body, err := e.render(ctx, action.Body, globals)
	if err != nil {
		return nil, fmt.Errorf("failed to render request body: %w", err)
	}

	method := strings.ToUpper(action.Method)
	if method == "" {
		method = http.MethodGet
	}
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("failed to create request: %w", err))
	}
	for key, value := range action.Headers {
		rendered, err := e.render(ctx, value, globals)
		if err != nil {
			return nil, fmt.Errorf("failed to render header %s: %w", key, err)
		}
		req.Header.Set(key, rendered)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	headers := map[string]string{}
	for key, values := range resp.Header {
		headers[key] = strings.Join(values, ", ")
	}
	outputs := map[string]any{
		"status_code": resp.StatusCode,
		"status":      resp.Status,
		"headers":     headers,
		"body":        string(respBody),
		"success":     resp.StatusCode >= 200 && resp.StatusCode < 300,
	}
	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		var parsed map[string]any
		if err := json.Unmarshal(respBody, &parsed); err == nil {
			outputs["json"] = parsed
		}
	}
	return outputs, nil
}
