package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"higress-chat/internal/application/port/output"
)

type extraBodyKey struct{}

func withExtraBody(ctx context.Context, extra map[string]any) context.Context {
	if len(extra) == 0 {
		return ctx
	}
	return context.WithValue(ctx, extraBodyKey{}, extra)
}

// extraBodyTransport adds vendor keys carried by the request context to the
// JSON body. go-openai has no field for them.
type extraBodyTransport struct {
	base http.RoundTripper
}

func (t *extraBodyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	extra, _ := req.Context().Value(extraBodyKey{}).(map[string]any)
	if len(extra) == 0 || req.Body == nil {
		return t.base.RoundTrip(req)
	}

	body, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}

	merged, err := MergeExtraBody(body, extra)
	if err != nil {
		return nil, err
	}

	clone := req.Clone(req.Context())
	clone.Body = io.NopCloser(bytes.NewReader(merged))
	clone.ContentLength = int64(len(merged))
	clone.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(merged)), nil
	}
	return t.base.RoundTrip(clone)
}

// MergeExtraBody adds extra keys to a JSON object. Keys already present in
// body are kept, so standard request fields can't be overridden by the bag.
func MergeExtraBody(body []byte, extra map[string]any) ([]byte, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("decode request body: %w", err)
	}
	if fields == nil {
		fields = make(map[string]json.RawMessage, len(extra))
	}
	for k, v := range extra {
		if _, exists := fields[k]; exists {
			continue
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode extra field %s: %w", k, err)
		}
		fields[k] = raw
	}
	return json.Marshal(fields)
}

type loggingTransport struct {
	base   http.RoundTripper
	logger output.LoggerPort
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var bodyBytes []byte
	if req.Body != nil {
		bodyBytes, _ = io.ReadAll(req.Body)
		req.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
	}

	var requestData map[string]interface{}
	if len(bodyBytes) > 0 {
		json.Unmarshal(bodyBytes, &requestData)
	}
	delete(requestData, "messages")

	t.logger.Debug("HTTP Request",
		"method", req.Method,
		"url", req.URL.String(),
		"body", requestData,
	)

	resp, err := t.base.RoundTrip(req)

	if resp != nil {
		t.logger.Debug("HTTP Response",
			"status", resp.Status,
			"statusCode", resp.StatusCode,
			"contentType", resp.Header.Get("Content-Type"),
		)
	}

	return resp, err
}
