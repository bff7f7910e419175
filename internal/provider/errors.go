// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jeranaias/rigrun-chat/internal/ollama"
	"github.com/jeranaias/rigrun-chat/internal/openai"
)

// HTTPError is a non-2xx response from a provider. Body holds the response
// text, or the status text when the body was empty.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Body)
}

// NewHTTPError builds an HTTPError from a raw response body.
func NewHTTPError(status int, body []byte) *HTTPError {
	text := strings.TrimSpace(string(body))
	if text == "" {
		text = http.StatusText(status)
	}
	return &HTTPError{Status: status, Body: text}
}

// IsHTTPError reports whether err carries a provider HTTP status.
func IsHTTPError(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr)
}

// NormalizeError converts the status errors of the wire clients into
// *HTTPError so callers see one error shape. Other errors pass through.
func NormalizeError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &HTTPError{Status: apiErr.Status, Body: apiErr.Body}
	}
	var clientErr *ollama.ClientError
	if errors.As(err, &clientErr) && clientErr.Type == ollama.ErrTypeHTTPStatus {
		return &HTTPError{Status: clientErr.Status, Body: clientErr.Body}
	}
	return err
}
