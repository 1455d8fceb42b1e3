// Package sticker calls the remote service that turns a prompt into a sticker image.
package sticker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrDisabled means no endpoint or credential is configured.
	ErrDisabled = errors.New("sticker generation disabled")
	// ErrGeneration wraps every other failure of the remote call.
	ErrGeneration = errors.New("sticker generation failed")
)

// Generator produces an image payload (a data URL) for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// CredentialSource supplies the bearer credential for the remote service.
type CredentialSource interface {
	Credential(ctx context.Context) (string, bool)
}

type generateRequest struct {
	Prompt string `json:"prompt"`
}

type generateResponse struct {
	Image string `json:"image"`
	Error string `json:"error,omitempty"`
}

// HTTPGenerator posts prompts to a JSON endpoint.
type HTTPGenerator struct {
	endpoint    string
	credentials CredentialSource
	httpClient  *http.Client
}

// NewHTTPGenerator builds a generator. A zero timeout leaves requests unbounded
// except by the caller's context.
func NewHTTPGenerator(endpoint string, credentials CredentialSource, timeout time.Duration) *HTTPGenerator {
	return &HTTPGenerator{
		endpoint:    strings.TrimSpace(endpoint),
		credentials: credentials,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

func (g *HTTPGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if g.endpoint == "" || g.credentials == nil {
		return "", ErrDisabled
	}
	token, ok := g.credentials.Credential(ctx)
	if !ok {
		return "", ErrDisabled
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", fmt.Errorf("%w: empty prompt", ErrGeneration)
	}

	body, err := json.Marshal(generateRequest{Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrGeneration, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: status %d: %s", ErrGeneration, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out generateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrGeneration, err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("%w: %s", ErrGeneration, out.Error)
	}
	if !strings.HasPrefix(out.Image, "data:image/") {
		return "", fmt.Errorf("%w: response carries no image", ErrGeneration)
	}
	return out.Image, nil
}

// Disabled is the generator used when no endpoint is configured.
type Disabled struct{}

func (Disabled) Generate(context.Context, string) (string, error) {
	return "", ErrDisabled
}
