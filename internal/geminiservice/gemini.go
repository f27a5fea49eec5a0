/*
Package geminiservice is the Gemini implementation of the analysis backend.
It sends one structured-output request per call through the genai SDK and
hands back the raw JSON text of the first candidate.
*/
package geminiservice

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"Daybook_V0.1/internal/analysis"
	"google.golang.org/genai"
)

// --- Gemini API Configuration ---
const (
	DefaultModel       = "gemini-2.5-flash"
	structuredMimeType = "application/json"
)

// ErrMissingAPIKey is returned when the client is built without a credential.
var ErrMissingAPIKey = errors.New("GEMINI_API_KEY is not set")

// Config selects the model and endpoint. BaseURL is only set in tests or when
// routing through a proxy.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
}

// Client implements analysis.Generator.
type Client struct {
	client *genai.Client
	model  string
}

// NewClient validates the credential and builds the SDK client once, at
// process start.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Client{client: client, model: cfg.Model}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// Generate sends the prompt with the system instruction and response schema
// attached. It makes exactly one attempt.
func (c *Client) Generate(ctx context.Context, req analysis.GenerateRequest) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.SystemInstruction, genai.RoleUser),
		ResponseMIMEType:  structuredMimeType,
		ResponseSchema:    req.Schema,
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(req.Prompt), config)
	if err != nil {
		return "", classify(err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		if resp != nil && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("%w: prompt blocked: %s", analysis.ErrUpstream, resp.PromptFeedback.BlockReason)
		}
		return "", fmt.Errorf("%w: no candidates in Gemini response", analysis.ErrUpstream)
	}

	// Return the raw JSON string from the text parts
	return resp.Text(), nil
}

// classify maps SDK failures. An APIError means Gemini answered with an error
// status; anything else means no answer arrived at all.
func classify(err error) error {
	code, ok := apiErrorCode(err)
	if !ok {
		return fmt.Errorf("%w: %w", analysis.ErrBackendUnavailable, err)
	}
	if code == http.StatusServiceUnavailable {
		return fmt.Errorf("%w: %w", analysis.ErrBackendUnavailable, err)
	}
	return fmt.Errorf("%w: %w", analysis.ErrUpstream, err)
}

func apiErrorCode(err error) (int, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code, true
	}
	return 0, false
}
