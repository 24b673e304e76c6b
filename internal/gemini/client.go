package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

const (
	modelText  = "gemini-2.5-flash"
	modelImage = "gemini-2.5-flash-image"
)

// ErrMissingAPIKey is returned before any request is attempted when the
// client was built without a credential.
var ErrMissingAPIKey = errors.New("gemini api key is missing")

// ErrNoImage means the model answered without inline image data, typically a
// safety-filter refusal.
var ErrNoImage = errors.New("gemini returned no image")

type Options struct {
	APIKey     string
	BaseURL    string
	APIVersion string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

type Client struct {
	apiKey     string
	baseURL    string
	apiVersion string
	httpClient *http.Client
	logger     *slog.Logger
}

func New(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}

	apiVersion := strings.TrimSpace(opts.APIVersion)
	if apiVersion == "" {
		apiVersion = "v1beta"
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		apiKey:     opts.APIKey,
		baseURL:    baseURL,
		apiVersion: apiVersion,
		httpClient: opts.HTTPClient,
		logger:     logger,
	}
}

// Enhance rewrites a free-text style prompt into a more descriptive one. The
// returned text is the model output with surrounding whitespace trimmed.
func (c *Client) Enhance(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt is empty")
	}

	req := generateContentRequest{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: enhancePrompt(prompt)}}},
		},
	}

	resp, err := c.generateContent(ctx, modelText, req)
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(resp.text)
	if text == "" {
		return "", errors.New("gemini returned empty text")
	}
	return text, nil
}

// ComposePhoto runs one photobooth generation. The request images are
// stripped of any data-URI prefix before sending; the result is raw base64.
func (c *Client) ComposePhoto(ctx context.Context, req ComposeRequest) (ComposeResult, error) {
	userImage := stripDataURLPrefix(strings.TrimSpace(req.UserImage))
	if userImage == "" {
		return ComposeResult{}, errors.New("user image is required")
	}

	parts := []part{
		{Text: composePrompt(req)},
		{InlineData: &blob{Data: userImage, MimeType: "image/jpeg"}},
	}
	if idol := stripDataURLPrefix(strings.TrimSpace(req.IdolImage)); idol != "" {
		parts = append(parts, part{InlineData: &blob{Data: idol, MimeType: "image/jpeg"}})
	}

	payload := generateContentRequest{
		Contents: []content{{Role: "user", Parts: parts}},
		GenerationConfig: generationConfig{
			ResponseModalities: []string{"IMAGE"},
		},
	}

	resp, err := c.generateContent(ctx, modelImage, payload)
	if err != nil {
		return ComposeResult{}, err
	}
	if resp.imageData == "" {
		return ComposeResult{}, ErrNoImage
	}

	mimeType := resp.imageMime
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return ComposeResult{ImageBase64: resp.imageData, MimeType: mimeType}, nil
}

type modelOutput struct {
	text      string
	imageData string
	imageMime string
}

func (c *Client) generateContent(ctx context.Context, model string, payload generateContentRequest) (modelOutput, error) {
	if c.apiKey == "" {
		return modelOutput{}, ErrMissingAPIKey
	}
	if c.httpClient == nil {
		return modelOutput{}, errors.New("http client is nil")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return modelOutput{}, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/models/%s:generateContent", c.baseURL, c.apiVersion, model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return modelOutput{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("content-type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return modelOutput{}, fmt.Errorf("request: %w", err)
	}
	defer httpResp.Body.Close()

	rawBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return modelOutput{}, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode >= 400 {
		return modelOutput{}, fmt.Errorf("gemini API %s: %s", httpResp.Status, strings.TrimSpace(string(rawBody)))
	}

	var decoded generateContentResponse
	if err := json.Unmarshal(rawBody, &decoded); err != nil {
		return modelOutput{}, fmt.Errorf("decode response: %w", err)
	}

	return extractOutput(decoded), nil
}

func extractOutput(resp generateContentResponse) modelOutput {
	if len(resp.Candidates) == 0 {
		return modelOutput{}
	}

	var out modelOutput
	var textBuilder strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p.Text != "" {
			textBuilder.WriteString(p.Text)
		}
		if out.imageData == "" && p.InlineData != nil && p.InlineData.Data != "" {
			out.imageData = p.InlineData.Data
			out.imageMime = p.InlineData.MimeType
		}
	}
	out.text = textBuilder.String()
	return out
}

type generateContentRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig,omitempty"`
}

type generationConfig struct {
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string `json:"text,omitempty"`
	InlineData *blob  `json:"inlineData,omitempty"`
}

type blob struct {
	Data     string `json:"data"`
	MimeType string `json:"mimeType"`
}

type generateContentResponse struct {
	Candidates []candidate `json:"candidates"`
}

type candidate struct {
	Content content `json:"content"`
}

func stripDataURLPrefix(value string) string {
	if !strings.HasPrefix(value, "data:") {
		return value
	}
	if idx := strings.IndexByte(value, ','); idx >= 0 {
		return value[idx+1:]
	}
	return value
}
