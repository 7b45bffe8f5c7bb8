// Package generation wraps the external AI collaborators: story text
// generation, scene image generation and stat judging. The provider may
// fail or time out; callers own the timeout via the request context and
// nothing in here retries.
package generation

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gabrielonicala/quillia/app/models"
	"github.com/gabrielonicala/quillia/internal/pkg/env"
	"github.com/gabrielonicala/quillia/internal/pkg/statengine"
)

// StoryGenerator turns a fully-formed prompt into reimagined narrative text.
type StoryGenerator interface {
	GenerateStory(ctx context.Context, prompt string) (string, error)
}

// SceneGenerator turns a prompt into rendered image bytes.
type SceneGenerator interface {
	GenerateScene(ctx context.Context, prompt string) (*SceneResult, error)
}

// SceneResult holds a generated image.
type SceneResult struct {
	Data        []byte
	ContentType string
}

// Client talks to the generation provider over HTTP with a shared API key.
// It implements StoryGenerator, SceneGenerator and the stat engine's Judge.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var _ StoryGenerator = (*Client)(nil)
var _ SceneGenerator = (*Client)(nil)
var _ statengine.Judge = (*Client)(nil)

// NewClient creates a provider client.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// NewClientFromEnv builds the client from GENERATION_API_URL,
// GENERATION_API_KEY and GENERATION_TIMEOUT_SECONDS.
func NewClientFromEnv() (*Client, error) {
	baseURL := env.GetEnv("GENERATION_API_URL", "")
	if baseURL == "" {
		return nil, fmt.Errorf("generation: GENERATION_API_URL is not set")
	}
	apiKey := env.GetEnv("GENERATION_API_KEY", "")
	if apiKey == "" {
		return nil, fmt.Errorf("generation: GENERATION_API_KEY is not set")
	}
	timeoutSecs, err := strconv.Atoi(env.GetEnv("GENERATION_TIMEOUT_SECONDS", "60"))
	if err != nil || timeoutSecs <= 0 {
		timeoutSecs = 60
	}
	return NewClient(baseURL, apiKey, time.Duration(timeoutSecs)*time.Second), nil
}

type storyRequest struct {
	Prompt string `json:"prompt"`
}

type storyResponse struct {
	Text  string `json:"text"`
	Error string `json:"error"`
}

// GenerateStory posts the prompt to the provider's story endpoint.
func (c *Client) GenerateStory(ctx context.Context, prompt string) (string, error) {
	var response storyResponse
	if err := c.postJSON(ctx, "/v1/story", storyRequest{Prompt: prompt}, &response); err != nil {
		return "", err
	}
	if response.Error != "" {
		return "", fmt.Errorf("generation: provider error: %s", response.Error)
	}
	if response.Text == "" {
		return "", fmt.Errorf("generation: provider returned empty story")
	}
	return response.Text, nil
}

type sceneResponse struct {
	ImageBase64 string `json:"image_base64"`
	ContentType string `json:"content_type"`
	Error       string `json:"error"`
}

// GenerateScene posts the prompt to the provider's image endpoint.
func (c *Client) GenerateScene(ctx context.Context, prompt string) (*SceneResult, error) {
	body, err := json.Marshal(storyRequest{Prompt: prompt})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/scene", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("generation: scene request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("generation: scene endpoint returned status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "application/json" {
		var response sceneResponse
		if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
			return nil, fmt.Errorf("generation: decode scene response: %w", err)
		}
		if response.Error != "" {
			return nil, fmt.Errorf("generation: provider error: %s", response.Error)
		}
		data, err := base64.StdEncoding.DecodeString(response.ImageBase64)
		if err != nil {
			return nil, fmt.Errorf("generation: decode scene image: %w", err)
		}
		if response.ContentType == "" {
			response.ContentType = "image/png"
		}
		return &SceneResult{Data: data, ContentType: response.ContentType}, nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("generation: read scene image: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("generation: provider returned empty image")
	}
	if contentType == "" {
		contentType = "image/png"
	}
	return &SceneResult{Data: data, ContentType: contentType}, nil
}

type judgeRequest struct {
	OriginalText   string                `json:"original_text"`
	ReimaginedText string                `json:"reimagined_text"`
	Theme          string                `json:"theme"`
	StatNames      []string              `json:"stat_names"`
	CurrentStats   models.CharacterStats `json:"current_stats"`
}

type judgeResponse struct {
	StatChanges map[string]statengine.RawStatChange `json:"stat_changes"`
	Error       string                              `json:"error"`
}

// EvaluateStatChanges asks the provider to judge an entry against the
// theme's stat vocabulary. The raw result is untrusted; the stat engine
// validates and clamps it.
func (c *Client) EvaluateStatChanges(ctx context.Context, originalText, reimaginedText, theme string, currentStats models.CharacterStats) (map[string]statengine.RawStatChange, error) {
	names := make([]string, 0, len(models.StatDefinitionsForTheme(theme)))
	for _, def := range models.StatDefinitionsForTheme(theme) {
		names = append(names, def.Name)
	}

	request := judgeRequest{
		OriginalText:   originalText,
		ReimaginedText: reimaginedText,
		Theme:          theme,
		StatNames:      names,
		CurrentStats:   currentStats,
	}

	var response judgeResponse
	if err := c.postJSON(ctx, "/v1/judge", request, &response); err != nil {
		return nil, err
	}
	if response.Error != "" {
		return nil, fmt.Errorf("generation: judge error: %s", response.Error)
	}
	return response.StatChanges, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("generation: request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("generation: %s returned status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("generation: decode response from %s: %w", path, err)
	}
	return nil
}
