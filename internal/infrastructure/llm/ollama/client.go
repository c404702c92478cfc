package ollama

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jverhaegen/ledgerpilot/internal/core/domain"
	"github.com/jverhaegen/ledgerpilot/internal/core/ports"
	"github.com/jverhaegen/ledgerpilot/internal/infrastructure/resilience"
)

// Client talks to an ollama server hosting the vision models. The model
// name is chosen per agent, so one client serves both tiers.
type Client struct {
	baseURL    string
	httpClient *http.Client
	storage    ports.ObjectStorage
	executor   *resilience.Executor
}

func New(baseURL string, storage ports.ObjectStorage, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 180 * time.Second},
		storage:    storage,
		executor:   executor,
	}
}

// generateJSON sends a vision prompt with the given pages attached and
// returns the model's raw JSON-mode response text.
func (c *Client) generateJSON(ctx context.Context, model, prompt string, pages []domain.PageImage, operation string) (string, error) {
	images, err := c.encodePages(ctx, pages)
	if err != nil {
		return "", err
	}

	reqBody := map[string]any{
		"model":  model,
		"prompt": prompt,
		"stream": false,
		"format": "json",
	}
	if len(images) > 0 {
		reqBody["images"] = images
	}

	var response struct {
		Response string `json:"response"`
	}
	call := func(ctx context.Context) error {
		return c.postJSON(ctx, "/api/generate", reqBody, &response, operation)
	}

	if c.executor != nil {
		err = c.executor.Execute(ctx, "ollama."+operation, call, classifyOllamaError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", wrapTemporaryIfNeeded(operation, err)
	}
	return strings.TrimSpace(response.Response), nil
}

func (c *Client) encodePages(ctx context.Context, pages []domain.PageImage) ([]string, error) {
	images := make([]string, 0, len(pages))
	for _, page := range pages {
		reader, err := c.storage.Open(ctx, page.StorageKey)
		if err != nil {
			return nil, fmt.Errorf("open page %d: %w", page.Index, err)
		}
		data, err := io.ReadAll(reader)
		_ = reader.Close()
		if err != nil {
			return nil, fmt.Errorf("read page %d: %w", page.Index, err)
		}
		images = append(images, base64.StdEncoding.EncodeToString(data))
	}
	return images, nil
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
