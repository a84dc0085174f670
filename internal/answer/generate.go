package answer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	deskerrors "github.com/leasedesk/leasedesk/internal/errors"
	"github.com/leasedesk/leasedesk/internal/store"
)

// systemPrompt constrains the model to the retrieved context.
const systemPrompt = "You are a helpful assistant for rental documents. " +
	"Answer using only the provided document excerpts. " +
	"If the excerpts do not contain the answer, say you don't know. " +
	"Reference excerpts by their bracketed numbers."

// DefaultGenerationTimeout bounds one chat completion request.
const DefaultGenerationTimeout = 60 * time.Second

// CompletionClient produces a chat completion from a system prompt and a
// user message.
type CompletionClient interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// OpenAIClient calls an OpenAI-compatible /v1/chat/completions endpoint.
type OpenAIClient struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration

	client *http.Client
}

var _ CompletionClient = (*OpenAIClient)(nil)

func NewOpenAIClient(baseURL, apiKey, model string) *OpenAIClient {
	return &OpenAIClient{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   model,
		Timeout: DefaultGenerationTimeout,
		client:  &http.Client{},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *OpenAIClient) Complete(ctx context.Context, system, user string) (string, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultGenerationTimeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(chatRequest{
		Model: c.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.BaseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", deskerrors.GenerationError("chat completion request", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", deskerrors.GenerationError(
			fmt.Sprintf("chat completion failed: status %d: %s", resp.StatusCode, string(data)), nil)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", deskerrors.GenerationError("decode chat completion", err)
	}
	if len(parsed.Choices) == 0 {
		return "", deskerrors.GenerationError("chat completion returned no choices", nil)
	}
	return parsed.Choices[0].Message.Content, nil
}

// Answerer composes retrieval hits into a cited answer. Generation is
// optional: with a nil client, or when generation fails, the reply degrades
// to citations alone so the user still sees where to look.
type Answerer struct {
	client        CompletionClient
	contextBudget int
	logger        *slog.Logger
}

func NewAnswerer(client CompletionClient, contextBudget int, logger *slog.Logger) *Answerer {
	if contextBudget <= 0 {
		contextBudget = DefaultContextBudget
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Answerer{client: client, contextBudget: contextBudget, logger: logger}
}

// Answer produces the final user-facing reply for a query and its hits.
// A non-empty unitScope is named in the prompt so the model scopes its
// answer to that unit.
func (a *Answerer) Answer(ctx context.Context, query, unitScope string, hits []*store.SearchHit) string {
	if len(hits) == 0 {
		return NotFoundReply
	}

	refs := Citations(hits)
	if a.client == nil {
		return refs
	}

	contextBlock := BuildContext(hits, a.contextBudget)
	user := fmt.Sprintf("Document excerpts:\n%s\n\nQuestion: %s", contextBlock, query)
	if unitScope != "" {
		user = fmt.Sprintf("Active unit: %s\n\n%s", unitScope, user)
	}

	reply, err := a.client.Complete(ctx, systemPrompt, user)
	if err != nil {
		a.logger.Warn("generation_failed",
			slog.String("error", err.Error()))
		return refs
	}
	if refs == "" {
		return reply
	}
	return reply + "\n\n" + refs
}
