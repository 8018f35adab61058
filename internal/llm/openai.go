package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/common"
)

// modelPricing is USD per 1K tokens.
type modelPricing struct {
	input  float64
	output float64
}

var pricing = map[string]modelPricing{
	"gpt-4o-mini":  {input: 0.00015, output: 0.0006},
	"gpt-4o":       {input: 0.0025, output: 0.01},
	"gpt-4.1-mini": {input: 0.0004, output: 0.0016},
	"gpt-4.1":      {input: 0.002, output: 0.008},
}

// Config holds configuration for the OpenAI-backed client.
type Config struct {
	APIKey      string
	BaseURL     string
	LabelModel  string
	JudgeModel  string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// openAIClient implements Client against the OpenAI chat completions API.
type openAIClient struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	labelModel  string
	judgeModel  string
	temperature float64
	maxTokens   int
}

// NewOpenAIClient creates a new OpenAI API client.
func NewOpenAIClient(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.LabelModel == "" {
		cfg.LabelModel = "gpt-4o-mini"
	}
	if cfg.JudgeModel == "" {
		cfg.JudgeModel = "gpt-4.1-mini"
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.3
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 500
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &openAIClient{
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		labelModel:  cfg.LabelModel,
		judgeModel:  cfg.JudgeModel,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Label sends one review to the labeling model.
func (c *openAIClient) Label(ctx context.Context, req LabelRequest) (LabelResponse, error) {
	content, tokensIn, tokensOut, err := c.complete(ctx, c.labelModel, buildLabelPrompt(req.Review, req.Aspects))
	if err != nil {
		return LabelResponse{}, err
	}

	label, err := parseLabel(content)
	if err != nil {
		return LabelResponse{}, fmt.Errorf("%w: %v", common.ErrMalformedResponse, err)
	}

	return LabelResponse{
		Label:     label,
		TokensIn:  tokensIn,
		TokensOut: tokensOut,
		Cost:      cost(c.labelModel, tokensIn, tokensOut),
	}, nil
}

// Judge sends one risk-flagged candidate to the arbitration model.
func (c *openAIClient) Judge(ctx context.Context, req JudgeRequest) (JudgeResponse, error) {
	content, tokensIn, tokensOut, err := c.complete(ctx, c.judgeModel, buildJudgePrompt(req))
	if err != nil {
		return JudgeResponse{}, err
	}

	verdict, err := parseJudge(content, req.Candidate)
	if err != nil {
		return JudgeResponse{}, fmt.Errorf("%w: %v", common.ErrMalformedResponse, err)
	}

	verdict.TokensIn = tokensIn
	verdict.TokensOut = tokensOut
	verdict.Cost = cost(c.judgeModel, tokensIn, tokensOut)
	return verdict, nil
}

// complete executes one chat completion call and returns the raw content.
func (c *openAIClient) complete(ctx context.Context, model, prompt string) (string, int, int, error) {
	requestBody := map[string]any{
		"model": model,
		"messages": []map[string]string{
			{
				"role":    "system",
				"content": "You are a Korean review annotation assistant. You MUST respond with ONLY a valid JSON object. Do not include any explanatory text or markdown formatting. Start your response directly with { and end with }.",
			},
			{
				"role":    "user",
				"content": prompt,
			},
		},
		"temperature": c.temperature,
		"max_tokens":  c.maxTokens,
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return "", 0, 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", strings.NewReader(string(jsonBody)))
	if err != nil {
		return "", 0, 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, 0, fmt.Errorf("%w: %v", common.ErrServiceUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, 0, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", 0, 0, fmt.Errorf("%w: %s", common.ErrRateLimit, strings.TrimSpace(string(body)))
	case resp.StatusCode >= 500:
		return "", 0, 0, fmt.Errorf("%w: status %d", common.ErrServiceUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return "", 0, 0, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var response openAIResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", 0, 0, fmt.Errorf("%w: %v", common.ErrMalformedResponse, err)
	}

	if len(response.Choices) == 0 {
		return "", 0, 0, fmt.Errorf("%w: no completion choices returned", common.ErrMalformedResponse)
	}

	return response.Choices[0].Message.Content, response.Usage.PromptTokens, response.Usage.CompletionTokens, nil
}

// cost computes the billed dollars for one call; unknown models cost zero.
func cost(model string, tokensIn, tokensOut int) float64 {
	p, ok := pricing[model]
	if !ok {
		return 0
	}
	return float64(tokensIn)/1000*p.input + float64(tokensOut)/1000*p.output
}
