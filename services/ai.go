package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// AIService calls the Anthropic Messages API for expense categorization and
// free-text expense parsing.
type AIService struct {
	apiKey     string
	model      string
	httpClient *http.Client
}

type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	System    string          `json:"system,omitempty"`
	Messages  []claudeMessage `json:"messages"`
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Model string `json:"model"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// ParsedExpense is the structured result of parsing a natural-language
// expense description like "12.50 for pizza yesterday".
type ParsedExpense struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	Category    string  `json:"category"`
	Date        string  `json:"date"`
}

func NewAIService() *AIService {
	model := os.Getenv("ANTHROPIC_MODEL")
	if model == "" {
		model = "claude-3-haiku-20240307"
	}

	return &AIService{
		apiKey:     os.Getenv("ANTHROPIC_API_KEY"),
		model:      model,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

const categories = "FOOD, HOUSING, TRANSPORT, HEALTH, ENTERTAINMENT, SHOPPING, SUBSCRIPTION, INSURANCE, ENERGY, EDUCATION, OTHER"

// SuggestCategory classifies an expense description into one category.
func (s *AIService) SuggestCategory(ctx context.Context, description string) (string, error) {
	if s.apiKey == "" {
		return "OTHER", fmt.Errorf("ANTHROPIC_API_KEY not set")
	}

	systemPrompt := `You are a household expense classifier.
Classify the user's expense description into exactly ONE of these categories:
` + categories + `.

IMPORTANT: Return ONLY the category name (uppercase). No other text.`

	requestBody := claudeRequest{
		Model:     s.model,
		MaxTokens: 20,
		System:    systemPrompt,
		Messages: []claudeMessage{
			{Role: "user", Content: fmt.Sprintf("Expense: %s", description)},
		},
	}

	category, err := s.executeRequest(ctx, requestBody)
	if err != nil {
		return "OTHER", err
	}

	cleaned := strings.Trim(strings.ToUpper(strings.TrimSpace(category)), ".")
	return cleaned, nil
}

// ParseExpense turns a free-text sentence into a structured expense.
func (s *AIService) ParseExpense(ctx context.Context, text string, today time.Time) (*ParsedExpense, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
	}

	systemPrompt := fmt.Sprintf(`You are an expense parser. Today is %s.
Extract an expense from the user's sentence and respond with ONLY a JSON object:
{"description": string, "amount": number, "currency": "EUR"|"USD"|..., "category": one of %s, "date": "YYYY-MM-DD"}
Default currency is EUR and default date is today when not stated. No other text.`,
		today.Format("2006-01-02"), categories)

	requestBody := claudeRequest{
		Model:     s.model,
		MaxTokens: 300,
		System:    systemPrompt,
		Messages: []claudeMessage{
			{Role: "user", Content: text},
		},
	}

	raw, err := s.executeRequest(ctx, requestBody)
	if err != nil {
		return nil, err
	}

	// Models occasionally wrap JSON in a code fence.
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var parsed ParsedExpense
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse AI response: %w", err)
	}

	return &parsed, nil
}

func (s *AIService) executeRequest(ctx context.Context, requestBody claudeRequest) (string, error) {
	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST",
		"https://api.anthropic.com/v1/messages", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", s.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var claudeResp claudeResponse
	if err := json.Unmarshal(body, &claudeResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if len(claudeResp.Content) == 0 {
		return "", fmt.Errorf("empty response from model")
	}

	return claudeResp.Content[0].Text, nil
}
