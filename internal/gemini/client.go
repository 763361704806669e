// Package gemini wraps the official genai client for the three collaborator
// calls the portal makes: structured estimates, market price refreshes, and
// streamed chat replies. Retry policy lives with the caller; this package
// only classifies failures.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ajayprojects/portal/pkg/models"
	"github.com/rs/zerolog/log"
	genai "google.golang.org/genai"
)

// Client is a thin wrapper around the official genai client.
type Client struct {
	cli           *genai.Client
	estimateModel string
	priceModel    string
	chatModel     string
}

// New creates the collaborator client. The genai SDK reads GEMINI_API_KEY
// from the environment when apiKey is empty.
func New(ctx context.Context, apiKey, estimateModel, priceModel, chatModel string) (*Client, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Client{
		cli:           cli,
		estimateModel: estimateModel,
		priceModel:    priceModel,
		chatModel:     chatModel,
	}, nil
}

// GenerateEstimate asks the estimation model for a structured quote for one
// task submission. The response schema pins the JSON shape so the answer
// unmarshals directly into models.EstimationResult.
func (c *Client) GenerateEstimate(ctx context.Context, task models.TaskConfig, inputs models.FormInputs) (*models.EstimationResult, error) {
	in, _ := json.MarshalIndent(inputs, "", "  ")
	prompt := fmt.Sprintf(
		"You are a senior construction estimator for the Hyderabad market. "+
			"Produce a detailed cost estimate for the task %q (%s) using current "+
			"local material rates in INR including GST.\n\n[CLIENT INPUTS]\n%s",
		task.Title, task.Description, string(in),
	)

	resp, err := c.cli.Models.GenerateContent(ctx, c.estimateModel,
		[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   estimateSchema(),
		},
	)
	if err != nil {
		return nil, err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, ErrEmptyResponse
	}

	var result models.EstimationResult
	if err := json.Unmarshal([]byte(resp.Candidates[0].Content.Parts[0].Text), &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	result.Category = task.Title
	return &result, nil
}

// FetchPriceList asks the price model for the current Hyderabad material
// index grouped by category.
func (c *Client) FetchPriceList(ctx context.Context) (*models.MarketPriceList, error) {
	prompt := "List today's construction material market prices for Hyderabad, India. " +
		"Group materials into categories (cement & steel, finishing, electrical & plumbing). " +
		"For each item give brand name, specific type, price including GST in INR, unit, and " +
		"trend (up, down, or stable)."

	resp, err := c.cli.Models.GenerateContent(ctx, c.priceModel,
		[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   priceListSchema(),
		},
	)
	if err != nil {
		return nil, err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, ErrEmptyResponse
	}

	var list models.MarketPriceList
	if err := json.Unmarshal([]byte(resp.Candidates[0].Content.Parts[0].Text), &list); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &list, nil
}

// StreamChat sends the conversation plus the new user message to the chat
// model and forwards each text delta to onDelta as it arrives. The full
// reply is returned once the stream completes.
func (c *Client) StreamChat(ctx context.Context, history []models.ChatMessage, text string, onDelta func(delta string)) (string, error) {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, m := range history {
		role := genai.RoleUser
		if m.Role == models.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Text}},
		})
	}
	contents = append(contents, &genai.Content{
		Role:  genai.RoleUser,
		Parts: []*genai.Part{{Text: text}},
	})

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: chatSystemPrompt}}},
	}

	var full string
	for resp, err := range c.cli.Models.GenerateContentStream(ctx, c.chatModel, contents, cfg) {
		if err != nil {
			return full, err
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			continue
		}
		for _, part := range resp.Candidates[0].Content.Parts {
			if part.Text == "" {
				continue
			}
			full += part.Text
			if onDelta != nil {
				onDelta(part.Text)
			}
		}
	}
	if full == "" {
		return "", ErrEmptyResponse
	}
	log.Debug().Int("chars", len(full)).Msg("Chat stream complete")
	return full, nil
}

const chatSystemPrompt = "You are a friendly construction consultant for a Hyderabad " +
	"builder. Answer questions about materials, costs, timelines, and construction " +
	"practice in short practical replies. Prices are in INR."

// ── Response Schemas ─────────────────────────────────────────

func estimateSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"materials": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"name":            {Type: genai.TypeString},
						"quantity":        {Type: genai.TypeString},
						"unitPrice":       {Type: genai.TypeNumber},
						"totalPrice":      {Type: genai.TypeNumber},
						"brandSuggestion": {Type: genai.TypeString},
					},
					Required: []string{"name", "quantity", "unitPrice", "totalPrice"},
				},
			},
			"laborCost":          {Type: genai.TypeNumber},
			"estimatedDays":      {Type: genai.TypeInteger},
			"precautions":        {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
			"totalEstimatedCost": {Type: genai.TypeNumber},
			"expertTips":         {Type: genai.TypeString},
			"visualPrompt":       {Type: genai.TypeString},
			"timeline": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"week":     {Type: genai.TypeInteger},
						"activity": {Type: genai.TypeString},
						"status":   {Type: genai.TypeString},
					},
					Required: []string{"week", "activity"},
				},
			},
			"paintCodeSuggestions": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		},
		Required: []string{"materials", "laborCost", "estimatedDays", "precautions", "totalEstimatedCost"},
	}
}

func priceListSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"lastUpdated": {Type: genai.TypeString},
			"categories": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"title": {Type: genai.TypeString},
						"items": {
							Type: genai.TypeArray,
							Items: &genai.Schema{
								Type: genai.TypeObject,
								Properties: map[string]*genai.Schema{
									"brandName":    {Type: genai.TypeString},
									"specificType": {Type: genai.TypeString},
									"priceWithGst": {Type: genai.TypeNumber},
									"unit":         {Type: genai.TypeString},
									"trend":        {Type: genai.TypeString, Enum: []string{"up", "down", "stable"}},
								},
								Required: []string{"brandName", "specificType", "priceWithGst", "unit", "trend"},
							},
						},
					},
					Required: []string{"title", "items"},
				},
			},
		},
		Required: []string{"lastUpdated", "categories"},
	}
}
