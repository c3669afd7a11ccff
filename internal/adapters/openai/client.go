// Package openai implements the destination suggestion source against the
// OpenAI chat completions API. The model is asked for a JSON array and the
// reply is sanitized before it reaches the rest of the system.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/letsrendez/rendez-api/internal/domain"
	"github.com/letsrendez/rendez-api/internal/ports/out/suggestprovider"
)

const (
	DefaultBaseURL = "https://api.openai.com"
	DefaultModel   = "gpt-4o-mini"

	temperature = 0.5

	maxNameLen  = 120
	maxBlurbLen = 300
)

// codeFencePattern strips a markdown code block the model sometimes wraps the
// array in despite instructions.
var codeFencePattern = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)```")

type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewClient builds a client. An empty API key is allowed; calls then fail
// with suggestprovider.ErrNotConfigured.
func NewClient(baseURL, apiKey, model string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: httpClient,
	}
}

var _ suggestprovider.Provider = (*Client)(nil)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *Client) Suggest(ctx context.Context, req suggestprovider.Request) ([]domain.DestinationSuggestion, error) {
	if c.apiKey == "" {
		return nil, suggestprovider.ErrNotConfigured
	}

	payload, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildUserPrompt(req)},
		},
		Temperature: temperature,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", suggestprovider.ErrUpstream, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("%w: %d %s", suggestprovider.ErrUpstream, resp.StatusCode, text)
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", suggestprovider.ErrUpstream, err)
	}
	if len(chat.Choices) == 0 {
		return nil, nil
	}
	content := strings.TrimSpace(chat.Choices[0].Message.Content)
	if content == "" {
		return nil, nil
	}
	return parseSuggestions(content)
}

const systemPrompt = "You are a travel advisor for group trips. Reply only with a valid JSON array. No markdown, no code fences."

func buildUserPrompt(req suggestprovider.Request) string {
	cities := "Not specified"
	if len(req.DepartureCities) > 0 {
		cities = strings.Join(req.DepartureCities, ", ")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Given:\n")
	fmt.Fprintf(&b, "- Trip type: %s\n", req.TripType)
	fmt.Fprintf(&b, "- Budget per person: $%g\n", req.BudgetPerPerson)
	fmt.Fprintf(&b, "- Group size: %d\n", req.GroupSize)
	fmt.Fprintf(&b, "- Dates: %s to %s\n", req.DepartureDate, req.ReturnDate)
	fmt.Fprintf(&b, "- Departure city/cities: %s\n", cities)
	if req.DestinationHint != "" {
		fmt.Fprintf(&b, "User hint: %q\n", req.DestinationHint)
		b.WriteString("Prioritize destinations that match this hint (region, vibe, or constraint). If the hint is a region, only suggest destinations in that region. If it's a vibe (e.g. \"good nightlife\"), rank by fit. If it's a constraint (e.g. \"not too far\"), filter accordingly.\n")
	}
	fmt.Fprintf(&b, "Suggest %d affordable destinations that fit this trip. For each destination provide: name, IATA airport code (e.g. SJD for Cabo), 1-2 sentence blurb, and cost tier (exactly one of: \"under\", \"at\", \"over\"). Be concise.\n", req.Limit)
	b.WriteString(`Return a JSON array of objects with keys: name, iataCode, blurb, costTier. Example: [{"name":"Cabo San Lucas","iataCode":"SJD","blurb":"Beach and nightlife hub.","costTier":"at"}]`)
	return b.String()
}

type rawSuggestion struct {
	Name     string `json:"name"`
	IATACode string `json:"iataCode"`
	Blurb    string `json:"blurb"`
	CostTier string `json:"costTier"`
}

// parseSuggestions turns the model reply into sanitized suggestions: codes
// upper-cased and clipped to 3 characters, lengths capped, unknown cost tiers
// mapped to "at", and entries without a usable code dropped.
func parseSuggestions(content string) ([]domain.DestinationSuggestion, error) {
	raw := content
	if m := codeFencePattern.FindStringSubmatch(content); m != nil {
		raw = strings.TrimSpace(m[1])
	}

	var list []rawSuggestion
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		var one rawSuggestion
		if err2 := json.Unmarshal([]byte(raw), &one); err2 != nil {
			return nil, fmt.Errorf("%w: bad suggestion payload: %v", suggestprovider.ErrUpstream, err)
		}
		list = []rawSuggestion{one}
	}

	out := make([]domain.DestinationSuggestion, 0, len(list))
	for _, item := range list {
		if item.Name == "" && item.IATACode == "" {
			continue
		}
		code := domain.NormalizeIATACode(item.IATACode)
		if code == "" {
			continue
		}
		name := item.Name
		if name == "" {
			name = item.IATACode
		}
		if len(name) > maxNameLen {
			name = name[:maxNameLen]
		}
		blurb := item.Blurb
		if len(blurb) > maxBlurbLen {
			blurb = blurb[:maxBlurbLen]
		}
		tier := domain.CostTier(item.CostTier)
		switch tier {
		case domain.CostTierUnder, domain.CostTierAt, domain.CostTierOver:
		default:
			tier = domain.CostTierAt
		}
		out = append(out, domain.DestinationSuggestion{
			Name:     name,
			IATACode: code,
			Blurb:    blurb,
			CostTier: tier,
		})
	}
	return out, nil
}
