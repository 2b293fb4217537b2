package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/AllyMarthaJ/git-reabsorb/internal/domain"
)

// Prompt renders a grouping request as a single text prompt. Its length is
// what GroupingRequest.Size reports, so strategies can bound it.
func Prompt(req *domain.GroupingRequest) (string, error) {
	if req == nil {
		return "", fmt.Errorf("encoding request: nil request")
	}
	return req.Render(), nil
}

// Decode extracts the JSON object from a model reply. Markdown fences and
// surrounding prose are ignored.
func Decode(text string) (*domain.GroupingResponse, error) {
	body := stripFences(text)
	start := strings.Index(body, "{")
	end := strings.LastIndex(body, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON object in response")
	}

	var resp domain.GroupingResponse
	if err := json.Unmarshal([]byte(body[start:end+1]), &resp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if len(resp.Commits) == 0 {
		return nil, fmt.Errorf("response lists no commits")
	}
	resp.Raw = text
	return &resp, nil
}

func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	if i := strings.Index(text, "\n"); i >= 0 {
		text = text[i+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(text, "```"))
}
