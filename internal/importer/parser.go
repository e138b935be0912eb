package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// DefaultModelName is the Gemini model used when none is configured.
const DefaultModelName = "gemini-2.5-flash"

// Parser turns statement PDF bytes into raw model rows.
type Parser interface {
	ParseStatement(ctx context.Context, pdfBytes []byte) ([]map[string]interface{}, error)
}

// GeminiParser is the Parser backed by Gemini. The client picks up its API
// key or Vertex settings from the environment.
type GeminiParser struct {
	client *genai.Client
	model  string
}

// NewGeminiParser creates a parser for model, or DefaultModelName when empty.
func NewGeminiParser(ctx context.Context, model string) (*GeminiParser, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiParser: create genai client: %w", err)
	}
	if model == "" {
		model = DefaultModelName
	}
	return &GeminiParser{client: client, model: model}, nil
}

// ParseStatement sends the PDF to Gemini and decodes the JSON array it returns.
func (p *GeminiParser) ParseStatement(ctx context.Context, pdfBytes []byte) ([]map[string]interface{}, error) {
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: statementPrompt()},
				{
					InlineData: &genai.Blob{
						MIMEType: "application/pdf",
						Data:     pdfBytes,
					},
				},
			},
		},
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("ParseStatement: generate content: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return nil, fmt.Errorf("ParseStatement: empty response from model")
	}

	rows, err := decodeRows(cleanModelJSON(rawText))
	if err != nil {
		return nil, fmt.Errorf("ParseStatement: %w\nraw response: %s", err, rawText)
	}
	return rows, nil
}

// decodeRows decodes a JSON array of objects, keeping numbers as json.Number
// so amounts are not rounded through float64.
func decodeRows(s string) ([]map[string]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()

	var rows []map[string]interface{}
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("unmarshal JSON: %w", err)
	}
	return rows, nil
}

// cleanModelJSON strips Markdown fences and any text around the JSON array.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		// Drop the opening fence line (``` or ```json).
		idx := strings.Index(s, "\n")
		if idx == -1 {
			return s
		}
		s = strings.TrimSpace(s[idx+1:])
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "["); start != -1 {
		if end := strings.LastIndex(s, "]"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}
