// Package assist checks whether an item description fits its category.
package assist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/template"
)

// ErrUnavailable is returned when no checker backend is configured.
var ErrUnavailable = errors.New("description checker unavailable")

// Input is the item being checked.
type Input struct {
	Description string `json:"itemDescription"`
	Category    string `json:"category"`
	Details     string `json:"itemDetails"`
}

// Result is the checker's verdict.
type Result struct {
	IsConsistent bool   `json:"isConsistent"`
	Reason       string `json:"reason"`
}

// Checker validates item descriptions.
type Checker interface {
	Check(ctx context.Context, in Input) (*Result, error)
}

// Disabled is a Checker that always fails with ErrUnavailable.
type Disabled struct{}

func (Disabled) Check(context.Context, Input) (*Result, error) {
	return nil, ErrUnavailable
}

var promptTemplate = template.Must(template.New("prompt").Parse(
	`Determine whether the item description below is consistent with the item's category and details.

Item Description: {{.Description}}
Category: {{.Category}}
Item Details: {{.Details}}

Set isConsistent to true if it is consistent and false otherwise. Give the reason for your answer in reason.`))

func prompt(in Input) (string, error) {
	var buf bytes.Buffer
	if err := promptTemplate.Execute(&buf, in); err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}
	return buf.String(), nil
}

// parseResult decodes a model reply. Replies wrapped in a markdown code
// fence are accepted.
func parseResult(text string) (*Result, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("empty response from model")
	}

	var res Result
	if err := json.Unmarshal([]byte(text), &res); err != nil {
		return nil, fmt.Errorf("decoding model response: %w", err)
	}
	return &res, nil
}
