package assist

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResult(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want *Result
	}{
		{"plain", `{"isConsistent":true,"reason":"ok"}`, &Result{IsConsistent: true, Reason: "ok"}},
		{"fenced", "```json\n{\"isConsistent\":false,\"reason\":\"a drone is not apparel\"}\n```",
			&Result{Reason: "a drone is not apparel"}},
		{"whitespace", "\n  {\"isConsistent\":true,\"reason\":\"\"}  \n", &Result{IsConsistent: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseResult(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseResultErrors(t *testing.T) {
	for _, in := range []string{"", "```\n```", "not json"} {
		_, err := parseResult(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestPrompt(t *testing.T) {
	p, err := prompt(Input{Description: "Quadcopter with camera", Category: "Robotics", Details: "Name: Drone"})
	require.NoError(t, err)
	assert.Contains(t, p, "Item Description: Quadcopter with camera")
	assert.Contains(t, p, "Category: Robotics")
	assert.Contains(t, p, "Item Details: Name: Drone")
}

func TestDisabled(t *testing.T) {
	_, err := Disabled{}.Check(context.Background(), Input{})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestNewGenAIRequiresKey(t *testing.T) {
	_, err := NewGenAI(context.Background(), "", "", nil)
	assert.Error(t, err)
}
