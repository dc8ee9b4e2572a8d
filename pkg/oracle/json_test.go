package oracle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanJSONResponse(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
	}{
		{
			name:     "bare object",
			response: `{"ok": true}`,
			want:     `{"ok": true}`,
		},
		{
			name:     "fenced with language tag",
			response: "```json\n{\"ok\": true}\n```",
			want:     `{"ok": true}`,
		},
		{
			name:     "fenced without language tag",
			response: "```\n[1, 2]\n```",
			want:     `[1, 2]`,
		},
		{
			name:     "leading prose",
			response: "Here is the classification:\n{\"ok\": true}",
			want:     `{"ok": true}`,
		},
		{
			name:     "trailing prose around array",
			response: "[{\"id\": \"e1\"}]\nLet me know if you need more.",
			want:     `[{"id": "e1"}]`,
		},
		{
			name:     "no json at all",
			response: "I could not classify these.",
			want:     "I could not classify these.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanJSONResponse(tt.response))
		})
	}
}

func TestUnmarshalIntoShape(t *testing.T) {
	var out []struct {
		ID         string `json:"id"`
		IsCategory bool   `json:"is_category"`
	}

	err := Unmarshal("```json\n[{\"id\":\"e1\",\"is_category\":true}]\n```", &out)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "e1", out[0].ID)
	assert.True(t, out[0].IsCategory)
}

func TestUnmarshalInvalidJSON(t *testing.T) {
	var out map[string]interface{}
	err := Unmarshal("definitely not json", &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse oracle response")
}
