package ticketing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRenderChannelName(t *testing.T) {
	tests := []struct {
		name     string
		template string
		vars     map[string]string
		want     string
	}{
		{
			name:     "DefaultTemplate",
			template: "{emoji}-{type_id}-{username}-{user_id}",
			vars:     channelNameVars("\U0001F7E2", "BUG", "Wolf", "123456"),
			want:     "-bug-wolf-123456",
		},
		{
			name:     "UppercaseLowered",
			template: "{type_id}-{username}",
			vars:     channelNameVars("", "APPEAL", "SHOUTY", "1"),
			want:     "appeal-shouty",
		},
		{
			name:     "UnsafeCharsReplaced",
			template: "{username}",
			vars:     channelNameVars("", "", "we ird/name!", "1"),
			want:     "we-ird-name-",
		},
		{
			name:     "SeparatorsCollapsed",
			template: "{emoji}--{type_id}",
			vars:     channelNameVars("??", "bug", "", ""),
			want:     "-bug",
		},
		{
			name:     "LengthCapped",
			template: "{username}",
			vars:     channelNameVars("", "", strings.Repeat("a", 150), ""),
			want:     strings.Repeat("a", 100),
		},
		{
			name:     "UnknownPlaceholderSanitised",
			template: "{nope}-{type_id}",
			vars:     channelNameVars("", "bug", "", ""),
			want:     "-nope-bug",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, RenderChannelName(tt.template, tt.vars))
		})
	}
}
