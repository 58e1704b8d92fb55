package messages

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		tmpl string
		vars map[string]string
		want string
	}{
		{
			name: "NoVars",
			tmpl: "hello there",
			vars: nil,
			want: "hello there",
		},
		{
			name: "SingleVar",
			tmpl: TicketAlreadyOpen,
			vars: map[string]string{"channel": "<#123>"},
			want: "You already have an open ticket: <#123>.",
		},
		{
			name: "MultipleVars",
			tmpl: TicketPrioritySet,
			vars: map[string]string{"priority": "Critical", "actor": "wolf"},
			want: "Ticket priority set to **Critical** by wolf.",
		},
		{
			name: "UnknownPlaceholderLeftAlone",
			tmpl: "value {missing} stays",
			vars: map[string]string{"other": "x"},
			want: "value {missing} stays",
		},
		{
			name: "RepeatedPlaceholder",
			tmpl: "{a} and {a}",
			vars: map[string]string{"a": "b"},
			want: "b and b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Render(tt.tmpl, tt.vars))
		})
	}
}
