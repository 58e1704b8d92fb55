package entities

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testConfig() *TicketsConfig {
	return &TicketsConfig{
		Enabled: true,
		Types: []TicketType{
			{ID: "BUG", Name: "Bug Report", Emoji: "\U0001F41B", DefaultPriority: PriorityMedium},
			{ID: "APPEAL", Name: "Ban Appeal", Emoji: "⚖", Restricted: true, DefaultPriority: PriorityHigh},
		},
		Statuses: []TicketStatus{
			{Name: "Open", Emoji: "\U0001F7E2"},
			{Name: "AwaitingResponse", Emoji: "\U0001F7E1"},
			{Name: "Escalated", Emoji: "\U0001F534"},
		},
	}
}

func TestTypeByID(t *testing.T) {
	cfg := testConfig()

	typ := cfg.TypeByID("BUG")
	require.NotNil(t, typ)
	require.Equal(t, "Bug Report", typ.Name)

	require.Nil(t, cfg.TypeByID("NOPE"))
}

func TestStatusByName(t *testing.T) {
	cfg := testConfig()

	s := cfg.StatusByName("Escalated")
	require.NotNil(t, s)
	require.Equal(t, "\U0001F534", s.Emoji)

	// The terminal status is reserved, never part of the configured set.
	require.Nil(t, cfg.StatusByName(StatusClosed))
}

func TestInitialStatus(t *testing.T) {
	cfg := testConfig()
	require.Equal(t, "Open", cfg.InitialStatus().Name)

	empty := &TicketsConfig{}
	require.Equal(t, "Open", empty.InitialStatus().Name)
}

func TestPriorityValid(t *testing.T) {
	for _, p := range Priorities {
		require.True(t, p.Valid())
	}
	require.False(t, Priority("Urgent").Valid())
	require.False(t, Priority("").Valid())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *TicketsConfig)
		wantErr string
	}{
		{
			name:   "Valid",
			mutate: func(c *TicketsConfig) {},
		},
		{
			name: "DuplicateTypeID",
			mutate: func(c *TicketsConfig) {
				c.Types = append(c.Types, TicketType{ID: "BUG"})
			},
			wantErr: "duplicate ticket type id",
		},
		{
			name: "MissingTypeID",
			mutate: func(c *TicketsConfig) {
				c.Types = append(c.Types, TicketType{Name: "No ID"})
			},
			wantErr: "has no id",
		},
		{
			name: "BadDefaultPriority",
			mutate: func(c *TicketsConfig) {
				c.Types[0].DefaultPriority = "Whenever"
			},
			wantErr: "invalid default priority",
		},
		{
			name: "ReservedStatus",
			mutate: func(c *TicketsConfig) {
				c.Statuses = append(c.Statuses, TicketStatus{Name: StatusClosed})
			},
			wantErr: "reserved",
		},
		{
			name: "NegativeTimeout",
			mutate: func(c *TicketsConfig) {
				c.CloseConfirmationSeconds = -1
			},
			wantErr: "must not be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}
