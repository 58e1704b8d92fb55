package ticketing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/wardenbot/warden/pkg/entities"
	"github.com/stretchr/testify/require"
)

const testGuild = "guild-1"

var (
	creator = Actor{ID: "u1", Username: "Alice"}
	support = Actor{ID: "s1", Username: "Sam", Roles: []string{"role-support"}}
	manager = Actor{ID: "m1", Username: "Max", Roles: []string{"role-mgmt"}}
)

func testConfig() *entities.TicketsConfig {
	return &entities.TicketsConfig{
		Enabled: true,
		Types: []entities.TicketType{
			{
				ID:              "bug",
				Name:            "Bug Report",
				Emoji:           "\U0001F41B",
				DefaultPriority: entities.PriorityHigh,
				FormFields: []entities.FormField{
					{ID: "summary", Label: "Summary", Style: "Short", Required: true},
				},
			},
			{ID: "vip", Name: "VIP Enquiry", Restricted: true},
		},
		Statuses: []entities.TicketStatus{
			{Name: "Open", Emoji: "\U0001F7E2", Color: 0x57F287},
			{Name: "AwaitingResponse", Emoji: "\U0001F7E1"},
		},
		SupportRoleIDs:           []string{"role-support"},
		ManagementRoleIDs:        []string{"role-mgmt"},
		CloseConfirmationSeconds: 60,
	}
}

func newTestEngine(t *testing.T) (*Engine, *fakeSession, *fakeConfigDal, *fakeTicketDal) {
	t.Helper()
	s := newFakeSession()
	configs := newFakeConfigDal()
	tickets := newFakeTicketDal()
	e := NewEngine(discardLogger(), s, testConfig(), configs, tickets)
	t.Cleanup(e.Shutdown)
	return e, s, configs, tickets
}

// configureGuild installs a complete guild config and the channels it names.
func configureGuild(t *testing.T, s *fakeSession, configs *fakeConfigDal, transcripts bool) {
	t.Helper()
	s.addChannel("cat-1", discordgo.ChannelTypeGuildCategory)
	cfg := &entities.GuildTicketConfig{
		GuildID:           testGuild,
		TicketCategoryID:  "cat-1",
		SupportRoleIDs:    []string{"role-support"},
		ManagementRoleIDs: []string{"role-mgmt"},
	}
	if transcripts {
		s.addChannel("log-1", discordgo.ChannelTypeGuildText)
		cfg.TranscriptsChannelID = "log-1"
	}
	require.NoError(t, configs.SaveGuildConfig(context.Background(), cfg))
}

func mustCreate(t *testing.T, e *Engine, actor Actor, typeID string) *Result {
	t.Helper()
	res, err := e.Create(context.Background(), testGuild, actor, typeID, []entities.FormAnswer{
		{FieldID: "summary", Label: "Summary", Value: "It crashes on login."},
	})
	require.NoError(t, err)
	return res
}

func TestCreate(t *testing.T) {
	e, s, configs, tickets := newTestEngine(t)
	configureGuild(t, s, configs, false)

	res := mustCreate(t, e, creator, "bug")
	require.NotEmpty(t, res.ChannelID)

	stored := tickets.byChannel(res.ChannelID)
	require.NotNil(t, stored)
	require.Equal(t, 1, stored.ID)
	require.Equal(t, "Open", stored.Status)
	require.Equal(t, entities.PriorityHigh, stored.Priority)
	require.Equal(t, creator.ID, stored.CreatorID)
	require.Len(t, stored.FormAnswers, 1)

	require.Equal(t, 1, e.Index().Len())
	require.NotNil(t, e.Index().Get(res.ChannelID))

	channel, err := s.Channel(res.ChannelID)
	require.NoError(t, err)
	require.Equal(t, "-bug-alice-u1", channel.Name)
	require.Equal(t, "cat-1", channel.ParentID)

	// Hidden from the guild, visible to the creator and the support role.
	var sawEveryoneDeny, sawCreator, sawSupport bool
	for _, ow := range channel.PermissionOverwrites {
		switch ow.ID {
		case testGuild:
			sawEveryoneDeny = ow.Deny&discordgo.PermissionViewChannel != 0
		case creator.ID:
			sawCreator = ow.Allow&discordgo.PermissionViewChannel != 0
		case "role-support":
			sawSupport = ow.Allow&discordgo.PermissionViewChannel != 0
		}
	}
	require.True(t, sawEveryoneDeny)
	require.True(t, sawCreator)
	require.True(t, sawSupport)

	// The intake summary is the channel's first message.
	sent := s.sentTo(res.ChannelID)
	require.Len(t, sent, 1)
	require.Contains(t, sent[0].Data.Content, "<@&role-support>")
	require.Contains(t, sent[0].Data.Content, "<@u1>")
	require.Len(t, sent[0].Data.Embeds, 1)
}

func TestCreateAlreadyOpen(t *testing.T) {
	e, s, configs, _ := newTestEngine(t)
	configureGuild(t, s, configs, false)

	first := mustCreate(t, e, creator, "bug")

	_, err := e.Create(context.Background(), testGuild, creator, "bug", nil)
	var alreadyOpen *AlreadyOpenError
	require.ErrorAs(t, err, &alreadyOpen)
	require.Equal(t, first.ChannelID, alreadyOpen.ChannelID)
	require.Equal(t, 1, e.Index().Len())
}

func TestCreateConcurrentSameCreator(t *testing.T) {
	e, s, configs, tickets := newTestEngine(t)
	configureGuild(t, s, configs, false)

	// Racing creates for one user must yield exactly one ticket; the losers
	// get the already-open error, never a duplicate row.
	errs := make([]error, 4)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.Create(context.Background(), testGuild, creator, "bug", nil)
		}(i)
	}
	wg.Wait()

	opened := 0
	for _, err := range errs {
		if err == nil {
			opened++
			continue
		}
		var alreadyOpen *AlreadyOpenError
		require.ErrorAs(t, err, &alreadyOpen)
	}
	require.Equal(t, 1, opened)

	open, err := tickets.ListOpenTickets(context.Background(), testGuild)
	require.NoError(t, err)
	require.Len(t, open, 1)
	require.Equal(t, 1, e.Index().Len())
}

func TestCreateHealsOrphanedTicket(t *testing.T) {
	e, s, configs, tickets := newTestEngine(t)
	configureGuild(t, s, configs, false)

	// An open row whose channel no longer exists must not block creation.
	require.NoError(t, tickets.InsertTicket(context.Background(), &entities.Ticket{
		ID: 1, GuildID: testGuild, ChannelID: "ghost", CreatorID: creator.ID, Status: "Open",
	}))

	res := mustCreate(t, e, creator, "bug")
	require.NotEqual(t, "ghost", res.ChannelID)

	healed := tickets.byChannel("ghost")
	require.NotNil(t, healed)
	require.Equal(t, entities.StatusClosed, healed.Status)
}

func TestCreateRestrictedType(t *testing.T) {
	e, s, configs, _ := newTestEngine(t)
	configureGuild(t, s, configs, false)

	_, err := e.Create(context.Background(), testGuild, creator, "vip", nil)
	require.ErrorIs(t, err, ErrAuthorizationDenied)

	res := mustCreate(t, e, manager, "vip")
	require.NotEmpty(t, res.ChannelID)
}

func TestCreatePreconditions(t *testing.T) {
	e, s, configs, _ := newTestEngine(t)

	_, err := e.Create(context.Background(), testGuild, creator, "nonsense", nil)
	require.ErrorIs(t, err, ErrUnknownTicketType)

	_, err = e.Create(context.Background(), testGuild, creator, "bug", nil)
	require.ErrorIs(t, err, ErrConfigurationIncomplete)

	configureGuild(t, s, configs, false)
	s.createErr = errors.New("boom")
	_, err = e.Create(context.Background(), testGuild, creator, "bug", nil)
	var extErr *ExternalError
	require.ErrorAs(t, err, &extErr)
	require.Equal(t, 0, e.Index().Len())
}

func TestSetStatus(t *testing.T) {
	e, s, configs, tickets := newTestEngine(t)
	configureGuild(t, s, configs, false)
	res := mustCreate(t, e, creator, "bug")

	out, err := e.SetStatus(context.Background(), testGuild, res.ChannelID, "AwaitingResponse", support)
	require.NoError(t, err)
	require.Contains(t, out.Message, "AwaitingResponse")

	require.Equal(t, "AwaitingResponse", tickets.byChannel(res.ChannelID).Status)
	require.Equal(t, "AwaitingResponse", e.Index().Get(res.ChannelID).Status)

	_, err = e.SetStatus(context.Background(), testGuild, res.ChannelID, "Nonsense", support)
	require.ErrorIs(t, err, ErrInvalidStatus)

	// The terminal status is reserved for the close workflow.
	_, err = e.SetStatus(context.Background(), testGuild, res.ChannelID, entities.StatusClosed, support)
	require.ErrorIs(t, err, ErrInvalidStatus)

	_, err = e.SetStatus(context.Background(), testGuild, "not-a-ticket", "Open", support)
	require.ErrorIs(t, err, ErrNotATicketChannel)
}

func TestSetPriority(t *testing.T) {
	e, s, configs, tickets := newTestEngine(t)
	configureGuild(t, s, configs, false)
	res := mustCreate(t, e, creator, "bug")

	out, err := e.SetPriority(context.Background(), testGuild, res.ChannelID, entities.PriorityCritical, support)
	require.NoError(t, err)
	require.Contains(t, out.Message, "Critical")
	require.Equal(t, entities.PriorityCritical, tickets.byChannel(res.ChannelID).Priority)

	_, err = e.SetPriority(context.Background(), testGuild, res.ChannelID, entities.Priority("Urgent"), support)
	require.ErrorIs(t, err, ErrInvalidPriority)

	_, err = e.SetPriority(context.Background(), testGuild, "not-a-ticket", entities.PriorityLow, support)
	require.ErrorIs(t, err, ErrNotATicketChannel)
}

func TestClaimAndUnclaim(t *testing.T) {
	e, s, configs, tickets := newTestEngine(t)
	configureGuild(t, s, configs, false)
	res := mustCreate(t, e, creator, "bug")

	_, err := e.Claim(context.Background(), testGuild, res.ChannelID, support)
	require.NoError(t, err)
	require.Equal(t, support.ID, tickets.byChannel(res.ChannelID).ClaimedBy)

	_, err = e.Claim(context.Background(), testGuild, res.ChannelID, manager)
	var alreadyClaimed *AlreadyClaimedError
	require.ErrorAs(t, err, &alreadyClaimed)
	require.Equal(t, support.ID, alreadyClaimed.ClaimedBy)

	_, err = e.Unclaim(context.Background(), testGuild, res.ChannelID, support)
	require.NoError(t, err)
	require.Empty(t, tickets.byChannel(res.ChannelID).ClaimedBy)

	_, err = e.Unclaim(context.Background(), testGuild, res.ChannelID, support)
	require.ErrorIs(t, err, ErrNotClaimed)
}

func TestRequestCloseCreatorBypass(t *testing.T) {
	e, s, configs, tickets := newTestEngine(t)
	configureGuild(t, s, configs, false)
	res := mustCreate(t, e, creator, "bug")

	out, err := e.RequestClose(context.Background(), testGuild, res.ChannelID, creator, "resolved")
	require.NoError(t, err)
	require.False(t, out.Pending)

	require.Equal(t, entities.StatusClosed, tickets.byChannel(res.ChannelID).Status)
	require.Equal(t, 0, e.Index().Len())
	require.Contains(t, s.deleted, res.ChannelID)

	// Closing again is a clean no-op failure, not a crash.
	_, err = e.RequestClose(context.Background(), testGuild, res.ChannelID, creator, "again")
	require.ErrorIs(t, err, ErrNotATicketChannel)
}

func TestRequestCloseNeedsConfirmation(t *testing.T) {
	e, s, configs, tickets := newTestEngine(t)
	configureGuild(t, s, configs, false)
	res := mustCreate(t, e, creator, "bug")

	out, err := e.RequestClose(context.Background(), testGuild, res.ChannelID, support, "done")
	require.NoError(t, err)
	require.True(t, out.Pending)
	require.True(t, tickets.byChannel(res.ChannelID).IsOpen())

	// The prompt carries the confirmation button.
	sent := s.sentTo(res.ChannelID)
	prompt := sent[len(sent)-1]
	require.Contains(t, prompt.Data.Content, "<@s1>")
	require.Len(t, prompt.Data.Components, 1)

	_, err = e.RequestClose(context.Background(), testGuild, res.ChannelID, support, "done again")
	require.ErrorIs(t, err, ErrConfirmationPending)
}

func TestConfirmClose(t *testing.T) {
	e, s, configs, tickets := newTestEngine(t)
	configureGuild(t, s, configs, false)
	res := mustCreate(t, e, creator, "bug")

	_, err := e.RequestClose(context.Background(), testGuild, res.ChannelID, support, "done")
	require.NoError(t, err)
	sent := s.sentTo(res.ChannelID)
	promptID := sent[len(sent)-1].ID

	// Only the creator or management may confirm.
	_, err = e.ConfirmClose(context.Background(), testGuild, res.ChannelID, promptID, support)
	require.ErrorIs(t, err, ErrAuthorizationDenied)
	require.True(t, tickets.byChannel(res.ChannelID).IsOpen())

	// A stale prompt reference is rejected, the live one stays armed.
	_, err = e.ConfirmClose(context.Background(), testGuild, res.ChannelID, "msg-999", creator)
	require.ErrorIs(t, err, ErrStaleConfirmation)

	_, err = e.ConfirmClose(context.Background(), testGuild, res.ChannelID, promptID, creator)
	require.NoError(t, err)
	require.Equal(t, entities.StatusClosed, tickets.byChannel(res.ChannelID).Status)
	require.Contains(t, s.deleted, res.ChannelID)

	_, err = e.ConfirmClose(context.Background(), testGuild, res.ChannelID, promptID, creator)
	require.ErrorIs(t, err, ErrStaleConfirmation)
}

func TestCloseClearsClaimAndSetsClosedAt(t *testing.T) {
	e, s, configs, tickets := newTestEngine(t)
	configureGuild(t, s, configs, false)
	res := mustCreate(t, e, creator, "bug")

	_, err := e.Claim(context.Background(), testGuild, res.ChannelID, support)
	require.NoError(t, err)

	// Closing a claimed ticket commits the terminal status, the close time
	// and the claim release as one store update.
	_, err = e.RequestClose(context.Background(), testGuild, res.ChannelID, creator, "resolved")
	require.NoError(t, err)

	stored := tickets.byChannel(res.ChannelID)
	require.NotNil(t, stored)
	require.Equal(t, entities.StatusClosed, stored.Status)
	require.Empty(t, stored.ClaimedBy)
	require.True(t, stored.ClosedAt.IsSet())
}

func TestCloseDeliversTranscript(t *testing.T) {
	e, s, configs, tickets := newTestEngine(t)
	configureGuild(t, s, configs, true)
	res := mustCreate(t, e, creator, "bug")

	s.mu.Lock()
	s.history[res.ChannelID] = []*discordgo.Message{
		{Author: &discordgo.User{Username: "staff"}, Content: "Fixed.", Timestamp: time.Now()},
		{Author: &discordgo.User{Username: "alice"}, Content: "Help!", Timestamp: time.Now().Add(-time.Minute)},
	}
	s.mu.Unlock()

	out, err := e.RequestClose(context.Background(), testGuild, res.ChannelID, creator, "resolved")
	require.NoError(t, err)
	require.True(t, out.Transcript)
	require.Contains(t, out.Message, "<#log-1>")

	delivered := s.sentTo("log-1")
	require.Len(t, delivered, 1)
	require.Len(t, delivered[0].Data.Files, 1)
	require.Equal(t, "ticket-1-transcript.txt", delivered[0].Data.Files[0].Name)
	require.Len(t, delivered[0].Data.Embeds, 1)

	require.Equal(t, entities.StatusClosed, tickets.byChannel(res.ChannelID).Status)
}

func TestAddAndRemoveMember(t *testing.T) {
	e, s, configs, _ := newTestEngine(t)
	configureGuild(t, s, configs, false)
	res := mustCreate(t, e, creator, "bug")

	_, err := e.AddMember(context.Background(), testGuild, res.ChannelID, "u9", support)
	require.NoError(t, err)

	_, err = e.AddMember(context.Background(), testGuild, res.ChannelID, "u9", support)
	require.ErrorIs(t, err, ErrAlreadyMember)

	_, err = e.RemoveMember(context.Background(), testGuild, res.ChannelID, "u9", support)
	require.NoError(t, err)

	_, err = e.RemoveMember(context.Background(), testGuild, res.ChannelID, "u9", support)
	require.ErrorIs(t, err, ErrNotMember)

	_, err = e.AddMember(context.Background(), testGuild, "not-a-ticket", "u9", support)
	require.ErrorIs(t, err, ErrNotATicketChannel)
}

func TestTicketInfo(t *testing.T) {
	e, s, configs, _ := newTestEngine(t)
	configureGuild(t, s, configs, false)
	res := mustCreate(t, e, creator, "bug")

	_, err := e.Claim(context.Background(), testGuild, res.ChannelID, support)
	require.NoError(t, err)

	out, err := e.TicketInfo(context.Background(), testGuild, res.ChannelID)
	require.NoError(t, err)
	require.NotNil(t, out.Embed)
	require.Equal(t, "Ticket #1", out.Embed.Title)
	require.Equal(t, 0x57F287, out.Embed.Color)
	require.Contains(t, out.Embed.Description, "<@s1>")
	require.Len(t, out.Embed.Fields, 1)
	require.Contains(t, out.Embed.Fields[0].Value, "It crashes on login.")

	_, err = e.TicketInfo(context.Background(), testGuild, "not-a-ticket")
	require.ErrorIs(t, err, ErrNotATicketChannel)
}

func TestSetupPanelIsIdempotent(t *testing.T) {
	e, s, configs, _ := newTestEngine(t)
	s.addChannel("panel-1", discordgo.ChannelTypeGuildText)
	s.addChannel("cat-1", discordgo.ChannelTypeGuildCategory)
	s.addChannel("log-1", discordgo.ChannelTypeGuildText)

	_, err := e.SetupPanel(context.Background(), testGuild, "panel-1", "cat-1", "log-1")
	require.NoError(t, err)

	sent := s.sentTo("panel-1")
	require.Len(t, sent, 1)
	require.NotEmpty(t, sent[0].Data.Components)

	gcfg, err := configs.GetGuildConfig(context.Background(), testGuild)
	require.NoError(t, err)
	require.Equal(t, sent[0].ID, gcfg.PanelMessageID)
	require.Equal(t, "cat-1", gcfg.TicketCategoryID)
	require.Equal(t, []string{"role-support"}, gcfg.SupportRoleIDs)
	require.Equal(t, entities.DefaultNamingTemplate, gcfg.ChannelNamingTemplate)

	// A second run edits the panel message in place instead of duplicating it.
	_, err = e.SetupPanel(context.Background(), testGuild, "panel-1", "cat-1", "log-1")
	require.NoError(t, err)
	require.Len(t, s.sentTo("panel-1"), 1)
	require.Equal(t, 1, s.editCount())
}

func TestSetupPanelValidatesChannelTypes(t *testing.T) {
	e, s, _, _ := newTestEngine(t)
	s.addChannel("panel-1", discordgo.ChannelTypeGuildText)
	s.addChannel("not-a-category", discordgo.ChannelTypeGuildText)

	_, err := e.SetupPanel(context.Background(), testGuild, "panel-1", "not-a-category", "")
	require.ErrorIs(t, err, ErrConfigurationIncomplete)
}

func TestPanelComponentsRowCap(t *testing.T) {
	types := make([]entities.TicketType, 7)
	for i := range types {
		types[i] = entities.TicketType{ID: string(rune('a' + i)), Name: "Type"}
	}

	rows := panelComponents(types)
	require.Len(t, rows, 2)
	require.Len(t, rows[0].(discordgo.ActionsRow).Components, 5)
	require.Len(t, rows[1].(discordgo.ActionsRow).Components, 2)
}

func TestReconcileGuild(t *testing.T) {
	e, _, _, tickets := newTestEngine(t)

	require.NoError(t, tickets.InsertTicket(context.Background(), &entities.Ticket{
		ID: 1, GuildID: testGuild, ChannelID: "chan-a", CreatorID: "u1", Status: "Open",
	}))
	require.NoError(t, tickets.InsertTicket(context.Background(), &entities.Ticket{
		ID: 2, GuildID: testGuild, ChannelID: "chan-b", CreatorID: "u2", Status: "Open",
	}))
	require.NoError(t, tickets.InsertTicket(context.Background(), &entities.Ticket{
		ID: 3, GuildID: testGuild, ChannelID: "chan-c", CreatorID: "u3", Status: entities.StatusClosed,
	}))

	require.NoError(t, e.ReconcileGuild(context.Background(), testGuild))
	require.Equal(t, 2, e.Index().Len())
	require.NotNil(t, e.Index().Get("chan-a"))
	require.Nil(t, e.Index().Get("chan-c"))
}

func TestHandleChannelDelete(t *testing.T) {
	e, s, configs, tickets := newTestEngine(t)
	configureGuild(t, s, configs, false)
	res := mustCreate(t, e, creator, "bug")

	e.HandleChannelDelete(context.Background(), testGuild, res.ChannelID)

	require.Equal(t, entities.StatusClosed, tickets.byChannel(res.ChannelID).Status)
	require.Equal(t, 0, e.Index().Len())

	// Unknown channels are ignored.
	e.HandleChannelDelete(context.Background(), testGuild, "never-was-a-ticket")
}

func TestCustomIDs(t *testing.T) {
	typeID, ok := ParseOpenTicketButtonID(OpenTicketButtonID("bug"))
	require.True(t, ok)
	require.Equal(t, "bug", typeID)

	channelID, ok := ParseCloseConfirmButtonID(CloseConfirmButtonID("chan-1"))
	require.True(t, ok)
	require.Equal(t, "chan-1", channelID)

	_, ok = ParseOpenTicketButtonID("something_else")
	require.False(t, ok)
	_, ok = ParseTicketModalID(ticketModalPrefix)
	require.False(t, ok)
}
