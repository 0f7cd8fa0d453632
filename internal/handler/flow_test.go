package handler_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/encore/internal/handler"
)

// fakeSession records every interaction response and serves canned
// voice states keyed by user id.
type fakeSession struct {
	responses []*discordgo.InteractionResponse
	voice     map[string]string
}

func (f *fakeSession) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	f.responses = append(f.responses, resp)
	return nil
}

func (f *fakeSession) VoiceState(guildID, userID string) (*discordgo.VoiceState, error) {
	channelID, ok := f.voice[userID]
	if !ok {
		return nil, discordgo.ErrStateNotFound
	}
	return &discordgo.VoiceState{GuildID: guildID, UserID: userID, ChannelID: channelID}, nil
}

var _ handler.DiscordSession = (*fakeSession)(nil)

// staticIDs hands out a fixed sequence of flow instance ids.
type staticIDs struct {
	ids []string
	n   int
}

func (g *staticIDs) Next() (string, error) {
	if g.n >= len(g.ids) {
		return "", errors.New("out of ids")
	}
	id := g.ids[g.n]
	g.n++
	return id, nil
}

func commandInteraction(guildID, name string, options ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Type:    discordgo.InteractionApplicationCommand,
			GuildID: guildID,
			Member: &discordgo.Member{
				User: &discordgo.User{ID: "user-1"},
			},
			ChannelID: "text-1",
			Data:      discordgo.ApplicationCommandInteractionData{Name: name, Options: options},
		},
	}
}

func componentInteraction(guildID, customID string, values ...string) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Type:    discordgo.InteractionMessageComponent,
			GuildID: guildID,
			Member: &discordgo.Member{
				User: &discordgo.User{ID: "user-1"},
			},
			ChannelID: "text-1",
			Data:      discordgo.MessageComponentInteractionData{CustomID: customID, Values: values},
		},
	}
}

func commandStep(name string, ran *int, handle func(ctx *handler.FlowContext) error) *handler.Step {
	return &handler.Step{
		ID: name,
		Matcher: func(i *discordgo.InteractionCreate) bool {
			return i.Type == discordgo.InteractionApplicationCommand &&
				i.ApplicationCommandData().Name == name
		},
		Handler: func(_ handler.DiscordSession, _ *discordgo.InteractionCreate, ctx *handler.FlowContext) error {
			*ran++
			if handle == nil {
				return nil
			}
			return handle(ctx)
		},
	}
}

func componentStep(component string, ran *int, handle func(ctx *handler.FlowContext) error) *handler.Step {
	return &handler.Step{
		ID: component,
		Matcher: func(i *discordgo.InteractionCreate) bool {
			return i.Type == discordgo.InteractionMessageComponent &&
				strings.HasPrefix(i.MessageComponentData().CustomID, component+":")
		},
		Handler: func(_ handler.DiscordSession, _ *discordgo.InteractionCreate, ctx *handler.FlowContext) error {
			*ran++
			if handle == nil {
				return nil
			}
			return handle(ctx)
		},
	}
}

func expectUserError(t *testing.T, err error) *handler.UserError {
	t.Helper()
	var userErr *handler.UserError
	if !errors.As(err, &userErr) {
		t.Fatalf("err = %v; want a UserError", err)
	}
	return userErr
}

func TestFlowSingleStepRuns(t *testing.T) {
	fm := handler.NewFlowManager(&staticIDs{})
	var ran int
	fm.Register(&handler.Flow{ID: "ping", Root: commandStep("ping", &ran, nil)})

	s := &fakeSession{}
	if err := fm.Route(s, commandInteraction("g1", "ping")); err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if ran != 1 {
		t.Errorf("handler ran %d times; want 1", ran)
	}
}

func TestFlowIgnoresUnmatchedInteractions(t *testing.T) {
	fm := handler.NewFlowManager(&staticIDs{})
	var ran int
	fm.Register(&handler.Flow{ID: "ping", Root: commandStep("ping", &ran, nil)})

	if err := fm.Route(&fakeSession{}, commandInteraction("g1", "pong")); err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if ran != 0 {
		t.Errorf("handler ran %d times; want 0", ran)
	}
}

func TestFlowMultiStepCarriesState(t *testing.T) {
	fm := handler.NewFlowManager(&staticIDs{ids: []string{"flow-1"}})

	var rootRan, pickRan int
	var sawValue any
	root := commandStep("search", &rootRan, func(ctx *handler.FlowContext) error {
		ctx.State["key"] = "value"
		return nil
	})
	root.Next = []*handler.Step{
		componentStep("pick", &pickRan, func(ctx *handler.FlowContext) error {
			sawValue = ctx.State["key"]
			return nil
		}),
	}
	fm.Register(&handler.Flow{ID: "search", Root: root})

	s := &fakeSession{}
	if err := fm.Route(s, commandInteraction("g1", "search")); err != nil {
		t.Fatalf("Route(command) error = %v", err)
	}
	if err := fm.Route(s, componentInteraction("g1", "pick:flow-1")); err != nil {
		t.Fatalf("Route(component) error = %v", err)
	}

	if rootRan != 1 || pickRan != 1 {
		t.Errorf("ran root %d times and pick %d times; want 1 and 1", rootRan, pickRan)
	}
	if sawValue != "value" {
		t.Errorf("component saw state %v; want %q", sawValue, "value")
	}

	// The flow finished at its leaf, so replaying the selection must
	// report an expired menu.
	err := fm.Route(s, componentInteraction("g1", "pick:flow-1"))
	expectUserError(t, err)
}

func TestFlowUnknownInstanceExpires(t *testing.T) {
	fm := handler.NewFlowManager(&staticIDs{})

	err := fm.Route(&fakeSession{}, componentInteraction("g1", "pick:ghost"))
	userErr := expectUserError(t, err)
	if !strings.Contains(userErr.Message, "expired") {
		t.Errorf("message = %q; want it to mention expiry", userErr.Message)
	}
}

func TestFlowRootErrorDropsInstance(t *testing.T) {
	fm := handler.NewFlowManager(&staticIDs{ids: []string{"flow-1"}})

	var rootRan, pickRan int
	boom := errors.New("boom")
	root := commandStep("search", &rootRan, func(*handler.FlowContext) error { return boom })
	root.Next = []*handler.Step{componentStep("pick", &pickRan, nil)}
	fm.Register(&handler.Flow{ID: "search", Root: root})

	s := &fakeSession{}
	if err := fm.Route(s, commandInteraction("g1", "search")); !errors.Is(err, boom) {
		t.Fatalf("Route(command) error = %v; want %v", err, boom)
	}

	err := fm.Route(s, componentInteraction("g1", "pick:flow-1"))
	expectUserError(t, err)
	if pickRan != 0 {
		t.Errorf("pick ran %d times; want 0", pickRan)
	}
}

func TestFlowKeepsInstanceWhenStepDoesNotMatch(t *testing.T) {
	fm := handler.NewFlowManager(&staticIDs{ids: []string{"flow-1"}})

	var rootRan, pickRan int
	root := commandStep("search", &rootRan, nil)
	root.Next = []*handler.Step{componentStep("pick", &pickRan, nil)}
	fm.Register(&handler.Flow{ID: "search", Root: root})

	s := &fakeSession{}
	if err := fm.Route(s, commandInteraction("g1", "search")); err != nil {
		t.Fatalf("Route(command) error = %v", err)
	}

	// A component from some other message reuses the instance id
	// format but matches no step; the flow must survive it.
	if err := fm.Route(s, componentInteraction("g1", "other:flow-1")); err != nil {
		t.Fatalf("Route(other component) error = %v", err)
	}
	if err := fm.Route(s, componentInteraction("g1", "pick:flow-1")); err != nil {
		t.Fatalf("Route(component) error = %v", err)
	}
	if pickRan != 1 {
		t.Errorf("pick ran %d times; want 1", pickRan)
	}
}

func TestFlowCustomID(t *testing.T) {
	ctx := &handler.FlowContext{InstanceID: "abc"}
	if got := handler.FlowCustomID("pick", ctx); got != "pick:abc" {
		t.Errorf("FlowCustomID() = %q; want %q", got, "pick:abc")
	}
}
