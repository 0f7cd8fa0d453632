package handler

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/encore/internal/generator"
)

// Some interactions span multiple Discord events: a command that
// replies with a select menu, then the selection itself. A Flow
// describes those steps, and the FlowManager tracks live instances by
// the id embedded in each component's custom id.

// FlowContext carries state between the steps of one flow instance.
type FlowContext struct {
	InstanceID string
	State      map[string]any
}

// Step is one interaction in a flow. The Matcher decides whether an
// incoming interaction belongs to this step.
type Step struct {
	ID      string
	Matcher func(*discordgo.InteractionCreate) bool
	Handler func(DiscordSession, *discordgo.InteractionCreate, *FlowContext) error
	Next    []*Step
}

type Flow struct {
	ID   string
	Root *Step
}

type flowSession struct {
	step      *Step
	ctx       *FlowContext
	expiresAt time.Time
}

// flowTTL bounds how long an abandoned menu keeps its state around.
const flowTTL = 5 * time.Minute

type FlowManager struct {
	flows []*Flow

	sessionsMu sync.Mutex
	sessions   map[string]*flowSession

	ids generator.Generator[string]
}

func NewFlowManager(ids generator.Generator[string]) *FlowManager {
	if ids == nil {
		ids = &generator.UUIDGenerator{}
	}
	return &FlowManager{
		sessions: make(map[string]*flowSession),
		ids:      ids,
	}
}

// Register adds a flow. Flows are matched in registration order; call
// this before routing interactions.
func (fm *FlowManager) Register(flow *Flow) {
	fm.flows = append(fm.flows, flow)
}

// FlowCustomID builds a component custom id that routes a later
// interaction back into the same flow instance.
func FlowCustomID(component string, ctx *FlowContext) string {
	return component + ":" + ctx.InstanceID
}

func instanceIDFromInteraction(i *discordgo.InteractionCreate) string {
	if i.Type != discordgo.InteractionMessageComponent {
		return ""
	}
	parts := strings.SplitN(i.MessageComponentData().CustomID, ":", 2)
	if len(parts) != 2 {
		return ""
	}
	return parts[1]
}

// Route dispatches an interaction: component interactions resume the
// flow instance named in their custom id, everything else may start a
// new flow. Interactions nothing matches are dropped.
func (fm *FlowManager) Route(s DiscordSession, i *discordgo.InteractionCreate) error {
	fm.prune()

	if id := instanceIDFromInteraction(i); id != "" {
		fm.sessionsMu.Lock()
		sess, ok := fm.sessions[id]
		fm.sessionsMu.Unlock()
		if !ok {
			return &UserError{Message: "That menu has expired. Run the command again."}
		}
		return fm.advance(s, i, id, sess)
	}

	return fm.start(s, i)
}

func (fm *FlowManager) start(s DiscordSession, i *discordgo.InteractionCreate) error {
	var flow *Flow
	for _, f := range fm.flows {
		if f.Root.Matcher(i) {
			flow = f
			break
		}
	}
	if flow == nil {
		return nil
	}

	// Single-step flows have no later interaction to resume, so
	// nothing is tracked for them.
	if len(flow.Root.Next) == 0 {
		return flow.Root.Handler(s, i, &FlowContext{State: make(map[string]any)})
	}

	id, err := fm.ids.Next()
	if err != nil {
		return fmt.Errorf("failed to generate flow instance id: %w", err)
	}
	ctx := &FlowContext{InstanceID: id, State: make(map[string]any)}

	fm.sessionsMu.Lock()
	fm.sessions[id] = &flowSession{
		step:      flow.Root,
		ctx:       ctx,
		expiresAt: time.Now().Add(flowTTL),
	}
	fm.sessionsMu.Unlock()

	if err := flow.Root.Handler(s, i, ctx); err != nil {
		fm.drop(id)
		return err
	}
	return nil
}

func (fm *FlowManager) advance(s DiscordSession, i *discordgo.InteractionCreate, id string, sess *flowSession) error {
	var next *Step
	for _, step := range sess.step.Next {
		if step.Matcher(i) {
			next = step
			break
		}
	}
	if next == nil {
		return nil
	}

	sess.step = next
	err := next.Handler(s, i, sess.ctx)
	if err != nil || len(next.Next) == 0 {
		fm.drop(id)
	}
	return err
}

func (fm *FlowManager) drop(id string) {
	fm.sessionsMu.Lock()
	delete(fm.sessions, id)
	fm.sessionsMu.Unlock()
}

func (fm *FlowManager) prune() {
	now := time.Now()
	fm.sessionsMu.Lock()
	for id, sess := range fm.sessions {
		if now.After(sess.expiresAt) {
			delete(fm.sessions, id)
		}
	}
	fm.sessionsMu.Unlock()
}
