package session

import (
	"context"
	"regexp"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/floodline/floodline/engine"
	"github.com/floodline/floodline/query"
)

// ============================================================================
// CONVERSATION — stitches engine, context store, and pagination together
// ============================================================================
// One Conversation serves every session. Per-session engine state (the
// pager) lives in an in-process map; durable context goes through the
// Store so a session survives process restarts, pagination does not.
// ============================================================================

var greetingRe = regexp.MustCompile(`(?i)^\s*(hi|hello|hey|good (morning|afternoon|evening)|kumusta|magandang \w+)[!. ]*$`)

const greetingAnswer = "Hello! I can answer questions about Philippine flood control projects — " +
	"budgets, contractors, locations, and timelines. " +
	"Try: \"How many projects are there in Region II?\" or \"Who is the contractor with the highest total approved budget?\""

var helpRe = regexp.MustCompile(`(?i)^\s*(help|what can you do|what can i ask)\??\s*$`)

const helpAnswer = `I answer questions about the flood control projects dataset. For example:
- "How many projects are there in Cavite?"
- "What is the total approved budget in Region II?"
- "Which project has the highest approved budget?"
- "Top 5 contractors by total budget"
- "List the projects in Parañaque City"
- "Who is the contractor of <project id>?"
You can follow up naturally — I remember the place, contractor, and project you last asked about.`

// Answer is one resolved exchange.
type Answer struct {
	SessionID  string `json:"session_id"`
	Question   string `json:"question"`
	Normalized string `json:"normalized_question,omitempty"`
	Action     string `json:"action"`
	Answer     string `json:"answer"`
}

// Conversation resolves questions with per-session memory.
type Conversation struct {
	engine *engine.Engine
	store  Store
	log    zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*engine.Session
}

// NewConversation wires an engine to a context store.
func NewConversation(e *engine.Engine, store Store, log zerolog.Logger) *Conversation {
	return &Conversation{
		engine:   e,
		store:    store,
		log:      log,
		sessions: make(map[string]*engine.Session),
	}
}

func (c *Conversation) session(id string) *engine.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[id]
	if !ok {
		s = engine.NewSession()
		c.sessions[id] = s
	}
	return s
}

// ContextSummary renders the remembered context for a session.
func (c *Conversation) ContextSummary(ctx context.Context, sessionID string) (string, error) {
	stored, err := c.store.Get(ctx, sessionID)
	if err != nil {
		return "", err
	}
	return Summary(stored), nil
}

// ClearContext drops everything remembered for a session.
func (c *Conversation) ClearContext(ctx context.Context, sessionID string) error {
	return c.store.Clear(ctx, sessionID)
}

// History returns the most recent turns for a session, newest first.
func (c *Conversation) History(ctx context.Context, sessionID string, limit int) ([]Turn, error) {
	return c.store.History(ctx, sessionID, limit)
}

// Ask answers one question within a session. An empty session ID starts
// a new session.
func (c *Conversation) Ask(ctx context.Context, sessionID, question string) (Answer, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	out := Answer{SessionID: sessionID, Question: question}

	if greetingRe.MatchString(question) {
		out.Answer = greetingAnswer
		c.logTurn(ctx, sessionID, Turn{Question: question, Answer: out.Answer})
		return out, nil
	}
	if helpRe.MatchString(question) {
		out.Answer = helpAnswer
		c.logTurn(ctx, sessionID, Turn{Question: question, Answer: out.Answer})
		return out, nil
	}

	if ShouldClear(question) {
		if err := c.store.Clear(ctx, sessionID); err != nil {
			return out, err
		}
		out.Answer = "Okay, I've cleared the conversation context. What would you like to know?"
		c.logTurn(ctx, sessionID, Turn{Question: question, Answer: out.Answer})
		return out, nil
	}

	stored, err := c.store.Get(ctx, sessionID)
	if err != nil {
		return out, err
	}

	rewritten := Apply(question, stored)
	if rewritten != question {
		c.log.Debug().Str("session", sessionID).Str("rewritten", rewritten).Msg("applied conversation context")
	}

	normalized := c.engine.Normalize(rewritten)
	intent := c.engine.Parse(normalized)
	answer := c.engine.Execute(intent, c.session(sessionID))

	out.Normalized = normalized
	out.Action = intent.Action
	out.Answer = answer

	updates := Extract(intent)
	if more := ExtractFromAnswer(answer); len(more) > 0 {
		if updates == nil {
			updates = Context{}
		}
		for k, v := range more {
			updates[k] = v
		}
	}
	// Paging follow-ups must not disturb the remembered scope.
	if intent.Action == query.ActionMoreProjects {
		updates = nil
	}
	if len(updates) > 0 {
		if err := c.store.Merge(ctx, sessionID, updates); err != nil {
			return out, err
		}
	}
	c.logTurn(ctx, sessionID, Turn{Question: question, Answer: answer, Action: intent.Action})
	return out, nil
}

// logTurn appends to the history; a logging failure never fails the
// answer.
func (c *Conversation) logTurn(ctx context.Context, sessionID string, turn Turn) {
	if err := c.store.LogTurn(ctx, sessionID, turn); err != nil {
		c.log.Warn().Err(err).Str("session", sessionID).Msg("failed to log turn")
	}
}
