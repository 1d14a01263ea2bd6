package engine

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/floodline/floodline/dataset"
	"github.com/floodline/floodline/fuzzy"
	"github.com/floodline/floodline/query"
)

// ============================================================================
// ENGINE — resolves questions against the loaded dataset
// ============================================================================
// The pipeline is: normalize → classify → filter → aggregate → format.
// The engine is read-only over the table and safe to share; per-user
// state (pagination) lives in a Session.
// ============================================================================

const internalErrorAnswer = "I hit an internal error while computing that answer. " +
	"Please try rephrasing the question or adding more specifics (e.g., municipality/province/year)."

// Engine answers analytics questions over one dataset table.
type Engine struct {
	table   *dataset.Table
	matcher fuzzy.Matcher
	log     zerolog.Logger
	now     func() time.Time

	normalizer query.Normalizer
	parser     *query.Parser
}

// Option configures an Engine.
type Option func(*Engine)

// WithMatcher overrides the fuzzy matcher. Pass nil to disable fuzzy
// matching entirely.
func WithMatcher(m fuzzy.Matcher) Option {
	return func(e *Engine) { e.matcher = m }
}

// WithLogger sets the structured logger.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithClock overrides the time source used by relative-year and
// ongoing/completed filters.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New builds an engine over a loaded table.
func New(table *dataset.Table, opts ...Option) *Engine {
	e := &Engine{
		table:   table,
		matcher: fuzzy.New(),
		log:     zerolog.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.normalizer = query.Normalizer{Matcher: e.matcher}
	e.parser = &query.Parser{Table: table, Matcher: e.matcher, Now: e.now}
	return e
}

// Table exposes the underlying dataset table.
func (e *Engine) Table() *dataset.Table { return e.table }

// Normalize corrects spelling noise in a raw question.
func (e *Engine) Normalize(question string) string {
	return e.normalizer.Normalize(question, e.table.Vocabulary())
}

// Parse classifies a normalized question.
func (e *Engine) Parse(question string) query.Intent {
	return e.parser.Parse(question)
}

// Resolve answers one question within a session. It never panics: an
// unexpected failure logs and returns a generic error answer.
func (e *Engine) Resolve(question string, s *Session) (answer string) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error().Interface("panic", r).Str("question", question).Msg("resolver panicked")
			answer = internalErrorAnswer
		}
	}()

	normalized := e.Normalize(question)
	intent := e.Parse(normalized)
	e.log.Debug().
		Str("question", question).
		Str("normalized", normalized).
		Msg("classified question")

	answer = e.Execute(intent, s)
	e.log.Info().Str("action", intent.Action).Msg("question resolved")
	return answer
}
