package session

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floodline/floodline/dataset"
	"github.com/floodline/floodline/engine"
)

const conversationCSV = `ProjectID,Region,Province,Municipality,Contractor,ApprovedBudgetForContract,StartDate,CompletionDate,FundingYear
P00001,Region II,Isabela,CITY OF ILAGAN,ACME BUILDERS INC,100,2021-03-01,2022-06-15,2021
P00002,Region II,Cagayan,TUGUEGARAO CITY,ACME BUILDERS INC,200,2022-01-10,,2022
P00003,Region II,Isabela,CITY OF ILAGAN,DELTA CONSTRUCTION CORP,300,2020-07-20,2021-08-01,2020
P00004,National Capital Region,Metropolitan Manila,"CITY OF PARAÑAQUE, METROPOLITAN MANILA",DELTA CONSTRUCTION CORP,450,2021-05-05,2023-01-30,2021
P00005,Region II,Isabela,CITY OF ILAGAN,EPSILON BUILDERS,450,2019-02-01,2019-12-31,2019
`

func newConversation(t *testing.T) *Conversation {
	t.Helper()
	tbl, err := dataset.LoadString(conversationCSV)
	require.NoError(t, err)
	e := engine.New(tbl, engine.WithClock(func() time.Time {
		return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	}))
	return NewConversation(e, NewMemoryStore(), zerolog.Nop())
}

func ask(t *testing.T, c *Conversation, sessionID, question string) Answer {
	t.Helper()
	out, err := c.Ask(context.Background(), sessionID, question)
	require.NoError(t, err)
	return out
}

func TestAskAssignsSessionID(t *testing.T) {
	c := newConversation(t)
	out := ask(t, c, "", "How many projects are there")
	assert.NotEmpty(t, out.SessionID)
	assert.Equal(t, "There are 5 flood control projects in the dataset.", out.Answer)
}

func TestAskGreetingAndHelp(t *testing.T) {
	c := newConversation(t)
	out := ask(t, c, "s1", "hello")
	assert.Contains(t, out.Answer, "Hello!")

	out = ask(t, c, "s1", "what can you do")
	assert.Contains(t, out.Answer, "I answer questions about the flood control projects dataset.")

	turns, err := c.History(context.Background(), "s1", 0)
	require.NoError(t, err)
	assert.Len(t, turns, 2)
}

func TestAskCarriesPlaceAcrossTurns(t *testing.T) {
	c := newConversation(t)

	out := ask(t, c, "s1", "How many projects are there in Ilagan?")
	assert.Equal(t, "There are 3 flood control projects in Ilagan City.", out.Answer)

	// No place named, so the remembered municipality scopes the sum.
	out = ask(t, c, "s1", "what is the total budget?")
	assert.Equal(t, "The total approved budget in Ilagan City is ₱850.00.", out.Answer)

	summary, err := c.ContextSummary(context.Background(), "s1")
	require.NoError(t, err)
	assert.Contains(t, summary, "municipality=CITY OF ILAGAN")
}

func TestAskCarriesProjectIDAcrossTurns(t *testing.T) {
	c := newConversation(t)

	out := ask(t, c, "s1", "Who is the contractor of P00003?")
	assert.Equal(t, "The contractor for Project ID P00003 is DELTA CONSTRUCTION CORP.", out.Answer)

	out = ask(t, c, "s1", "when was it completed?")
	assert.Equal(t, "Project ID P00003 was completed on 2021-08-01.", out.Answer)
}

func TestAskNewPlaceSupersedesOld(t *testing.T) {
	c := newConversation(t)

	ask(t, c, "s1", "How many projects are there in Ilagan?")
	out := ask(t, c, "s1", "How many projects are there in Cagayan?")
	assert.Equal(t, "There are 1 flood control projects in Cagayan.", out.Answer)

	// The follow-up sum scopes to the newer place.
	out = ask(t, c, "s1", "what is the total budget?")
	assert.Equal(t, "The total approved budget in Cagayan is ₱200.00.", out.Answer)
}

func TestAskResetClearsContext(t *testing.T) {
	c := newConversation(t)

	ask(t, c, "s1", "How many projects are there in Ilagan?")
	out := ask(t, c, "s1", "reset")
	assert.Contains(t, out.Answer, "cleared the conversation context")

	out = ask(t, c, "s1", "what is the total budget?")
	assert.Equal(t, "The total approved budget for all projects is ₱1,500.00.", out.Answer)
}

func TestAskMoreProjectsKeepsScope(t *testing.T) {
	c := newConversation(t)

	out := ask(t, c, "s1", "List the projects in Ilagan")
	assert.Contains(t, out.Answer, "Top 3 projects by approved budget")
	assert.Contains(t, out.Answer, "P00005")

	// Everything fit on the first page.
	out = ask(t, c, "s1", "more")
	assert.Equal(t, "There are no more projects to show for the last location. "+
		"You can ask for another place or specify a contractor.", out.Answer)

	// Paging must not have dropped the remembered place.
	out = ask(t, c, "s1", "what is the total budget?")
	assert.Equal(t, "The total approved budget in Ilagan City is ₱850.00.", out.Answer)
}

func TestAskSessionsAreIsolated(t *testing.T) {
	c := newConversation(t)

	ask(t, c, "a", "How many projects are there in Ilagan?")
	out := ask(t, c, "b", "what is the total budget?")
	assert.Equal(t, "The total approved budget for all projects is ₱1,500.00.", out.Answer)
}

func TestAskLogsTurns(t *testing.T) {
	c := newConversation(t)

	ask(t, c, "s1", "How many projects are there in Ilagan?")
	ask(t, c, "s1", "what is the total budget?")

	turns, err := c.History(context.Background(), "s1", 10)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	// Newest first; the log keeps the question as asked, before rewriting.
	assert.Equal(t, "what is the total budget?", turns[0].Question)
	assert.Equal(t, "count", turns[1].Action)
}
