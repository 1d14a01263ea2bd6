package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floodline/floodline/dataset"
	"github.com/floodline/floodline/engine"
	"github.com/floodline/floodline/session"
)

const serverCSV = `ProjectID,Region,Province,Municipality,Contractor,ApprovedBudgetForContract,StartDate,CompletionDate,FundingYear
P00001,Region II,Isabela,CITY OF ILAGAN,ACME BUILDERS INC,100,2021-03-01,2022-06-15,2021
P00002,Region II,Cagayan,TUGUEGARAO CITY,ACME BUILDERS INC,200,2022-01-10,,2022
P00003,Region II,Isabela,CITY OF ILAGAN,DELTA CONSTRUCTION CORP,300,2020-07-20,2021-08-01,2020
`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	tbl, err := dataset.LoadString(serverCSV)
	require.NoError(t, err)
	e := engine.New(tbl, engine.WithClock(func() time.Time {
		return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	}))
	conv := session.NewConversation(e, session.NewMemoryStore(), zerolog.Nop())
	srv := httptest.NewServer(NewServer(conv, zerolog.Nop()).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func postAsk(t *testing.T, srv *httptest.Server, sessionID, question string) session.Answer {
	t.Helper()
	body, err := json.Marshal(askRequest{SessionID: sessionID, Question: question})
	require.NoError(t, err)
	resp, err := http.Post(srv.URL+"/ask", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out session.Answer
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAskAnswersQuestion(t *testing.T) {
	srv := newTestServer(t)
	out := postAsk(t, srv, "", "How many projects are there")
	assert.NotEmpty(t, out.SessionID)
	assert.Equal(t, "count", out.Action)
	assert.Equal(t, "There are 3 flood control projects in the dataset.", out.Answer)
}

func TestAskCarriesContextAcrossRequests(t *testing.T) {
	srv := newTestServer(t)

	first := postAsk(t, srv, "", "How many projects are there in Ilagan?")
	assert.Equal(t, "There are 2 flood control projects in Ilagan City.", first.Answer)

	second := postAsk(t, srv, first.SessionID, "what is the total budget?")
	assert.Equal(t, first.SessionID, second.SessionID)
	assert.Equal(t, "The total approved budget in Ilagan City is ₱400.00.", second.Answer)
}

func TestAskRejectsBadInput(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/ask", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/ask", "application/json", strings.NewReader(`{"question":"  "}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	long := strings.Repeat("a", maxQuestionLen+1)
	resp, err = http.Post(srv.URL+"/ask", "application/json",
		strings.NewReader(`{"question":"`+long+`"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSessionContextEndpoints(t *testing.T) {
	srv := newTestServer(t)

	out := postAsk(t, srv, "s1", "How many projects are there in Ilagan?")
	require.Equal(t, "s1", out.SessionID)

	resp, err := http.Get(srv.URL + "/sessions/s1/context")
	require.NoError(t, err)
	var ctxResp map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ctxResp))
	resp.Body.Close()
	assert.Contains(t, ctxResp["context"], "municipality=CITY OF ILAGAN")

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/sessions/s1/context", nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/sessions/s1/context")
	require.NoError(t, err)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ctxResp))
	resp.Body.Close()
	assert.Equal(t, "No conversation context yet.", ctxResp["context"])
}

func TestSessionHistory(t *testing.T) {
	srv := newTestServer(t)

	postAsk(t, srv, "s1", "How many projects are there")
	postAsk(t, srv, "s1", "What is the total budget of all projects")

	resp, err := http.Get(srv.URL + "/sessions/s1/history?limit=10")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var histResp struct {
		SessionID string `json:"session_id"`
		Turns     []struct {
			Question string `json:"question"`
			Action   string `json:"action"`
		} `json:"turns"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&histResp))
	require.Len(t, histResp.Turns, 2)
	assert.Equal(t, "What is the total budget of all projects", histResp.Turns[0].Question)
	assert.Equal(t, "count", histResp.Turns[1].Action)
}

func TestHistoryRejectsBadLimit(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/sessions/s1/history?limit=zero")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
