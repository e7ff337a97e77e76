// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package controller

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/vachat/internal/attachments"
	"github.com/jeranaias/vachat/internal/model"
	"github.com/jeranaias/vachat/internal/orchestrator"
	"github.com/jeranaias/vachat/internal/plugin"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// scriptedExchanger replies with queued responses and records requests.
type scriptedExchanger struct {
	mu       sync.Mutex
	replies  []*orchestrator.Response
	err      error
	requests []*orchestrator.Request
}

func (s *scriptedExchanger) Message(_ context.Context, req *orchestrator.Request) (*orchestrator.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	if len(s.replies) == 0 {
		return &orchestrator.Response{Text: "ok"}, nil
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r, nil
}

func (s *scriptedExchanger) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

var testPlugin = plugin.Plugin{
	Title: "Helpdesk",
	Host:  "orch.test",
	Type:  plugin.TypeChatbot,
	Keys:  plugin.Keys{ConfigID: "cfg-1", ConfigKey: "key-1"},
}

var fixedNow = time.Date(2025, 3, 4, 5, 6, 7, 0, time.Local)

func newTestController(t *testing.T, ex Exchanger, mutate ...func(*Options)) *Controller {
	t.Helper()
	opts := Options{
		Language:    "en",
		FreeText:    true,
		Attachments: attachments.Policy{AllowFiles: true, AllowImages: true},
		Now:         func() time.Time { return fixedNow },
	}
	for _, m := range mutate {
		m(&opts)
	}
	c := New(opts)
	c.SetPlugin(testPlugin, ex)
	return c
}

// =============================================================================
// SEND
// =============================================================================

func TestSend_HelloHi(t *testing.T) {
	ex := &scriptedExchanger{replies: []*orchestrator.Response{
		{Text: "Hi!", SessionID: "s1", Token: "t1"},
	}}
	c := newTestController(t, ex)

	out, err := c.Send(context.Background(), "Hello")
	require.NoError(t, err)
	require.NotNil(t, out.Reply)
	assert.Equal(t, "Hi!", out.Reply.Text)
	assert.Equal(t, PhaseIdle, out.Phase)

	msgs := c.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, model.SenderUser, msgs[0].Sender)
	assert.Equal(t, "Hello", msgs[0].Text)
	assert.Equal(t, model.SenderBot, msgs[1].Sender)
	assert.Equal(t, "Hi!", msgs[1].Text)
	assert.False(t, msgs[1].Pending)

	snap := c.Session()
	assert.Equal(t, "s1", snap.SessionID)
	assert.True(t, snap.HasToken)

	req := ex.requests[0]
	assert.Equal(t, "Hello", req.UserInput)
	assert.Equal(t, "2025-03-04T05:06:07", req.Timestamp)
	assert.Equal(t, "cfg-1", req.ConfigID)
	assert.Equal(t, "key-1", req.ConfigKey)
	assert.Equal(t, "en", req.Language)
	assert.Empty(t, req.SessionID, "first request has no session yet")
}

func TestSend_CredentialsEchoedAndKept(t *testing.T) {
	ex := &scriptedExchanger{replies: []*orchestrator.Response{
		{Text: "a", SessionID: "s1", Token: "t1"},
		{Text: "b"},
		{Text: "c"},
	}}
	c := newTestController(t, ex)

	for _, text := range []string{"one", "two", "three"} {
		_, err := c.Send(context.Background(), text)
		require.NoError(t, err)
	}
	for _, req := range ex.requests[1:] {
		assert.Equal(t, "s1", req.SessionID)
		assert.Equal(t, "t1", req.Token)
	}
}

func TestSend_EmptyIsNoop(t *testing.T) {
	ex := &scriptedExchanger{}
	c := newTestController(t, ex)

	_, err := c.Send(context.Background(), "   \n\t")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Empty(t, c.Messages())
	assert.Equal(t, 0, ex.Calls())
	assert.Equal(t, PhaseIdle, c.Phase())
}

func TestSend_AttachmentsOnly(t *testing.T) {
	ex := &scriptedExchanger{}
	c := newTestController(t, ex)
	require.NoError(t, c.Attachments().AddFile("report.pdf", []byte("%PDF-1.4 data")))

	_, err := c.Send(context.Background(), "")
	require.NoError(t, err)

	req := ex.requests[0]
	require.Len(t, req.Files, 1)
	assert.Equal(t, "report.pdf", req.Files[0].Name)
	assert.True(t, c.Attachments().Empty(), "staging cleared on send")

	msgs := c.Messages()
	require.Len(t, msgs[0].Attachments.Files, 1)
	assert.Equal(t, int64(len("%PDF-1.4 data")), msgs[0].Attachments.Files[0].Size)
}

func TestSend_SinglePendingGuarantee(t *testing.T) {
	c := newTestController(t, &scriptedExchanger{})

	turn, err := c.BeginSend("first")
	require.NoError(t, err)
	assert.False(t, c.InputEnabled())

	_, err = c.BeginSend("second")
	assert.ErrorIs(t, err, ErrInputDisabled)
	_, err = c.BeginFormSubmit()
	assert.ErrorIs(t, err, ErrInputDisabled)

	pending := 0
	for _, m := range c.Messages() {
		if m.Pending {
			pending++
		}
	}
	assert.Equal(t, 1, pending)
	assert.Len(t, c.Messages(), 2)

	c.Complete(turn, &orchestrator.Response{Text: "done"}, nil)
	assert.True(t, c.InputEnabled())
}

func TestSend_FreeTextDisabled(t *testing.T) {
	c := newTestController(t, &scriptedExchanger{}, func(o *Options) { o.FreeText = false })
	_, err := c.Send(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrInputDisabled)
}

func TestSend_NoPlugin(t *testing.T) {
	c := New(Options{FreeText: true})
	_, err := c.Send(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrNoPlugin)
}

// =============================================================================
// LIFECYCLE
// =============================================================================

func TestComplete_SessionExpired(t *testing.T) {
	ex := &scriptedExchanger{replies: []*orchestrator.Response{
		{Text: "bye", Session: orchestrator.SignalSessionExpired},
	}}
	c := newTestController(t, ex)

	out, err := c.Send(context.Background(), "hello")
	require.NoError(t, err)
	assert.True(t, out.Expired)
	assert.Equal(t, PhaseExpired, c.Phase())
	assert.False(t, c.InputEnabled())

	_, err = c.Send(context.Background(), "still here?")
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.Equal(t, 1, ex.Calls())
}

func TestComplete_AuthenticationFailed(t *testing.T) {
	ex := &scriptedExchanger{replies: []*orchestrator.Response{
		{Authentication: orchestrator.SignalAuthenticationFailed},
	}}
	c := newTestController(t, ex)
	out, _ := c.Send(context.Background(), "hello")
	assert.Equal(t, PhaseExpired, out.Phase)
}

func TestComplete_ExpiredWinsOverEnded(t *testing.T) {
	ex := &scriptedExchanger{replies: []*orchestrator.Response{
		{Text: "x", EndChat: orchestrator.SignalEndChat, Session: orchestrator.SignalSessionExpired},
	}}
	c := newTestController(t, ex)
	out, _ := c.Send(context.Background(), "hello")
	assert.Equal(t, PhaseExpired, out.Phase)
	assert.True(t, out.Expired)
	assert.False(t, out.Ended)
}

func TestComplete_EndChatIsTerminal(t *testing.T) {
	ex := &scriptedExchanger{replies: []*orchestrator.Response{
		{Text: "Goodbye", EndChat: orchestrator.SignalEndChat},
	}}
	c := newTestController(t, ex)

	out, err := c.Send(context.Background(), "bye")
	require.NoError(t, err)
	assert.True(t, out.Ended)
	assert.Equal(t, PhaseEnded, c.Phase())

	_, err = c.Send(context.Background(), "again")
	assert.ErrorIs(t, err, ErrSessionClosed)

	c.Reload()
	assert.Equal(t, PhaseIdle, c.Phase())
	assert.Empty(t, c.Messages())
	_, err = c.Send(context.Background(), "fresh start")
	assert.NoError(t, err)
}

func TestComplete_TransportFailureStalls(t *testing.T) {
	ex := &scriptedExchanger{err: errors.New("connection refused")}
	c := newTestController(t, ex)

	out, err := c.Send(context.Background(), "hello")
	require.Error(t, err)
	assert.Equal(t, PhaseStalled, out.Phase)
	assert.False(t, c.InputEnabled())
	assert.Error(t, c.LastError())

	msgs := c.Messages()
	require.Len(t, msgs, 2)
	assert.True(t, msgs[1].Pending, "no further log mutation after failure")

	_, err = c.Send(context.Background(), "retry")
	assert.ErrorIs(t, err, ErrInputDisabled)
	assert.Equal(t, 1, ex.Calls())
}

func TestComplete_StaleAfterReload(t *testing.T) {
	c := newTestController(t, &scriptedExchanger{})
	turn, err := c.BeginSend("hello")
	require.NoError(t, err)

	c.Reload()
	out := c.Complete(turn, &orchestrator.Response{Text: "late"}, nil)
	assert.True(t, out.Stale)
	assert.Empty(t, c.Messages())
	assert.Equal(t, PhaseIdle, c.Phase())
}

func TestComplete_DebugTrail(t *testing.T) {
	resp := &orchestrator.Response{Text: "answer", DebugMessages: []string{"step 1", "step 2"}}

	c := newTestController(t, &scriptedExchanger{replies: []*orchestrator.Response{resp}}, func(o *Options) { o.Debug = true })
	_, err := c.Send(context.Background(), "q")
	require.NoError(t, err)
	msgs := c.Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, model.SenderDebug, msgs[2].Sender)
	assert.Equal(t, "step 2", msgs[3].Text)

	quiet := newTestController(t, &scriptedExchanger{replies: []*orchestrator.Response{resp}})
	_, err = quiet.Send(context.Background(), "q")
	require.NoError(t, err)
	assert.Len(t, quiet.Messages(), 2)
}

func TestComplete_BotImage(t *testing.T) {
	ex := &scriptedExchanger{replies: []*orchestrator.Response{{Text: "chart", BotImage: "https://img.test/c.png"}}}
	c := newTestController(t, ex)
	out, err := c.Send(context.Background(), "draw")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://img.test/c.png"}, out.Reply.Attachments.ImageURLs)
}

// =============================================================================
// BOOTSTRAP
// =============================================================================

func TestBootstrap_OncePerActivation(t *testing.T) {
	ex := &scriptedExchanger{replies: []*orchestrator.Response{{Text: "Welcome", SessionID: "s1", Token: "t1"}}}
	c := newTestController(t, ex)

	out, err := c.Bootstrap(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Welcome", out.Reply.Text)

	req := ex.requests[0]
	assert.Empty(t, req.UserInput)
	assert.Empty(t, req.SessionID)
	assert.Empty(t, req.Token)

	msgs := c.Messages()
	require.Len(t, msgs, 1, "bootstrap adds no user message")

	_, err = c.Bootstrap(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyBootstrapped)
}

// =============================================================================
// FORMS
// =============================================================================

const contactTemplate = `{"title":"Contact","fields":[
	{"name":"email","label":"Email","type":"email"},
	{"name":"topics","label":"Topics","type":"multiselect","options":["billing","tech"]}
]}`

func TestForm_Lifecycle(t *testing.T) {
	ex := &scriptedExchanger{replies: []*orchestrator.Response{
		{Text: "Please fill in", TemplateFields: contactTemplate},
		{Text: "Thanks"},
	}}
	c := newTestController(t, ex)

	out, err := c.Send(context.Background(), "contact me")
	require.NoError(t, err)
	assert.True(t, out.FormActivated)
	assert.Equal(t, PhaseForm, c.Phase())
	assert.True(t, c.InputEnabled())

	_, err = c.Send(context.Background(), "free text is suspended")
	assert.ErrorIs(t, err, ErrInputDisabled)

	f := c.Form()
	require.NotNil(t, f)
	require.NoError(t, f.Set("email", "a@b.test"))

	_, err = c.SubmitForm(context.Background())
	assert.ErrorIs(t, err, ErrFormIncomplete)
	assert.True(t, f.Invalid)
	assert.Equal(t, 1, ex.Calls(), "incomplete form never reaches the backend")

	require.NoError(t, f.Toggle("topics", "tech"))
	_, err = c.SubmitForm(context.Background())
	require.NoError(t, err)
	assert.Nil(t, c.Form())
	assert.Equal(t, PhaseIdle, c.Phase())

	req := ex.requests[1]
	assert.Empty(t, req.UserInput)
	assert.JSONEq(t, `[{"email":"a@b.test"},{"topics":["tech"]}]`, req.TemplateFields)

	msgs := c.Messages()
	user := msgs[2]
	assert.Equal(t, model.SenderUser, user.Sender)
	require.Len(t, user.FormAnswers, 2)
	assert.Equal(t, []string{"tech"}, user.FormAnswers[1].Values)
}

func TestForm_MalformedTemplateIgnored(t *testing.T) {
	ex := &scriptedExchanger{replies: []*orchestrator.Response{{Text: "x", TemplateFields: "{not json"}}}
	c := newTestController(t, ex)
	out, _ := c.Send(context.Background(), "q")
	assert.False(t, out.FormActivated)
	assert.Equal(t, PhaseIdle, c.Phase())
}

// =============================================================================
// INCREMENTAL REVEAL
// =============================================================================

func TestAdvance_RevealThenEnd(t *testing.T) {
	c := newTestController(t, &scriptedExchanger{}, func(o *Options) { o.Incremental = true })
	turn, err := c.BeginSend("bye")
	require.NoError(t, err)

	out := c.Complete(turn, &orchestrator.Response{Text: "abcdef", EndChat: orchestrator.SignalEndChat}, nil)
	assert.Equal(t, PhaseRevealing, out.Phase)
	assert.False(t, out.Ended, "end of chat waits for the reveal")
	assert.False(t, c.InputEnabled())

	assert.False(t, c.Advance(4))
	msg, _ := c.Message(out.Reply.ID)
	assert.Equal(t, "abcd", msg.VisibleText())

	assert.True(t, c.Advance(4))
	assert.Equal(t, PhaseEnded, c.Phase())
}

func TestAdvance_ExpiryImmediate(t *testing.T) {
	c := newTestController(t, &scriptedExchanger{}, func(o *Options) { o.Incremental = true })
	turn, _ := c.BeginSend("x")
	out := c.Complete(turn, &orchestrator.Response{Text: "abcdef", Session: orchestrator.SignalSessionExpired}, nil)
	assert.Equal(t, PhaseExpired, out.Phase)
}

// =============================================================================
// HTTP ROUND TRIP
// =============================================================================

func TestSend_OverHTTP(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "Hello", r.FormValue("user_input"))
		assert.Equal(t, "cfg-1", r.FormValue("orch_config_id"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"response":"Hi!","session_id":"s1","token":"t1"}`))
	}))
	defer server.Close()

	c := newTestController(t, orchestrator.NewClient(server.URL))
	out, err := c.Send(context.Background(), "Hello")
	require.NoError(t, err)
	assert.Equal(t, "Hi!", out.Reply.Text)
	assert.Equal(t, "s1", c.Session().SessionID)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

// =============================================================================
// UPLOAD
// =============================================================================

func TestUpload_OverHTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "files", r.FormValue("user_input"))
		var names []string
		for _, fh := range r.MultipartForm.File["files"] {
			names = append(names, fh.Filename)
		}
		assert.Equal(t, []string{"report.pdf", "chart.png"}, names)
		assert.Empty(t, r.MultipartForm.File["images"])
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"name":"report.pdf"},{"name":"chart.png"}]`))
	}))
	defer server.Close()

	c := newTestController(t, orchestrator.NewClient(server.URL))
	require.NoError(t, c.Attachments().AddFile("report.pdf", []byte("%PDF-1.4 data")))
	_, err := c.Attachments().AddImage("chart.png", append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), 'c'))
	require.NoError(t, err)

	out, err := c.Upload(context.Background())
	require.NoError(t, err)
	require.NotNil(t, out.Reply)
	assert.Equal(t, []model.FileRef{{Name: "report.pdf"}, {Name: "chart.png"}}, out.Reply.Attachments.Files)
	assert.Equal(t, PhaseIdle, out.Phase)
	assert.True(t, c.Attachments().Empty())

	msgs := c.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, model.SenderUser, msgs[0].Sender)
	assert.Len(t, msgs[0].Attachments.Files, 1)
	assert.Len(t, msgs[0].Attachments.ImagePreviews, 1)
}

func TestUpload_NothingStaged(t *testing.T) {
	ex := &scriptedExchanger{}
	c := newTestController(t, ex)

	_, err := c.Upload(context.Background())
	assert.ErrorIs(t, err, ErrNoFiles)
	assert.Equal(t, 0, ex.Calls())
	assert.Empty(t, c.Messages())
}

func TestUpload_EmptyResultKept(t *testing.T) {
	ex := &scriptedExchanger{replies: []*orchestrator.Response{{ProcessedFiles: []model.FileRef{}}}}
	c := newTestController(t, ex)
	require.NoError(t, c.Attachments().AddFile("notes.txt", []byte("plain text")))

	out, err := c.Upload(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, out.Reply.Attachments.Files, "an empty result is still a result")
	assert.Empty(t, out.Reply.Attachments.Files)
}

// =============================================================================
// AGENTS AND ANALYSIS
// =============================================================================

func TestComplete_AgentMessages(t *testing.T) {
	ex := &scriptedExchanger{replies: []*orchestrator.Response{{
		Text: "answer",
		AgentMessages: []orchestrator.AgentMessage{
			{Agent: "Planner", Text: "splitting"},
			{Agent: "Search", Text: "found 3"},
		},
	}}}
	c := newTestController(t, ex)

	out, err := c.Send(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "answer", out.Reply.Text)

	msgs := c.Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, model.SenderBot, msgs[1].Sender, "reply resolves in place ahead of the agents")
	assert.Equal(t, model.SenderStatus, msgs[2].Sender)
	assert.Equal(t, "Planner", msgs[2].Agent)
	assert.Equal(t, "found 3", msgs[3].Text)

	reply, ok := c.LastReply()
	require.True(t, ok)
	assert.Equal(t, out.Reply.ID, reply.ID, "agent lines are not replies")
}

func TestComplete_Analysis(t *testing.T) {
	analysis := &model.Analysis{Citations: []string{"https://docs.test/a.pdf"}}
	ex := &scriptedExchanger{replies: []*orchestrator.Response{{Text: "answer", Analysis: analysis}}}
	c := newTestController(t, ex)

	out, err := c.Send(context.Background(), "q")
	require.NoError(t, err)
	require.NotNil(t, out.Reply.Analysis)
	assert.Equal(t, analysis.Citations, out.Reply.Analysis.Citations)

	analysis.Citations[0] = "changed"
	m, _ := c.Message(out.Reply.ID)
	assert.Equal(t, "https://docs.test/a.pdf", m.Analysis.Citations[0])
}

func TestLastReply(t *testing.T) {
	ex := &scriptedExchanger{replies: []*orchestrator.Response{{Text: "first"}, {Text: "second"}}}
	c := newTestController(t, ex)
	_, ok := c.LastReply()
	assert.False(t, ok)

	for _, q := range []string{"a", "b"} {
		_, err := c.Send(context.Background(), q)
		require.NoError(t, err)
	}
	reply, ok := c.LastReply()
	require.True(t, ok)
	assert.Equal(t, "second", reply.Text)
}

func TestSession_ClosedIsLogged(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	ex := &scriptedExchanger{replies: []*orchestrator.Response{{Session: orchestrator.SignalSessionExpired}}}
	c := newTestController(t, ex, func(o *Options) { o.Logger = logger })

	_, err := c.Send(context.Background(), "q")
	require.NoError(t, err)

	var statuses []interface{}
	for _, e := range hook.AllEntries() {
		if e.Message == "session closed" {
			statuses = append(statuses, e.Data["status"])
		}
	}
	assert.Equal(t, []interface{}{"expired"}, statuses)

	c.Reload()
	hook.Reset()
	ex.replies = []*orchestrator.Response{{EndChat: orchestrator.SignalEndChat}}
	_, err = c.Send(context.Background(), "q")
	require.NoError(t, err)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "session closed", hook.LastEntry().Message)
	assert.Equal(t, "ended", hook.LastEntry().Data["status"])
}
