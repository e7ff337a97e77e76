// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jeranaias/vachat/internal/attachments"
	"github.com/jeranaias/vachat/internal/form"
	"github.com/jeranaias/vachat/internal/logging"
	"github.com/jeranaias/vachat/internal/model"
	"github.com/jeranaias/vachat/internal/orchestrator"
	"github.com/jeranaias/vachat/internal/plugin"
	"github.com/jeranaias/vachat/internal/session"
	"github.com/jeranaias/vachat/internal/util"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrEmptyMessage is returned for a send with no text and no attachments.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrInputDisabled is returned while a request is in flight, a reply is
	// being revealed, or free text is suspended by a form.
	ErrInputDisabled = errors.New("input is disabled")

	// ErrSessionClosed is returned once the session has expired or ended.
	ErrSessionClosed = errors.New("session is closed; reload to continue")

	// ErrNoPlugin is returned before a plugin has been selected.
	ErrNoPlugin = errors.New("no plugin selected")

	// ErrFormIncomplete is returned when a form submission has empty fields.
	ErrFormIncomplete = errors.New("form is incomplete")

	// ErrNoForm is returned by form operations when no form is active.
	ErrNoForm = errors.New("no form is active")

	// ErrAlreadyBootstrapped is returned by a second bootstrap for a plugin.
	ErrAlreadyBootstrapped = errors.New("session already bootstrapped")

	// ErrNoFiles is returned by an upload with nothing staged.
	ErrNoFiles = errors.New("no files staged")
)

// =============================================================================
// TYPES
// =============================================================================

// Exchanger performs one orchestrator round trip.
type Exchanger interface {
	Message(ctx context.Context, req *orchestrator.Request) (*orchestrator.Response, error)
}

// TurnKind identifies what started a turn.
type TurnKind int

const (
	TurnBootstrap TurnKind = iota
	TurnSend
	TurnForm
	TurnUpload
)

// uploadInput is the user_input value file-processing plugins expect.
const uploadInput = "files"

func (k TurnKind) String() string {
	switch k {
	case TurnBootstrap:
		return "bootstrap"
	case TurnSend:
		return "send"
	case TurnForm:
		return "form"
	case TurnUpload:
		return "upload"
	default:
		return "unknown"
	}
}

// Turn is one request cycle between Begin and Complete.
type Turn struct {
	Kind      TurnKind
	Request   *orchestrator.Request
	PendingID string

	exchanger Exchanger
	session   *session.Session
	started   time.Time
}

// Outcome describes what Complete applied.
type Outcome struct {
	// Reply is a copy of the resolved bot message; nil on failure.
	Reply *model.Message
	Phase Phase

	FormActivated bool
	Expired       bool
	Ended         bool

	// Err is the transport or parse failure, if any.
	Err error
	// Stale is set when the turn belongs to a session discarded by Reload.
	Stale bool
}

// Options configures a Controller.
type Options struct {
	Language string

	// FreeText false hides the text box: only bootstrap and forms are sent.
	FreeText bool

	// Debug appends the orchestrator's showAllMessages trail.
	Debug bool

	// Incremental reveals replies rune by rune through Advance.
	Incremental bool

	Attachments attachments.Policy
	Logger      logrus.FieldLogger

	// Now is the clock; defaults to time.Now.
	Now func() time.Time
}

// Controller owns one conversation. It is safe for concurrent use, though a
// form returned by Form must only be edited from one goroutine.
type Controller struct {
	mu   sync.Mutex
	opts Options
	log  logrus.FieldLogger

	plugin    *plugin.Plugin
	exchanger Exchanger

	session  *session.Session
	messages *model.Log
	staged   *attachments.Store
	form     *form.Form

	phase        Phase
	language     string
	bootstrapped bool
	revealID     string
	endOnReveal  bool
	lastErr      error
}

// New creates a controller with no plugin selected.
func New(opts Options) *Controller {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Language == "" {
		opts.Language = "en"
	}
	c := &Controller{
		opts:     opts,
		log:      logging.OrDiscard(opts.Logger),
		language: opts.Language,
	}
	c.resetLocked()
	return c
}

func (c *Controller) resetLocked() {
	log := c.log
	c.session = session.New()
	c.session.SetTransitionCallback(func(s session.Status) {
		log.WithField("status", s.String()).Info("session closed")
	})
	c.messages = model.NewLog()
	c.staged = attachments.NewStore(c.opts.Attachments)
	c.form = nil
	c.phase = PhaseIdle
	c.bootstrapped = false
	c.revealID = ""
	c.endOnReveal = false
	c.lastErr = nil
}

// =============================================================================
// ACCESSORS
// =============================================================================

// SetPlugin activates p, talking to it through ex. The caller bootstraps
// afterwards.
func (c *Controller) SetPlugin(p plugin.Plugin, ex Exchanger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.plugin = &p
	c.exchanger = ex
	c.bootstrapped = false
	c.log.WithFields(logrus.Fields{"plugin": p.Title, "type": p.Type}).Info("plugin activated")
}

// Plugin returns the active plugin.
func (c *Controller) Plugin() (plugin.Plugin, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.plugin == nil {
		return plugin.Plugin{}, false
	}
	return *c.plugin, true
}

// Phase returns the current phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// InputEnabled reports whether a send or form submission would be accepted.
func (c *Controller) InputEnabled() bool {
	return c.Phase().InputEnabled()
}

// FreeText reports whether the text box is offered at all.
func (c *Controller) FreeText() bool {
	return c.opts.FreeText
}

// Language returns the display language.
func (c *Controller) Language() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.language
}

// SetLanguage changes the language used for subsequent requests.
func (c *Controller) SetLanguage(lang string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if lang != "" {
		c.language = lang
	}
}

// Session returns a snapshot of the session.
func (c *Controller) Session() session.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Snapshot()
}

// Messages returns a copy of the log.
func (c *Controller) Messages() []model.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.messages.All()
}

// Message returns a copy of one message.
func (c *Controller) Message(id string) (model.Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m := c.messages.Get(id)
	if m == nil {
		return model.Message{}, false
	}
	return m.Clone(), true
}

// LastReply returns a copy of the most recent resolved bot message.
func (c *Controller) LastReply() (model.Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m := c.messages.LastBot()
	if m == nil {
		return model.Message{}, false
	}
	return m.Clone(), true
}

// Attachments returns the staging store for the current session.
func (c *Controller) Attachments() *attachments.Store {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.staged
}

// Form returns the active form, or nil.
func (c *Controller) Form() *form.Form {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.form
}

// LastError returns the most recent transport failure.
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// =============================================================================
// BEGIN
// =============================================================================

// BeginBootstrap starts the empty call that opens a session for the active
// plugin. It runs once per plugin activation.
func (c *Controller) BeginBootstrap() (*Turn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkLocked(PhaseIdle); err != nil {
		return nil, err
	}
	if c.bootstrapped {
		return nil, ErrAlreadyBootstrapped
	}
	c.bootstrapped = true
	return c.beginLocked(TurnBootstrap, "", "", attachments.Staged{})
}

// BeginSend starts a free-text turn. Staged attachments are taken with it.
func (c *Controller) BeginSend(text string) (*Turn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkLocked(PhaseIdle); err != nil {
		return nil, err
	}
	if !c.opts.FreeText {
		return nil, ErrInputDisabled
	}
	text = strings.TrimSpace(text)
	if text == "" && c.staged.Empty() {
		return nil, ErrEmptyMessage
	}

	staged := c.staged.Take()
	user := model.NewUserMessage(text, c.bindingLocked())
	user.Language = c.language
	user.Attachments = staged.Attachments()
	if err := c.messages.Append(user); err != nil {
		return nil, err
	}
	return c.beginLocked(TurnSend, text, "", staged)
}

// BeginFormSubmit validates the active form and starts a turn carrying the
// serialized answers. An incomplete form sets its Invalid flag and returns
// ErrFormIncomplete without touching the log.
func (c *Controller) BeginFormSubmit() (*Turn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkLocked(PhaseForm); err != nil {
		return nil, err
	}
	if c.form == nil {
		return nil, ErrNoForm
	}
	if err := c.form.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormIncomplete, err)
	}
	payload, err := c.form.Serialize()
	if err != nil {
		return nil, fmt.Errorf("serialize form: %w", err)
	}

	user := model.NewUserMessage("", c.bindingLocked())
	user.Language = c.language
	user.FormAnswers = c.form.AnswerFields()
	if err := c.messages.Append(user); err != nil {
		return nil, err
	}
	c.form = nil
	return c.beginLocked(TurnForm, "", string(payload), attachments.Staged{})
}

// BeginUpload sends the staged files to a file-processing plugin. Staged
// images go with them as plain files. The reply lists what was processed.
func (c *Controller) BeginUpload() (*Turn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkLocked(PhaseIdle); err != nil {
		return nil, err
	}
	if c.staged.Empty() {
		return nil, ErrNoFiles
	}

	staged := c.staged.Take()
	user := model.NewUserMessage("", c.bindingLocked())
	user.Language = c.language
	user.Attachments = staged.Attachments()
	if err := c.messages.Append(user); err != nil {
		return nil, err
	}
	t, err := c.beginLocked(TurnUpload, uploadInput, "", staged)
	if err != nil {
		return nil, err
	}
	t.Request.Files = append(t.Request.Files, t.Request.Images...)
	t.Request.Images = nil
	return t, nil
}

func (c *Controller) checkLocked(want Phase) error {
	if c.plugin == nil || c.exchanger == nil {
		return ErrNoPlugin
	}
	if c.phase.Terminal() || !c.session.Active() {
		return ErrSessionClosed
	}
	if c.phase != want {
		return ErrInputDisabled
	}
	return nil
}

func (c *Controller) bindingLocked() model.Binding {
	if c.plugin == nil {
		return model.Binding{}
	}
	return c.plugin.Binding()
}

func (c *Controller) beginLocked(kind TurnKind, text, templateFields string, staged attachments.Staged) (*Turn, error) {
	binding := c.bindingLocked()
	pending, err := c.messages.BeginPending(binding, c.language)
	if err != nil {
		return nil, err
	}

	sessionID, token := c.session.Credentials()
	now := c.opts.Now()
	req := &orchestrator.Request{
		UserInput:      text,
		Timestamp:      util.FormatTimestamp(now),
		MessageID:      util.EpochMillis(now),
		SessionID:      sessionID,
		Token:          token,
		Language:       c.language,
		ConfigID:       binding.ConfigID,
		ConfigKey:      binding.ConfigKey,
		TemplateFields: templateFields,
	}
	for _, f := range staged.Files {
		req.Files = append(req.Files, orchestrator.Upload{Name: f.Name, MIME: f.MIME, Data: f.Data})
	}
	for _, img := range staged.Images {
		req.Images = append(req.Images, orchestrator.Upload{Name: img.Name, MIME: img.MIME, Data: img.Data})
	}

	c.phase = PhaseAwaiting
	c.lastErr = nil
	c.log.WithFields(logrus.Fields{
		"kind":       kind.String(),
		"message_id": req.MessageID,
		"files":      len(req.Files),
		"images":     len(req.Images),
	}).Debug("turn started")

	return &Turn{
		Kind:      kind,
		Request:   req,
		PendingID: pending.ID,
		exchanger: c.exchanger,
		session:   c.session,
		started:   now,
	}, nil
}

// =============================================================================
// EXCHANGE AND COMPLETE
// =============================================================================

// Exchange performs the network call for t. It does not touch controller
// state and may run on any goroutine.
func (c *Controller) Exchange(ctx context.Context, t *Turn) (*orchestrator.Response, error) {
	if t == nil || t.exchanger == nil {
		return nil, ErrNoPlugin
	}
	return t.exchanger.Message(ctx, t.Request)
}

// Complete applies the result of t. The order is fixed: credentials, reply,
// agents' conversation, form, expiry, end of chat, debug trail, then input
// re-enabled.
func (c *Controller) Complete(t *Turn, resp *orchestrator.Response, err error) Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t == nil || t.session != c.session {
		return Outcome{Phase: c.phase, Stale: true, Err: err}
	}
	entry := c.log.WithFields(logrus.Fields{
		"kind":     t.Kind.String(),
		"duration": time.Since(t.started).Round(time.Millisecond),
	})

	if err == nil && resp == nil {
		err = orchestrator.ErrInvalidResponse
	}
	if err != nil {
		c.phase = PhaseStalled
		c.lastErr = err
		entry.WithError(err).Warn("orchestrator request failed")
		return Outcome{Phase: c.phase, Err: err}
	}

	c.session.UpdateCredentials(resp.SessionID, resp.Token)

	var images []string
	if resp.BotImage != "" {
		images = []string{resp.BotImage}
	}
	var reply *model.Message
	if c.messages.HasPending() {
		reply, _ = c.messages.ResolvePending(resp.Text, images)
	}
	if reply == nil {
		// Pending slot was lost; keep the reply rather than drop it.
		reply = model.NewMessage(model.SenderBot, resp.Text, c.bindingLocked())
		reply.Attachments.ImageURLs = images
		reply.Language = c.language
		_ = c.messages.Append(reply)
	}
	reply.Analysis = resp.Analysis.Clone()
	if resp.ProcessedFiles != nil {
		reply.Attachments.Files = append([]model.FileRef{}, resp.ProcessedFiles...)
	}

	for _, a := range resp.AgentMessages {
		status := model.NewStatusMessage(a.Agent, a.Text)
		status.Language = c.language
		_ = c.messages.Append(status)
	}

	out := Outcome{}
	if resp.HasTemplate() {
		tmpl, perr := form.Parse(resp.TemplateFields)
		switch {
		case perr != nil:
			entry.WithError(perr).Warn("ignoring malformed form template")
		case tmpl != nil && !tmpl.Empty():
			c.form = form.New(tmpl)
			out.FormActivated = true
		}
	}

	reveal := c.opts.Incremental && strings.TrimSpace(reply.Text) != ""

	switch {
	case resp.Expired():
		c.session.Expire()
		c.phase = PhaseExpired
		out.Expired = true
		reveal = false
	case resp.Ended():
		if reveal {
			c.endOnReveal = true
		} else {
			c.session.End()
			c.phase = PhaseEnded
			out.Ended = true
		}
	}

	if c.opts.Debug {
		for _, d := range resp.DebugMessages {
			dbg := model.NewMessage(model.SenderDebug, d, c.bindingLocked())
			dbg.Language = c.language
			_ = c.messages.Append(dbg)
		}
	}

	if reveal {
		c.messages.StartReveal(reply.ID)
		c.revealID = reply.ID
		c.phase = PhaseRevealing
	} else if !c.phase.Terminal() {
		c.phase = c.restingPhaseLocked()
	}

	entry.WithFields(logrus.Fields{
		"phase":   c.phase.String(),
		"form":    out.FormActivated,
		"expired": out.Expired,
		"ended":   out.Ended || c.endOnReveal,
	}).Debug("turn completed")

	cp := reply.Clone()
	out.Reply = &cp
	out.Phase = c.phase
	return out
}

func (c *Controller) restingPhaseLocked() Phase {
	if c.form != nil {
		return PhaseForm
	}
	return PhaseIdle
}

// Advance reveals n more runes of the reply being typed out. It returns true
// once nothing is left to reveal; a deferred end of chat applies then.
func (c *Controller) Advance(n int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseRevealing || c.revealID == "" {
		return true
	}
	if !c.messages.Reveal(c.revealID, n) {
		return false
	}
	c.revealID = ""
	if c.endOnReveal {
		c.endOnReveal = false
		c.session.End()
		c.phase = PhaseEnded
		return true
	}
	c.phase = c.restingPhaseLocked()
	return true
}

// =============================================================================
// HEADLESS HELPERS
// =============================================================================

// Bootstrap runs BeginBootstrap, Exchange and Complete.
func (c *Controller) Bootstrap(ctx context.Context) (Outcome, error) {
	t, err := c.BeginBootstrap()
	if err != nil {
		return Outcome{Phase: c.Phase()}, err
	}
	return c.run(ctx, t)
}

// Send runs BeginSend, Exchange and Complete.
func (c *Controller) Send(ctx context.Context, text string) (Outcome, error) {
	t, err := c.BeginSend(text)
	if err != nil {
		return Outcome{Phase: c.Phase()}, err
	}
	return c.run(ctx, t)
}

// SubmitForm runs BeginFormSubmit, Exchange and Complete.
func (c *Controller) SubmitForm(ctx context.Context) (Outcome, error) {
	t, err := c.BeginFormSubmit()
	if err != nil {
		return Outcome{Phase: c.Phase()}, err
	}
	return c.run(ctx, t)
}

// Upload runs BeginUpload, Exchange and Complete.
func (c *Controller) Upload(ctx context.Context) (Outcome, error) {
	t, err := c.BeginUpload()
	if err != nil {
		return Outcome{Phase: c.Phase()}, err
	}
	return c.run(ctx, t)
}

func (c *Controller) run(ctx context.Context, t *Turn) (Outcome, error) {
	resp, err := c.Exchange(ctx, t)
	out := c.Complete(t, resp, err)
	if out.Phase == PhaseRevealing {
		c.finishReveal()
		out.Phase = c.Phase()
		out.Ended = out.Phase == PhaseEnded
		if out.Reply != nil {
			if m, ok := c.Message(out.Reply.ID); ok {
				out.Reply = &m
			}
		}
	}
	return out, out.Err
}

// finishReveal completes any reveal at once; headless callers have no ticks.
func (c *Controller) finishReveal() {
	for !c.Advance(1 << 20) {
	}
}

// Reload discards all client state and starts a new session. The plugin
// stays selected and must be bootstrapped again.
func (c *Controller) Reload() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
	c.log.Info("conversation reloaded")
}
