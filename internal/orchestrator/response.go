// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package orchestrator

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/jeranaias/vachat/internal/model"
)

// Lifecycle signal values.
const (
	SignalEndChat              = "END_CHAT"
	SignalAuthenticationFailed = "AUTHENTICATION_FAILED"
	SignalSessionExpired       = "SESSION_EXPIRED"
)

// Response is a parsed orchestrator reply.
type Response struct {
	SessionID string
	Token     string
	Text      string
	BotImage  string

	// TemplateFields is the raw form template JSON, "" when absent.
	TemplateFields string

	EndChat        string
	Authentication string
	Session        string

	// DebugMessages is the showAllMessages trail.
	DebugMessages []string

	// AgentMessages is the agents' conversation behind the reply.
	AgentMessages []AgentMessage

	// Analysis is the reasoning context; nil when the reply has none.
	Analysis *model.Analysis

	// ProcessedFiles lists what a file-processing plugin accepted. It is
	// nil unless the reply carried a file list.
	ProcessedFiles []model.FileRef
}

// AgentMessage is one line of the agents' conversation.
type AgentMessage struct {
	Agent string
	Text  string
}

// ParseResponse decodes a reply body. Scalars are read leniently: a numeric
// session id or a non-string template are accepted. A top-level array is
// the file list a file-processing plugin returns.
func ParseResponse(data []byte) (*Response, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidResponse
	}
	root := gjson.ParseBytes(data)
	if root.IsArray() {
		return &Response{ProcessedFiles: parseFiles(root)}, nil
	}
	if !root.IsObject() {
		return nil, ErrInvalidResponse
	}

	r := &Response{
		SessionID:      scalar(root.Get("session_id")),
		Token:          scalar(root.Get("token")),
		Text:           scalar(root.Get("response")),
		BotImage:       scalar(root.Get("bot_image")),
		EndChat:        scalar(root.Get("end_chat")),
		Authentication: scalar(root.Get("authentication")),
		Session:        scalar(root.Get("session")),
	}

	if tf := root.Get("template_fields"); tf.Exists() && tf.Type != gjson.Null {
		r.TemplateFields = tf.Raw
	}

	root.Get("showAllMessages").ForEach(func(_, item gjson.Result) bool {
		var text string
		switch {
		case item.Type == gjson.String:
			text = item.Str
		case item.IsObject():
			text = scalar(item.Get("message"))
			if text == "" {
				text = scalar(item.Get("text"))
			}
			if text == "" {
				text = item.Raw
			}
		default:
			text = item.Raw
		}
		if strings.TrimSpace(text) != "" {
			r.DebugMessages = append(r.DebugMessages, text)
		}
		return true
	})

	root.Get("agents").ForEach(func(_, item gjson.Result) bool {
		msg := AgentMessage{Agent: scalar(item.Get("agent"))}
		if item.Type == gjson.String {
			msg = AgentMessage{Text: item.Str}
		} else {
			msg.Text = scalar(item.Get("message"))
			if msg.Text == "" {
				msg.Text = scalar(item.Get("text"))
			}
		}
		if strings.TrimSpace(msg.Text) != "" {
			r.AgentMessages = append(r.AgentMessages, msg)
		}
		return true
	})

	if ctx := root.Get("context"); ctx.IsObject() {
		r.Analysis = parseAnalysis(ctx)
	}

	if files := root.Get("files"); files.IsArray() {
		r.ProcessedFiles = parseFiles(files)
	}

	return r, nil
}

// parseFiles reads file entries given as objects with a name or as bare
// strings. The result is non-nil so an empty list still reads as a reply.
func parseFiles(list gjson.Result) []model.FileRef {
	files := []model.FileRef{}
	list.ForEach(func(_, item gjson.Result) bool {
		ref := model.FileRef{Name: scalar(item)}
		if item.IsObject() {
			ref = model.FileRef{
				Name: scalar(item.Get("name")),
				Size: item.Get("size").Int(),
			}
		}
		if strings.TrimSpace(ref.Name) != "" {
			files = append(files, ref)
		}
		return true
	})
	return files
}

func parseAnalysis(ctx gjson.Result) *model.Analysis {
	a := &model.Analysis{}
	ctx.Get("thoughts").ForEach(func(_, item gjson.Result) bool {
		t := model.Thought{Title: scalar(item.Get("title"))}
		desc := item.Get("description")
		switch {
		case desc.IsObject() || desc.IsArray():
			t.Description = strings.TrimSpace(desc.Get("@pretty").Raw)
		default:
			t.Description = scalar(desc)
		}
		item.Get("props").ForEach(func(k, v gjson.Result) bool {
			if t.Props == nil {
				t.Props = make(map[string]string)
			}
			t.Props[k.String()] = scalar(v)
			return true
		})
		a.Thoughts = append(a.Thoughts, t)
		return true
	})
	a.Support = stringList(ctx.Get("support"))
	a.Citations = stringList(ctx.Get("citations"))
	if a.Empty() {
		return nil
	}
	return a
}

func stringList(list gjson.Result) []string {
	var out []string
	list.ForEach(func(_, item gjson.Result) bool {
		if v := strings.TrimSpace(scalar(item)); v != "" {
			out = append(out, v)
		}
		return true
	})
	return out
}

func scalar(r gjson.Result) string {
	if !r.Exists() || r.Type == gjson.Null {
		return ""
	}
	if r.Type == gjson.String {
		return r.Str
	}
	return r.Raw
}

// Ended reports the end-of-chat signal.
func (r *Response) Ended() bool {
	return r.EndChat == SignalEndChat
}

// Expired reports an authentication failure or session expiry.
func (r *Response) Expired() bool {
	return r.Authentication == SignalAuthenticationFailed || r.Session == SignalSessionExpired
}

// HasTemplate reports whether a template payload is present.
func (r *Response) HasTemplate() bool {
	t := strings.TrimSpace(r.TemplateFields)
	return t != "" && t != `""` && t != "[]" && t != "{}"
}
