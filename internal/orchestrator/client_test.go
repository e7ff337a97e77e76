// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/vachat/internal/model"
)

// captured holds the decoded multipart request seen by the test server.
type captured struct {
	fields map[string][]string
	files  map[string][]string // field -> filenames
	types  map[string][]string // field -> part content types
}

func captureServer(t *testing.T, reply string, status int) (*httptest.Server, *captured, *int32) {
	t.Helper()
	got := &captured{}
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if r.URL.Path != "/message" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
		}
		got.fields = r.MultipartForm.Value
		got.files = map[string][]string{}
		got.types = map[string][]string{}
		for field, headers := range r.MultipartForm.File {
			for _, h := range headers {
				got.files[field] = append(got.files[field], h.Filename)
				got.types[field] = append(got.types[field], h.Header.Get("Content-Type"))
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, reply)
	}))
	t.Cleanup(server.Close)
	return server, got, &hits
}

func TestMessage_SendsAllFields(t *testing.T) {
	server, got, _ := captureServer(t, `{"session_id":"s1","token":"t1","response":"Hi!"}`, http.StatusOK)

	req := &Request{
		UserInput: "Hello",
		Timestamp: "2024-05-01T10:00:00",
		MessageID: "1714557600000",
		SessionID: "",
		Token:     "",
		Language:  "en-US",
		ConfigID:  "cfg",
		ConfigKey: "key",
		Files:     []Upload{{Name: "a.pdf", MIME: "application/pdf", Data: []byte("%PDF")}},
		Images:    []Upload{{Name: "x.png", MIME: "image/png", Data: []byte("png")}, {Name: "y.png", Data: []byte("png2")}},
	}

	resp, err := NewClient(server.URL).Message(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "s1", resp.SessionID)
	assert.Equal(t, "t1", resp.Token)
	assert.Equal(t, "Hi!", resp.Text)

	for name, want := range map[string]string{
		"user_input":      "Hello",
		"timestamp":       "2024-05-01T10:00:00",
		"messageId":       "1714557600000",
		"session_id":      "",
		"token":           "",
		"language":        "en-US",
		"body":            "",
		"orch_config_id":  "cfg",
		"orch_config_key": "key",
	} {
		require.Contains(t, got.fields, name)
		assert.Equal(t, []string{want}, got.fields[name], name)
	}
	assert.NotContains(t, got.fields, "template_fields")
	assert.Equal(t, []string{"a.pdf"}, got.files["files"])
	assert.Equal(t, []string{"x.png", "y.png"}, got.files["images"])
	assert.Equal(t, []string{"image/png", "application/octet-stream"}, got.types["images"])
}

func TestMessage_TemplateFields(t *testing.T) {
	server, got, _ := captureServer(t, `{"response":"thanks"}`, http.StatusOK)
	_, err := NewClient(server.URL).Message(context.Background(), &Request{
		TemplateFields: `[{"name":"Ana"}]`,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{`[{"name":"Ana"}]`}, got.fields["template_fields"])
	assert.Equal(t, []string{""}, got.fields["user_input"])
}

func TestMessage_HTTPErrorNoRetry(t *testing.T) {
	server, _, hits := captureServer(t, `oops`, http.StatusBadGateway)
	_, err := NewClient(server.URL).Message(context.Background(), &Request{UserInput: "x"})

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusBadGateway, httpErr.Status)
	assert.Equal(t, int32(1), atomic.LoadInt32(hits), "requests must not be retried")
}

func TestHTTPError_TruncatesByRune(t *testing.T) {
	body := strings.Repeat("é", 150) + strings.Repeat("ü", 150)
	msg := (&HTTPError{Status: http.StatusBadGateway, Body: body}).Error()

	assert.True(t, utf8.ValidString(msg), "message must stay valid UTF-8")
	assert.True(t, strings.HasSuffix(msg, "..."))
	detail := strings.TrimPrefix(msg, "orchestrator error (HTTP 502): ")
	assert.Equal(t, 200, utf8.RuneCountInString(detail))

	short := (&HTTPError{Status: http.StatusNotFound, Body: "  missing  "}).Error()
	assert.Equal(t, "orchestrator error (HTTP 404): missing", short)
	assert.Equal(t, "orchestrator error (HTTP 500)", (&HTTPError{Status: 500}).Error())
}

func TestMessage_ExpiredOn401(t *testing.T) {
	server, _, _ := captureServer(t, `{"authentication":"AUTHENTICATION_FAILED"}`, http.StatusUnauthorized)
	resp, err := NewClient(server.URL).Message(context.Background(), &Request{})
	require.NoError(t, err)
	assert.True(t, resp.Expired())
}

func TestMessage_InvalidJSON(t *testing.T) {
	server, _, _ := captureServer(t, `<html>`, http.StatusOK)
	_, err := NewClient(server.URL).Message(context.Background(), &Request{})
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestMessage_ResponseTooLarge(t *testing.T) {
	server, _, _ := captureServer(t, `{"response":"`+strings.Repeat("a", 200)+`"}`, http.StatusOK)
	_, err := NewClient(server.URL).WithMaxResponseSize(64).Message(context.Background(), &Request{})
	assert.ErrorIs(t, err, ErrResponseTooLarge)
}

func TestMessage_NoHost(t *testing.T) {
	_, err := NewClient("").Message(context.Background(), &Request{})
	assert.ErrorIs(t, err, ErrNoHost)
}

func TestMessage_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	timeout := 20 * time.Millisecond
	_, err := NewClient(server.URL).WithTimeout(timeout).Message(context.Background(), &Request{})
	assert.Error(t, err)
}

// =============================================================================
// RESPONSE TESTS
// =============================================================================

func TestParseResponse(t *testing.T) {
	data := []byte(`{
		"session_id": 42,
		"token": "tok",
		"response": "Pick one",
		"bot_image": "https://img.test/a.png",
		"template_fields": [{"name":"x","label":"X"}],
		"end_chat": "END_CHAT",
		"session": "SESSION_EXPIRED",
		"showAllMessages": ["step one", {"message":"step two"}, ""]
	}`)
	resp, err := ParseResponse(data)
	require.NoError(t, err)
	assert.Equal(t, "42", resp.SessionID)
	assert.Equal(t, "https://img.test/a.png", resp.BotImage)
	assert.True(t, resp.HasTemplate())
	assert.JSONEq(t, `[{"name":"x","label":"X"}]`, resp.TemplateFields)
	assert.True(t, resp.Ended())
	assert.True(t, resp.Expired())
	assert.Equal(t, []string{"step one", "step two"}, resp.DebugMessages)
}

func TestParseResponse_Minimal(t *testing.T) {
	resp, err := ParseResponse([]byte(`{"response":"ok","template_fields":null}`))
	require.NoError(t, err)
	assert.False(t, resp.HasTemplate())
	assert.False(t, resp.Ended())
	assert.False(t, resp.Expired())
	assert.Empty(t, resp.SessionID)
}

func TestParseResponse_NotObject(t *testing.T) {
	for _, body := range []string{`"a"`, `42`, `null`} {
		_, err := ParseResponse([]byte(body))
		assert.ErrorIs(t, err, ErrInvalidResponse, body)
	}
}

func TestParseResponse_FileList(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []model.FileRef
	}{
		{"array of objects", `[{"name":"a.pdf","size":12},{"name":"b.txt"}]`, []model.FileRef{{Name: "a.pdf", Size: 12}, {Name: "b.txt"}}},
		{"array of names", `["a.pdf", ""]`, []model.FileRef{{Name: "a.pdf"}}},
		{"empty array", `[]`, []model.FileRef{}},
		{"files key", `{"response":"done","files":[{"name":"c.csv"}]}`, []model.FileRef{{Name: "c.csv"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := ParseResponse([]byte(tt.body))
			require.NoError(t, err)
			require.NotNil(t, resp.ProcessedFiles)
			assert.Equal(t, tt.want, resp.ProcessedFiles)
		})
	}

	resp, err := ParseResponse([]byte(`{"response":"ok"}`))
	require.NoError(t, err)
	assert.Nil(t, resp.ProcessedFiles, "chat replies carry no file list")
}

func TestParseResponse_Agents(t *testing.T) {
	resp, err := ParseResponse([]byte(`{
		"response": "ok",
		"agents": [
			{"agent": "Planner", "message": "splitting the task"},
			{"agent": "Search", "text": "found 3 documents"},
			"unattributed note",
			{"agent": "Idle", "message": "  "}
		]
	}`))
	require.NoError(t, err)
	assert.Equal(t, []AgentMessage{
		{Agent: "Planner", Text: "splitting the task"},
		{Agent: "Search", Text: "found 3 documents"},
		{Text: "unattributed note"},
	}, resp.AgentMessages)
}

func TestParseResponse_Analysis(t *testing.T) {
	resp, err := ParseResponse([]byte(`{
		"response": "ok",
		"context": {
			"thoughts": [
				{"title": "Query", "description": "rewrote the question", "props": {"model": "m1", "tokens": 42}},
				{"title": "Plan", "description": {"steps": [1, 2]}}
			],
			"support": ["doc.pdf: relevant passage", ""],
			"citations": ["https://docs.test/a.pdf"]
		}
	}`))
	require.NoError(t, err)
	require.NotNil(t, resp.Analysis)

	a := resp.Analysis
	require.Len(t, a.Thoughts, 2)
	assert.Equal(t, "Query", a.Thoughts[0].Title)
	assert.Equal(t, "rewrote the question", a.Thoughts[0].Description)
	assert.Equal(t, map[string]string{"model": "m1", "tokens": "42"}, a.Thoughts[0].Props)
	assert.JSONEq(t, `{"steps":[1,2]}`, a.Thoughts[1].Description)
	assert.Contains(t, a.Thoughts[1].Description, "\n", "structured descriptions are indented")
	assert.Equal(t, []string{"doc.pdf: relevant passage"}, a.Support)
	assert.Equal(t, []string{"https://docs.test/a.pdf"}, a.Citations)

	empty, err := ParseResponse([]byte(`{"response":"ok","context":{"thoughts":[]}}`))
	require.NoError(t, err)
	assert.Nil(t, empty.Analysis)
}

func TestNormalizeHost(t *testing.T) {
	tests := map[string]string{
		"orchestrator.example.com":          "https://orchestrator.example.com",
		"http://orchestrator.example.com/":  "https://orchestrator.example.com",
		"https://orchestrator.example.com/": "https://orchestrator.example.com",
		"//cdn.example.com":                 "https://cdn.example.com",
		"  ":                                "",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeHost(in), in)
	}
}

// =============================================================================
// FEEDBACK TESTS
// =============================================================================

func TestFeedbackClient_Post(t *testing.T) {
	var bodies []map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies = append(bodies, body)
	}))
	defer server.Close()

	fc := NewFeedbackClient(server.URL, 100)
	require.NoError(t, fc.Post(context.Background(), "m1", "like"))
	require.NoError(t, fc.Post(context.Background(), "m1", ""))

	require.Len(t, bodies, 2)
	assert.Equal(t, "m1", bodies[0]["messageId"])
	assert.Equal(t, "like", bodies[0]["feedback"])
	v, ok := bodies[1]["feedback"]
	assert.True(t, ok, "cleared feedback must be sent as explicit null")
	assert.Nil(t, v)
}

func TestFeedbackClient_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	err := NewFeedbackClient(server.URL, 100).Post(context.Background(), "m1", "dislike")
	var httpErr *HTTPError
	assert.True(t, errors.As(err, &httpErr))

	var nilClient *FeedbackClient
	assert.ErrorIs(t, nilClient.Post(context.Background(), "m", "like"), ErrNoFeedbackEndpoint)
}
