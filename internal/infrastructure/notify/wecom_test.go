package notify

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/meimefarm/greenhouse-core/internal/infrastructure/config"
)

func testClient(url string) *WeComClient {
	return NewWeComClient(config.NotifyConfig{
		Enabled:    true,
		WebhookURL: url,
		Timeout:    5,
	})
}

func TestSend_Markdown(t *testing.T) {
	var received wecomPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &received); err != nil {
			t.Errorf("request body is not valid JSON: %v", err)
		}
		w.Write([]byte(`{"errcode":0,"errmsg":"ok"}`)) //nolint:errcheck
	}))
	defer server.Close()

	err := testClient(server.URL).Send("# 警报内容", FormatMarkdown)
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if received.MsgType != "markdown" {
		t.Errorf("msgtype = %q, want markdown", received.MsgType)
	}
	if received.Markdown == nil || received.Markdown.Content != "# 警报内容" {
		t.Errorf("markdown content = %+v, want the digest", received.Markdown)
	}
	if received.Text != nil {
		t.Error("text section set on a markdown message")
	}
}

func TestSend_TextFallback(t *testing.T) {
	var received wecomPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &received) //nolint:errcheck
		w.Write([]byte(`{"errcode":0,"errmsg":"ok"}`)) //nolint:errcheck
	}))
	defer server.Close()

	// Unknown formats degrade to plain text.
	if err := testClient(server.URL).Send("hello", "bogus"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if received.MsgType != "text" || received.Text == nil || received.Text.Content != "hello" {
		t.Errorf("payload = %+v, want text message", received)
	}
}

func TestSend_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	err := testClient(server.URL).Send("msg", FormatText)
	if !errors.Is(err, ErrSendFailed) {
		t.Errorf("Send() error = %v, want ErrSendFailed", err)
	}
}

func TestSend_APIErrCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errcode":93000,"errmsg":"invalid webhook url"}`)) //nolint:errcheck
	}))
	defer server.Close()

	err := testClient(server.URL).Send("msg", FormatMarkdown)
	if !errors.Is(err, ErrSendFailed) {
		t.Errorf("Send() error = %v, want ErrSendFailed", err)
	}
}
