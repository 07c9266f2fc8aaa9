package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

func newBotServer(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()

	var (
		mu   sync.Mutex
		sent []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"holler","username":"holler_bot"}}`))
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			if err := r.ParseForm(); err != nil {
				t.Errorf("parse form: %v", err)
			}
			mu.Lock()
			sent = append(sent, r.Form.Get("chat_id")+":"+r.Form.Get("text"))
			mu.Unlock()
			_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":42,"type":"private"},"text":"ok"}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server, &sent
}

func TestPublishDigest(t *testing.T) {
	t.Parallel()

	server, sent := newBotServer(t)
	n, err := NewNotifier("token", "42",
		WithEndpoint(server.URL+"/bot%s/%s"),
		WithHTTPClient(server.Client()),
	)
	if err != nil {
		t.Fatalf("NewNotifier returned error: %v", err)
	}

	if err := n.PublishDigest(context.Background(), "Created: 5"); err != nil {
		t.Fatalf("PublishDigest returned error: %v", err)
	}
	if err := n.PublishDigest(context.Background(), "Created: 6"); err != nil {
		t.Fatalf("second PublishDigest returned error: %v", err)
	}

	if len(*sent) != 2 || (*sent)[0] != "42:Created: 5" {
		t.Fatalf("unexpected messages: %q", *sent)
	}
}

func TestNewNotifierRejectsBadChatID(t *testing.T) {
	t.Parallel()

	if _, err := NewNotifier("token", "@channel"); err == nil {
		t.Fatalf("expected chat id error")
	}
}

func TestPublishDigestMisconfigured(t *testing.T) {
	t.Parallel()

	n, err := NewNotifier("", "1")
	if err != nil {
		t.Fatalf("NewNotifier returned error: %v", err)
	}
	if err := n.PublishDigest(context.Background(), "x"); err == nil {
		t.Fatalf("expected misconfiguration error")
	}
}
