package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"DailyHoller/internal/config"
	"DailyHoller/internal/infrastructure/ml"
)

func TestChatGPTClientComplete(t *testing.T) {
	t.Parallel()

	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("missing bearer token")
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gpt-4o-mini",
			"choices": [{
				"index": 0,
				"finish_reason": "stop",
				"message": {"role": "assistant", "content": "  Headline\nBody  "}
			}]
		}`))
	}))
	defer server.Close()

	client, err := NewChatGPTClient(config.LLMConfig{
		APIKey:      "sk-test",
		Model:       "gpt-4o-mini",
		BaseURL:     server.URL + "/",
		Temperature: 0.8,
		MaxTokens:   1000,
	})
	if err != nil {
		t.Fatalf("NewChatGPTClient error: %v", err)
	}

	text, err := client.Complete(context.Background(), "system", "write")
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if text != "Headline\nBody" {
		t.Fatalf("unexpected text: %q", text)
	}
	if got["model"] != "gpt-4o-mini" {
		t.Fatalf("unexpected model in request: %v", got["model"])
	}
	messages, _ := got["messages"].([]any)
	if len(messages) != 2 {
		t.Fatalf("expected system and user messages, got %v", got["messages"])
	}
}

func TestChatGPTClientSurfacesHTTPErrors(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
	}))
	defer server.Close()

	client, err := NewChatGPTClient(config.LLMConfig{APIKey: "k", Model: "m", BaseURL: server.URL + "/"})
	if err != nil {
		t.Fatalf("NewChatGPTClient error: %v", err)
	}
	if _, err := client.Complete(context.Background(), "", "write"); err == nil {
		t.Fatalf("expected error on 429")
	}
}

func TestAnthropicClientComplete(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/v1/messages") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-3-5-haiku-latest",
			"content": [{"type": "text", "text": "Headline\n"}, {"type": "text", "text": "Body"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 20}
		}`))
	}))
	defer server.Close()

	client, err := NewAnthropicClient(config.LLMConfig{APIKey: "k", Model: "claude-3-5-haiku-latest", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewAnthropicClient error: %v", err)
	}

	text, err := client.Complete(context.Background(), "system", "write")
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if text != "Headline\nBody" {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestNewCompleterResolvesProviders(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	c, err := NewCompleter(ctx, config.LLMConfig{Provider: "inference", BaseURL: "http://localhost:9000"})
	if err != nil {
		t.Fatalf("inference provider: %v", err)
	}
	if _, ok := c.(*ml.Client); !ok {
		t.Fatalf("expected ml client, got %T", c)
	}

	c, err = NewCompleter(ctx, config.LLMConfig{APIKey: "k", Model: "gpt-4o-mini"})
	if err != nil {
		t.Fatalf("default provider: %v", err)
	}
	if _, ok := c.(*ChatGPTClient); !ok {
		t.Fatalf("expected chatgpt client by default, got %T", c)
	}

	if _, err := NewCompleter(ctx, config.LLMConfig{Provider: "anthropic"}); err == nil {
		t.Fatalf("expected misconfiguration error without key")
	}
	if _, err := NewCompleter(ctx, config.LLMConfig{Provider: "cohere", APIKey: "k", Model: "m"}); err == nil {
		t.Fatalf("expected unsupported provider error")
	}
}
