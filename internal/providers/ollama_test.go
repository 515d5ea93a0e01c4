package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOllama_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(chatResponse("advice", 100))
	}))
	defer server.Close()

	t.Setenv("OLLAMA_HOST", server.URL)
	t.Setenv("CIMEDIC_OLLAMA_API_KEY", "")
	o, err := NewOllama("llama3")
	if err != nil {
		t.Fatalf("NewOllama error: %v", err)
	}

	resp, err := o.Complete(context.Background(), Request{UserPrompt: "test"})
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if resp.Content != "advice" {
		t.Errorf("Content = %q, want %q", resp.Content, "advice")
	}
	if resp.TokensUsed != 100 {
		t.Errorf("TokensUsed = %d, want 100", resp.TokensUsed)
	}
}

func TestOllama_CompleteWithAPIKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-ollama-key" {
			t.Error("Missing or wrong Authorization header")
		}
		json.NewEncoder(w).Encode(chatResponse("ok", 1))
	}))
	defer server.Close()

	t.Setenv("OLLAMA_HOST", server.URL+"/v1")
	t.Setenv("CIMEDIC_OLLAMA_API_KEY", "test-ollama-key")
	o, err := NewOllama("llama3")
	if err != nil {
		t.Fatalf("NewOllama error: %v", err)
	}
	if _, err := o.Complete(context.Background(), Request{UserPrompt: "test"}); err != nil {
		t.Fatalf("Complete error: %v", err)
	}
}

func TestOllamaBaseURL(t *testing.T) {
	tests := []struct {
		name string
		host string
		want string
	}{
		{name: "default", host: "", want: "http://localhost:11434/v1"},
		{name: "trailing slash", host: "http://localhost:11434/", want: "http://localhost:11434/v1"},
		{name: "with v1", host: "http://localhost:11434/v1", want: "http://localhost:11434/v1"},
		{name: "with full path", host: "http://localhost:11434/v1/chat/completions", want: "http://localhost:11434/v1"},
		{name: "custom host", host: "http://192.168.1.100:11434", want: "http://192.168.1.100:11434/v1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ollamaBaseURL(tt.host); got != tt.want {
				t.Errorf("ollamaBaseURL(%q) = %q, want %q", tt.host, got, tt.want)
			}
		})
	}
}

func TestFactory_OllamaAliases(t *testing.T) {
	t.Setenv("OLLAMA_HOST", "http://localhost:11434")

	for _, name := range []string{"ollama", "lmstudio"} {
		r, err := New(name, "llama3")
		if err != nil {
			t.Fatalf("New(%q) error: %v", name, err)
		}
		if r.Name() != "ollama" {
			t.Errorf("New(%q).Name() = %q, want %q", name, r.Name(), "ollama")
		}
	}
}
