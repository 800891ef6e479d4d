package llm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mkohler/newsroom/pkg/domain"
	"github.com/mkohler/newsroom/pkg/llm"
)

func TestNewOllamaClient(t *testing.T) {
	client := llm.NewOllamaClient("http://localhost:11434", "llama3", nil)
	if client == nil {
		t.Error("Expected client, got nil")
	}
	if client.Model() != "llama3" {
		t.Errorf("Expected model llama3, got %s", client.Model())
	}

	// Test with options
	opts := &llm.OllamaOptions{
		Temperature: 0.8,
		MaxTokens:   1500,
		Timeout:     time.Minute,
	}
	clientWithOpts := llm.NewOllamaClient("http://localhost:11434", "llama3", opts)
	if clientWithOpts == nil {
		t.Error("Expected client with options, got nil")
	}
}

func TestOllamaClient_Chat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("Expected path /api/chat, got %s", r.URL.Path)
		}

		if r.Method != "POST" {
			t.Errorf("Expected POST method, got %s", r.Method)
		}

		var req map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}

		if req["model"] != "test-model" {
			t.Errorf("Expected model test-model, got %v", req["model"])
		}

		if stream, ok := req["stream"].(bool); !ok || stream {
			t.Errorf("Expected stream false, got %v", req["stream"])
		}

		response := map[string]interface{}{
			"message": map[string]interface{}{
				"role":    "assistant",
				"content": "Test response",
			},
			"done":              true,
			"eval_count":        50,
			"prompt_eval_count": 30,
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(response); err != nil {
			t.Errorf("Failed to encode response: %v", err)
		}
	}))
	defer server.Close()

	client := llm.NewOllamaClient(server.URL, "test-model", nil)

	messages := []domain.Message{
		{
			Role:    domain.RoleUser,
			Content: "Test message",
		},
	}

	ctx := context.Background()
	response, err := client.Chat(ctx, messages, domain.ChatOptions{
		Temperature: 0.7,
		MaxTokens:   2000,
	})

	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}

	if response == nil {
		t.Fatal("Expected response, got nil")
	}

	if response.Content != "Test response" {
		t.Errorf("Expected content 'Test response', got %s", response.Content)
	}

	if response.Usage.CompletionTokens != 50 {
		t.Errorf("Expected 50 completion tokens, got %d", response.Usage.CompletionTokens)
	}

	if response.Usage.PromptTokens != 30 {
		t.Errorf("Expected 30 prompt tokens, got %d", response.Usage.PromptTokens)
	}

	if response.Usage.TotalTokens != 80 {
		t.Errorf("Expected 80 total tokens, got %d", response.Usage.TotalTokens)
	}
}

func TestOllamaClient_Chat_ModelOverride(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		if req["model"] != "override-model" {
			t.Errorf("Expected model override-model, got %v", req["model"])
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"message": map[string]interface{}{"role": "assistant", "content": "ok"},
			"done":    true,
		})
	}))
	defer server.Close()

	client := llm.NewOllamaClient(server.URL, "default-model", nil)

	_, err := client.Chat(context.Background(), []domain.Message{
		{Role: domain.RoleUser, Content: "hi"},
	}, domain.ChatOptions{Model: "override-model"})

	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
}

func TestOllamaClient_Chat_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		if err := json.NewEncoder(w).Encode(map[string]string{
			"error": "Internal server error",
		}); err != nil {
			t.Errorf("Failed to encode error response: %v", err)
		}
	}))
	defer server.Close()

	client := llm.NewOllamaClient(server.URL, "test-model", nil)

	messages := []domain.Message{
		{
			Role:    domain.RoleUser,
			Content: "Test message",
		},
	}

	ctx := context.Background()
	_, err := client.Chat(ctx, messages, domain.ChatOptions{})

	if err == nil {
		t.Error("Expected error for server error, got nil")
	}
}

func TestOllamaClient_Chat_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := llm.NewOllamaClient(server.URL, "test-model", nil)

	messages := []domain.Message{
		{
			Role:    domain.RoleUser,
			Content: "Test message",
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := client.Chat(ctx, messages, domain.ChatOptions{})

	if err == nil {
		t.Error("Expected timeout error, got nil")
	}
}

func TestOllamaClient_CheckHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("Expected path /api/tags, got %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := llm.NewOllamaClient(server.URL, "test-model", nil)
	if err := client.CheckHealth(context.Background()); err != nil {
		t.Errorf("CheckHealth failed: %v", err)
	}
}

func TestOllamaClient_ListModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"models": []map[string]string{
				{"name": "llama3"},
				{"name": "mistral"},
			},
		})
	}))
	defer server.Close()

	client := llm.NewOllamaClient(server.URL, "test-model", nil)
	models, err := client.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels failed: %v", err)
	}
	if len(models) != 2 || models[0] != "llama3" || models[1] != "mistral" {
		t.Errorf("Unexpected models: %v", models)
	}
}
