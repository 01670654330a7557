package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"falplatform/internal/domain"

	"github.com/sashabaranov/go-openai"
)

func completion(content string) string {
	b, _ := json.Marshal(map[string]interface{}{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"model":   "gpt-4o",
		"choices": []map[string]interface{}{{"index": 0, "message": map[string]string{"role": "assistant", "content": content}, "finish_reason": "stop"}},
	})
	return string(b)
}

func newTestOracle(t *testing.T, handler http.HandlerFunc) *GPTOracle {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	o := NewGPTOracle(Config{APIKey: "test", BaseURL: srv.URL + "/v1"})
	o.backoff = time.Millisecond
	return o
}

func TestInterpretSendsPromptAndReturnsAnswer(t *testing.T) {
	var got openai.ChatCompletionRequest
	o := newTestOracle(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completion("The Tower means change.")))
	})

	answer, err := o.Interpret(context.Background(), Request{
		Type:     domain.FortuneTarot,
		Question: "What about my career?",
		Cards:    []string{"The Tower", "The Star", "The Sun"},
	})
	if err != nil {
		t.Fatalf("interpret: %v", err)
	}
	if answer != "The Tower means change." {
		t.Errorf("answer = %q", answer)
	}

	if len(got.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(got.Messages))
	}
	if !strings.Contains(got.Messages[0].Content, "tarot") {
		t.Errorf("system prompt = %q", got.Messages[0].Content)
	}
	if !strings.Contains(got.Messages[1].Content, "The Tower, The Star, The Sun") {
		t.Errorf("user prompt = %q", got.Messages[1].Content)
	}
}

func TestInterpretAttachesImage(t *testing.T) {
	var raw map[string]interface{}
	o := newTestOracle(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&raw)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completion("ok")))
	})

	if _, err := o.Interpret(context.Background(), Request{
		Type:     domain.FortuneCoffee,
		ImageURL: "https://cdn.example.com/cup.jpg",
	}); err != nil {
		t.Fatalf("interpret: %v", err)
	}

	body, _ := json.Marshal(raw)
	if !strings.Contains(string(body), "https://cdn.example.com/cup.jpg") {
		t.Errorf("image url not sent: %s", body)
	}
}

func TestInterpretRetriesServerErrors(t *testing.T) {
	var calls int32
	o := newTestOracle(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completion("finally")))
	})

	answer, err := o.Interpret(context.Background(), Request{Type: domain.FortuneAIChat, Question: "hi"})
	if err != nil {
		t.Fatalf("interpret: %v", err)
	}
	if answer != "finally" || atomic.LoadInt32(&calls) != 3 {
		t.Errorf("answer = %q after %d calls", answer, calls)
	}
}

func TestInterpretGivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	o := newTestOracle(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
	})

	_, err := o.Interpret(context.Background(), Request{Type: domain.FortuneAIChat, Question: "hi"})
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *openai.APIError
	if !errors.As(err, &apiErr) || apiErr.HTTPStatusCode != http.StatusServiceUnavailable {
		t.Errorf("err = %v, want wrapped 503 APIError", err)
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Errorf("calls = %d, want 3", n)
	}
}

func TestInterpretStopsOnCanceledContext(t *testing.T) {
	var calls int32
	ctx, cancel := context.WithCancel(context.Background())
	o := newTestOracle(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		cancel()
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	})
	o.backoff = time.Second

	if _, err := o.Interpret(ctx, Request{Type: domain.FortuneAIChat, Question: "hi"}); err == nil {
		t.Fatal("expected error")
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}
}

func TestInterpretDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	o := newTestOracle(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"bad","type":"invalid_request_error"}}`))
	})

	if _, err := o.Interpret(context.Background(), Request{Type: domain.FortuneHand}); err == nil {
		t.Fatal("expected error")
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}
}
