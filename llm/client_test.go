package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func completionServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("auth header = %q", auth)
		}
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestClientRecognize(t *testing.T) {
	srv := completionServer(t, `{"intent": "refund", "confidence": 0.92, "entities": {"order_id": "12345678901"}, "reasoning": "asks for money back"}`)
	defer srv.Close()

	c := NewClient(WithAPIKey("test-key"), WithBaseURL(srv.URL))
	result, err := c.Recognize(context.Background(), "refund order 12345678901", orderIntents, nil)
	if err != nil {
		t.Fatalf("recognize: %v", err)
	}
	if result.Intent != "refund" {
		t.Errorf("intent = %s", result.Intent)
	}
	if result.Confidence != 0.92 {
		t.Errorf("confidence = %v", result.Confidence)
	}
	if result.Entities["order_id"] != "12345678901" {
		t.Errorf("entities = %v", result.Entities)
	}
}

func TestClientStripsMarkdownFences(t *testing.T) {
	srv := completionServer(t, "```json\n{\"intent\": \"order_query\", \"confidence\": 0.8}\n```")
	defer srv.Close()

	c := NewClient(WithAPIKey("test-key"), WithBaseURL(srv.URL))
	result, err := c.Recognize(context.Background(), "where is my thing", orderIntents, nil)
	if err != nil {
		t.Fatalf("recognize: %v", err)
	}
	if result.Intent != "order_query" {
		t.Errorf("intent = %s", result.Intent)
	}
}

func TestClientFuzzyMatchesIntentName(t *testing.T) {
	srv := completionServer(t, `{"intent": "ORDER", "confidence": 0.7}`)
	defer srv.Close()

	c := NewClient(WithAPIKey("test-key"), WithBaseURL(srv.URL))
	result, _ := c.Recognize(context.Background(), "order please", orderIntents, nil)
	if result.Intent != "order_query" {
		t.Errorf("intent = %s, want fuzzy match to order_query", result.Intent)
	}
}

func TestClientUnlistedIntentBecomesUnknown(t *testing.T) {
	srv := completionServer(t, `{"intent": "complaint", "confidence": 0.9}`)
	defer srv.Close()

	c := NewClient(WithAPIKey("test-key"), WithBaseURL(srv.URL))
	result, _ := c.Recognize(context.Background(), "hphm", orderIntents, nil)
	if result.Intent != IntentUnknown {
		t.Errorf("intent = %s, want unknown", result.Intent)
	}
}

func TestClientMalformedJSONIsUnknown(t *testing.T) {
	srv := completionServer(t, "no json here at all")
	defer srv.Close()

	c := NewClient(WithAPIKey("test-key"), WithBaseURL(srv.URL))
	result, err := c.Recognize(context.Background(), "hello", orderIntents, nil)
	if err != nil {
		t.Fatalf("recognize: %v", err)
	}
	if result.Intent != IntentUnknown {
		t.Errorf("intent = %s, want unknown", result.Intent)
	}
}

func TestClientDegradesToLocalOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(WithAPIKey("test-key"), WithBaseURL(srv.URL))
	result, err := c.Recognize(context.Background(), "I want a refund", orderIntents, nil)
	if err != nil {
		t.Fatalf("recognize should degrade, not fail: %v", err)
	}
	// The local matcher answers instead.
	if result.Intent != "refund" {
		t.Errorf("intent = %s, want refund via local matcher", result.Intent)
	}
}

func TestClientEnrichesEmptyEntities(t *testing.T) {
	srv := completionServer(t, `{"intent": "order_query", "confidence": 0.8, "entities": {}}`)
	defer srv.Close()

	c := NewClient(WithAPIKey("test-key"), WithBaseURL(srv.URL))
	result, _ := c.Recognize(context.Background(), "order 12345678901234 status", orderIntents, nil)
	if result.Entities["order_id"] != "12345678901234" {
		t.Errorf("entities = %v, want extracted order_id", result.Entities)
	}
}

func TestParseIntentResponseDefaultsConfidence(t *testing.T) {
	result := parseIntentResponse(`{"intent": "refund"}`, []string{"refund"})
	if result.Confidence != 0.5 {
		t.Errorf("confidence = %v, want default 0.5", result.Confidence)
	}
}
