package llm

import (
	"context"
	"testing"
)

var orderIntents = []Intent{
	{
		Name:        "order_query",
		Patterns:    []string{"order", "shipping", "delivery"},
		Description: "the user asks about an order",
		Examples:    []string{"where is my order", "check the shipping status"},
	},
	{
		Name:        "refund",
		Patterns:    []string{"refund", "return"},
		Description: "the user wants a refund",
		Examples:    []string{"I want a refund"},
	},
}

func TestLocalMatchesPatterns(t *testing.T) {
	result, err := Local{}.Recognize(context.Background(), "where is my ORDER", orderIntents, nil)
	if err != nil {
		t.Fatalf("recognize: %v", err)
	}
	if result.Intent != "order_query" {
		t.Errorf("intent = %s", result.Intent)
	}
	if result.Confidence <= 0 || result.Confidence > 1 {
		t.Errorf("confidence = %v", result.Confidence)
	}
}

func TestLocalScoringIsDeterministic(t *testing.T) {
	// "order" pattern (1) + example overlap with "where is my order"
	// (4 words * 0.5) = 3; confidence 3/5.
	result, _ := Local{}.Recognize(context.Background(), "where is my order", orderIntents, nil)
	if result.Intent != "order_query" {
		t.Fatalf("intent = %s", result.Intent)
	}
	if result.Confidence != 0.6 {
		t.Errorf("confidence = %v, want 0.6", result.Confidence)
	}
}

func TestLocalNoMatchIsUnknown(t *testing.T) {
	result, _ := Local{}.Recognize(context.Background(), "completely unrelated text", orderIntents, nil)
	if result.Intent != IntentUnknown {
		t.Errorf("intent = %s, want unknown", result.Intent)
	}
	if result.Confidence != 0 {
		t.Errorf("confidence = %v, want 0", result.Confidence)
	}
}

func TestLocalTieKeepsFirstSeen(t *testing.T) {
	intents := []Intent{
		{Name: "first", Patterns: []string{"hello"}},
		{Name: "second", Patterns: []string{"hello"}},
	}
	result, _ := Local{}.Recognize(context.Background(), "hello there", intents, nil)
	if result.Intent != "first" {
		t.Errorf("intent = %s, want first (first-seen wins ties)", result.Intent)
	}
}

func TestLocalConfidenceCapped(t *testing.T) {
	intents := []Intent{
		{Name: "busy", Patterns: []string{"a", "b", "c", "d", "e", "f", "g"}},
	}
	result, _ := Local{}.Recognize(context.Background(), "a b c d e f g", intents, nil)
	if result.Confidence != 1 {
		t.Errorf("confidence = %v, want capped at 1", result.Confidence)
	}
}

func TestExtractEntities(t *testing.T) {
	entities := ExtractEntities("订单 12345678901234 电话 13812345678 共 59.90元",
		[]string{"order_id", "phone", "amount"})

	if entities["order_id"] != "12345678901234" {
		t.Errorf("order_id = %q", entities["order_id"])
	}
	if entities["phone"] != "13812345678" {
		t.Errorf("phone = %q", entities["phone"])
	}
	if entities["amount"] != "59.90" {
		t.Errorf("amount = %q", entities["amount"])
	}
}

func TestExtractEntitiesHonorsRequestedTypes(t *testing.T) {
	entities := ExtractEntities("order 12345678901234", []string{"phone"})
	if len(entities) != 0 {
		t.Errorf("entities = %v, want none", entities)
	}
}
