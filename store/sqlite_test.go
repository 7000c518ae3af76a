package store

import (
	"testing"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBeginSessionAssignsID(t *testing.T) {
	s := openTestStore(t)

	first, err := s.BeginSession("support", "support.bot")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if first.ID == "" {
		t.Error("session has no id")
	}
	if first.Bot != "support" || first.Script != "support.bot" {
		t.Errorf("session = %+v", first)
	}

	second, err := s.BeginSession("support", "support.bot")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if second.ID == first.ID {
		t.Error("session ids are not unique")
	}
}

func TestRecordAndReadTurns(t *testing.T) {
	s := openTestStore(t)
	session, err := s.BeginSession("support", "support.bot")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}

	turns := []Turn{
		{SessionID: session.ID, Seq: 1, Utterance: "hello", Intent: "greet", Confidence: 0.9, StateBefore: "welcome", StateAfter: "welcome", Response: "Hi!"},
		{SessionID: session.ID, Seq: 2, Utterance: "refund please", Intent: "refund", Confidence: 0.8, StateBefore: "welcome", StateAfter: "refund_desk", Response: "Refund desk here."},
	}
	for _, turn := range turns {
		if err := s.RecordTurn(turn); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	got, err := s.SessionTurns(session.ID)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d turns, want 2", len(got))
	}
	if got[0].Utterance != "hello" || got[1].Intent != "refund" {
		t.Errorf("turns = %+v", got)
	}
	if got[1].StateAfter != "refund_desk" {
		t.Errorf("state_after = %q", got[1].StateAfter)
	}
	if got[0].CreatedAt.IsZero() {
		t.Error("created_at not set")
	}
}

func TestSessionTurnsIsolatedBySession(t *testing.T) {
	s := openTestStore(t)
	a, _ := s.BeginSession("bot", "a.bot")
	b, _ := s.BeginSession("bot", "b.bot")

	s.RecordTurn(Turn{SessionID: a.ID, Seq: 1, Utterance: "for a"})
	s.RecordTurn(Turn{SessionID: b.ID, Seq: 1, Utterance: "for b"})

	got, err := s.SessionTurns(a.ID)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 1 || got[0].Utterance != "for a" {
		t.Errorf("turns = %+v", got)
	}
}
