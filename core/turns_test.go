package orchestration

import "testing"

func TestTurnTranscriptJoinsChunks(t *testing.T) {
	turn := newTurn(SpeakerAgent)
	turn.append("Hel")
	turn.append("lo")
	turn.append("")
	turn.close()
	turn.append("ignored after close")

	if got := turn.Transcript(); got != "Hello" {
		t.Fatalf("expected transcript Hello, got %q", got)
	}
	if turn.EndedAt.IsZero() {
		t.Fatalf("expected close to stamp EndedAt")
	}
}

func TestLedgerAllowsOneOpenTurnPerDirection(t *testing.T) {
	ledger := turnLedger{}

	user, err := ledger.open(SpeakerUser)
	if err != nil {
		t.Fatalf("failed to open user turn: %v", err)
	}
	if _, err := ledger.open(SpeakerUser); err == nil {
		t.Fatalf("expected a second user turn to be rejected")
	}
	if _, err := ledger.open(SpeakerAgent); err != nil {
		t.Fatalf("failed to open agent turn alongside user turn: %v", err)
	}

	if got := ledger.openTurn(SpeakerUser); got != user {
		t.Fatalf("expected the open user turn back")
	}

	closed := ledger.closeTurn(SpeakerUser)
	if closed != user || !closed.closed {
		t.Fatalf("expected closeTurn to close and detach the user turn")
	}
	if ledger.closeTurn(SpeakerUser) != nil {
		t.Fatalf("expected no user turn after detach")
	}
	if _, err := ledger.open(SpeakerUser); err != nil {
		t.Fatalf("expected a fresh user turn after detach: %v", err)
	}
}

func TestLedgerDiscardDropsOpenTurns(t *testing.T) {
	ledger := turnLedger{}
	if _, err := ledger.open(SpeakerUser); err != nil {
		t.Fatalf("failed to open user turn: %v", err)
	}
	if _, err := ledger.open(SpeakerAgent); err != nil {
		t.Fatalf("failed to open agent turn: %v", err)
	}

	ledger.discard()
	if ledger.closeTurn(SpeakerUser) != nil || ledger.closeTurn(SpeakerAgent) != nil {
		t.Fatalf("expected discard to drop both open turns")
	}
}
