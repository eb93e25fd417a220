package cmd

import (
	"testing"

	"github.com/tewou-sn/tewou/internal/rag"
	"github.com/tewou-sn/tewou/internal/session"
)

func TestExchangesPairsCompletedTurns(t *testing.T) {
	messages := []session.Message{
		{Role: session.RoleUser, Content: "Quand semer le mil ?"},
		{Role: session.RoleAssistant, Content: "En juin, avec les premières pluies."},
		{Role: session.RoleUser, Content: "Et l'arachide ?"},
		{Role: session.RoleAssistant, Content: "Juin ou juillet selon la région."},
	}

	got := exchanges(messages)
	want := []rag.Exchange{
		{User: "Quand semer le mil ?", Assistant: "En juin, avec les premières pluies."},
		{User: "Et l'arachide ?", Assistant: "Juin ou juillet selon la région."},
	}

	if len(got) != len(want) {
		t.Fatalf("exchanges() returned %d turns, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("turn %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestExchangesDropsUnansweredQuestion(t *testing.T) {
	messages := []session.Message{
		{Role: session.RoleUser, Content: "Quand semer le mil ?"},
		{Role: session.RoleAssistant, Content: "En juin."},
		{Role: session.RoleUser, Content: "Sans réponse"},
	}

	got := exchanges(messages)
	if len(got) != 1 {
		t.Fatalf("exchanges() returned %d turns, want 1", len(got))
	}
	if got[0].User != "Quand semer le mil ?" {
		t.Errorf("kept turn = %+v", got[0])
	}
}

func TestExchangesEmptyHistory(t *testing.T) {
	if got := exchanges(nil); got != nil {
		t.Errorf("exchanges(nil) = %v, want nil", got)
	}
}
