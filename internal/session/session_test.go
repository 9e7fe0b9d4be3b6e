package session

import (
	"errors"
	"sync"
	"testing"

	"github.com/telollama/telollama/internal/ollama"
)

func TestAppendAndHistory(t *testing.T) {
	store := NewStore("llama3.2")

	store.AppendUserTurn(42, "hello", nil)
	store.AppendAssistantTurn(42, "hi there")

	turns, err := store.History(42)
	if err != nil {
		t.Fatalf("History: %v", err)
	}

	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}

	if turns[0].Role != ollama.RoleUser || turns[0].Content != "hello" {
		t.Errorf("first turn mismatch: %+v", turns[0])
	}

	if turns[1].Role != ollama.RoleAssistant || turns[1].Content != "hi there" {
		t.Errorf("second turn mismatch: %+v", turns[1])
	}
}

func TestHistoryNotFound(t *testing.T) {
	store := NewStore("llama3.2")

	if _, err := store.History(99); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUserTurnKeepsImages(t *testing.T) {
	store := NewStore("llama3.2")

	store.AppendUserTurn(1, "look at this", []string{"aGVsbG8="})

	turns, err := store.History(1)
	if err != nil {
		t.Fatalf("History: %v", err)
	}

	if len(turns[0].Images) != 1 || turns[0].Images[0] != "aGVsbG8=" {
		t.Errorf("images not preserved: %+v", turns[0])
	}
}

func TestAssistantTurnRules(t *testing.T) {
	store := NewStore("llama3.2")

	// no conversation yet: must not create one
	store.AppendAssistantTurn(7, "orphan reply")
	if _, err := store.History(7); !errors.Is(err, ErrNotFound) {
		t.Error("assistant turn should not create a conversation")
	}

	// whitespace-only content: must not be persisted
	store.AppendUserTurn(7, "question", nil)
	store.AppendAssistantTurn(7, "   \n\t ")

	turns, _ := store.History(7)
	if len(turns) != 1 {
		t.Errorf("expected 1 turn after empty assistant append, got %d", len(turns))
	}
}

func TestGetOrCreateBindsModel(t *testing.T) {
	store := NewStore("llama3.2")

	conv := store.GetOrCreate(5, "mistral")
	if conv.Model() != "mistral" {
		t.Errorf("expected model mistral, got %s", conv.Model())
	}

	// existing conversation keeps its binding
	again := store.GetOrCreate(5, "other")
	if again != conv {
		t.Error("GetOrCreate should return the same conversation for the same user")
	}
	if again.Model() != "mistral" {
		t.Errorf("model rebound on second GetOrCreate: %s", again.Model())
	}
}

func TestResetIdempotent(t *testing.T) {
	store := NewStore("llama3.2")

	store.AppendUserTurn(3, "hello", nil)

	if !store.Reset(3) {
		t.Error("first Reset should report a removed conversation")
	}

	if store.Reset(3) {
		t.Error("second Reset should be a no-op")
	}

	if _, err := store.History(3); !errors.Is(err, ErrNotFound) {
		t.Error("conversation should be gone after Reset")
	}
}

func TestHistoryIsSnapshot(t *testing.T) {
	store := NewStore("llama3.2")
	store.AppendUserTurn(1, "hello", nil)

	turns, _ := store.History(1)
	turns[0].Content = "modified"

	original, _ := store.History(1)
	if original[0].Content != "hello" {
		t.Error("History should return a copy, not the backing slice")
	}
}

func TestConcurrentAppends(t *testing.T) {
	store := NewStore("llama3.2")
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if n%2 == 0 {
				store.AppendUserTurn(1, "question", nil)
			} else {
				store.AppendAssistantTurn(1, "answer")
			}
		}(i)
	}

	wg.Wait()

	turns, err := store.History(1)
	if err != nil {
		t.Fatalf("History: %v", err)
	}

	// the assistant appends racing ahead of the first user append may
	// no-op, but nothing recorded is ever lost
	var users int
	for _, turn := range turns {
		if turn.Role == ollama.RoleUser {
			users++
		}
	}
	if users != 50 {
		t.Errorf("expected 50 user turns, got %d", users)
	}
}

func TestConcurrentAppendsAfterCreate(t *testing.T) {
	store := NewStore("llama3.2")
	store.AppendUserTurn(1, "first", nil)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if n%2 == 0 {
				store.AppendUserTurn(1, "question", nil)
			} else {
				store.AppendAssistantTurn(1, "answer")
			}
		}(i)
	}

	wg.Wait()

	turns, _ := store.History(1)
	if len(turns) != 101 {
		t.Errorf("expected 101 turns, got %d", len(turns))
	}
}

func TestConcurrentGetOrCreate(t *testing.T) {
	store := NewStore("llama3.2")
	var wg sync.WaitGroup
	results := make(chan *Conversation, 100)

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- store.GetOrCreate(77, "llama3.2")
		}()
	}

	wg.Wait()
	close(results)

	var first *Conversation
	for conv := range results {
		if first == nil {
			first = conv
		} else if conv != first {
			t.Fatal("concurrent GetOrCreate returned different conversations for same user")
		}
	}
}

func TestTryAcquireAndRelease(t *testing.T) {
	store := NewStore("llama3.2")
	conv := store.GetOrCreate(1, "llama3.2")

	if !conv.TryAcquire() {
		t.Error("first TryAcquire should succeed")
	}

	if conv.TryAcquire() {
		t.Error("second TryAcquire should fail while in flight")
	}

	conv.Release()

	if !conv.TryAcquire() {
		t.Error("TryAcquire after Release should succeed")
	}
	conv.Release()
}
