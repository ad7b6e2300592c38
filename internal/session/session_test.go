package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tabletalk/tabletalk/internal/warehouse"
)

func TestManagerCreateGetDelete(t *testing.T) {
	mgr := NewManager()

	sess := mgr.Create()
	if sess.ID == "" {
		t.Fatal("session ID should be assigned")
	}

	got, err := mgr.Get(sess.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got != sess {
		t.Fatal("get returned a different session")
	}

	mgr.Delete(sess.ID)
	if _, err := mgr.Get(sess.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
	mgr.Delete(sess.ID) // idempotent
}

func TestCommitTurnRecordsTranscriptAndData(t *testing.T) {
	sess := newSession("s1")
	result := warehouse.ResultSet{Columns: []string{"Total"}, Rows: [][]any{{int64(42)}}}

	sess.CommitTurn(TurnUpdate{
		Question: "total retail volume?",
		Answer:   "The total retail volume is 42.",
		Tables:   []string{"main.billing_data"},
		SQL:      "SELECT SUM(retail_volume) FROM main.billing_data",
		Results:  map[string]warehouse.ResultSet{"main.billing_data": result},
	})

	msgs := sess.Messages()
	if len(msgs) != 3 {
		t.Fatalf("messages = %#v", msgs)
	}
	if msgs[0].Role != RoleUser || msgs[1].Role != RoleAssistant {
		t.Fatalf("roles = %q, %q", msgs[0].Role, msgs[1].Role)
	}
	if msgs[2].Role != RoleTableData || msgs[2].Content != "main.billing_data" {
		t.Fatalf("table entry = %#v", msgs[2])
	}

	cached, err := sess.TableData("main.billing_data")
	if err != nil {
		t.Fatalf("table data missing: %v", err)
	}
	if len(cached.Rows) != 1 {
		t.Fatalf("cached rows = %#v", cached.Rows)
	}
	if sess.GeneratedSQL() == "" {
		t.Fatal("generated sql should be recorded")
	}
}

func TestCommitTurnReplacesTableData(t *testing.T) {
	sess := newSession("s1")
	first := warehouse.ResultSet{Columns: []string{"n"}, Rows: [][]any{{int64(1)}}}
	second := warehouse.ResultSet{Columns: []string{"n"}, Rows: [][]any{{int64(2)}}}

	sess.CommitTurn(TurnUpdate{
		Question: "q1", Answer: "a1",
		Tables:  []string{"main.billing_data"},
		Results: map[string]warehouse.ResultSet{"main.billing_data": first},
	})
	sess.CommitTurn(TurnUpdate{
		Question: "q2", Answer: "a2",
		Tables:  []string{"main.billing_data"},
		Results: map[string]warehouse.ResultSet{"main.billing_data": second},
	})

	cached, err := sess.TableData("main.billing_data")
	if err != nil {
		t.Fatalf("table data missing: %v", err)
	}
	if cached.Rows[0][0] != int64(2) {
		t.Fatalf("cached = %#v, want replacement", cached.Rows)
	}
}

func TestCommitFailedTurnKeepsOnlyQuestion(t *testing.T) {
	sess := newSession("s1")
	sess.CommitFailedTurn("broken question")

	msgs := sess.Messages()
	if len(msgs) != 1 || msgs[0].Role != RoleUser {
		t.Fatalf("messages = %#v", msgs)
	}
	if len(sess.ChosenTables()) != 0 {
		t.Fatal("failed turn must not select tables")
	}
}

func TestRecentHistoryWindowsAndFilters(t *testing.T) {
	sess := newSession("s1")
	for i := 0; i < 8; i++ {
		sess.CommitTurn(TurnUpdate{
			Question: "q", Answer: "a",
			Tables:  []string{"t"},
			Results: map[string]warehouse.ResultSet{"t": {}},
		})
	}

	history := sess.RecentHistory(10)
	if len(history) != 10 {
		t.Fatalf("history = %d messages, want 10", len(history))
	}
	for _, msg := range history {
		if msg.Role == RoleTableData {
			t.Fatal("table data entries must not appear in history")
		}
	}
}

func TestConcurrentTurnsNeverInterleave(t *testing.T) {
	sess := newSession("s1")
	const turns = 50

	var wg sync.WaitGroup
	wg.Add(turns)
	for i := 0; i < turns; i++ {
		go func(i int) {
			defer wg.Done()
			sess.BeginTurn()
			defer sess.EndTurn()
			sess.CommitTurn(TurnUpdate{
				Question: fmt.Sprintf("question %d", i),
				Answer:   fmt.Sprintf("answer %d", i),
			})
		}(i)
	}
	wg.Wait()

	msgs := sess.Messages()
	if len(msgs) != 2*turns {
		t.Fatalf("transcript = %d messages, want %d", len(msgs), 2*turns)
	}
	for i := 0; i < len(msgs); i += 2 {
		if msgs[i].Role != RoleUser || msgs[i+1].Role != RoleAssistant {
			t.Fatalf("entry %d: roles = %q, %q", i, msgs[i].Role, msgs[i+1].Role)
		}
		question := strings.TrimPrefix(msgs[i].Content, "question ")
		answer := strings.TrimPrefix(msgs[i+1].Content, "answer ")
		if question != answer {
			t.Fatalf("entry %d: answer %q does not belong to question %q", i, msgs[i+1].Content, msgs[i].Content)
		}
	}
}

func TestTurnsOnSeparateSessionsDoNotBlock(t *testing.T) {
	blocked := newSession("a")
	free := newSession("b")

	blocked.BeginTurn()
	defer blocked.EndTurn()

	done := make(chan struct{})
	go func() {
		free.BeginTurn()
		free.CommitTurn(TurnUpdate{Question: "q", Answer: "a"})
		free.EndTurn()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("turn on an independent session blocked")
	}
	if len(free.Messages()) != 2 {
		t.Fatalf("messages = %#v", free.Messages())
	}
}

func TestResetClearsState(t *testing.T) {
	sess := newSession("s1")
	sess.CommitTurn(TurnUpdate{
		Question: "q", Answer: "a",
		Tables:  []string{"t"},
		SQL:     "SELECT 1",
		Results: map[string]warehouse.ResultSet{"t": {}},
	})

	sess.Reset()
	if len(sess.Messages()) != 0 {
		t.Fatal("messages should be cleared")
	}
	if _, err := sess.TableData("t"); !errors.Is(err, ErrTableNotFound) {
		t.Fatalf("error = %v, want ErrTableNotFound", err)
	}
	if sess.GeneratedSQL() != "" {
		t.Fatal("generated sql should be cleared")
	}
	sess.Reset() // idempotent
}
