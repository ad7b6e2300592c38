package questionbank

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/tabletalk/tabletalk/internal/storage"
)

type memStore struct {
	objects map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{objects: make(map[string][]byte)}
}

func (m *memStore) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) (storage.ObjectInfo, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	m.objects[key] = data
	return storage.ObjectInfo{Key: key, Size: int64(len(data))}, nil
}

func (m *memStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memStore) Stat(_ context.Context, key string) (storage.ObjectInfo, error) {
	data, ok := m.objects[key]
	if !ok {
		return storage.ObjectInfo{}, storage.ErrObjectNotFound
	}
	return storage.ObjectInfo{Key: key, Size: int64(len(data))}, nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func newTestBank(t *testing.T) (*Bank, *memStore) {
	t.Helper()
	store := newMemStore()
	bank, err := New(store)
	if err != nil {
		t.Fatalf("bank setup failed: %v", err)
	}
	return bank, store
}

func TestListUsesQuestionColumn(t *testing.T) {
	bank, store := newTestBank(t)
	store.objects["table_files/Demo_questions.csv"] = []byte(
		"id,question\n1,show total retail volume\n2,get monthly test drives\n",
	)

	questions, err := bank.List(context.Background(), "Demo")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(questions) != 2 || questions[0] != "show total retail volume" {
		t.Fatalf("questions = %v", questions)
	}
}

func TestListFallsBackToFirstColumn(t *testing.T) {
	bank, store := newTestBank(t)
	store.objects["table_files/Demo_questions.csv"] = []byte(
		"prompt\nshow total retail volume\n",
	)

	questions, err := bank.List(context.Background(), "Demo")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(questions) != 1 || questions[0] != "show total retail volume" {
		t.Fatalf("questions = %v", questions)
	}
}

func TestListUnknownSubject(t *testing.T) {
	bank, _ := newTestBank(t)
	if _, err := bank.List(context.Background(), "Nope"); !errors.Is(err, ErrSubjectNotFound) {
		t.Fatalf("error = %v, want ErrSubjectNotFound", err)
	}
}

func TestAppendCreatesFileWithHeader(t *testing.T) {
	bank, store := newTestBank(t)

	if err := bank.Append(context.Background(), "Demo", "show billing volume by zone"); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if !bytes.HasPrefix(store.objects["table_files/Demo_questions.csv"], []byte("question\n")) {
		t.Fatalf("object = %q", store.objects["table_files/Demo_questions.csv"])
	}

	questions, err := bank.List(context.Background(), "Demo")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(questions) != 1 || questions[0] != "show billing volume by zone" {
		t.Fatalf("questions = %v", questions)
	}
}

func TestAppendPreservesExistingQuestions(t *testing.T) {
	bank, _ := newTestBank(t)
	ctx := context.Background()

	if err := bank.Append(ctx, "Demo", "first"); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if err := bank.Append(ctx, "Demo", "second"); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	questions, err := bank.List(ctx, "Demo")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(questions) != 2 || questions[1] != "second" {
		t.Fatalf("questions = %v", questions)
	}
}

func TestAppendRejectsEmptyInput(t *testing.T) {
	bank, _ := newTestBank(t)
	if err := bank.Append(context.Background(), "Demo", "  "); err == nil {
		t.Fatal("expected error for empty question")
	}
	if err := bank.Append(context.Background(), "", "q"); err == nil {
		t.Fatal("expected error for empty subject")
	}
}
