// Package questionbank serves the curated starter questions shown per
// subject area, stored as one CSV object per subject.
package questionbank

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/tabletalk/tabletalk/internal/storage"
)

// ErrSubjectNotFound is returned when a subject has no question file.
var ErrSubjectNotFound = errors.New("no questions for subject")

const questionColumn = "question"

type Bank struct {
	store storage.ObjectStore

	// mu serializes Append's read-modify-write of the CSV object.
	mu sync.Mutex
}

func New(store storage.ObjectStore) (*Bank, error) {
	if store == nil {
		return nil, fmt.Errorf("object store is required")
	}
	return &Bank{store: store}, nil
}

func objectKey(subject string) string {
	return "table_files/" + subject + "_questions.csv"
}

// List returns the questions for a subject area. The CSV's first row
// is a header; the "question" column is used when present, otherwise
// the first column.
func (b *Bank) List(ctx context.Context, subject string) ([]string, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, fmt.Errorf("subject is required")
	}

	body, err := b.store.Get(ctx, objectKey(subject))
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, fmt.Errorf("%w: %q", ErrSubjectNotFound, subject)
		}
		return nil, fmt.Errorf("load questions for %q: %w", subject, err)
	}
	defer func() { _ = body.Close() }()

	return parseQuestions(body)
}

// Append adds a question to the subject's file, creating the file on
// first use.
func (b *Bank) Append(ctx context.Context, subject, question string) error {
	subject = strings.TrimSpace(subject)
	question = strings.TrimSpace(question)
	if subject == "" || question == "" {
		return fmt.Errorf("subject and question are required")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	var records [][]string
	body, err := b.store.Get(ctx, objectKey(subject))
	switch {
	case err == nil:
		reader := csv.NewReader(body)
		reader.FieldsPerRecord = -1
		records, err = reader.ReadAll()
		_ = body.Close()
		if err != nil {
			return fmt.Errorf("parse questions for %q: %w", subject, err)
		}
	case errors.Is(err, storage.ErrObjectNotFound):
		records = [][]string{{questionColumn}}
	default:
		return fmt.Errorf("load questions for %q: %w", subject, err)
	}

	records = append(records, []string{question})

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.WriteAll(records); err != nil {
		return fmt.Errorf("encode questions for %q: %w", subject, err)
	}
	if _, err := b.store.Put(ctx, objectKey(subject), &buf, int64(buf.Len()), "text/csv"); err != nil {
		return fmt.Errorf("store questions for %q: %w", subject, err)
	}
	return nil
}

func parseQuestions(body io.Reader) ([]string, error) {
	reader := csv.NewReader(body)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse questions csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	column := 0
	for i, name := range records[0] {
		if strings.EqualFold(strings.TrimSpace(name), questionColumn) {
			column = i
			break
		}
	}

	var questions []string
	for _, record := range records[1:] {
		if column >= len(record) {
			continue
		}
		if q := strings.TrimSpace(record[column]); q != "" {
			questions = append(questions, q)
		}
	}
	return questions, nil
}
