// Package engine orchestrates one conversation turn: intent routing,
// example retrieval, table selection, SQL generation, execution, and
// the narrative answer.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tabletalk/tabletalk/internal/catalog"
	"github.com/tabletalk/tabletalk/internal/examples"
	"github.com/tabletalk/tabletalk/internal/llm"
	"github.com/tabletalk/tabletalk/internal/observability"
	"github.com/tabletalk/tabletalk/internal/session"
	"github.com/tabletalk/tabletalk/internal/warehouse"
)

// restartCommand resets the conversation when sent as a question.
const restartCommand = "break"

const (
	restartedReply       = "Session restarted"
	insufficientInfoText = "Insufficient information to generate SQL Query."
)

type Options struct {
	HistoryWindow int
	ExampleTopK   int
	RowLimit      int
	PreviewRows   int
}

type Engine struct {
	llm       llm.Client
	store     *examples.Store
	catalog   *catalog.Catalog
	warehouse warehouse.Client
	logger    *slog.Logger

	historyWindow int
	exampleTopK   int
	rowLimit      int
	previewRows   int
}

func New(client llm.Client, store *examples.Store, cat *catalog.Catalog, wh warehouse.Client, logger *slog.Logger, opts Options) (*Engine, error) {
	if client == nil || store == nil || cat == nil || wh == nil {
		return nil, fmt.Errorf("llm client, example store, catalog, and warehouse are required")
	}
	if opts.HistoryWindow <= 0 || opts.ExampleTopK <= 0 {
		return nil, fmt.Errorf("history window and example top-k must be positive")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		llm:           client,
		store:         store,
		catalog:       cat,
		warehouse:     wh,
		logger:        logger,
		historyWindow: opts.HistoryWindow,
		exampleTopK:   opts.ExampleTopK,
		rowLimit:      opts.RowLimit,
		previewRows:   opts.PreviewRows,
	}, nil
}

// TurnResult is what one processed turn hands back to the web layer.
type TurnResult struct {
	Question  string
	Answer    string
	SQL       string
	Tables    []string
	Results   map[string]warehouse.ResultSet
	Restarted bool
	History   []session.Message
}

// Turn processes one user question against a session. Turns on the
// same session are serialized in arrival order; on failure only the
// user's question is recorded so a retry starts clean.
func (e *Engine) Turn(ctx context.Context, sess *session.Session, subject, question string) (TurnResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return TurnResult{}, fmt.Errorf("question is required")
	}

	sess.BeginTurn()
	defer sess.EndTurn()

	start := time.Now()
	outcome := "error"
	defer func() { observability.ObserveTurn(outcome, time.Since(start)) }()

	log := e.logger.With("session", sess.ID, "subject", subject)

	if strings.EqualFold(question, restartCommand) {
		history := append(sess.Messages(), session.Message{Role: session.RoleAssistant, Content: restartedReply})
		sess.Reset()
		log.Info("session restarted by user")
		outcome = "restarted"
		return TurnResult{Question: question, Answer: restartedReply, Restarted: true, History: history}, nil
	}

	history := sess.RecentHistory(e.historyWindow)

	decision, err := e.route(ctx, question, history)
	if err != nil {
		sess.CommitFailedTurn(question)
		return TurnResult{}, err
	}
	if decision.Answered {
		sess.CommitTurn(session.TurnUpdate{Question: question, Answer: decision.Reply})
		log.Info("turn answered from history")
		outcome = "answered"
		return TurnResult{Question: question, Answer: decision.Reply, History: sess.Messages()}, nil
	}

	schemaText := e.catalog.Describe(subject)
	if schemaText == "" {
		sess.CommitFailedTurn(question)
		return TurnResult{}, fmt.Errorf("%w: %q", ErrUnknownSubject, subject)
	}

	selected, err := e.store.Select(ctx, question, e.exampleTopK)
	if err != nil {
		sess.CommitFailedTurn(question)
		return TurnResult{}, fmt.Errorf("%w: %w", ErrRetrieval, err)
	}

	tables, err := e.selectTables(ctx, subject, question, schemaText)
	if err != nil {
		sess.CommitFailedTurn(question)
		return TurnResult{}, err
	}
	if len(tables) == 0 {
		sess.CommitTurn(session.TurnUpdate{Question: question, Answer: insufficientInfoText})
		log.Info("no tables selected for question")
		outcome = "no_tables"
		return TurnResult{Question: question, Answer: insufficientInfoText, History: sess.Messages()}, nil
	}

	sql, err := e.generateSQL(ctx, question, schemaText, selected, history)
	if err != nil {
		sess.CommitFailedTurn(question)
		return TurnResult{}, err
	}
	log.Info("generated sql", "sql", sql, "tables", tables)

	// The statement runs exactly once and its rows are associated with
	// the first selected table, so multi-table selections never trigger
	// duplicate warehouse spend.
	queryStart := time.Now()
	result, err := e.warehouse.RunQuery(ctx, warehouse.ApplyRowLimit(sql, e.rowLimit))
	if err != nil {
		observability.ObserveWarehouseQuery("error", time.Since(queryStart))
		sess.CommitFailedTurn(question)
		return TurnResult{}, fmt.Errorf("%w: %w", ErrExecution, err)
	}
	observability.ObserveWarehouseQuery("ok", time.Since(queryStart))

	answer, err := e.narrateResult(ctx, sql, result)
	if err != nil {
		sess.CommitFailedTurn(question)
		return TurnResult{}, err
	}

	results := map[string]warehouse.ResultSet{tables[0]: result}
	sess.CommitTurn(session.TurnUpdate{
		Question: question,
		Answer:   answer,
		Tables:   tables,
		SQL:      sql,
		Results:  results,
	})
	log.Info("turn completed", "rows", len(result.Rows))
	outcome = "query"
	return TurnResult{
		Question: question,
		Answer:   answer,
		SQL:      sql,
		Tables:   tables,
		Results:  results,
		History:  sess.Messages(),
	}, nil
}
