package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/tabletalk/tabletalk/internal/engine"
	"github.com/tabletalk/tabletalk/internal/present"
	"github.com/tabletalk/tabletalk/internal/session"
	"github.com/tabletalk/tabletalk/internal/warehouse"
)

type chatRequest struct {
	Subject  string `json:"subject"`
	Question string `json:"question"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
}

type tableView struct {
	Name string       `json:"name"`
	Data present.Page `json:"data"`
}

type chatResponse struct {
	SessionID      string            `json:"session_id"`
	UserQuery      string            `json:"user_query"`
	GeneratedQuery string            `json:"generated_query,omitempty"`
	ChatResponse   string            `json:"chat_response"`
	Tables         []tableView       `json:"tables,omitempty"`
	Restarted      bool              `json:"restarted,omitempty"`
	History        []session.Message `json:"history"`
}

func handleCreateSession(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Sessions == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SESSIONS_NOT_CONFIGURED", "session manager is not configured", false, nil)
		return
	}
	sess := deps.Sessions.Create()
	writeJSON(w, http.StatusCreated, map[string]any{"session_id": sess.ID})
}

func handleDeleteSession(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Sessions == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SESSIONS_NOT_CONFIGURED", "session manager is not configured", false, nil)
		return
	}
	deps.Sessions.Delete(r.PathValue("session"))
	w.WriteHeader(http.StatusNoContent)
}

func handleResetSession(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFromRequest(deps, w, r)
	if !ok {
		return
	}
	sess.Reset()
	writeJSON(w, http.StatusOK, map[string]any{"message": "session state cleared"})
}

func handleChat(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Engine == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "ENGINE_NOT_CONFIGURED", "engine is not configured", false, nil)
		return
	}
	sess, ok := sessionFromRequest(deps, w, r)
	if !ok {
		return
	}

	var request chatRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid chat request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.Question) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_REQUIRED", "question is required", false, nil)
		return
	}

	result, err := deps.Engine.Turn(r.Context(), sess, request.Subject, request.Question)
	if err != nil {
		writeTurnError(deps, w, r, err)
		return
	}

	response := chatResponse{
		SessionID:      sess.ID,
		UserQuery:      result.Question,
		GeneratedQuery: result.SQL,
		ChatResponse:   result.Answer,
		Restarted:      result.Restarted,
		History:        result.History,
	}
	if response.History == nil {
		response.History = []session.Message{}
	}

	page, pageSize := normalizePaging(request.Page, request.PageSize, deps.PageSize)
	for _, table := range result.Tables {
		data, ok := result.Results[table]
		if !ok {
			continue
		}
		view, err := present.Paginate(present.FormatResultSet(data), page, pageSize)
		if err != nil {
			writeError(r.Context(), w, http.StatusBadRequest, "PAGE_OUT_OF_RANGE", err.Error(), false, nil)
			return
		}
		response.Tables = append(response.Tables, tableView{Name: table, Data: view})
	}

	writeJSON(w, http.StatusOK, response)
}

func sessionFromRequest(deps Dependencies, w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	if deps.Sessions == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SESSIONS_NOT_CONFIGURED", "session manager is not configured", false, nil)
		return nil, false
	}
	sess, err := deps.Sessions.Get(r.PathValue("session"))
	if err != nil {
		writeError(r.Context(), w, http.StatusNotFound, "SESSION_NOT_FOUND", "unknown session", false, nil)
		return nil, false
	}
	return sess, true
}

func normalizePaging(page, pageSize, defaultPageSize int) (int, int) {
	if page == 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize <= 0 {
		pageSize = 10
	}
	return page, pageSize
}

func writeTurnError(deps Dependencies, w http.ResponseWriter, r *http.Request, err error) {
	if deps.Logger != nil {
		deps.Logger.Error("turn failed", "error", err)
	}
	switch {
	case errors.Is(err, engine.ErrUnknownSubject):
		writeError(r.Context(), w, http.StatusBadRequest, "UNKNOWN_SUBJECT", err.Error(), false, nil)
	case errors.Is(err, engine.ErrExecution):
		extra := map[string]any{}
		var queryErr *warehouse.QueryError
		if errors.As(err, &queryErr) {
			extra["sql"] = queryErr.SQL
		}
		writeError(r.Context(), w, http.StatusUnprocessableEntity, "SQL_EXECUTION_FAILED", err.Error(), true, extra)
	case errors.Is(err, engine.ErrRouting):
		writeError(r.Context(), w, http.StatusBadGateway, "ROUTING_FAILED", err.Error(), true, nil)
	case errors.Is(err, engine.ErrRetrieval):
		writeError(r.Context(), w, http.StatusBadGateway, "RETRIEVAL_FAILED", err.Error(), true, nil)
	case errors.Is(err, engine.ErrSelection):
		writeError(r.Context(), w, http.StatusBadGateway, "SELECTION_FAILED", err.Error(), true, nil)
	case errors.Is(err, engine.ErrGeneration):
		writeError(r.Context(), w, http.StatusBadGateway, "GENERATION_FAILED", err.Error(), true, nil)
	default:
		writeError(r.Context(), w, http.StatusInternalServerError, "TURN_FAILED", err.Error(), false, nil)
	}
}
