package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/tabletalk/tabletalk/internal/questionbank"
)

type addQuestionRequest struct {
	Question string `json:"question"`
}

func handleListQuestions(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Questions == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "QUESTIONS_NOT_CONFIGURED", "question bank is not configured", false, nil)
		return
	}

	subject := r.PathValue("subject")
	questions, err := deps.Questions.List(r.Context(), subject)
	if err != nil {
		if errors.Is(err, questionbank.ErrSubjectNotFound) {
			writeError(r.Context(), w, http.StatusNotFound, "QUESTIONS_NOT_FOUND", err.Error(), false, nil)
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "QUESTIONS_FAILED", err.Error(), true, nil)
		return
	}
	if questions == nil {
		questions = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"subject": subject, "questions": questions})
}

func handleAddQuestion(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Questions == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "QUESTIONS_NOT_CONFIGURED", "question bank is not configured", false, nil)
		return
	}

	var request addQuestionRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid question request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.Question) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_REQUIRED", "question is required", false, nil)
		return
	}

	if err := deps.Questions.Append(r.Context(), r.PathValue("subject"), request.Question); err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "QUESTION_ADD_FAILED", err.Error(), true, nil)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "question added"})
}
