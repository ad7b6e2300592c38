package api

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/tabletalk/tabletalk/internal/export"
	"github.com/tabletalk/tabletalk/internal/present"
	"github.com/tabletalk/tabletalk/internal/session"
)

func handleListSubjects(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Catalog == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "CATALOG_NOT_CONFIGURED", "catalog is not configured", false, nil)
		return
	}
	subjects := deps.Catalog.Subjects()
	sort.Strings(subjects)
	writeJSON(w, http.StatusOK, map[string]any{"subjects": subjects})
}

func handleListSubjectTables(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Catalog == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "CATALOG_NOT_CONFIGURED", "catalog is not configured", false, nil)
		return
	}
	subject := r.PathValue("subject")
	tables := deps.Catalog.ListTables(subject)
	if tables == nil {
		writeError(r.Context(), w, http.StatusNotFound, "UNKNOWN_SUBJECT", fmt.Sprintf("unknown subject area %q", subject), false, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"subject": subject, "tables": tables})
}

func handleTableData(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFromRequest(deps, w, r)
	if !ok {
		return
	}

	result, err := sess.TableData(r.PathValue("table"))
	if err != nil {
		if errors.Is(err, session.ErrTableNotFound) {
			writeError(r.Context(), w, http.StatusNotFound, "TABLE_DATA_NOT_FOUND", "no cached data for table", false, nil)
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "TABLE_DATA_FAILED", err.Error(), false, nil)
		return
	}

	page, err := queryInt(r, "page", 1)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_PAGING", err.Error(), false, nil)
		return
	}
	pageSize, err := queryInt(r, "page_size", deps.PageSize)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_PAGING", err.Error(), false, nil)
		return
	}
	if pageSize <= 0 {
		pageSize = 10
	}

	view, err := present.Paginate(present.FormatResultSet(result), page, pageSize)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "PAGE_OUT_OF_RANGE", err.Error(), false, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"table": r.PathValue("table"), "data": view})
}

func handleTableColumns(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFromRequest(deps, w, r)
	if !ok {
		return
	}

	table := r.PathValue("table")
	result, err := sess.TableData(table)
	if err != nil {
		if errors.Is(err, session.ErrTableNotFound) {
			writeError(r.Context(), w, http.StatusNotFound, "TABLE_DATA_NOT_FOUND", "no cached data for table", false, nil)
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "TABLE_DATA_FAILED", err.Error(), false, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"table": table, "columns": result.Columns})
}

func handleTableExport(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFromRequest(deps, w, r)
	if !ok {
		return
	}

	table := r.PathValue("table")
	result, err := sess.TableData(table)
	if err != nil {
		writeError(r.Context(), w, http.StatusNotFound, "TABLE_DATA_NOT_FOUND", "no cached data for table", false, nil)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}
	contentType, err := export.ContentType(format)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "UNSUPPORTED_FORMAT", err.Error(), false, nil)
		return
	}

	filename := strings.ReplaceAll(table, ".", "_") + "." + strings.ToLower(format)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

	switch strings.ToLower(format) {
	case "csv":
		err = export.WriteCSV(w, result)
	case "parquet":
		err = export.WriteParquet(w, result)
	}
	if err != nil && deps.Logger != nil {
		// headers are already written; all we can do is log
		deps.Logger.Error("export failed", "table", table, "format", format, "error", err)
	}
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return value, nil
}
