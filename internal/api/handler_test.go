package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tabletalk/tabletalk/internal/catalog"
	"github.com/tabletalk/tabletalk/internal/config"
	"github.com/tabletalk/tabletalk/internal/engine"
	"github.com/tabletalk/tabletalk/internal/examples"
	"github.com/tabletalk/tabletalk/internal/questionbank"
	"github.com/tabletalk/tabletalk/internal/session"
	"github.com/tabletalk/tabletalk/internal/storage"
	"github.com/tabletalk/tabletalk/internal/warehouse"
)

type fakeLLM struct {
	routeReply    string
	selectReply   string
	generateReply string
	insightReply  string
}

func (f *fakeLLM) Complete(_ context.Context, prompt string) (string, error) {
	switch {
	case strings.Contains(prompt, "exactly one word: database"):
		return f.routeReply, nil
	case strings.Contains(prompt, "Reply with the JSON only"):
		return f.selectReply, nil
	case strings.Contains(prompt, "SQL Query:"):
		return f.generateReply, nil
	case strings.Contains(prompt, "Summarize what the result shows"):
		return f.insightReply, nil
	default:
		return "", fmt.Errorf("unrecognized prompt")
	}
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	return []float32{1, 0}, nil
}

type fakeWarehouse struct {
	result warehouse.ResultSet
}

func (f *fakeWarehouse) RunQuery(context.Context, string) (warehouse.ResultSet, error) {
	return f.result, nil
}

func (f *fakeWarehouse) ListTables(context.Context) ([]string, error) { return nil, nil }

func (f *fakeWarehouse) DescribeTable(_ context.Context, name string) (warehouse.TableSchema, error) {
	return warehouse.TableSchema{
		QualifiedName: name,
		Columns:       []warehouse.Column{{Name: "retail_volume", Type: "bigint", Nullable: true}},
	}, nil
}

func (f *fakeWarehouse) HealthCheck(context.Context) error { return nil }

type memStore struct {
	objects map[string][]byte
}

func (m *memStore) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) (storage.ObjectInfo, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	m.objects[key] = data
	return storage.ObjectInfo{Key: key}, nil
}

func (m *memStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memStore) Stat(_ context.Context, key string) (storage.ObjectInfo, error) {
	if _, ok := m.objects[key]; !ok {
		return storage.ObjectInfo{}, storage.ErrObjectNotFound
	}
	return storage.ObjectInfo{Key: key}, nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func newTestServer(t *testing.T, client *fakeLLM) (*httptest.Server, *session.Manager) {
	t.Helper()

	wh := &fakeWarehouse{result: warehouse.ResultSet{
		Columns: []string{"Zone Name", "Total Retail Volume"},
		Rows: [][]any{
			{"North", float64(48211)},
			{"South", float64(31094)},
			{"East", float64(20518)},
		},
	}}

	cat, err := catalog.Load(context.Background(), wh, map[string][]string{
		"Sales": {"main.billing_data"},
	})
	if err != nil {
		t.Fatalf("catalog load failed: %v", err)
	}
	store, err := examples.NewStore(context.Background(), fakeEmbedder{}, []examples.Example{
		{Question: "total retail volume", SQL: "SELECT 1", Context: "billing"},
	})
	if err != nil {
		t.Fatalf("store setup failed: %v", err)
	}
	eng, err := engine.New(client, store, cat, wh, slog.New(slog.DiscardHandler), engine.Options{
		HistoryWindow: 10,
		ExampleTopK:   1,
		RowLimit:      1000,
		PreviewRows:   5,
	})
	if err != nil {
		t.Fatalf("engine setup failed: %v", err)
	}

	bank, err := questionbank.New(&memStore{objects: map[string][]byte{
		"table_files/Sales_questions.csv": []byte("question\nshow total retail volume\n"),
	}})
	if err != nil {
		t.Fatalf("bank setup failed: %v", err)
	}

	cfg, err := config.Load("tabletalk", func(string) (string, bool) { return "", false })
	if err != nil {
		t.Fatalf("config load failed: %v", err)
	}

	sessions := session.NewManager()
	handler := NewHandler(cfg, Dependencies{
		Logger:    slog.New(slog.DiscardHandler),
		Engine:    eng,
		Sessions:  sessions,
		Catalog:   cat,
		Questions: bank,
		PageSize:  2,
	})
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server, sessions
}

func defaultLLM() *fakeLLM {
	return &fakeLLM{
		routeReply:    "database",
		selectReply:   `{"tables": [{"name": "main.billing_data"}]}`,
		generateReply: "SQL Query: SELECT zone_name, SUM(retail_volume) FROM main.billing_data GROUP BY zone_name",
		insightReply:  "North leads retail volume with 48,211 units.",
	}
}

func postJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post %s failed: %v", url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, into any) {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func createSession(t *testing.T, server *httptest.Server) string {
	t.Helper()
	resp := postJSON(t, server.URL+"/v1/sessions", map[string]any{})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create session status = %d", resp.StatusCode)
	}
	var body struct {
		SessionID string `json:"session_id"`
	}
	decodeBody(t, resp, &body)
	if body.SessionID == "" {
		t.Fatal("session id missing")
	}
	return body.SessionID
}

func TestHealth(t *testing.T) {
	server, _ := newTestServer(t, defaultLLM())
	resp, err := http.Get(server.URL + "/v1/health")
	if err != nil {
		t.Fatalf("get health failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Trace-ID") == "" {
		t.Fatal("trace id header missing")
	}
}

func TestChatTurn(t *testing.T) {
	server, _ := newTestServer(t, defaultLLM())
	id := createSession(t, server)

	resp := postJSON(t, server.URL+"/v1/sessions/"+id+"/messages", map[string]any{
		"subject":  "Sales",
		"question": "show total retail volume by zone",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var body chatResponse
	decodeBody(t, resp, &body)
	if body.ChatResponse != "North leads retail volume with 48,211 units." {
		t.Fatalf("chat response = %q", body.ChatResponse)
	}
	if strings.Contains(body.GeneratedQuery, "SQL Query:") {
		t.Fatalf("label not stripped: %q", body.GeneratedQuery)
	}
	if len(body.Tables) != 1 || body.Tables[0].Name != "main.billing_data" {
		t.Fatalf("tables = %#v", body.Tables)
	}
	// PageSize 2 with 3 rows: two pages, first page formatted
	data := body.Tables[0].Data
	if data.TotalPages != 2 || len(data.Rows) != 2 {
		t.Fatalf("page = %+v", data)
	}
	if data.Rows[0][1] != "48211" {
		t.Fatalf("integral float should render without fraction: %#v", data.Rows[0][1])
	}
	if len(body.History) != 3 {
		t.Fatalf("history = %#v", body.History)
	}
}

func TestChatUnknownSession(t *testing.T) {
	server, _ := newTestServer(t, defaultLLM())
	resp := postJSON(t, server.URL+"/v1/sessions/nope/messages", map[string]any{
		"subject":  "Sales",
		"question": "anything",
	})
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestChatUnknownSubject(t *testing.T) {
	server, _ := newTestServer(t, defaultLLM())
	id := createSession(t, server)

	resp := postJSON(t, server.URL+"/v1/sessions/"+id+"/messages", map[string]any{
		"subject":  "Nope",
		"question": "anything",
	})
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestChatRestart(t *testing.T) {
	server, _ := newTestServer(t, defaultLLM())
	id := createSession(t, server)

	resp := postJSON(t, server.URL+"/v1/sessions/"+id+"/messages", map[string]any{
		"subject":  "Sales",
		"question": "break",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body chatResponse
	decodeBody(t, resp, &body)
	if !body.Restarted || body.ChatResponse != "Session restarted" {
		t.Fatalf("body = %+v", body)
	}
}

func TestTableDataPagination(t *testing.T) {
	server, _ := newTestServer(t, defaultLLM())
	id := createSession(t, server)
	resp := postJSON(t, server.URL+"/v1/sessions/"+id+"/messages", map[string]any{
		"subject":  "Sales",
		"question": "show total retail volume by zone",
	})
	_ = resp.Body.Close()

	resp, err := http.Get(server.URL + "/v1/sessions/" + id + "/tables/main.billing_data/data?page=2&page_size=2")
	if err != nil {
		t.Fatalf("get data failed: %v", err)
	}
	var body struct {
		Data struct {
			Rows       [][]any `json:"rows"`
			TotalPages int     `json:"total_pages"`
		} `json:"data"`
	}
	decodeBody(t, resp, &body)
	if body.Data.TotalPages != 2 || len(body.Data.Rows) != 1 {
		t.Fatalf("data = %+v", body.Data)
	}

	resp, err = http.Get(server.URL + "/v1/sessions/" + id + "/tables/main.billing_data/data?page=9")
	if err != nil {
		t.Fatalf("get data failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("out-of-range page status = %d", resp.StatusCode)
	}
}

func TestTableColumns(t *testing.T) {
	server, _ := newTestServer(t, defaultLLM())
	id := createSession(t, server)
	resp := postJSON(t, server.URL+"/v1/sessions/"+id+"/messages", map[string]any{
		"subject":  "Sales",
		"question": "show total retail volume by zone",
	})
	_ = resp.Body.Close()

	resp, err := http.Get(server.URL + "/v1/sessions/" + id + "/tables/main.billing_data/columns")
	if err != nil {
		t.Fatalf("get columns failed: %v", err)
	}
	var body struct {
		Columns []string `json:"columns"`
	}
	decodeBody(t, resp, &body)
	if len(body.Columns) != 2 || body.Columns[0] != "Zone Name" {
		t.Fatalf("columns = %v", body.Columns)
	}

	resp, err = http.Get(server.URL + "/v1/sessions/" + id + "/tables/main.unknown/columns")
	if err != nil {
		t.Fatalf("get columns failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown table status = %d", resp.StatusCode)
	}
}

func TestTableDataUnknownTable(t *testing.T) {
	server, _ := newTestServer(t, defaultLLM())
	id := createSession(t, server)

	resp, err := http.Get(server.URL + "/v1/sessions/" + id + "/tables/main.unknown/data")
	if err != nil {
		t.Fatalf("get data failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestTableExportCSV(t *testing.T) {
	server, _ := newTestServer(t, defaultLLM())
	id := createSession(t, server)
	resp := postJSON(t, server.URL+"/v1/sessions/"+id+"/messages", map[string]any{
		"subject":  "Sales",
		"question": "show total retail volume by zone",
	})
	_ = resp.Body.Close()

	resp, err := http.Get(server.URL + "/v1/sessions/" + id + "/tables/main.billing_data/export?format=csv")
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Type"); got != "text/csv" {
		t.Fatalf("content type = %q", got)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !strings.HasPrefix(string(data), "Zone Name,Total Retail Volume\n") {
		t.Fatalf("export = %q", data)
	}
}

func TestResetSession(t *testing.T) {
	server, sessions := newTestServer(t, defaultLLM())
	id := createSession(t, server)
	resp := postJSON(t, server.URL+"/v1/sessions/"+id+"/messages", map[string]any{
		"subject":  "Sales",
		"question": "show total retail volume by zone",
	})
	_ = resp.Body.Close()

	resp = postJSON(t, server.URL+"/v1/sessions/"+id+"/reset", map[string]any{})
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	sess, err := sessions.Get(id)
	if err != nil {
		t.Fatalf("session lookup failed: %v", err)
	}
	if len(sess.Messages()) != 0 {
		t.Fatal("session should be empty after reset")
	}
}

func TestDeleteSession(t *testing.T) {
	server, sessions := newTestServer(t, defaultLLM())
	id := createSession(t, server)

	req, err := http.NewRequest(http.MethodDelete, server.URL+"/v1/sessions/"+id, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if _, err := sessions.Get(id); err == nil {
		t.Fatal("session should be gone")
	}
}

func TestSubjectEndpoints(t *testing.T) {
	server, _ := newTestServer(t, defaultLLM())

	resp, err := http.Get(server.URL + "/v1/subjects")
	if err != nil {
		t.Fatalf("get subjects failed: %v", err)
	}
	var subjects struct {
		Subjects []string `json:"subjects"`
	}
	decodeBody(t, resp, &subjects)
	if len(subjects.Subjects) != 1 || subjects.Subjects[0] != "Sales" {
		t.Fatalf("subjects = %v", subjects.Subjects)
	}

	resp, err = http.Get(server.URL + "/v1/subjects/Sales/tables")
	if err != nil {
		t.Fatalf("get tables failed: %v", err)
	}
	var tables struct {
		Tables []string `json:"tables"`
	}
	decodeBody(t, resp, &tables)
	if len(tables.Tables) != 1 || tables.Tables[0] != "main.billing_data" {
		t.Fatalf("tables = %v", tables.Tables)
	}

	resp, err = http.Get(server.URL + "/v1/subjects/Nope/tables")
	if err != nil {
		t.Fatalf("get tables failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown subject status = %d", resp.StatusCode)
	}
}

func TestQuestionEndpoints(t *testing.T) {
	server, _ := newTestServer(t, defaultLLM())

	resp, err := http.Get(server.URL + "/v1/subjects/Sales/questions")
	if err != nil {
		t.Fatalf("get questions failed: %v", err)
	}
	var body struct {
		Questions []string `json:"questions"`
	}
	decodeBody(t, resp, &body)
	if len(body.Questions) != 1 {
		t.Fatalf("questions = %v", body.Questions)
	}

	resp = postJSON(t, server.URL+"/v1/subjects/Sales/questions", map[string]any{
		"question": "show billing volume by model",
	})
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add question status = %d", resp.StatusCode)
	}

	resp, err = http.Get(server.URL + "/v1/subjects/Sales/questions")
	if err != nil {
		t.Fatalf("get questions failed: %v", err)
	}
	decodeBody(t, resp, &body)
	if len(body.Questions) != 2 {
		t.Fatalf("questions after add = %v", body.Questions)
	}

	resp, err = http.Get(server.URL + "/v1/subjects/Nope/questions")
	if err != nil {
		t.Fatalf("get questions failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown subject status = %d", resp.StatusCode)
	}
}
