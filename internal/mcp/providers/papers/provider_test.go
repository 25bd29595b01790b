package papers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholarhub/scholarhub-mcp/internal/backend"
	mcpgw "github.com/scholarhub/scholarhub-mcp/internal/mcp"
)

type recorded struct {
	method string
	path   string
	body   map[string]any
}

func newTestExecutor(t *testing.T, status int, response string) (*Executor, *[]recorded) {
	t.Helper()
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{method: r.Method, path: r.URL.Path}
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&rec.body)
		}
		calls = append(calls, rec)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	client, err := backend.NewClient(log, backend.Config{BaseURL: srv.URL, APIKey: "key"})
	require.NoError(t, err)
	return NewExecutor(log, client), &calls
}

func call(t *testing.T, p *Executor, tool string, args map[string]any) map[string]any {
	t.Helper()
	handler, ok := p.ListHandlers()[tool]
	require.True(t, ok, tool)
	result, err := handler(context.Background(), args)
	require.NoError(t, err)
	return result
}

func TestDefinitionsMatchHandlers(t *testing.T) {
	p := NewExecutor(nil, nil)
	report := mcpgw.CheckContract(p.ListDefinitions(), p.ListHandlers())
	assert.True(t, report.OK(), "%+v", report)
	assert.Len(t, p.ListDefinitions(), 9)
}

func TestGetPaper(t *testing.T) {
	p, calls := newTestExecutor(t, http.StatusOK, `{"id":"p1","title":"On Graphs","abstract":"<p>Short <em>abstract</em></p>","status":"published"}`)
	result := call(t, p, toolGetPaper, map[string]any{"paper_id": "p1"})
	require.False(t, mcpgw.IsErrorResult(result))
	assert.Contains(t, mcpgw.ResultText(result), "# On Graphs")
	assert.Contains(t, mcpgw.ResultText(result), "Short *abstract*")
	require.Len(t, *calls, 1)
	assert.Equal(t, "/papers/p1", (*calls)[0].path)
}

func TestSubmitPaper(t *testing.T) {
	p, calls := newTestExecutor(t, http.StatusCreated, `{"id":"p9","title":"A Study of Things","status":"draft"}`)
	result := call(t, p, toolSubmitPaper, map[string]any{
		"title":    "A Study of Things",
		"abstract": "We study things in considerable depth.",
		"tags":     []any{" ml ", ""},
	})
	require.False(t, mcpgw.IsErrorResult(result), mcpgw.ResultText(result))
	assert.Contains(t, mcpgw.ResultText(result), "Draft `p9` created")
	require.Len(t, *calls, 1)
	assert.Equal(t, http.MethodPost, (*calls)[0].method)
	assert.Equal(t, []any{"ml"}, (*calls)[0].body["tags"])
}

func TestSubmitPaperValidation(t *testing.T) {
	p := NewExecutor(nil, nil)
	result := call(t, p, toolSubmitPaper, map[string]any{"title": "A Study", "abstract": "short"})
	assert.Equal(t, "abstract must be at least 20", mcpgw.ResultText(result))

	result = call(t, p, toolSubmitPaper, map[string]any{
		"title":       "A Study",
		"abstract":    "long enough abstract for validation",
		"content_url": "not a url",
	})
	assert.Equal(t, "content_url must be a valid URL", mcpgw.ResultText(result))
}

func TestUpdatePaperRequiresAChange(t *testing.T) {
	p := NewExecutor(nil, nil)
	result := call(t, p, toolUpdatePaper, map[string]any{"paper_id": "p1", "changelog": "nothing"})
	assert.True(t, mcpgw.IsErrorResult(result))
	assert.Contains(t, mcpgw.ResultText(result), "at least one of")
}

func TestDeletePaperNeedsConfirmation(t *testing.T) {
	p, calls := newTestExecutor(t, http.StatusNoContent, ``)
	result := call(t, p, toolDeletePaper, map[string]any{"paper_id": "p1"})
	assert.True(t, mcpgw.IsErrorResult(result))
	assert.Empty(t, *calls)

	result = call(t, p, toolDeletePaper, map[string]any{"paper_id": "p1", "confirm": true})
	assert.False(t, mcpgw.IsErrorResult(result))
	require.Len(t, *calls, 1)
	assert.Equal(t, http.MethodDelete, (*calls)[0].method)
}

func TestWithdrawPaperMapsConflict(t *testing.T) {
	p, calls := newTestExecutor(t, http.StatusConflict, `{"error":"paper is a draft"}`)
	result := call(t, p, toolWithdrawPaper, map[string]any{"paper_id": "p1", "reason": "duplicate submission"})
	assert.True(t, mcpgw.IsErrorResult(result))
	assert.Equal(t, "conflict: paper is a draft", mcpgw.ResultText(result))
	require.Len(t, *calls, 1)
	assert.Equal(t, "/papers/p1/withdraw", (*calls)[0].path)
	assert.Equal(t, "duplicate submission", (*calls)[0].body["reason"])
}

func TestGetPaperStatsFillsID(t *testing.T) {
	p, _ := newTestExecutor(t, http.StatusOK, `{"views":10,"downloads":3,"averageRating":4.3}`)
	result := call(t, p, toolGetPaperStats, map[string]any{"paper_id": "p7"})
	text := mcpgw.ResultText(result)
	assert.Contains(t, text, "Statistics for `p7`")
	assert.Contains(t, text, "- Average rating: 4.3")
}
