package webapp

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"io/fs"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"plagiarism-checker/internal/adapters/checkapi"
	sqliteadapter "plagiarism-checker/internal/adapters/store/sqlite"
	"plagiarism-checker/internal/services/health"
	"plagiarism-checker/internal/services/progress"
)

const backendPayload = `{
  "plagiarism_percent": 80,
  "summary": {"total_chunks_analyzed": 3, "chunks_with_matches": 2, "citation_safe_chunks": 1},
  "matches": [
    {"chunk_index": 0, "chunk": "copied text", "matched_content": "copied text", "similarity": 92.5,
     "citation_safe": false, "source": "https://example.com/a", "status": "", "recommendation": "rewrite"},
    {"chunk_index": 1, "chunk": "cited text", "matched_content": "cited text", "similarity": 88,
     "citation_safe": true, "citation_style": "APA", "source": "Citation Detected", "status": "", "recommendation": ""}
  ]
}`

// newTestServer 组装一个不经过 Run 的 Server：临时库、假后端、快速进度节拍。
func newTestServer(t *testing.T, backendURL string) (*Server, *httptest.Server) {
	t.Helper()

	dir := t.TempDir()
	db, err := sql.Open("sqlite", filepath.Join(dir, "checker.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	db.SetMaxOpenConns(1)
	if err := sqliteadapter.NewMigrator(db).Up(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	sub, err := fs.Sub(uiFS, "ui_dist")
	if err != nil {
		t.Fatalf("sub ui fs: %v", err)
	}

	if err := os.MkdirAll(filepath.Join(dir, "reports"), 0o755); err != nil {
		t.Fatalf("mkdir reports: %v", err)
	}

	s := &Server{
		opts: Options{
			BaseURL:   backendURL,
			DBPath:    filepath.Join(dir, "checker.db"),
			ReportDir: filepath.Join(dir, "reports"),
		},
		db:       db,
		store:    sqliteadapter.NewStore(db),
		ui:       sub,
		client:   checkapi.NewClient(backendURL),
		progress: progress.NewWithPace(5*time.Millisecond, 5*time.Millisecond),
		poller:   health.New(backendURL, time.Minute, time.Second),
	}
	t.Cleanup(s.progress.Stop)

	mux := http.NewServeMux()
	s.registerRoutes(mux)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return s, ts
}

func fakeBackend(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func postText(t *testing.T, ts *httptest.Server, text, scanMode string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("text", text); err != nil {
		t.Fatalf("write field: %v", err)
	}
	if scanMode != "" {
		if err := w.WriteField("scan_mode", scanMode); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	_ = w.Close()

	resp, err := http.Post(ts.URL+"/api/check", w.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("post check: %v", err)
	}
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	return out
}

func TestCheckFlowAndResult(t *testing.T) {
	backend := fakeBackend(t, http.StatusOK, backendPayload)
	_, ts := newTestServer(t, backend.URL)

	resp := postText(t, ts, "some submitted text", "deep")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("check status = %d", resp.StatusCode)
	}
	body := decodeJSON(t, resp)
	if body["check_id"] == "" || body["check_id"] == nil {
		t.Fatalf("missing check_id: %v", body)
	}

	resp2, err := http.Get(ts.URL + "/api/result")
	if err != nil {
		t.Fatalf("get result: %v", err)
	}
	out := decodeJSON(t, resp2)
	if out["result"] == nil {
		t.Fatal("result is nil after successful check")
	}
	view, ok := out["view"].(map[string]any)
	if !ok {
		t.Fatalf("view missing: %v", out)
	}
	if view["plagiarism_percent"].(float64) != 80 {
		t.Fatalf("view percent = %v", view["plagiarism_percent"])
	}

	// 历史落库
	resp3, err := http.Get(ts.URL + "/api/history")
	if err != nil {
		t.Fatalf("get history: %v", err)
	}
	hist := decodeJSON(t, resp3)
	checks, ok := hist["checks"].([]any)
	if !ok || len(checks) != 1 {
		t.Fatalf("history = %v", hist)
	}
}

func TestCheckValidation(t *testing.T) {
	backend := fakeBackend(t, http.StatusOK, backendPayload)
	_, ts := newTestServer(t, backend.URL)

	resp := postText(t, ts, "   ", "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestCheckBackendFailureKeepsPriorResult(t *testing.T) {
	good := fakeBackend(t, http.StatusOK, backendPayload)
	_, ts := newTestServer(t, good.URL)

	resp := postText(t, ts, "first run", "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first check status = %d", resp.StatusCode)
	}

	// 关掉后端，第二次提交必然传输失败
	good.Close()

	resp2 := postText(t, ts, "second run", "")
	if resp2.StatusCode != http.StatusBadGateway {
		t.Fatalf("failed check status = %d, want 502", resp2.StatusCode)
	}
	out := decodeJSON(t, resp2)
	if out["kind"] != "transport" {
		t.Fatalf("kind = %v, want transport", out["kind"])
	}

	resp3, err := http.Get(ts.URL + "/api/result")
	if err != nil {
		t.Fatalf("get result: %v", err)
	}
	res := decodeJSON(t, resp3)
	if res["result"] == nil {
		t.Fatal("prior result was clobbered by failed check")
	}
	if res["last_error"] == "" {
		t.Fatal("last_error not recorded")
	}
}

func TestCheckRejectsConcurrentSubmission(t *testing.T) {
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	var releaseOnce sync.Once
	t.Cleanup(func() { releaseOnce.Do(func() { close(release) }) })

	// 后端在第一次提交上挂住，直到测试放行
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		select {
		case entered <- struct{}{}:
		default:
		}
		<-release
		_, _ = w.Write([]byte(backendPayload))
	}))
	t.Cleanup(backend.Close)
	_, ts := newTestServer(t, backend.URL)

	first := make(chan int, 1)
	go func() {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		_ = w.WriteField("text", "slow check")
		_ = w.Close()
		resp, err := http.Post(ts.URL+"/api/check", w.FormDataContentType(), &buf)
		if err != nil {
			first <- -1
			return
		}
		resp.Body.Close()
		first <- resp.StatusCode
	}()

	// 等第一次提交进入后端，此时提交位被占
	<-entered

	resp := postText(t, ts, "while busy", "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("concurrent check status = %d, want 409", resp.StatusCode)
	}

	releaseOnce.Do(func() { close(release) })
	if code := <-first; code != http.StatusOK {
		t.Fatalf("first check status = %d, want 200", code)
	}
}

func TestOversizeUploadRejected(t *testing.T) {
	backend := fakeBackend(t, http.StatusOK, backendPayload)
	_, ts := newTestServer(t, backend.URL)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "huge.txt")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(bytes.Repeat([]byte("a"), maxUploadBytes+1)); err != nil {
		t.Fatalf("write part: %v", err)
	}
	_ = w.Close()

	resp, err := http.Post(ts.URL+"/api/check", w.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("post check: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", resp.StatusCode)
	}
}

func TestMalformedBackendResponseKind(t *testing.T) {
	backend := fakeBackend(t, http.StatusOK, `{"nope": true}`)
	_, ts := newTestServer(t, backend.URL)

	resp := postText(t, ts, "text", "")
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", resp.StatusCode)
	}
	out := decodeJSON(t, resp)
	if out["kind"] != "malformed" {
		t.Fatalf("kind = %v, want malformed", out["kind"])
	}
}

func TestExportTextAndDownload(t *testing.T) {
	backend := fakeBackend(t, http.StatusOK, backendPayload)
	_, ts := newTestServer(t, backend.URL)

	resp := postText(t, ts, "export me", "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("check status = %d", resp.StatusCode)
	}

	resp2, err := http.Post(ts.URL+"/api/export/text", "application/json", nil)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if resp2.StatusCode != http.StatusOK {
		t.Fatalf("export status = %d", resp2.StatusCode)
	}
	out := decodeJSON(t, resp2)
	reportID, _ := out["report_id"].(string)
	if reportID == "" {
		t.Fatalf("missing report_id: %v", out)
	}
	if out["report_type"] != "text" {
		t.Fatalf("report_type = %v", out["report_type"])
	}

	resp3, err := http.Get(ts.URL + "/api/reports/" + reportID + "/download")
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer resp3.Body.Close()
	if resp3.StatusCode != http.StatusOK {
		t.Fatalf("download status = %d", resp3.StatusCode)
	}
	cd := resp3.Header.Get("Content-Disposition")
	if !strings.Contains(cd, `"plagiarism-report.txt"`) {
		t.Fatalf("Content-Disposition = %q", cd)
	}
	raw, _ := io.ReadAll(resp3.Body)
	if !strings.Contains(string(raw), "PLAGIARISM CHECK REPORT") {
		t.Fatalf("report body missing header: %q", raw[:min(len(raw), 120)])
	}
}

func TestExportWithoutResult(t *testing.T) {
	backend := fakeBackend(t, http.StatusOK, backendPayload)
	_, ts := newTestServer(t, backend.URL)

	resp, err := http.Post(ts.URL+"/api/export/pdf", "application/json", nil)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestClipboardEndpoint(t *testing.T) {
	backend := fakeBackend(t, http.StatusOK, backendPayload)
	_, ts := newTestServer(t, backend.URL)

	resp := postText(t, ts, "clipboard", "")
	resp.Body.Close()

	resp2, err := http.Get(ts.URL + "/api/clipboard")
	if err != nil {
		t.Fatalf("clipboard: %v", err)
	}
	defer resp2.Body.Close()
	if ct := resp2.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("content type = %q", ct)
	}
	raw, _ := io.ReadAll(resp2.Body)
	if !strings.Contains(string(raw), "Plagiarism Check Result") {
		t.Fatalf("clipboard body = %q", raw)
	}
}

func TestUIFallback(t *testing.T) {
	backend := fakeBackend(t, http.StatusOK, backendPayload)
	_, ts := newTestServer(t, backend.URL)

	// 前端路由回落到 index.html
	resp, err := http.Get(ts.URL + "/history")
	if err != nil {
		t.Fatalf("get ui route: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ui route status = %d", resp.StatusCode)
	}

	// 缺失静态资源 404
	resp2, err := http.Get(ts.URL + "/assets/missing.js")
	if err != nil {
		t.Fatalf("get missing asset: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusNotFound {
		t.Fatalf("missing asset status = %d", resp2.StatusCode)
	}
}
