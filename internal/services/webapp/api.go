package webapp

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"plagiarism-checker/internal/app"
	"plagiarism-checker/internal/domain/model"
	"plagiarism-checker/internal/platform/hash"
	"plagiarism-checker/internal/platform/id"
	"plagiarism-checker/internal/services/normalize"
	"plagiarism-checker/internal/services/report"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"service": "webapp",
		"time":    time.Now().Unix(),
		"backend": map[string]any{
			"base_url":      s.opts.BaseURL,
			"status":        s.poller.Status(),
			"last_probe_at": s.poller.LastProbeAt(),
		},
	})
}

func (s *Server) handleMeta(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	schemaVersion, _ := s.store.GetSchemaMetaValue(r.Context(), "schema_version")
	schemaName, _ := s.store.GetSchemaMetaValue(r.Context(), "schema_name")

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":   true,
		"time": time.Now().Unix(),
		"app": map[string]any{
			"version":    app.Version,
			"commit":     app.Commit,
			"build_time": app.BuildTime,
		},
		"db": map[string]any{
			"schema_version": schemaVersion,
			"schema_name":    schemaName,
			"path":           s.opts.DBPath,
		},
		"backend": map[string]any{
			"base_url": s.opts.BaseURL,
		},
		"report": map[string]any{
			"generator_version": report.GeneratorVersion,
			"dir":               s.opts.ReportDir,
		},
	})
}

// handleResult 返回当前结果的展示模型。
// result 为原始规范模型，view 为前端直接可渲染的报告模型（已转义、已分类）。
func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	res, checkID, lastErr := s.submit.snapshot()
	out := map[string]any{
		"result":     nil,
		"check_id":   checkID,
		"last_error": lastErr,
	}
	if res != nil {
		out["result"] = res
		out["view"] = report.Build(res)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.progress.Snapshot())
}

// handleClipboard 返回可直接写入剪贴板的两行摘要（text/plain）。
func (s *Server) handleClipboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	res, _, _ := s.submit.snapshot()
	if res == nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("no result available"))
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(report.Clipboard(report.Build(res))))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	limit := parseInt(r.URL.Query().Get("limit"), 50)
	offset := parseInt(r.URL.Query().Get("offset"), 0)

	rows, err := s.store.ListChecks(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"checks": rows})
}

func (s *Server) handleHistoryRoutes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	checkID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/history/"), "/")
	if checkID == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	check, err := s.store.GetCheckByID(r.Context(), checkID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if check == nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("check not found: %s", checkID))
		return
	}

	reports, err := s.store.ListReportsByCheck(r.Context(), checkID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	out := map[string]any{
		"check":   check,
		"reports": reports,
	}
	if parseBool(r.URL.Query().Get("view"), false) && len(check.ResultJSON) > 0 {
		res, err := normalize.Result(check.ResultJSON)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		out["view"] = report.Build(res)
	}
	writeJSON(w, http.StatusOK, out)
}

// handleExportRoutes 生成报告文件并登记到 reports 表：
// - POST /api/export/text
// - POST /api/export/pdf
// 默认导出当前结果；带 check_id 查询参数时从历史记录离线重新生成。
func (s *Server) handleExportRoutes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	kind := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/export/"), "/")
	if kind != "text" && kind != "pdf" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	res, checkID, err := s.resultForExport(r)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	m := report.Build(res)
	now := time.Now()
	reportID := id.New("rpt")

	var path string
	switch kind {
	case "text":
		path = filepath.Join(s.opts.ReportDir, reportID+".txt")
		if err := report.WriteText(m, now, path); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
	case "pdf":
		path = filepath.Join(s.opts.ReportDir, reportID+".pdf")
		if err := report.WritePDF(m, now, path); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
	}

	sum, size, err := hash.File(path)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	storedID, err := s.store.SaveReport(r.Context(), checkID, kind, path, sum, size, report.GeneratorVersion)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"report_id":    storedID,
		"check_id":     checkID,
		"report_type":  kind,
		"sha256":       sum,
		"size_bytes":   size,
		"download_url": "/api/reports/" + storedID + "/download",
	})
}

// resultForExport 取导出用的结果模型：优先当前结果，指定 check_id 时走历史。
func (s *Server) resultForExport(r *http.Request) (*model.AnalysisResult, string, error) {
	checkID := strings.TrimSpace(r.URL.Query().Get("check_id"))
	if checkID == "" {
		res, currentID, _ := s.submit.snapshot()
		if res == nil {
			return nil, "", fmt.Errorf("no result available to export")
		}
		return res, currentID, nil
	}

	check, err := s.store.GetCheckByID(r.Context(), checkID)
	if err != nil {
		return nil, "", err
	}
	if check == nil {
		return nil, "", fmt.Errorf("check not found: %s", checkID)
	}
	if check.Status != model.CheckSuccess || len(check.ResultJSON) == 0 {
		return nil, "", fmt.Errorf("check %s has no stored result", checkID)
	}
	res, err := normalize.Result(check.ResultJSON)
	if err != nil {
		return nil, "", err
	}
	return res, checkID, nil
}

// handleReportRoutes 处理报告下载：
// - GET /api/reports/{report_id}/download
// 下载文件名固定为 plagiarism-report.{ext}，内部存储名不外泄。
func (s *Server) handleReportRoutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/reports/"), "/")
	parts := strings.Split(rest, "/")
	if len(parts) < 1 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	reportID := parts[0]
	action := ""
	if len(parts) > 1 {
		action = parts[1]
	}

	switch action {
	case "":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		info, err := s.store.GetReportByID(r.Context(), reportID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if info == nil {
			writeError(w, http.StatusNotFound, fmt.Errorf("report not found: %s", reportID))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"report": info})
	case "download":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		info, err := s.store.GetReportByID(r.Context(), reportID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if info == nil {
			writeError(w, http.StatusNotFound, fmt.Errorf("report not found: %s", reportID))
			return
		}
		serveFile(w, r, info.FilePath, "plagiarism-report")
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{
		"error": err.Error(),
	})
}

func parseInt(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func parseBool(s string, def bool) bool {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return def
	}
	switch s {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}
