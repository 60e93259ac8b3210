package webapp

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"plagiarism-checker/internal/adapters/checkapi"
	"plagiarism-checker/internal/domain/model"
	"plagiarism-checker/internal/platform/hash"
	"plagiarism-checker/internal/services/history"
	"plagiarism-checker/internal/services/normalize"
)

// 上传文件大小上限。后端按文本分块比对，超过这个量级的文档应拆分提交。
const maxUploadBytes = 16 << 20

// submitState 维护"当前这一次检测"的内存状态。
// 同一时刻只允许一次在途提交；失败时保留上一份成功结果不动。
type submitState struct {
	mu       sync.Mutex
	inFlight bool
	current  *model.AnalysisResult
	checkID  string
	lastErr  string
}

// tryAcquire 尝试占住提交位。返回 false 表示已有在途提交。
func (st *submitState) tryAcquire() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.inFlight {
		return false
	}
	st.inFlight = true
	return true
}

func (st *submitState) release() {
	st.mu.Lock()
	st.inFlight = false
	st.mu.Unlock()
}

func (st *submitState) setResult(res *model.AnalysisResult, checkID string) {
	st.mu.Lock()
	st.current = res
	st.checkID = checkID
	st.lastErr = ""
	st.mu.Unlock()
}

func (st *submitState) setError(msg string) {
	st.mu.Lock()
	st.lastErr = msg
	st.mu.Unlock()
}

// snapshot 返回当前结果与其 check_id。结果模型写入后只读，共享指针安全。
func (st *submitState) snapshot() (*model.AnalysisResult, string, string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.current, st.checkID, st.lastErr
}

// handleCheck 接收检测提交：multipart 表单，text 与 file 二选一，
// 附带 scan_mode=quick|deep。提交期间进度模拟器跑动画，完成后冲到 100%。
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid multipart form: %w", err))
		return
	}

	req := checkapi.CheckRequest{
		Text:     r.FormValue("text"),
		ScanMode: model.ScanMode(strings.TrimSpace(r.FormValue("scan_mode"))),
	}
	inputKind := "text"
	inputName := ""

	if file, header, err := r.FormFile("file"); err == nil {
		defer file.Close()
		// 多读一个字节以区分"刚好到上限"和"超限被截断"
		raw, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("read upload: %w", err))
			return
		}
		if len(raw) > maxUploadBytes {
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Errorf("file exceeds the %d MB upload limit", maxUploadBytes>>20))
			return
		}
		req.FileBytes = raw
		req.FileName = header.Filename
		inputKind = "file"
		inputName = header.Filename
	}

	if len(req.FileBytes) == 0 && strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, errors.New("provide text or a file to check"))
		return
	}

	if !s.submit.tryAcquire() {
		writeError(w, http.StatusConflict, errors.New("a check is already in progress"))
		return
	}
	defer s.submit.release()

	s.progress.Start()
	res, err := s.client.Check(r.Context(), req)
	s.progress.Complete()

	submittedAt := time.Now().Unix()
	if err != nil {
		s.submit.setError(err.Error())
		rec := &model.CheckRecord{
			SubmittedAt: submittedAt,
			ScanMode:    scanModeLabel(req.ScanMode),
			InputKind:   inputKind,
			InputName:   inputName,
			Status:      model.CheckFailed,
			Error:       err.Error(),
		}
		if saveErr := s.store.SaveCheck(r.Context(), rec); saveErr != nil {
			fmt.Printf("warn: save failed check: %v\n", saveErr)
		}

		kind := "transport"
		if errors.Is(err, normalize.ErrMalformedResponse) {
			kind = "malformed"
		}
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error": err.Error(),
			"kind":  kind,
		})
		return
	}

	resultJSON, err := history.EncodeResult(res)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	rec := &model.CheckRecord{
		SubmittedAt:       submittedAt,
		ScanMode:          scanModeLabel(req.ScanMode),
		InputKind:         inputKind,
		InputName:         inputName,
		Status:            model.CheckSuccess,
		PlagiarismPercent: res.PlagiarismPercent,
		MatchCount:        len(res.Matches),
		SourcesFound:      res.SourcesFound(),
		CitedChunks:       res.CitedChunks(),
		ResultJSON:        resultJSON,
		ResultSHA256:      hash.Bytes(resultJSON),
	}
	if saveErr := s.store.SaveCheck(r.Context(), rec); saveErr != nil {
		fmt.Printf("warn: save check: %v\n", saveErr)
	}
	s.submit.setResult(res, rec.CheckID)

	writeJSON(w, http.StatusOK, map[string]any{
		"check_id": rec.CheckID,
		"result":   res,
	})
}

func scanModeLabel(mode model.ScanMode) string {
	if mode == model.ScanDeep {
		return string(model.ScanDeep)
	}
	return string(model.ScanQuick)
}
