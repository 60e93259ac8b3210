package checkapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"plagiarism-checker/internal/domain/model"
	"plagiarism-checker/internal/services/normalize"
)

// 远端相似度服务客户端。
//
// 消费契约：
// - POST {base}/check  multipart：file 或 text 二选一，外加 scan_mode=quick|deep
// - GET  {base}/health 任意 2xx 即视为可达
// 非 2xx 响应一律按传输失败处理（不读业务错误细节，后端也没承诺格式）。

// ErrTransport 表示网络失败或非 2xx 响应。
// 界面侧应提示“稍后重试”，并保持上一份结果不动。
var ErrTransport = errors.New("similarity service transport failure")

// ErrNoInput 表示既没有文本也没有文件，本地直接拒绝，不发请求。
var ErrNoInput = errors.New("no text or file to check")

// Client 访问一个后端环境（由 BaseURL 选定）。
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient 创建客户端。深度扫描可能很慢，默认超时放得比较宽。
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		HTTPClient: &http.Client{Timeout: 3 * time.Minute},
	}
}

// CheckRequest 是一次检测提交。FileBytes 非空时走 file 分支，否则走 text。
type CheckRequest struct {
	Text      string
	FileName  string
	FileBytes []byte
	ScanMode  model.ScanMode
}

// Check 提交检测并把响应归一化为规范模型。
// 错误语义：ErrNoInput（本地校验）/ ErrTransport / normalize.ErrMalformedResponse。
func (c *Client) Check(ctx context.Context, req CheckRequest) (*model.AnalysisResult, error) {
	hasFile := len(req.FileBytes) > 0
	hasText := strings.TrimSpace(req.Text) != ""
	if !hasFile && !hasText {
		return nil, ErrNoInput
	}

	mode := req.ScanMode
	if mode != model.ScanQuick && mode != model.ScanDeep {
		mode = model.ScanQuick
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if hasFile {
		name := strings.TrimSpace(req.FileName)
		if name == "" {
			name = "document"
		}
		part, err := w.CreateFormFile("file", name)
		if err != nil {
			return nil, fmt.Errorf("build form file: %w", err)
		}
		if _, err := part.Write(req.FileBytes); err != nil {
			return nil, fmt.Errorf("write form file: %w", err)
		}
	} else {
		if err := w.WriteField("text", req.Text); err != nil {
			return nil, fmt.Errorf("write text field: %w", err)
		}
	}
	if err := w.WriteField("scan_mode", string(mode)); err != nil {
		return nil, fmt.Errorf("write scan_mode field: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/check", &body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.httpClient().Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrTransport, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: http %d: %s", ErrTransport, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	return normalize.Result(raw)
}

// Health 发一次探活请求。返回 nil 表示后端可达。
// 周期性探测走 services/health（它自带超时与状态折算），这里给 CLI 单次使用。
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: http %d", ErrTransport, resp.StatusCode)
	}
	return nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}
