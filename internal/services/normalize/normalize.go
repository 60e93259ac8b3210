package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"plagiarism-checker/internal/domain/model"
)

// ErrMalformedResponse 表示“响应收到了，但无法归一化为规范模型”。
// 这是本提交周期的终止性错误：不做部分渲染，上一份结果保持不动。
var ErrMalformedResponse = errors.New("malformed analysis response")

// rawResult 用指针字段区分“字段缺失”与“零值”：
// plagiarism_percent 和 matches 缺失都是硬错误（响应 schema 被破坏）。
type rawResult struct {
	ScanMode          string               `json:"scan_mode"`
	PlagiarismPercent *float64             `json:"plagiarism_percent"`
	Matches           *[]model.MatchRecord `json:"matches"`
	Summary           *model.Summary       `json:"summary"`
}

// Result 把一份原始响应体归一化为规范 AnalysisResult。
//
// 纯转换，无副作用。失败时返回包着 ErrMalformedResponse 的错误。
func Result(raw []byte) (*model.AnalysisResult, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrMalformedResponse)
	}

	var r rawResult
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("%w: decode json: %v", ErrMalformedResponse, err)
	}
	if r.PlagiarismPercent == nil {
		return nil, fmt.Errorf("%w: plagiarism_percent is missing", ErrMalformedResponse)
	}
	if r.Matches == nil {
		return nil, fmt.Errorf("%w: matches is missing", ErrMalformedResponse)
	}

	percent := *r.PlagiarismPercent
	if math.IsNaN(percent) || math.IsInf(percent, 0) {
		return nil, fmt.Errorf("%w: plagiarism_percent is not a finite number", ErrMalformedResponse)
	}
	percent = clampPercent(percent)

	// matches 的顺序就是展示顺序，这里原样保留；
	// 拷贝一份，让规范模型与原始解码缓冲脱钩（创建后只读）。
	matches := make([]model.MatchRecord, len(*r.Matches))
	copy(matches, *r.Matches)
	for i := range matches {
		matches[i].Similarity = clampPercent(matches[i].Similarity)
	}

	out := &model.AnalysisResult{
		ScanMode:          model.ScanMode(strings.TrimSpace(r.ScanMode)),
		PlagiarismPercent: percent,
		Matches:           matches,
	}
	if r.Summary != nil {
		s := *r.Summary
		out.Summary = &s
	}
	return out, nil
}

// clampPercent 把越界数值收敛进 [0,100]。
// 后端正常情况下不会越界；这里只处理上游四舍五入误差（例如 100.000001）。
func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
