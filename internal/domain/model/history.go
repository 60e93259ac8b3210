package model

// CheckStatus 表示一条历史检测记录的最终状态。
type CheckStatus string

const (
	CheckSuccess CheckStatus = "success"
	CheckFailed  CheckStatus = "failed"
)

// CheckRecord 对应 checks 表的一条历史记录。
//
// ResultJSON 保存规范模型的完整 JSON，用于之后离线重新生成报告
// （文本/PDF 报告对同一份模型必须可复现，见 services/report）。
type CheckRecord struct {
	CheckID           string      `json:"check_id"`
	SubmittedAt       int64       `json:"submitted_at"`
	ScanMode          string      `json:"scan_mode"`
	InputKind         string      `json:"input_kind"` // text|file
	InputName         string      `json:"input_name,omitempty"`
	Status            CheckStatus `json:"status"`
	Error             string      `json:"error,omitempty"`
	PlagiarismPercent float64     `json:"plagiarism_percent"`
	MatchCount        int         `json:"match_count"`
	SourcesFound      int         `json:"sources_found"`
	CitedChunks       int         `json:"cited_chunks"`
	ResultJSON        []byte      `json:"-"`
	ResultSHA256      string      `json:"result_sha256,omitempty"`
	CreatedAt         int64       `json:"created_at"`
}

// ReportInfo 对应 reports 表的一条导出产物记录。
type ReportInfo struct {
	ReportID         string `json:"report_id"`
	CheckID          string `json:"check_id"`
	ReportType       string `json:"report_type"` // text|pdf
	FilePath         string `json:"file_path"`
	SHA256           string `json:"sha256"`
	SizeBytes        int64  `json:"size_bytes"`
	GeneratorVersion string `json:"generator_version,omitempty"`
	CreatedAt        int64  `json:"created_at"`
}
