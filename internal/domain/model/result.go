package model

// ScanMode 表示提交给远端相似度服务的扫描模式。
type ScanMode string

const (
	// ScanQuick 快速扫描：后端只分析前若干个 chunk，响应更快。
	ScanQuick ScanMode = "quick"
	// ScanDeep 深度扫描：后端分析全部 chunk。
	ScanDeep ScanMode = "deep"
)

// SentinelNoSource 是后端约定的占位来源值，表示“该条记录没有可外链的来源”。
// 典型场景：chunk 被识别为规范引用（citation_safe），没有外部网页可跳转。
const SentinelNoSource = "Citation Detected"

// SimilarityTier 是按固定阈值派生的相似度档位。
type SimilarityTier string

const (
	TierLow    SimilarityTier = "low"
	TierMedium SimilarityTier = "medium"
	TierHigh   SimilarityTier = "high"
)

// StatusClass 是展示层的状态分类（同时用于推荐文案的着色）。
type StatusClass string

const (
	ClassSafe    StatusClass = "safe"
	ClassWarning StatusClass = "warning"
	ClassDanger  StatusClass = "danger"
)

// MatchRecord 表示一条匹配明细（与后端 /check 响应的 matches[] 元素对齐）。
//
// 注意：
// - chunk / matched_content / recommendation 等自由文本字段均视为不可信输入，
//   进入预览前必须转义（见 services/sanitize）。
// - similarity 只在 citation_safe=false 时有意义；规范引用条目不展示数值。
type MatchRecord struct {
	ChunkIndex     int     `json:"chunk_index"`
	Chunk          string  `json:"chunk"`
	MatchedContent string  `json:"matched_content,omitempty"`
	Similarity     float64 `json:"similarity"`
	CitationSafe   bool    `json:"citation_safe"`
	CitationStyle  string  `json:"citation_style,omitempty"`
	Source         string  `json:"source,omitempty"`
	Status         string  `json:"status,omitempty"`
	Recommendation string  `json:"recommendation,omitempty"`
}

// Summary 是后端给出的整体统计（可选字段）。
type Summary struct {
	TotalChunksAnalyzed int `json:"total_chunks_analyzed"`
	ChunksWithMatches   int `json:"chunks_with_matches"`
	CitationSafeChunks  int `json:"citation_safe_chunks"`
}

// AnalysisResult 是一次检测的规范模型：
// - 每个提交周期整体替换（不做增量合并），创建后只读
// - 屏幕视图与所有导出产物都只从这一份模型读取
type AnalysisResult struct {
	ScanMode          ScanMode      `json:"scan_mode,omitempty"`
	PlagiarismPercent float64       `json:"plagiarism_percent"`
	Matches           []MatchRecord `json:"matches"`
	Summary           *Summary      `json:"summary,omitempty"`
}

// SourcesFound 返回“发现来源数”。summary 缺失时回退为 matches 长度。
func (r *AnalysisResult) SourcesFound() int {
	if r.Summary != nil {
		return r.Summary.ChunksWithMatches
	}
	return len(r.Matches)
}

// CitedChunks 返回规范引用的 chunk 数。summary 缺失时回退为 0。
func (r *AnalysisResult) CitedChunks() int {
	if r.Summary != nil {
		return r.Summary.CitationSafeChunks
	}
	return 0
}

// MatchView 是按单条 MatchRecord 派生的展示视图（仅计算，不持久化）。
type MatchView struct {
	Tier                SimilarityTier `json:"tier"`
	StatusClass         StatusClass    `json:"status_class"`
	RecommendationClass StatusClass    `json:"recommendation_class"`
	StatusLabel         string         `json:"status_label"`
	HasRealSource       bool           `json:"has_real_source"`
}
