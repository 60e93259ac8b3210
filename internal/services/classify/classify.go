package classify

import (
	"fmt"
	"strings"

	"plagiarism-checker/internal/domain/model"
)

// 本包集中维护所有“阈值派生”规则。
//
// 历史上这套规则在两份前端实现里各抄了一遍（阈值还有细微出入），
// 这里收敛为唯一实现：屏幕视图、文本报告、PDF 报告都只允许从这里取派生值，
// 避免再次出现“预览和导出口径不一致”。
//
// 阈值全部使用严格大于（边界值落在低档）：
// - tier:   >70 high / >40 medium / 其他 low
// - status: citation_safe 恒为 safe；>60 danger / 其他 warning

// Tier 按相似度返回档位。
func Tier(similarity float64) model.SimilarityTier {
	switch {
	case similarity > 70:
		return model.TierHigh
	case similarity > 40:
		return model.TierMedium
	default:
		return model.TierLow
	}
}

// Status 返回状态分类。规范引用条目无条件 safe，数值不参与判断。
func Status(similarity float64, citationSafe bool) model.StatusClass {
	if citationSafe {
		return model.ClassSafe
	}
	if similarity > 60 {
		return model.ClassDanger
	}
	return model.ClassWarning
}

// Label 返回展示用状态文案。后端给了 status 就原样展示，否则按本地规则兜底。
func Label(m model.MatchRecord) string {
	if s := strings.TrimSpace(m.Status); s != "" {
		return s
	}
	if m.CitationSafe {
		return "Properly Cited"
	}
	return "Potential Plagiarism"
}

// HasRealSource 判断 source 是否是“可外链的真实来源”：
// 非空且不等于占位值 SentinelNoSource。
func HasRealSource(source string) bool {
	s := strings.TrimSpace(source)
	return s != "" && s != model.SentinelNoSource
}

// Originality 返回原创度文案：100 − plagiarismPercent，固定一位小数。
func Originality(plagiarismPercent float64) string {
	return fmt.Sprintf("%.1f%%", 100-plagiarismPercent)
}

// View 把单条记录的全部派生值组合为展示视图。
// 纯函数：相同输入必得相同输出。
func View(m model.MatchRecord) model.MatchView {
	status := Status(m.Similarity, m.CitationSafe)
	return model.MatchView{
		Tier:                Tier(m.Similarity),
		StatusClass:         status,
		RecommendationClass: status,
		StatusLabel:         Label(m),
		HasRealSource:       HasRealSource(m.Source),
	}
}
