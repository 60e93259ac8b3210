package report

import (
	"fmt"

	"plagiarism-checker/internal/domain/model"
	"plagiarism-checker/internal/services/classify"
	"plagiarism-checker/internal/services/sanitize"
	"plagiarism-checker/internal/services/scoreview"
)

// 报告合成层。
//
// 设计约束：屏幕预览、文本报告、PDF 报告三种输出永远不得相互矛盾。
// 做法是先把“规范模型 + 派生视图”合成一份 Model，三种序列化器都只读它；
// 阈值、转义、占位来源等规则不允许在任何序列化器里二次实现。

// GeneratorVersion 写入报告登记表，便于追溯是哪个版本的合成逻辑生成的产物。
const GeneratorVersion = "report-0.2.0"

// EmptyPlaceholder 是零匹配时的占位文案。
const EmptyPlaceholder = "No plagiarism detected. Your content appears to be original."

// Row 是一条导出行（文本/PDF 共用）。
// 没有 matched_content 的记录构不成报告行，在 Build 阶段就被跳过。
type Row struct {
	Ordinal     int    `json:"ordinal"`
	Badge       string `json:"badge"` // "85.0%" 或 "Cited (APA)"
	StatusLabel string `json:"status_label"`
	Source      string `json:"source"`
	Excerpt     string `json:"excerpt"`
	Matched     string `json:"matched"`
}

// PreviewMatch 是交互预览的一条记录：自由文本字段全部转义，
// 链接目标经过协议收敛。视图层直接嵌入这些值，不再做二次处理。
type PreviewMatch struct {
	Badge               string               `json:"badge"`
	StatusLabel         string               `json:"status_label"`
	Chunk               string               `json:"chunk"`
	Matched             string               `json:"matched,omitempty"`
	Recommendation      string               `json:"recommendation,omitempty"`
	CitationStyle       string               `json:"citation_style,omitempty"`
	Tier                model.SimilarityTier `json:"tier"`
	StatusClass         model.StatusClass    `json:"status_class"`
	RecommendationClass model.StatusClass    `json:"recommendation_class"`
	HasRealSource       bool                 `json:"has_real_source"`
	LinkHref            string               `json:"link_href"`
	LinkText            string               `json:"link_text"`
	ShowSimilarity      bool                 `json:"show_similarity"`
}

// Model 是三种输出共享的合成结果。
type Model struct {
	ScanMode          string         `json:"scan_mode,omitempty"`
	PlagiarismPercent float64        `json:"plagiarism_percent"`
	ScoreText         string         `json:"score_text"`
	Originality       string         `json:"originality"`
	SourcesFound      int            `json:"sources_found"`
	CitedChunks       int            `json:"cited_chunks"`
	MatchCount        int            `json:"match_count"`
	Empty             bool           `json:"empty"`
	Placeholder       string         `json:"placeholder,omitempty"`
	Ring              scoreview.Ring `json:"ring"`
	Rows              []Row          `json:"rows"`
	Preview           []PreviewMatch `json:"preview"`
}

// Badge 返回匹配条目的徽标文案：
// 规范引用显示 "Cited"（有风格时带括号），否则显示一位小数的相似度。
// 规范引用条目永远不显示数值徽标。
func Badge(m model.MatchRecord) string {
	if m.CitationSafe {
		if m.CitationStyle != "" {
			return fmt.Sprintf("Cited (%s)", m.CitationStyle)
		}
		return "Cited"
	}
	return fmt.Sprintf("%.1f%%", m.Similarity)
}

// Build 从规范模型合成渲染模型。确定性：相同输入必得相同输出。
func Build(res *model.AnalysisResult) Model {
	out := Model{
		ScanMode:          string(res.ScanMode),
		PlagiarismPercent: res.PlagiarismPercent,
		ScoreText:         fmt.Sprintf("%.1f%%", res.PlagiarismPercent),
		Originality:       classify.Originality(res.PlagiarismPercent),
		SourcesFound:      res.SourcesFound(),
		CitedChunks:       res.CitedChunks(),
		MatchCount:        len(res.Matches),
		Ring:              scoreview.Build(res.PlagiarismPercent),
	}
	if len(res.Matches) == 0 {
		out.Empty = true
		out.Placeholder = EmptyPlaceholder
	}

	for _, m := range res.Matches {
		v := classify.View(m)
		badge := Badge(m)

		// 预览包含全部 matches（顺序就是展示顺序）
		pm := PreviewMatch{
			Badge:               sanitize.Text(badge),
			StatusLabel:         sanitize.Text(v.StatusLabel),
			Chunk:               sanitize.Text(m.Chunk),
			Matched:             sanitize.Text(m.MatchedContent),
			Recommendation:      sanitize.Text(m.Recommendation),
			CitationStyle:       sanitize.Text(m.CitationStyle),
			Tier:                v.Tier,
			StatusClass:         v.StatusClass,
			RecommendationClass: v.RecommendationClass,
			HasRealSource:       v.HasRealSource,
			ShowSimilarity:      !m.CitationSafe,
			LinkText:            sanitize.Text(m.Source),
		}
		if v.HasRealSource {
			pm.LinkHref = sanitize.LinkTarget(m.Source)
		} else {
			pm.LinkHref = sanitize.NeutralLink
		}
		out.Preview = append(out.Preview, pm)

		// 导出行要求有匹配到的原文片段
		if m.MatchedContent == "" {
			continue
		}
		out.Rows = append(out.Rows, Row{
			Ordinal:     len(out.Rows) + 1,
			Badge:       badge,
			StatusLabel: v.StatusLabel,
			Source:      m.Source,
			Excerpt:     m.Chunk,
			Matched:     m.MatchedContent,
		})
	}
	return out
}
