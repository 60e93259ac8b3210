package report

import (
	"fmt"
	"strings"
)

// Clipboard 生成剪贴板用的浓缩摘要：分数 + 原创度，单个文本块。
// 写入剪贴板的动作由视图层完成，这里只负责内容。
func Clipboard(m Model) string {
	var b strings.Builder
	b.WriteString("Plagiarism Check Result\n")
	fmt.Fprintf(&b, "Score: %s | Originality: %s\n", m.ScoreText, m.Originality)
	return b.String()
}
