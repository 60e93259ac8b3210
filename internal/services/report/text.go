package report

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// TextFileName 是文本报告的固定下载名。
const TextFileName = "plagiarism-report.txt"

const textDivider = "----------------------------------------"

// Text 生成纯文本报告。
//
// 确定性契约：同一份 Model 配同一个 generatedAt，输出字节级一致。
// 时间戳是报告里唯一随生成时刻变化的内容。
func Text(m Model, generatedAt time.Time) string {
	var b strings.Builder

	b.WriteString("PLAGIARISM CHECK REPORT\n")
	fmt.Fprintf(&b, "Generated: %s\n", fmtTime(generatedAt))
	if m.ScanMode != "" {
		fmt.Fprintf(&b, "Scan Mode: %s\n", m.ScanMode)
	}
	b.WriteString(textDivider + "\n")
	fmt.Fprintf(&b, "Plagiarism Score : %s\n", m.ScoreText)
	fmt.Fprintf(&b, "Originality      : %s\n", m.Originality)
	fmt.Fprintf(&b, "Sources Found    : %d\n", m.SourcesFound)
	fmt.Fprintf(&b, "Cited Chunks     : %d\n", m.CitedChunks)
	b.WriteString(textDivider + "\n\n")

	if len(m.Rows) == 0 {
		b.WriteString(EmptyPlaceholder + "\n")
		return b.String()
	}

	for _, row := range m.Rows {
		fmt.Fprintf(&b, "[%d] %s | %s\n", row.Ordinal, row.Badge, row.StatusLabel)
		if row.Source != "" {
			fmt.Fprintf(&b, "Source : %s\n", row.Source)
		}
		b.WriteString("Excerpt:\n")
		b.WriteString(row.Excerpt + "\n")
		b.WriteString("Matched:\n")
		b.WriteString(row.Matched + "\n")
		b.WriteString("\n")
	}
	return b.String()
}

// WriteText 把文本报告写入 path。
func WriteText(m Model, generatedAt time.Time, path string) error {
	if err := os.WriteFile(path, []byte(Text(m, generatedAt)), 0o644); err != nil {
		return fmt.Errorf("write text report: %w", err)
	}
	return nil
}

func fmtTime(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}
