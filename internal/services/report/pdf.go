package report

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/phpdave11/gofpdf"
)

// PDFFileName 是 PDF 报告的固定下载名。
const PDFFileName = "plagiarism-report.pdf"

const (
	pdfMargin = 14.0
	// A4 纵向高度 297mm；写下一个匹配块之前如果游标越过该阈值就先换页，
	// 避免一个块的标题和正文被拆在两页。
	pdfBreakY = 250.0
	// A4 宽 210mm，减去左右边距后的内容宽度；长 source/摘录先按它折行再写入。
	pdfContentWidth = 210.0 - 2*pdfMargin
)

// PDF 生成分页文档报告。
//
// 与文本报告读同一份 Model，内容一致；加粗/配色只是装饰。
// 返回的 bool 表示是否成功加载了 UTF-8 字体（失败时非 ASCII 字符被替换为 '?'）。
func PDF(m Model, generatedAt time.Time) (*gofpdf.Fpdf, bool) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	pdf.SetTitle("Plagiarism Check Report", false)

	fontFamily, utf8OK := initPDFUnicodeFont(pdf)

	pdf.AddPage()

	// 标题
	pdf.SetFont(fontFamily, "B", 16)
	pdf.CellFormat(0, 9, "Plagiarism Check Report", "", 1, "L", false, 0, "")

	pdf.SetFont(fontFamily, "", 10)
	pdf.SetTextColor(60, 60, 60)
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated at: %s", fmtTime(generatedAt)), "", 1, "L", false, 0, "")
	if m.ScanMode != "" {
		pdf.CellFormat(0, 6, fmt.Sprintf("Scan mode: %s", m.ScanMode), "", 1, "L", false, 0, "")
	}
	pdf.Ln(2)

	// Summary
	sectionTitle(pdf, fontFamily, "1. Summary")
	kv(pdf, fontFamily, utf8OK, "Plagiarism Score", m.ScoreText)
	kv(pdf, fontFamily, utf8OK, "Originality", m.Originality)
	kv(pdf, fontFamily, utf8OK, "Sources Found", fmt.Sprintf("%d", m.SourcesFound))
	kv(pdf, fontFamily, utf8OK, "Cited Chunks", fmt.Sprintf("%d", m.CitedChunks))
	pdf.Ln(2)

	// Matches
	sectionTitle(pdf, fontFamily, "2. Matched Sources")
	if len(m.Rows) == 0 {
		pdf.SetFont(fontFamily, "", 10)
		pdf.SetTextColor(90, 90, 90)
		pdf.MultiCell(0, 5, safeText(EmptyPlaceholder, utf8OK), "", "L", false)
	} else {
		for _, row := range m.Rows {
			// 块级换页判断：标题写下去之前先看游标
			if pdf.GetY() > pdfBreakY {
				pdf.AddPage()
			}

			pdf.SetFont(fontFamily, "B", 10)
			pdf.SetTextColor(20, 20, 20)
			pdf.MultiCell(0, 5, safeText(fmt.Sprintf("Match #%d | %s | %s", row.Ordinal, row.Badge, row.StatusLabel), utf8OK), "", "L", false)

			if row.Source != "" {
				pdf.SetFont(fontFamily, "", 9)
				pdf.SetTextColor(30, 90, 160)
				for _, line := range pdf.SplitText(safeText("source: "+row.Source, utf8OK), pdfContentWidth) {
					pdf.CellFormat(0, 4.5, line, "", 1, "L", false, 0, "")
				}
			}

			pdf.SetFont(fontFamily, "", 9)
			pdf.SetTextColor(40, 40, 40)
			pdf.MultiCell(0, 4.5, safeText("excerpt: "+row.Excerpt, utf8OK), "", "L", false)
			pdf.SetTextColor(90, 90, 90)
			pdf.MultiCell(0, 4.5, safeText("matched: "+row.Matched, utf8OK), "", "L", false)
			pdf.Ln(1)
		}
	}

	// 尾注
	pdf.Ln(2)
	pdf.SetFont(fontFamily, "", 9)
	pdf.SetTextColor(90, 90, 90)
	pdf.MultiCell(0, 4.5, "Note: citation-safe passages are excluded from the plagiarism score. Similarity values are only meaningful for uncited matches.", "", "L", false)

	return pdf, utf8OK
}

// WritePDF 生成并落盘 PDF 报告。
func WritePDF(m Model, generatedAt time.Time, path string) error {
	pdf, _ := PDF(m, generatedAt)
	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func sectionTitle(pdf *gofpdf.Fpdf, fontFamily string, title string) {
	pdf.SetFont(fontFamily, "B", 12)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 7, title, "", 1, "L", false, 0, "")
	pdf.SetDrawColor(200, 200, 200)
	pdf.Line(pdf.GetX(), pdf.GetY(), 210-pdfMargin, pdf.GetY())
	pdf.Ln(2)
}

func kv(pdf *gofpdf.Fpdf, fontFamily string, utf8OK bool, key string, value string) {
	if strings.TrimSpace(value) == "" {
		value = "-"
	}
	pdf.SetFont(fontFamily, "B", 10)
	pdf.SetTextColor(30, 30, 30)
	pdf.CellFormat(40, 5.2, key+":", "", 0, "L", false, 0, "")
	pdf.SetFont(fontFamily, "", 10)
	pdf.SetTextColor(20, 20, 20)
	pdf.MultiCell(0, 5.2, safeText(value, utf8OK), "", "L", false)
}

func safeText(s string, utf8OK bool) string {
	// gofpdf 的内置字体只对 ASCII/Latin 友好；
	// 没加载到 UTF-8 字体时把非 ASCII 替换为 '?'，保证 PDF 一定能生成。
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\t", " ")
	s = strings.TrimSpace(s)
	if utf8OK {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= 32 && r <= 126 {
			b.WriteRune(r)
		} else {
			b.WriteRune('?')
		}
	}
	return b.String()
}

// initPDFUnicodeFont 尝试加载 TrueType UTF-8 字体，以支持非 ASCII 摘录内容。
//
// 规则：
// 1) 环境变量 PLAGIARISM_PDF_FONT 指定的文件优先。
// 2) 否则按常见系统字体路径探测（macOS/Windows/Linux）。
// 3) 全部失败则回退 Helvetica，由 safeText() 兜底替换非 ASCII 字符。
func initPDFUnicodeFont(pdf *gofpdf.Fpdf) (family string, utf8OK bool) {
	const familyName = "unicode"
	candidates := []string{}

	if v := strings.TrimSpace(os.Getenv("PLAGIARISM_PDF_FONT")); v != "" {
		candidates = append(candidates, v)
	}

	switch runtime.GOOS {
	case "darwin":
		candidates = append(candidates,
			"/System/Library/Fonts/Supplemental/Arial Unicode.ttf",
			"/System/Library/Fonts/Supplemental/AppleGothic.ttf",
		)
	case "windows":
		candidates = append(candidates,
			`C:\Windows\Fonts\arialuni.ttf`,
			`C:\Windows\Fonts\msyh.ttc`,
		)
	default:
		candidates = append(candidates,
			"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
			"/usr/share/fonts/truetype/noto/NotoSans-Regular.ttf",
		)
	}

	for _, p := range candidates {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			continue
		}

		// 同一个字体文件同时注册 B 样式，避免 SetFont(...,"B",...) 报错。
		pdf.AddUTF8Font(familyName, "", p)
		if pdf.Err() {
			pdf.ClearError()
			continue
		}
		pdf.AddUTF8Font(familyName, "B", p)
		if pdf.Err() {
			pdf.ClearError()
		}
		return familyName, true
	}

	return "Helvetica", false
}
