package sanitize

import (
	"net/url"
	"strings"
)

// 交互预览的展示层防护（XSS 硬化）。
//
// chunk / matched_content / recommendation 等字段来自后端转发的网页内容，
// 属于不可信输入；嵌入预览 HTML 之前必须在这里统一转义。
// 报告导出（txt/pdf）不走 HTML，不需要转义，但链接协议限制对预览是硬要求。

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// Text 转义 markup 敏感字符（& < > " '）。
func Text(s string) string {
	return htmlEscaper.Replace(s)
}

// NeutralLink 是协议不合法时的占位跳转目标。
const NeutralLink = "#"

// LinkTarget 把 source 收敛为可安全用作 href 的值：
// 只放行 http/https；其他协议（javascript: 等）、相对值、解析失败
// 一律替换为占位符，绝不透传原始值。
func LinkTarget(source string) string {
	s := strings.TrimSpace(source)
	if s == "" {
		return NeutralLink
	}
	u, err := url.Parse(s)
	if err != nil {
		return NeutralLink
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return NeutralLink
	}
	if u.Host == "" {
		return NeutralLink
	}
	return s
}
