package webapp

import (
	"fmt"
	"net/http"
	"path/filepath"
)

// serveFile 以附件形式下发报告文件。磁盘上的文件名带随机报告 ID，
// 下载名统一改写为 downloadBase 加原扩展名（plagiarism-report.txt / .pdf）。
func serveFile(w http.ResponseWriter, r *http.Request, path, downloadBase string) {
	name := filepath.Base(path)
	if downloadBase != "" {
		name = downloadBase + filepath.Ext(name)
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeFile(w, r, path)
}
