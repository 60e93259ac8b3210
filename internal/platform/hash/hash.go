package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
)

// Bytes 计算内存内容的 SHA-256。
// 这里用于给规范模型 JSON 留指纹，便于确认“历史记录与当时的响应一致”。
func Bytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// File 读取文件并计算 SHA-256，同时返回文件大小。
// 用于导出报告（txt/pdf）落库登记时的完整性标记。
func File(path string) (sum string, size int64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}
