package app

import "time"

// Config 存放应用级默认配置。
// BaseURL 是这套工具唯一真正重要的外部配置：选择远端相似度服务环境。
type Config struct {
	BaseURL    string
	DBPath     string
	ReportDir  string
	ListenAddr string

	HealthInterval time.Duration
	HealthTimeout  time.Duration
}

// DefaultConfig 返回本地开发环境的默认配置。
func DefaultConfig() Config {
	return Config{
		BaseURL:        "http://127.0.0.1:9001",
		DBPath:         "data/checker.db",
		ReportDir:      "data/reports",
		ListenAddr:     "127.0.0.1:8790",
		HealthInterval: 30 * time.Second,
		HealthTimeout:  3 * time.Second,
	}
}
