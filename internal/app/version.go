package app

// 构建信息，通过 -ldflags 注入：
//
//	go build -ldflags "-X plagiarism-checker/internal/app.Version=v0.2.0 ..."
var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)
