package webapp

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"plagiarism-checker/internal/adapters/checkapi"
	sqliteadapter "plagiarism-checker/internal/adapters/store/sqlite"
	"plagiarism-checker/internal/app"
	"plagiarism-checker/internal/services/health"
	"plagiarism-checker/internal/services/progress"

	_ "modernc.org/sqlite"
)

// 注意：
// - go:embed 的路径必须相对当前包目录，且不能包含 ".."
// - 前端 build 输出拷贝到 internal/services/webapp/ui_dist/，二进制即可离线分发。
// - ui_dist/ 至少要有一个文件（本仓库已放置占位 index.html），否则 go:embed 会因“无匹配文件”而编译失败。
//
//go:embed ui_dist
var uiFS embed.FS

// Options 定义 Web UI + API 服务启动参数。
type Options struct {
	BaseURL   string
	DBPath    string
	ReportDir string

	ListenAddr     string
	HealthInterval time.Duration
	HealthTimeout  time.Duration
}

// Run 启动内置 Web UI：
// - 提供检测提交、进度、结果展示接口
// - 提供报告导出与历史查询接口
// - 后台周期探测远端相似度服务可达性
func Run(ctx context.Context, opts Options) error {
	defaults := app.DefaultConfig()
	if opts.BaseURL == "" {
		opts.BaseURL = defaults.BaseURL
	}
	if opts.DBPath == "" {
		opts.DBPath = defaults.DBPath
	}
	if opts.ReportDir == "" {
		opts.ReportDir = defaults.ReportDir
	}
	if opts.ListenAddr == "" {
		opts.ListenAddr = defaults.ListenAddr
	}
	if opts.HealthInterval <= 0 {
		opts.HealthInterval = defaults.HealthInterval
	}
	if opts.HealthTimeout <= 0 {
		opts.HealthTimeout = defaults.HealthTimeout
	}

	if err := os.MkdirAll(filepath.Dir(opts.DBPath), 0o755); err != nil {
		return fmt.Errorf("create db directory: %w", err)
	}
	if err := os.MkdirAll(opts.ReportDir, 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}

	db, err := sql.Open("sqlite", opts.DBPath)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000`); err != nil {
		return fmt.Errorf("set busy_timeout: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping sqlite: %w", err)
	}

	migrator := sqliteadapter.NewMigrator(db)
	if err := migrator.Up(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	sub, err := fs.Sub(uiFS, "ui_dist")
	if err != nil {
		return fmt.Errorf("sub ui fs: %w", err)
	}

	s := &Server{
		opts:     opts,
		db:       db,
		store:    sqliteadapter.NewStore(db),
		ui:       sub,
		client:   checkapi.NewClient(opts.BaseURL),
		progress: progress.New(),
		poller:   health.New(opts.BaseURL, opts.HealthInterval, opts.HealthTimeout),
	}
	defer s.progress.Stop()

	go s.poller.Run(ctx)

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	httpServer := &http.Server{
		Addr:              opts.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	fmt.Printf("webapp listening: http://%s (backend: %s)\n", opts.ListenAddr, opts.BaseURL)
	err = httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
