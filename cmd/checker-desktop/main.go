package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"plagiarism-checker/internal/adapters/config"
	"plagiarism-checker/internal/services/webapp"

	"github.com/joho/godotenv"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// 这个"desktop"入口的目标是降低使用门槛：
// - 一键启动内置 Web UI/API（本地端口监听）
// - 自动打开浏览器，或在 macOS 上用 -webview 打开内嵌窗口
func run(ctx context.Context, args []string) error {
	// .env 是可选的本地覆盖（PLAGIARISM_API_URL 等），不存在时静默忽略。
	_ = godotenv.Load()

	fs := flag.NewFlagSet("checker-desktop", flag.ContinueOnError)
	configFile := fs.String("config", "", "yaml config file (optional)")
	listen := fs.String("listen", "", "listen address")
	dbPath := fs.String("db", "", "sqlite database path")
	reportDir := fs.String("report-dir", "", "report output directory")
	baseURL := fs.String("api", "", "similarity service base url")
	noOpen := fs.Bool("no-open", false, "do not auto-open browser")
	useWebview := fs.Bool("webview", false, "open embedded webview window instead of browser (macOS)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	loaded, err := config.NewLoader(*configFile).Load()
	if err != nil {
		return err
	}
	cfg, err := config.FromEnv(loaded.Config)
	if err != nil {
		return err
	}
	if *listen != "" {
		cfg.ListenAddr = *listen
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *reportDir != "" {
		cfg.ReportDir = *reportDir
	}
	if *baseURL != "" {
		cfg.BaseURL = *baseURL
	}
	if loaded.SHA256 != "" {
		fmt.Printf("config loaded: %s (sha256 %s)\n", *configFile, loaded.SHA256[:12])
	}

	// Ctrl+C 优雅退出：给 http.Server.Shutdown 一个机会释放端口。
	sigCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- webapp.Run(sigCtx, webapp.Options{
			BaseURL:        cfg.BaseURL,
			DBPath:         cfg.DBPath,
			ReportDir:      cfg.ReportDir,
			ListenAddr:     cfg.ListenAddr,
			HealthInterval: cfg.HealthInterval,
			HealthTimeout:  cfg.HealthTimeout,
		})
	}()

	uiURL := "http://" + normalizeListenForBrowser(cfg.ListenAddr)
	healthURL := uiURL + "/api/health"

	if *useWebview {
		if err := waitForHTTP(sigCtx, healthURL, 12*time.Second); err != nil {
			return err
		}
		win, err := newWebViewWindow(uiURL, "Plagiarism Checker")
		if err != nil {
			return err
		}
		defer win.Destroy()
		// webview 主循环必须占住主 goroutine；窗口关闭即视为退出。
		win.Run()
		cancel()
		return <-serverErrCh
	}

	// 等服务起来再打开浏览器（减少"空白页/加载失败"的概率）
	if !*noOpen {
		_ = waitForHTTP(sigCtx, healthURL, 12*time.Second)
		_ = openBrowser(uiURL)
	}

	// 阻塞等待 server 退出（或报错）
	return <-serverErrCh
}

func normalizeListenForBrowser(listen string) string {
	// listen 常见形态：127.0.0.1:8790 / 0.0.0.0:8790 / :8790 / [::]:8790
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		// fallback：不做复杂解析，直接返回原始字符串
		return listen
	}
	switch host {
	case "", "0.0.0.0", "::", "[::]":
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}

func waitForHTTP(ctx context.Context, url string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		resp, err := http.DefaultClient.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(250 * time.Millisecond):
		}
	}
	return fmt.Errorf("timeout waiting for %s", url)
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		// cmd /c start "" "http://..."
		cmd = exec.Command("cmd", "/c", "start", "", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	// 不阻塞主流程：浏览器打开与否不影响服务运行。
	return cmd.Start()
}
