package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"plagiarism-checker/internal/adapters/checkapi"
	"plagiarism-checker/internal/adapters/config"
	sqliteadapter "plagiarism-checker/internal/adapters/store/sqlite"
	"plagiarism-checker/internal/app"
	"plagiarism-checker/internal/domain/model"
	"plagiarism-checker/internal/platform/hash"
	"plagiarism-checker/internal/services/history"
	"plagiarism-checker/internal/services/report"
	"plagiarism-checker/internal/services/webapp"

	"github.com/joho/godotenv"
	_ "modernc.org/sqlite"
)

// CLI 入口。所有子命令错误都统一输出到 stderr 并返回非 0 状态码。
func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run 是一级命令路由。
func run(ctx context.Context, args []string) error {
	_ = godotenv.Load()

	if len(args) == 0 {
		printUsage()
		return nil
	}

	switch args[0] {
	case "migrate":
		return runMigrate(ctx, args[1:])
	case "check":
		return runCheck(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	case "history":
		return runHistory(ctx, args[1:])
	case "health":
		return runHealth(ctx, args[1:])
	case "serve":
		return runServe(ctx, args[1:])
	default:
		printUsage()
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

// loadConfig 合并默认值、可选配置文件与环境变量。
func loadConfig(configFile string) (app.Config, error) {
	loaded, err := config.NewLoader(configFile).Load()
	if err != nil {
		return app.Config{}, err
	}
	return config.FromEnv(loaded.Config)
}

// runMigrate 执行 SQLite 迁移，确保数据库结构完整。
func runMigrate(ctx context.Context, args []string) error {
	cfg := app.DefaultConfig()

	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	dbPath := fs.String("db", cfg.DBPath, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(*dbPath), 0o755); err != nil {
		return fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", *dbPath)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping sqlite: %w", err)
	}

	m := sqliteadapter.NewMigrator(db)
	if err := m.Up(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	fmt.Printf("migrations applied successfully: db=%s\n", *dbPath)
	return nil
}

// runCheck 提交一次检测：文本或文件，结果打印为文本报告并落历史库。
func runCheck(ctx context.Context, args []string) error {
	defaults := app.DefaultConfig()

	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	configFile := fs.String("config", "", "yaml config file (optional)")
	dbPath := fs.String("db", defaults.DBPath, "sqlite database path")
	baseURL := fs.String("api", "", "similarity service base url")
	text := fs.String("text", "", "text to check")
	file := fs.String("file", "", "document file to check")
	mode := fs.String("mode", "quick", "scan mode: quick|deep")
	txtOut := fs.String("txt", "", "also write a text report to this path")
	pdfOut := fs.String("pdf", "", "also write a pdf report to this path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		return err
	}
	if *baseURL != "" {
		cfg.BaseURL = *baseURL
	}

	req := checkapi.CheckRequest{
		Text:     *text,
		ScanMode: model.ScanMode(strings.ToLower(strings.TrimSpace(*mode))),
	}
	inputKind := "text"
	inputName := ""
	if *file != "" {
		raw, err := os.ReadFile(*file)
		if err != nil {
			return fmt.Errorf("read input file: %w", err)
		}
		req.FileBytes = raw
		req.FileName = filepath.Base(*file)
		inputKind = "file"
		inputName = req.FileName
	}

	submittedAt := time.Now().Unix()
	client := checkapi.NewClient(cfg.BaseURL)
	res, checkErr := client.Check(ctx, req)

	rec := &model.CheckRecord{
		SubmittedAt: submittedAt,
		ScanMode:    string(req.ScanMode),
		InputKind:   inputKind,
		InputName:   inputName,
	}
	if checkErr != nil {
		rec.Status = model.CheckFailed
		rec.Error = checkErr.Error()
	} else {
		resultJSON, err := history.EncodeResult(res)
		if err != nil {
			return err
		}
		rec.Status = model.CheckSuccess
		rec.PlagiarismPercent = res.PlagiarismPercent
		rec.MatchCount = len(res.Matches)
		rec.SourcesFound = res.SourcesFound()
		rec.CitedChunks = res.CitedChunks()
		rec.ResultJSON = resultJSON
		rec.ResultSHA256 = hash.Bytes(resultJSON)
	}

	if err := saveCheckRecord(ctx, *dbPath, rec); err != nil {
		fmt.Fprintf(os.Stderr, "warn: save history: %v\n", err)
	}
	if checkErr != nil {
		return checkErr
	}

	m := report.Build(res)
	now := time.Now()
	fmt.Print(report.Text(m, now))

	if *txtOut != "" {
		if err := report.WriteText(m, now, *txtOut); err != nil {
			return err
		}
		if err := registerReport(ctx, *dbPath, rec.CheckID, "text", *txtOut); err != nil {
			fmt.Fprintf(os.Stderr, "warn: register report: %v\n", err)
		}
		fmt.Fprintf(os.Stderr, "text report written: %s\n", *txtOut)
	}
	if *pdfOut != "" {
		if err := report.WritePDF(m, now, *pdfOut); err != nil {
			return err
		}
		if err := registerReport(ctx, *dbPath, rec.CheckID, "pdf", *pdfOut); err != nil {
			fmt.Fprintf(os.Stderr, "warn: register report: %v\n", err)
		}
		fmt.Fprintf(os.Stderr, "pdf report written: %s\n", *pdfOut)
	}
	fmt.Fprintf(os.Stderr, "check saved: %s\n", rec.CheckID)
	return nil
}

// runExport 从历史记录离线重新生成报告（字节级可复现，时间戳除外）。
func runExport(ctx context.Context, args []string) error {
	if len(args) == 0 {
		printExportUsage()
		return nil
	}
	kind := args[0]
	if kind != "text" && kind != "pdf" {
		printExportUsage()
		return fmt.Errorf("unknown export command: %s", kind)
	}

	defaults := app.DefaultConfig()
	fs := flag.NewFlagSet("export "+kind, flag.ContinueOnError)
	dbPath := fs.String("db", defaults.DBPath, "sqlite database path")
	checkID := fs.String("check-id", "", "check id (required)")
	out := fs.String("out", "", "output path (optional)")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	if *checkID == "" {
		return fmt.Errorf("--check-id is required")
	}

	res, err := history.LoadResult(ctx, *dbPath, *checkID)
	if err != nil {
		return err
	}

	m := report.Build(res)
	now := time.Now()

	path := *out
	if path == "" {
		if kind == "text" {
			path = report.TextFileName
		} else {
			path = report.PDFFileName
		}
	}

	if kind == "text" {
		if err := report.WriteText(m, now, path); err != nil {
			return err
		}
	} else {
		if err := report.WritePDF(m, now, path); err != nil {
			return err
		}
	}

	if err := registerReport(ctx, *dbPath, *checkID, kind, path); err != nil {
		fmt.Fprintf(os.Stderr, "warn: register report: %v\n", err)
	}
	fmt.Printf("%s report written: %s\n", kind, path)
	return nil
}

// runHistory 查询历史：history list / history show。
func runHistory(ctx context.Context, args []string) error {
	if len(args) == 0 {
		printHistoryUsage()
		return nil
	}

	defaults := app.DefaultConfig()
	switch args[0] {
	case "list":
		fs := flag.NewFlagSet("history list", flag.ContinueOnError)
		dbPath := fs.String("db", defaults.DBPath, "sqlite database path")
		limit := fs.Int("limit", 20, "max rows")
		offset := fs.Int("offset", 0, "rows to skip")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}

		view, err := history.List(ctx, *dbPath, *limit, *offset)
		if err != nil {
			return err
		}
		for _, c := range view.Checks {
			status := string(c.Status)
			when := time.Unix(c.SubmittedAt, 0).Format("2006-01-02 15:04:05")
			fmt.Printf("%s  %s  %-7s  %-5s  %5.1f%%  matches=%d  %s\n",
				c.CheckID, when, status, c.ScanMode, c.PlagiarismPercent, c.MatchCount, c.InputName)
		}
		fmt.Printf("total: %d\n", view.Total)
		return nil
	case "show":
		fs := flag.NewFlagSet("history show", flag.ContinueOnError)
		dbPath := fs.String("db", defaults.DBPath, "sqlite database path")
		checkID := fs.String("check-id", "", "check id (required)")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if *checkID == "" {
			return fmt.Errorf("--check-id is required")
		}

		view, err := history.Get(ctx, *dbPath, *checkID)
		if err != nil {
			return err
		}
		raw, err := json.MarshalIndent(view, "", "  ")
		if err != nil {
			return fmt.Errorf("encode view: %w", err)
		}
		fmt.Println(string(raw))
		return nil
	default:
		printHistoryUsage()
		return fmt.Errorf("unknown history command: %s", args[0])
	}
}

// runHealth 对远端相似度服务做一次探活。
func runHealth(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("health", flag.ContinueOnError)
	configFile := fs.String("config", "", "yaml config file (optional)")
	baseURL := fs.String("api", "", "similarity service base url")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		return err
	}
	if *baseURL != "" {
		cfg.BaseURL = *baseURL
	}

	probeCtx, cancel := context.WithTimeout(ctx, cfg.HealthTimeout)
	defer cancel()
	if err := checkapi.NewClient(cfg.BaseURL).Health(probeCtx); err != nil {
		return fmt.Errorf("backend unreachable (%s): %w", cfg.BaseURL, err)
	}
	fmt.Printf("backend ok: %s\n", cfg.BaseURL)
	return nil
}

// runServe 启动内置 Web UI（等同 checker-desktop 的无窗口模式）。
func runServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configFile := fs.String("config", "", "yaml config file (optional)")
	listen := fs.String("listen", "", "listen address")
	dbPath := fs.String("db", "", "sqlite database path")
	reportDir := fs.String("report-dir", "", "report output directory")
	baseURL := fs.String("api", "", "similarity service base url")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configFile)
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

	sigCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return webapp.Run(sigCtx, webapp.Options{
		BaseURL:        cfg.BaseURL,
		DBPath:         cfg.DBPath,
		ReportDir:      cfg.ReportDir,
		ListenAddr:     cfg.ListenAddr,
		HealthInterval: cfg.HealthInterval,
		HealthTimeout:  cfg.HealthTimeout,
	})
}

// saveCheckRecord 打开（并按需初始化）历史库后写入一条记录。
func saveCheckRecord(ctx context.Context, dbPath string, rec *model.CheckRecord) error {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("create db directory: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000`); err != nil {
		return fmt.Errorf("set busy_timeout: %w", err)
	}
	if err := sqliteadapter.NewMigrator(db).Up(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return sqliteadapter.NewStore(db).SaveCheck(ctx, rec)
}

// registerReport 把导出产物登记到 reports 表。
func registerReport(ctx context.Context, dbPath, checkID, kind, path string) error {
	sum, size, err := hash.File(path)
	if err != nil {
		return err
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000`); err != nil {
		return fmt.Errorf("set busy_timeout: %w", err)
	}
	_, err = sqliteadapter.NewStore(db).SaveReport(ctx, checkID, kind, path, sum, size, report.GeneratorVersion)
	return err
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  checker-cli migrate [--db data/checker.db]")
	fmt.Println("  checker-cli check --text TEXT | --file PATH [--mode quick|deep] [--api URL] [--txt OUT.txt] [--pdf OUT.pdf]")
	fmt.Println("  checker-cli export text --check-id CHECK_ID [--db data/checker.db] [--out PATH]")
	fmt.Println("  checker-cli export pdf --check-id CHECK_ID [--db data/checker.db] [--out PATH]")
	fmt.Println("  checker-cli history list [--db data/checker.db] [--limit 20] [--offset 0]")
	fmt.Println("  checker-cli history show --check-id CHECK_ID [--db data/checker.db]")
	fmt.Println("  checker-cli health [--api URL]")
	fmt.Println("  checker-cli serve [--listen 127.0.0.1:8790] [--db data/checker.db] [--api URL]")
}

// printExportUsage 输出 export 子命令帮助。
func printExportUsage() {
	fmt.Println("Usage:")
	fmt.Println("  checker-cli export text --check-id CHECK_ID [--db path] [--out path]")
	fmt.Println("  checker-cli export pdf --check-id CHECK_ID [--db path] [--out path]")
}

// printHistoryUsage 输出 history 子命令帮助。
func printHistoryUsage() {
	fmt.Println("Usage:")
	fmt.Println("  checker-cli history list [--db path] [--limit n] [--offset n]")
	fmt.Println("  checker-cli history show --check-id CHECK_ID [--db path]")
}
