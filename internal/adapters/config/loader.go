package config

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"plagiarism-checker/internal/app"

	"gopkg.in/yaml.v3"
)

// Loader 负责从磁盘读取并校验配置文件。
// 优先级：默认值 < 配置文件 < 环境变量（见 FromEnv）。
type Loader struct {
	File string
}

// Loaded 是加载后的配置和其文件哈希，便于启动日志确认实际生效的版本。
type Loaded struct {
	Config app.Config
	SHA256 string
}

// fileConfig 是配置文件的 yaml 结构，与 app.Config 解耦，
// 省略字段时保留默认值。
type fileConfig struct {
	BaseURL    string `yaml:"base_url"`
	ListenAddr string `yaml:"listen_addr"`
	DBPath     string `yaml:"db_path"`
	ReportDir  string `yaml:"report_dir"`
	Health     struct {
		IntervalSeconds int `yaml:"interval_seconds"`
		TimeoutSeconds  int `yaml:"timeout_seconds"`
	} `yaml:"health"`
}

func NewLoader(file string) *Loader {
	return &Loader{File: file}
}

// Load 读取配置文件并覆盖到默认配置上。File 为空时直接返回默认配置。
func (l *Loader) Load() (*Loaded, error) {
	cfg := app.DefaultConfig()
	if strings.TrimSpace(l.File) == "" {
		return &Loaded{Config: cfg}, nil
	}

	raw, err := os.ReadFile(l.File)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if v := strings.TrimSpace(fc.BaseURL); v != "" {
		cfg.BaseURL = v
	}
	if v := strings.TrimSpace(fc.ListenAddr); v != "" {
		cfg.ListenAddr = v
	}
	if v := strings.TrimSpace(fc.DBPath); v != "" {
		cfg.DBPath = v
	}
	if v := strings.TrimSpace(fc.ReportDir); v != "" {
		cfg.ReportDir = v
	}
	if fc.Health.IntervalSeconds > 0 {
		cfg.HealthInterval = time.Duration(fc.Health.IntervalSeconds) * time.Second
	}
	if fc.Health.TimeoutSeconds > 0 {
		cfg.HealthTimeout = time.Duration(fc.Health.TimeoutSeconds) * time.Second
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	sum := sha256.Sum256(raw)
	return &Loaded{Config: cfg, SHA256: hex.EncodeToString(sum[:])}, nil
}

// FromEnv 用环境变量覆盖配置。cmd 入口会先执行 godotenv.Load()，
// 所以 .env 文件里的同名变量也走这条路径生效。
func FromEnv(cfg app.Config) (app.Config, error) {
	if v := strings.TrimSpace(os.Getenv("PLAGIARISM_API_URL")); v != "" {
		cfg.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("PLAGIARISM_LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("PLAGIARISM_DB_PATH")); v != "" {
		cfg.DBPath = v
	}
	if v := strings.TrimSpace(os.Getenv("PLAGIARISM_REPORT_DIR")); v != "" {
		cfg.ReportDir = v
	}
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// validate 检查配置的基本合法性。后端地址必须是 http/https 绝对地址，
// 否则健康探测与检测提交都没法工作。
func validate(cfg app.Config) error {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return errors.New("config: base_url is required")
	}
	u, err := url.Parse(base)
	if err != nil {
		return fmt.Errorf("config: invalid base_url: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if (scheme != "http" && scheme != "https") || u.Host == "" {
		return fmt.Errorf("config: base_url must be an absolute http/https URL: %s", base)
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return errors.New("config: db_path is required")
	}
	if strings.TrimSpace(cfg.ReportDir) == "" {
		return errors.New("config: report_dir is required")
	}
	return nil
}
