package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	sqliteadapter "plagiarism-checker/internal/adapters/store/sqlite"
	"plagiarism-checker/internal/domain/model"
	"plagiarism-checker/internal/services/normalize"

	_ "modernc.org/sqlite"
)

// 历史查询服务。每次调用独立打开数据库，用完即关，
// 方便 CLI 子命令与 webapp 以外的场景直接复用。

// ListView 是历史列表查询结果。
type ListView struct {
	Total  int                 `json:"total"`
	Checks []model.CheckRecord `json:"checks"`
}

// CheckView 是单条历史记录的展示结果，附带已登记的报告产物。
type CheckView struct {
	Check   *model.CheckRecord `json:"check"`
	Reports []model.ReportInfo `json:"reports"`
}

// List 返回检测历史分页。
func List(ctx context.Context, dbPath string, limit, offset int) (*ListView, error) {
	db, err := openDB(ctx, dbPath)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	store := sqliteadapter.NewStore(db)
	checks, err := store.ListChecks(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	return &ListView{Total: len(checks), Checks: checks}, nil
}

// Get 返回单条历史记录与其报告索引。
func Get(ctx context.Context, dbPath, checkID string) (*CheckView, error) {
	db, err := openDB(ctx, dbPath)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	store := sqliteadapter.NewStore(db)
	check, err := store.GetCheckByID(ctx, checkID)
	if err != nil {
		return nil, err
	}
	if check == nil {
		return nil, fmt.Errorf("check not found: %s", checkID)
	}

	reports, err := store.ListReportsByCheck(ctx, checkID)
	if err != nil {
		return nil, err
	}
	return &CheckView{Check: check, Reports: reports}, nil
}

// LoadResult 从历史记录还原规范结果模型，供离线重新生成报告。
// 落库的 JSON 走与线上响应相同的归一化路径，保证两边口径一致。
func LoadResult(ctx context.Context, dbPath, checkID string) (*model.AnalysisResult, error) {
	view, err := Get(ctx, dbPath, checkID)
	if err != nil {
		return nil, err
	}
	if view.Check.Status != model.CheckSuccess {
		return nil, fmt.Errorf("check %s did not succeed (%s), no result to export", checkID, view.Check.Status)
	}
	if len(view.Check.ResultJSON) == 0 {
		return nil, fmt.Errorf("check %s has no stored result", checkID)
	}
	return normalize.Result(view.Check.ResultJSON)
}

// EncodeResult 把规范模型序列化为落库格式。键顺序由结构体字段固定，
// 同一份结果反复编码得到相同字节，sha256 才有比对意义。
func EncodeResult(res *model.AnalysisResult) ([]byte, error) {
	raw, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return raw, nil
}

func openDB(ctx context.Context, dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}
	return db, nil
}
