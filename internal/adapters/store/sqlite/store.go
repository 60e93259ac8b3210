package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"plagiarism-checker/internal/domain/model"
	"plagiarism-checker/internal/platform/id"
)

// Store 封装与 SQLite 的读写逻辑。
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// GetSchemaMetaValue 查询 schema_meta 表指定 key 的 value。
func (s *Store) GetSchemaMetaValue(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `
		SELECT value
		FROM schema_meta
		WHERE key = ?
		LIMIT 1
	`, key).Scan(&v)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("query schema_meta %s: %w", key, err)
	}
	return v, nil
}

// SaveCheck 写入一次检测记录。rec.CheckID 为空时自动生成并回填。
func (s *Store) SaveCheck(ctx context.Context, rec *model.CheckRecord) error {
	if rec.CheckID == "" {
		rec.CheckID = id.New("chk")
	}
	now := time.Now().Unix()
	if rec.SubmittedAt <= 0 {
		rec.SubmittedAt = now
	}
	rec.CreatedAt = now

	var resultJSON any
	if len(rec.ResultJSON) > 0 {
		resultJSON = string(rec.ResultJSON)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO checks(
			check_id, submitted_at, scan_mode, input_kind, input_name,
			status, error, plagiarism_percent, match_count, sources_found,
			cited_chunks, result_json, result_sha256, created_at
		)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.CheckID,
		rec.SubmittedAt,
		rec.ScanMode,
		rec.InputKind,
		nullIfEmpty(rec.InputName),
		string(rec.Status),
		nullIfEmpty(rec.Error),
		rec.PlagiarismPercent,
		rec.MatchCount,
		rec.SourcesFound,
		rec.CitedChunks,
		resultJSON,
		nullIfEmpty(rec.ResultSHA256),
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert check %s: %w", rec.CheckID, err)
	}
	return nil
}

// ListChecks 返回检测历史，按提交时间倒序。不含 result_json（可能很大）。
func (s *Store) ListChecks(ctx context.Context, limit, offset int) ([]model.CheckRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT
			check_id, submitted_at, scan_mode, input_kind, COALESCE(input_name, ''),
			status, COALESCE(error, ''), plagiarism_percent, match_count,
			sources_found, cited_chunks, COALESCE(result_sha256, ''), created_at
		FROM checks
		ORDER BY submitted_at DESC, check_id DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query checks: %w", err)
	}
	defer rows.Close()

	var out []model.CheckRecord
	for rows.Next() {
		var item model.CheckRecord
		var status string
		if err := rows.Scan(
			&item.CheckID,
			&item.SubmittedAt,
			&item.ScanMode,
			&item.InputKind,
			&item.InputName,
			&status,
			&item.Error,
			&item.PlagiarismPercent,
			&item.MatchCount,
			&item.SourcesFound,
			&item.CitedChunks,
			&item.ResultSHA256,
			&item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan check: %w", err)
		}
		item.Status = model.CheckStatus(status)
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checks: %w", err)
	}
	if out == nil {
		out = []model.CheckRecord{}
	}
	return out, nil
}

// GetCheckByID 按 check_id 查询完整记录（含 result_json）。未找到时返回 nil。
func (s *Store) GetCheckByID(ctx context.Context, checkID string) (*model.CheckRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT
			check_id, submitted_at, scan_mode, input_kind, COALESCE(input_name, ''),
			status, COALESCE(error, ''), plagiarism_percent, match_count,
			sources_found, cited_chunks, COALESCE(result_json, ''),
			COALESCE(result_sha256, ''), created_at
		FROM checks
		WHERE check_id = ?
		LIMIT 1
	`, checkID)

	var item model.CheckRecord
	var status, resultJSON string
	if err := row.Scan(
		&item.CheckID,
		&item.SubmittedAt,
		&item.ScanMode,
		&item.InputKind,
		&item.InputName,
		&status,
		&item.Error,
		&item.PlagiarismPercent,
		&item.MatchCount,
		&item.SourcesFound,
		&item.CitedChunks,
		&resultJSON,
		&item.ResultSHA256,
		&item.CreatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("query check %s: %w", checkID, err)
	}
	item.Status = model.CheckStatus(status)
	if resultJSON != "" {
		item.ResultJSON = []byte(resultJSON)
	}
	return &item, nil
}

// SaveReport 记录报告产物信息，供 UI 或导出流程追踪。
func (s *Store) SaveReport(ctx context.Context, checkID, reportType, filePath, sha256 string, sizeBytes int64, generatorVersion string) (string, error) {
	reportID := id.New("rpt")
	now := time.Now().Unix()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reports(
			report_id, check_id, report_type, file_path, sha256, size_bytes, generator_version, created_at
		)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?)
	`, reportID, checkID, reportType, filePath, sha256, sizeBytes, generatorVersion, now)
	if err != nil {
		return "", fmt.Errorf("insert report: %w", err)
	}
	return reportID, nil
}

// ListReportsByCheck 返回某次检测的全部报告索引，按生成时间倒序。
func (s *Store) ListReportsByCheck(ctx context.Context, checkID string) ([]model.ReportInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT report_id, check_id, report_type, file_path, sha256, size_bytes, generator_version, created_at
		FROM reports
		WHERE check_id = ?
		ORDER BY created_at DESC, report_id DESC
	`, checkID)
	if err != nil {
		return nil, fmt.Errorf("query reports by check: %w", err)
	}
	defer rows.Close()

	var out []model.ReportInfo
	for rows.Next() {
		var item model.ReportInfo
		if err := rows.Scan(
			&item.ReportID,
			&item.CheckID,
			&item.ReportType,
			&item.FilePath,
			&item.SHA256,
			&item.SizeBytes,
			&item.GeneratorVersion,
			&item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}
	if out == nil {
		out = []model.ReportInfo{}
	}
	return out, nil
}

// GetReportByID 按报告 ID 查询报告索引。未找到时返回 nil。
func (s *Store) GetReportByID(ctx context.Context, reportID string) (*model.ReportInfo, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT report_id, check_id, report_type, file_path, sha256, size_bytes, generator_version, created_at
		FROM reports
		WHERE report_id = ?
		LIMIT 1
	`, reportID)

	var item model.ReportInfo
	if err := row.Scan(
		&item.ReportID,
		&item.CheckID,
		&item.ReportType,
		&item.FilePath,
		&item.SHA256,
		&item.SizeBytes,
		&item.GeneratorVersion,
		&item.CreatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("query report info: %w", err)
	}
	return &item, nil
}

// 空字符串按 NULL 写入，避免无意义空值污染查询条件。
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
