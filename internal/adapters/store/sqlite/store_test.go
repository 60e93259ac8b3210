package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"plagiarism-checker/internal/domain/model"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "checker.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		t.Fatalf("set busy_timeout: %v", err)
	}
	if err := NewMigrator(db).Up(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestMigrationWritesSchemaMeta(t *testing.T) {
	s := NewStore(openTestDB(t))
	ctx := context.Background()

	version, err := s.GetSchemaMetaValue(ctx, "schema_version")
	if err != nil {
		t.Fatalf("GetSchemaMetaValue: %v", err)
	}
	if version != "1" {
		t.Fatalf("schema_version = %q, want 1", version)
	}
	name, err := s.GetSchemaMetaValue(ctx, "schema_name")
	if err != nil {
		t.Fatalf("GetSchemaMetaValue: %v", err)
	}
	if name != "plagiarism_checker" {
		t.Fatalf("schema_name = %q", name)
	}

	missing, err := s.GetSchemaMetaValue(ctx, "no_such_key")
	if err != nil {
		t.Fatalf("GetSchemaMetaValue missing key: %v", err)
	}
	if missing != "" {
		t.Fatalf("missing key value = %q, want empty", missing)
	}
}

func TestSaveAndGetCheck(t *testing.T) {
	s := NewStore(openTestDB(t))
	ctx := context.Background()

	rec := &model.CheckRecord{
		ScanMode:          "deep",
		InputKind:         "file",
		InputName:         "essay.txt",
		Status:            model.CheckSuccess,
		PlagiarismPercent: 42.5,
		MatchCount:        3,
		SourcesFound:      2,
		CitedChunks:       1,
		ResultJSON:        []byte(`{"plagiarism_percent":42.5}`),
		ResultSHA256:      "abc123",
	}
	if err := s.SaveCheck(ctx, rec); err != nil {
		t.Fatalf("SaveCheck: %v", err)
	}
	if rec.CheckID == "" {
		t.Fatal("SaveCheck did not assign a check_id")
	}

	got, err := s.GetCheckByID(ctx, rec.CheckID)
	if err != nil {
		t.Fatalf("GetCheckByID: %v", err)
	}
	if got == nil {
		t.Fatal("GetCheckByID returned nil for saved record")
	}
	if got.ScanMode != "deep" || got.InputName != "essay.txt" || got.Status != model.CheckSuccess {
		t.Fatalf("unexpected record: %+v", got)
	}
	if got.PlagiarismPercent != 42.5 || got.MatchCount != 3 {
		t.Fatalf("unexpected counters: %+v", got)
	}
	if string(got.ResultJSON) != `{"plagiarism_percent":42.5}` {
		t.Fatalf("result_json round trip = %q", got.ResultJSON)
	}

	none, err := s.GetCheckByID(ctx, "chk_missing")
	if err != nil {
		t.Fatalf("GetCheckByID missing: %v", err)
	}
	if none != nil {
		t.Fatalf("missing check = %+v, want nil", none)
	}
}

func TestListChecksOrdering(t *testing.T) {
	s := NewStore(openTestDB(t))
	ctx := context.Background()

	for i, ts := range []int64{100, 300, 200} {
		rec := &model.CheckRecord{
			SubmittedAt: ts,
			ScanMode:    "quick",
			InputKind:   "text",
			Status:      model.CheckSuccess,
			MatchCount:  i,
		}
		if err := s.SaveCheck(ctx, rec); err != nil {
			t.Fatalf("SaveCheck %d: %v", i, err)
		}
	}

	list, err := s.ListChecks(ctx, 10, 0)
	if err != nil {
		t.Fatalf("ListChecks: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("len = %d, want 3", len(list))
	}
	if list[0].SubmittedAt != 300 || list[1].SubmittedAt != 200 || list[2].SubmittedAt != 100 {
		t.Fatalf("bad ordering: %d %d %d", list[0].SubmittedAt, list[1].SubmittedAt, list[2].SubmittedAt)
	}
	if len(list[0].ResultJSON) != 0 {
		t.Fatal("list view must not carry result_json")
	}

	page, err := s.ListChecks(ctx, 1, 1)
	if err != nil {
		t.Fatalf("ListChecks page: %v", err)
	}
	if len(page) != 1 || page[0].SubmittedAt != 200 {
		t.Fatalf("bad page: %+v", page)
	}
}

func TestSaveAndListReports(t *testing.T) {
	s := NewStore(openTestDB(t))
	ctx := context.Background()

	rec := &model.CheckRecord{ScanMode: "quick", InputKind: "text", Status: model.CheckSuccess}
	if err := s.SaveCheck(ctx, rec); err != nil {
		t.Fatalf("SaveCheck: %v", err)
	}

	id1, err := s.SaveReport(ctx, rec.CheckID, "text", "/tmp/a.txt", "sum1", 11, "report-0.2.0")
	if err != nil {
		t.Fatalf("SaveReport: %v", err)
	}
	id2, err := s.SaveReport(ctx, rec.CheckID, "pdf", "/tmp/a.pdf", "sum2", 2048, "report-0.2.0")
	if err != nil {
		t.Fatalf("SaveReport: %v", err)
	}
	if id1 == id2 {
		t.Fatal("report ids must be unique")
	}

	list, err := s.ListReportsByCheck(ctx, rec.CheckID)
	if err != nil {
		t.Fatalf("ListReportsByCheck: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}

	got, err := s.GetReportByID(ctx, id2)
	if err != nil {
		t.Fatalf("GetReportByID: %v", err)
	}
	if got == nil || got.ReportType != "pdf" || got.SizeBytes != 2048 || got.CheckID != rec.CheckID {
		t.Fatalf("unexpected report: %+v", got)
	}

	none, err := s.GetReportByID(ctx, "rpt_missing")
	if err != nil {
		t.Fatalf("GetReportByID missing: %v", err)
	}
	if none != nil {
		t.Fatalf("missing report = %+v, want nil", none)
	}

	empty, err := s.ListReportsByCheck(ctx, "chk_other")
	if err != nil {
		t.Fatalf("ListReportsByCheck empty: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Fatalf("empty list = %#v, want []", empty)
	}
}
