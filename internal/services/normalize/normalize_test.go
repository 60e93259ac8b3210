package normalize

import (
	"errors"
	"testing"

	"plagiarism-checker/internal/domain/model"
)

func TestResult_FullPayload(t *testing.T) {
	t.Parallel()

	raw := []byte(`{
		"scan_mode": "quick",
		"plagiarism_percent": 80,
		"summary": {"total_chunks_analyzed": 5, "chunks_with_matches": 1, "citation_safe_chunks": 2},
		"matches": [
			{"chunk_index": 0, "chunk": "x", "similarity": 85, "citation_safe": false, "source": "https://ex.com", "matched_content": "y"}
		]
	}`)

	res, err := Result(raw)
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if res.PlagiarismPercent != 80 {
		t.Fatalf("percent=%v", res.PlagiarismPercent)
	}
	if res.ScanMode != model.ScanQuick {
		t.Fatalf("scan_mode=%s", res.ScanMode)
	}
	if len(res.Matches) != 1 || res.Matches[0].Source != "https://ex.com" {
		t.Fatalf("matches=%+v", res.Matches)
	}
	if res.Summary == nil || res.Summary.CitationSafeChunks != 2 {
		t.Fatalf("summary=%+v", res.Summary)
	}
	if res.SourcesFound() != 1 {
		t.Fatalf("sources=%d", res.SourcesFound())
	}
}

func TestResult_SummaryFallbacks(t *testing.T) {
	t.Parallel()

	res, err := Result([]byte(`{"plagiarism_percent": 10, "matches": [{"chunk": "a"}, {"chunk": "b"}]}`))
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if res.SourcesFound() != 2 {
		t.Fatalf("sources fallback=%d want len(matches)", res.SourcesFound())
	}
	if res.CitedChunks() != 0 {
		t.Fatalf("cited fallback=%d want 0", res.CitedChunks())
	}
}

func TestResult_MissingRequiredFields(t *testing.T) {
	t.Parallel()

	cases := []string{
		`{}`,
		`{"matches": []}`,                                // percent 缺失
		`{"plagiarism_percent": 10}`,                     // matches 缺失
		`{"plagiarism_percent": "10", "matches": []}`,    // percent 类型错误
		`{"plagiarism_percent": 10, "matches": "nope"}`,  // matches 类型错误
		`not json at all`,
		``,
	}
	for _, c := range cases {
		if _, err := Result([]byte(c)); !errors.Is(err, ErrMalformedResponse) {
			t.Fatalf("payload %q: want ErrMalformedResponse, got %v", c, err)
		}
	}
}

func TestResult_EmptyMatchesIsValid(t *testing.T) {
	t.Parallel()

	res, err := Result([]byte(`{"plagiarism_percent": 0, "matches": []}`))
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if len(res.Matches) != 0 {
		t.Fatalf("matches=%d", len(res.Matches))
	}
}

func TestResult_ClampsOutOfRangePercent(t *testing.T) {
	t.Parallel()

	res, err := Result([]byte(`{"plagiarism_percent": 100.0001, "matches": []}`))
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if res.PlagiarismPercent != 100 {
		t.Fatalf("percent=%v want clamp to 100", res.PlagiarismPercent)
	}
}
