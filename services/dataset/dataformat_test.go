package dataset

import (
	"strings"
	"testing"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name string
		want DataFormat
	}{
		{"testset.json", DataFormatJSON},
		{"testset.jsonl", DataFormatJSONL},
		{"testset.ndjson", DataFormatJSONL},
		{"testset.csv", DataFormatCSV},
		{"testset.parquet", DataFormatParquet},
		{"s3://bucket/evals/testset.JSON", DataFormatJSON},
		{"testset.txt", DataFormatUnspecified},
		{"testset", DataFormatUnspecified},
	}

	for _, tt := range tests {
		if got := DetectFormat(tt.name); got != tt.want {
			t.Errorf("DetectFormat(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestDecode_JSON(t *testing.T) {
	input := `{
		"questions": ["q1", "q2"],
		"answers": ["a1", "a2"],
		"contexts": [["c1a", "c1b"], ["c2"]],
		"ground_truths": ["g1", "g2"]
	}`

	raw, err := Decode(strings.NewReader(input), DataFormatJSON)
	if err != nil {
		t.Fatalf("failed to decode JSON: %v", err)
	}

	if len(raw.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(raw.Questions))
	}
	if raw.Questions[1] != "q2" {
		t.Errorf("expected question 'q2', got %q", raw.Questions[1])
	}
	if len(raw.Contexts[0]) != 2 {
		t.Errorf("expected 2 contexts for first sample, got %d", len(raw.Contexts[0]))
	}
}

func TestDecode_JSONMissingGroundTruths(t *testing.T) {
	input := `{"questions": ["q1"], "answers": ["a1"], "contexts": [["c1"]]}`

	raw, err := Decode(strings.NewReader(input), DataFormatJSON)
	if err != nil {
		t.Fatalf("failed to decode JSON: %v", err)
	}

	if len(raw.GroundTruths) != 0 {
		t.Errorf("expected no ground truths, got %v", raw.GroundTruths)
	}
}

func TestDecode_JSONMalformed(t *testing.T) {
	if _, err := Decode(strings.NewReader(`{"questions": [`), DataFormatJSON); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestDecode_JSONL(t *testing.T) {
	input := `{"question": "q1", "answer": "a1", "contexts": ["c1"], "ground_truth": "g1"}

{"question": "q2", "answer": "a2", "contexts": ["c2a", "c2b"], "ground_truth": "g2"}`

	raw, err := Decode(strings.NewReader(input), DataFormatJSONL)
	if err != nil {
		t.Fatalf("failed to decode JSONL: %v", err)
	}

	// Blank lines are skipped; columns stay aligned.
	if len(raw.Questions) != 2 || len(raw.Answers) != 2 || len(raw.Contexts) != 2 || len(raw.GroundTruths) != 2 {
		t.Fatalf("misaligned columns: %d/%d/%d/%d",
			len(raw.Questions), len(raw.Answers), len(raw.Contexts), len(raw.GroundTruths))
	}
	if raw.Contexts[1][1] != "c2b" {
		t.Errorf("unexpected context: %q", raw.Contexts[1][1])
	}
}

func TestDecode_JSONLBadLine(t *testing.T) {
	input := `{"question": "q1"}
not json`

	_, err := Decode(strings.NewReader(input), DataFormatJSONL)
	if err == nil {
		t.Fatal("expected error for malformed line")
	}
	if !strings.Contains(err.Error(), "line 2") {
		t.Errorf("expected line number in error, got: %v", err)
	}
}

func TestDecode_CSV(t *testing.T) {
	input := `question,answer,contexts,ground_truth
q1,a1,c1a||c1b,g1
q2,a2,c2,g2`

	raw, err := Decode(strings.NewReader(input), DataFormatCSV)
	if err != nil {
		t.Fatalf("failed to decode CSV: %v", err)
	}

	if len(raw.Questions) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(raw.Questions))
	}
	if len(raw.Contexts[0]) != 2 || raw.Contexts[0][1] != "c1b" {
		t.Errorf("expected split contexts, got %v", raw.Contexts[0])
	}
	if raw.GroundTruths[1] != "g2" {
		t.Errorf("expected ground truth 'g2', got %q", raw.GroundTruths[1])
	}
}

func TestDecode_CSVHeaderCaseInsensitive(t *testing.T) {
	input := `Question,Answer
q1,a1`

	raw, err := Decode(strings.NewReader(input), DataFormatCSV)
	if err != nil {
		t.Fatalf("failed to decode CSV: %v", err)
	}

	if raw.Questions[0] != "q1" || raw.Answers[0] != "a1" {
		t.Errorf("unexpected row: %v / %v", raw.Questions, raw.Answers)
	}
	if raw.Contexts[0] != nil {
		t.Errorf("expected nil contexts for missing column, got %v", raw.Contexts[0])
	}
}

func TestDecode_UnsupportedFormat(t *testing.T) {
	if _, err := Decode(strings.NewReader("x"), DataFormatUnspecified); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestDecode_RowFormatsAlwaysAligned(t *testing.T) {
	// Row inputs with missing fields still produce equal-length columns.
	input := `{"question": "q1"}
{"question": "q2", "answer": "a2"}`

	raw, err := Decode(strings.NewReader(input), DataFormatJSONL)
	if err != nil {
		t.Fatalf("failed to decode JSONL: %v", err)
	}

	if err := Validate(raw); err != nil {
		t.Fatalf("row decode produced invalid artifact: %v", err)
	}
	if raw.Answers[0] != "" {
		t.Errorf("expected empty answer for missing field, got %q", raw.Answers[0])
	}
}
