package dataset

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/parquet-go/parquet-go"
)

// DataFormat specifies the format of an input artifact.
type DataFormat int

const (
	DataFormatUnspecified DataFormat = iota
	DataFormatJSON
	DataFormatJSONL
	DataFormatCSV
	DataFormatParquet
)

// DetectFormat guesses the artifact format from a file name or URI.
func DetectFormat(name string) DataFormat {
	switch strings.ToLower(path.Ext(name)) {
	case ".json":
		return DataFormatJSON
	case ".jsonl", ".ndjson":
		return DataFormatJSONL
	case ".csv":
		return DataFormatCSV
	case ".parquet":
		return DataFormatParquet
	default:
		return DataFormatUnspecified
	}
}

// rowRecord is the row-oriented shape used by JSONL, CSV and Parquet inputs.
// The JSON format stays columnar to match the canonical artifact layout.
type rowRecord struct {
	Question    string   `json:"question" parquet:"question"`
	Answer      string   `json:"answer" parquet:"answer"`
	Contexts    []string `json:"contexts" parquet:"contexts,list"`
	GroundTruth string   `json:"ground_truth" parquet:"ground_truth"`
}

// Decode reads an input artifact in the given format and returns the raw
// columnar mapping. Values are carried over verbatim.
func Decode(r io.Reader, format DataFormat) (*RawArtifact, error) {
	switch format {
	case DataFormatJSON:
		return decodeJSON(r)
	case DataFormatJSONL:
		return decodeJSONL(r)
	case DataFormatCSV:
		return decodeCSV(r)
	case DataFormatParquet:
		return decodeParquet(r)
	default:
		return nil, fmt.Errorf("unsupported format: %v", format)
	}
}

func decodeJSON(r io.Reader) (*RawArtifact, error) {
	var raw RawArtifact
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse JSON artifact: %w", err)
	}
	return &raw, nil
}

func decodeJSONL(r io.Reader) (*RawArtifact, error) {
	raw := &RawArtifact{}

	scanner := bufio.NewScanner(r)
	// Large contexts can push a sample past the default line limit.
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var row rowRecord
		if err := json.Unmarshal(line, &row); err != nil {
			return nil, fmt.Errorf("failed to parse JSON on line %d: %w", lineNum, err)
		}
		appendRow(raw, row)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading JSONL: %w", err)
	}
	return raw, nil
}

// csvContextSeparator joins multiple context passages into one CSV cell.
const csvContextSeparator = "||"

func decodeCSV(r io.Reader) (*RawArtifact, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	col := make(map[string]int, len(headers))
	for i, h := range headers {
		col[strings.TrimSpace(strings.ToLower(h))] = i
	}

	cell := func(record []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(record) {
			return ""
		}
		return record[i]
	}

	raw := &RawArtifact{}
	rowNum := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row %d: %w", rowNum, err)
		}
		rowNum++

		row := rowRecord{
			Question:    cell(record, "question"),
			Answer:      cell(record, "answer"),
			GroundTruth: cell(record, "ground_truth"),
		}
		if c := cell(record, "contexts"); c != "" {
			row.Contexts = strings.Split(c, csvContextSeparator)
		}
		appendRow(raw, row)
	}

	return raw, nil
}

func decodeParquet(r io.Reader) (*RawArtifact, error) {
	// parquet-go requires io.ReaderAt.
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read parquet data: %w", err)
	}

	file, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}

	rowReader := parquet.NewGenericReader[rowRecord](file)
	defer rowReader.Close()

	raw := &RawArtifact{}
	buffer := make([]rowRecord, 100)
	for {
		n, err := rowReader.Read(buffer)
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
		for j := 0; j < n; j++ {
			appendRow(raw, buffer[j])
		}
		if err == io.EOF || n == 0 {
			break
		}
	}

	return raw, nil
}

// appendRow folds a row-oriented record into the columnar artifact.
// Every column grows in lockstep so row inputs always align by construction.
func appendRow(raw *RawArtifact, row rowRecord) {
	raw.Questions = append(raw.Questions, row.Question)
	raw.Answers = append(raw.Answers, row.Answer)
	raw.Contexts = append(raw.Contexts, row.Contexts)
	raw.GroundTruths = append(raw.GroundTruths, row.GroundTruth)
}
