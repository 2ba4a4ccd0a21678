// CSV export tests
//
// Copyright (C) 2026  Luthiers Toolbox Project
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package sim

import (
	"bytes"
	"encoding/csv"
	"errors"
	"strings"
	"testing"

	simerrors "github.com/HanzoRazer/luthiers-toolbox-sub006/pkg/errors"
)

func TestWriteCSV(t *testing.T) {
	report := New(DefaultOptions()).Run("G0 Z10\nG1 X10 F600\nG2 X20 I5")

	var buf bytes.Buffer
	if err := WriteCSV(&buf, report.Moves); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("re-read CSV: %v", err)
	}

	if len(records) != len(report.Moves)+1 {
		t.Fatalf("expected %d records, got %d", len(report.Moves)+1, len(records))
	}
	header := records[0]
	if header[0] != "line" || header[1] != "kind" || header[len(header)-1] != "synthetic" {
		t.Errorf("unexpected header: %v", header)
	}

	// Linear rows leave center cells empty, arc rows fill them
	linear := records[2]
	if linear[1] != "linear" {
		t.Fatalf("row 2 kind = %q, want linear", linear[1])
	}
	if linear[11] != "" || linear[12] != "" || linear[13] != "" {
		t.Errorf("linear row should have empty center cells: %v", linear)
	}

	arc := records[3]
	if arc[1] != "arc_cw" {
		t.Fatalf("row 3 kind = %q, want arc_cw", arc[1])
	}
	if arc[11] == "" || arc[13] == "" {
		t.Errorf("arc row should carry center coordinates: %v", arc)
	}
	if arc[11] != "15" {
		t.Errorf("arc center_x = %q, want 15", arc[11])
	}
}

func TestCSVMatchesWriter(t *testing.T) {
	report := New(DefaultOptions()).Run("G0 Z10\nG1 X10 F600")

	var buf bytes.Buffer
	if err := WriteCSV(&buf, report.Moves); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	data, err := CSV(report.Moves)
	if err != nil {
		t.Fatalf("CSV: %v", err)
	}
	if !bytes.Equal(data, buf.Bytes()) {
		t.Error("CSV() and WriteCSV() outputs differ")
	}
}

func TestCSVEmptyMoves(t *testing.T) {
	data, err := CSV(nil)
	if err != nil {
		t.Fatalf("CSV: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Errorf("expected header only, got %d lines", len(lines))
	}
}

type failWriter struct{}

func (failWriter) Write(p []byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestWriteCSVWriterFailure(t *testing.T) {
	report := New(DefaultOptions()).Run("G0 Z10\nG1 X10 F600")

	err := WriteCSV(failWriter{}, report.Moves)
	if err == nil {
		t.Fatal("expected error from failing writer")
	}
	if !simerrors.Is(err, simerrors.ErrExportWrite) {
		t.Errorf("expected export error code, got %v", err)
	}
}
