package spreadsheet

import (
	"bytes"
	"reflect"
	"testing"
)

func TestWriteRead_RoundTrip(t *testing.T) {
	rows := [][]string{
		{"Submission ID", "Student Name", "Student Email", "Colour"},
		{"1", "Ann", "ann@example.com", "red, blue"},
		{"2", "", "bob@example.com", ""},
	}

	data, err := Write("Submissions", rows)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected non-empty workbook")
	}

	got, err := Read(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	want := [][]string{
		rows[0],
		rows[1],
		{"2", "", "bob@example.com"},
	}
	for i := range got {
		got[i] = trimTrailing(got[i])
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("rows mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRead_NotAWorkbook(t *testing.T) {
	if _, err := Read(bytes.NewReader([]byte("plain text"))); err == nil {
		t.Error("expected error for non-xlsx input")
	}
}

func trimTrailing(row []string) []string {
	for len(row) > 0 && row[len(row)-1] == "" {
		row = row[:len(row)-1]
	}
	return row
}
