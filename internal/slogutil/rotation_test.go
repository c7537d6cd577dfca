package slogutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		input   string
		want    int64
		wantErr bool
	}{
		{"", 0, false},
		{"512", 512, false},
		{"10MB", 10_000_000, false},
		{"1MiB", 1 << 20, false},
		{" 64 KiB ", 64 << 10, false},
		{"1GB", 1_000_000_000, false},
		{"huge", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSize(tt.input)
			if (err != nil) != tt.wantErr || got != tt.want {
				t.Errorf("ParseSize(%q) = %d, %v; want %d", tt.input, got, err, tt.want)
			}
		})
	}
}

func readLog(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", filepath.Base(path), err)
	}
	return string(data)
}

func TestRotatingWriter_Rotates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "apiguard.log")
	w, err := OpenRotatingWriter(path, 25, 2)
	if err != nil {
		t.Fatalf("OpenRotatingWriter() error = %v", err)
	}

	// each record is 10 bytes; two fit under the limit, a third rotates
	for _, rec := range []string{"record-01\n", "record-02\n", "record-03\n", "record-04\n", "record-05\n", "record-06\n", "record-07\n"} {
		if _, err := w.Write([]byte(rec)); err != nil {
			t.Fatalf("Write(%q) error = %v", rec, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if got := readLog(t, path); got != "record-07\n" {
		t.Errorf("current = %q", got)
	}
	if got := readLog(t, path+".1"); got != "record-05\nrecord-06\n" {
		t.Errorf(".1 = %q", got)
	}
	if got := readLog(t, path+".2"); got != "record-03\nrecord-04\n" {
		t.Errorf(".2 = %q", got)
	}
	if _, err := os.Stat(path + ".3"); !os.IsNotExist(err) {
		t.Error("only two backups should be kept")
	}
}

func TestRotatingWriter_NoBackups(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apiguard.log")
	w, err := OpenRotatingWriter(path, 15, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	w.Write([]byte("first line\n"))
	w.Write([]byte("second line\n"))

	if got := readLog(t, path); got != "second line\n" {
		t.Errorf("current = %q", got)
	}
	if _, err := os.Stat(path + ".1"); !os.IsNotExist(err) {
		t.Error("no backup should be written when keep is zero")
	}
}

func TestRotatingWriter_AppendsAndOversized(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apiguard.log")
	if err := os.WriteFile(path, []byte("old\n"), 0644); err != nil {
		t.Fatal(err)
	}

	w, err := OpenRotatingWriter(path, 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	long := strings.Repeat("x", 100) + "\n"
	w.Write([]byte(long))
	w.Close()

	if got := readLog(t, path); got != "old\n"+long {
		t.Errorf("unlimited writer should append, got %q", got)
	}

	// a record larger than the limit still lands in one file
	w, err = OpenRotatingWriter(path, 10, 1)
	if err != nil {
		t.Fatal(err)
	}
	w.Write([]byte(long))
	w.Write([]byte(long))
	w.Close()
	if got := readLog(t, path); got != long {
		t.Errorf("current = %q", got)
	}
}
