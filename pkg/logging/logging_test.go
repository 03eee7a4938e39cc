package logging

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRotatingWriterKeepsOneBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "api.log")
	w, err := openRotating(path, 16)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer w.Close()

	for _, line := range []string{"first line 0123\n", "second line 012\n", "third\n"} {
		if _, err := w.Write([]byte(line)); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	backup, err := os.ReadFile(path + ".1")
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	if string(backup) != "first line 0123\nsecond line 012\n" {
		t.Fatalf("backup = %q", backup)
	}
	cur, _ := os.ReadFile(path)
	if string(cur) != "third\n" {
		t.Fatalf("current = %q", cur)
	}
}

func TestSetupWithoutPath(t *testing.T) {
	w, err := Setup("")
	if err != nil || w != nil {
		t.Fatalf("Setup(\"\") = %v, %v", w, err)
	}
}
