package httpapi

import (
	"bufio"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/R3E-Network/thrones_api/internal/logging"
)

func TestAuditLogKeepsNewestEntries(t *testing.T) {
	l := NewAuditLog(3, nil, logging.NewDiscard())
	for i := 0; i < 5; i++ {
		l.add(AuditEntry{Status: 200 + i})
	}

	all := l.List(0)
	if len(all) != 3 || all[0].Status != 202 || all[2].Status != 204 {
		t.Fatalf("unexpected retained entries: %+v", all)
	}
	last := l.List(1)
	if len(last) != 1 || last[0].Status != 204 {
		t.Fatalf("unexpected limited entries: %+v", last)
	}
}

func TestFileAuditSinkWritesJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	sink, err := NewFileAuditSink(path)
	if err != nil {
		t.Fatalf("open sink: %v", err)
	}
	l := NewAuditLog(10, sink, logging.NewDiscard())
	l.add(AuditEntry{User: "arya", Method: http.MethodPost, Path: "/api/characters", Status: 201})
	l.add(AuditEntry{User: "arya", Method: http.MethodDelete, Path: "/api/characters/3", Status: 404})
	if err := sink.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	var lines []AuditEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry AuditEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			t.Fatalf("decode line: %v", err)
		}
		lines = append(lines, entry)
	}
	if len(lines) != 2 || lines[1].Path != "/api/characters/3" || lines[1].Status != 404 {
		t.Fatalf("unexpected lines: %+v", lines)
	}
}

func TestNewFileAuditSinkEmptyPath(t *testing.T) {
	sink, err := NewFileAuditSink("")
	if err != nil || sink != nil {
		t.Fatalf("expected nil sink, got %v %v", sink, err)
	}
	if err := sink.Write(AuditEntry{}); err != nil {
		t.Fatalf("nil sink write: %v", err)
	}
}
