package source

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryAddListRead(t *testing.T) {
	mem := NewMemory()
	if err := mem.Add("bank/defs.sql", []byte("SELECT 1;")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := mem.Add("bank/notes.txt", []byte("not sql")); err != nil {
		t.Fatalf("add: %v", err)
	}

	files, err := mem.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(files) != 1 || files[0].Key != "bank/defs.sql" || files[0].Size != 9 {
		t.Fatalf("unexpected files: %+v", files)
	}

	data, err := mem.Read(context.Background(), "bank/defs.sql")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "SELECT 1;" {
		t.Fatalf("unexpected content: %q", data)
	}
}

func TestMemoryReadMissing(t *testing.T) {
	mem := NewMemory()
	if _, err := mem.Read(context.Background(), "nope.sql"); !errors.Is(err, ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
}

func TestMemoryReadCopies(t *testing.T) {
	mem := NewMemory()
	if err := mem.Add("a.sql", []byte("SELECT 1;")); err != nil {
		t.Fatalf("add: %v", err)
	}
	data, err := mem.Read(context.Background(), "a.sql")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	data[0] = 'X'
	again, err := mem.Read(context.Background(), "a.sql")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(again) != "SELECT 1;" {
		t.Fatalf("stored content mutated: %q", again)
	}
}

func TestMemoryRejectsBadKeys(t *testing.T) {
	mem := NewMemory()
	for _, key := range []string{"", "../up.sql", "/abs.sql"} {
		if err := mem.Add(key, []byte("x")); err == nil {
			t.Fatalf("add %q: expected error", key)
		}
	}
}
