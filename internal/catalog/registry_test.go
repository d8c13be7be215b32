package catalog

import (
	"errors"
	"reflect"
	"testing"
)

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry(nil)
	def := Definition{Name: "get_accounts", Kind: KindFunction, SourceKey: "bank/accounts.sql"}
	if err := r.Register(def); err != nil {
		t.Fatalf("register: %v", err)
	}
	proc, err := r.Get("get_accounts")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if proc.Name() != "get_accounts" || proc.Kind() != KindFunction || proc.SourceKey() != "bank/accounts.sql" {
		t.Fatalf("unexpected proc: name=%s kind=%s source=%s", proc.Name(), proc.Kind(), proc.SourceKey())
	}
}

func TestRegistryGetUnknownName(t *testing.T) {
	r := NewRegistry(nil)
	if _, err := r.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRegistryRejectsDuplicateName(t *testing.T) {
	r := NewRegistry(nil)
	def := Definition{Name: "dup", Kind: KindView}
	if err := r.Register(def); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := r.Register(def); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestRegistryRejectsEmptyName(t *testing.T) {
	r := NewRegistry(nil)
	if err := r.Register(Definition{Kind: KindFunction}); err == nil {
		t.Fatalf("expected error for empty name")
	}
}

func TestRegistryNamesAreCaseSensitive(t *testing.T) {
	r := NewRegistry(nil)
	if err := r.Register(Definition{Name: "Totals", Kind: KindView}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if r.Contains("totals") {
		t.Fatalf("lookup should not match a different casing")
	}
	if !r.Contains("Totals") {
		t.Fatalf("registered name should be found")
	}
}

func TestRegistryListSorted(t *testing.T) {
	r := NewRegistry(nil)
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := r.Register(Definition{Name: name, Kind: KindFunction}); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}
	got := r.List()
	want := []string{"alpha", "mid", "zeta"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if r.Len() != 3 {
		t.Fatalf("expected len 3, got %d", r.Len())
	}
}
