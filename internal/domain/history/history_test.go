package history

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
)

func TestPreview(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"short", "  hello  ", "hello"},
		{"exact", strings.Repeat("a", 100), strings.Repeat("a", 100)},
		{"long", strings.Repeat("b", 101), strings.Repeat("b", 100) + "..."},
		{"runes", strings.Repeat("é", 120), strings.Repeat("é", 100) + "..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Preview(tt.text); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestStore_AddPrepends(t *testing.T) {
	s := NewStore(afero.NewMemMapFs(), "/data")

	if entries, err := s.List(); err != nil || len(entries) != 0 {
		t.Fatalf("expected empty history, got %v %v", entries, err)
	}

	first := NewEntry("first", "Kore", []string{"AAA="}, "voxnest-1")
	second := NewEntry("second", "Puck", []string{"AAA=", "AQA="}, "voxnest-2")
	if err := s.Add(first); err != nil {
		t.Fatal(err)
	}
	if err := s.Add(second); err != nil {
		t.Fatal(err)
	}

	entries, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	if diff := cmp.Diff([]string{second.ID, first.ID}, ids); diff != "" {
		t.Errorf("expected newest first (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(second.Fragments, entries[0].Fragments); diff != "" {
		t.Errorf("fragments not preserved (-want +got):\n%s", diff)
	}
}

func TestStore_PersistsAcrossInstances(t *testing.T) {
	fs := afero.NewMemMapFs()
	e := NewEntry("hello", "Kore", []string{"AAA="}, "voxnest-1")
	if err := NewStore(fs, "/data").Add(e); err != nil {
		t.Fatal(err)
	}

	got, err := NewStore(fs, "/data").Get(e.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.FileName != "voxnest-1" || got.TextPreview != "hello" {
		t.Errorf("unexpected entry %+v", got)
	}
}

func TestStore_Get(t *testing.T) {
	s := NewStore(afero.NewMemMapFs(), "/data")
	e := Entry{ID: "abc123", TextPreview: "x"}
	other := Entry{ID: "abd456", TextPreview: "y"}
	s.Add(e)
	s.Add(other)

	if got, err := s.Get("abc"); err != nil || got.ID != "abc123" {
		t.Errorf("expected prefix match, got %+v %v", got, err)
	}
	if _, err := s.Get("ab"); err == nil {
		t.Error("expected ambiguous prefix to fail")
	}
	if _, err := s.Get("zzz"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_Clear(t *testing.T) {
	s := NewStore(afero.NewMemMapFs(), "/data")
	s.Add(NewEntry("x", "Kore", nil, "voxnest-1"))
	if err := s.Clear(); err != nil {
		t.Fatal(err)
	}
	if entries, _ := s.List(); len(entries) != 0 {
		t.Errorf("expected empty history, got %d entries", len(entries))
	}
}

func TestStore_CorruptFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/data/history.json", []byte("{"), 0600)
	if _, err := NewStore(fs, "/data").List(); err == nil {
		t.Error("expected decode error")
	}
}
