package vault

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func tempVault(t *testing.T) *Dir {
	t.Helper()
	d, err := OpenDir(t.TempDir(), false)
	if err != nil {
		t.Fatalf("OpenDir: %v", err)
	}
	return d
}

func TestParse_FrontmatterAndBody(t *testing.T) {
	doc := Parse([]byte("---\nguid: g-1\ntitle: Hello\ntype: todo\nsort_order: 7\ntags:\n  - go\n  - notes\n---\nBody text.\n"))
	if doc.GUID != "g-1" || doc.Title != "Hello" || doc.Type != "todo" {
		t.Errorf("doc = %+v", doc)
	}
	if doc.SortOrder == nil || *doc.SortOrder != 7 {
		t.Errorf("sort order = %v", doc.SortOrder)
	}
	if !reflect.DeepEqual(doc.Tags, []string{"go", "notes"}) {
		t.Errorf("tags = %v", doc.Tags)
	}
	if doc.Body != "Body text.\n" {
		t.Errorf("body = %q", doc.Body)
	}
}

func TestParse_NoFrontmatterUsesHeading(t *testing.T) {
	doc := Parse([]byte("intro\n# Just a heading\nSome text.\n"))
	if doc.Title != "Just a heading" || doc.GUID != "" {
		t.Errorf("doc = %+v", doc)
	}
	if doc.Body != "intro\n# Just a heading\nSome text.\n" {
		t.Errorf("body = %q", doc.Body)
	}
}

func TestParse_InvalidYAMLFallback(t *testing.T) {
	in := "---\n: invalid: yaml: {{{\n---\nBody\n"
	doc := Parse([]byte(in))
	if doc.Body != in {
		t.Errorf("body = %q, want whole input", doc.Body)
	}
}

func TestParse_UnclosedFrontmatter(t *testing.T) {
	in := "---\ntitle: x\nno end"
	if doc := Parse([]byte(in)); doc.Body != in || doc.Title != "" {
		t.Errorf("doc = %+v", doc)
	}
}

func TestMarshal_ParseRoundTrip(t *testing.T) {
	order := 12
	doc := Document{GUID: "abc", Title: "T", Type: "general", Tags: []string{"a"}, SortOrder: &order, Body: "line one\nline two"}
	data, err := Marshal(doc)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got := Parse(data)
	doc.Body += "\n"
	if !reflect.DeepEqual(got, doc) {
		t.Errorf("round trip = %+v, want %+v", got, doc)
	}
}

func TestFileName(t *testing.T) {
	tests := []struct{ title, guid, want string }{
		{"Shopping List!", "0123456789ab", "shopping-list-01234567.md"},
		{"  --  ", "g", "note-g.md"},
		{"Привет мир", "abcdefgh", "привет-мир-abcdefgh.md"},
	}
	for _, tt := range tests {
		if got := FileName(tt.title, tt.guid); got != tt.want {
			t.Errorf("FileName(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}

func TestDir_WriteReadList(t *testing.T) {
	d := tempVault(t)
	_ = d.Write("b.md", []byte("b"))
	_ = d.Write("sub/a.md", []byte("a"))
	_ = d.Write("readme.txt", []byte("not md"))
	_ = d.Write(".trash/x.md", []byte("hidden"))

	got, err := d.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"b.md", "sub/a.md"}) {
		t.Errorf("List = %v", got)
	}
	data, err := d.Read("sub/a.md")
	if err != nil || string(data) != "a" {
		t.Errorf("Read = %q, %v", data, err)
	}
}

func TestDir_AtomicOverwrite(t *testing.T) {
	d := tempVault(t)
	_ = d.Write("n.md", []byte("original"))
	if err := d.Write("n.md", []byte("updated")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got, _ := d.Read("n.md"); string(got) != "updated" {
		t.Errorf("content = %q", got)
	}
	matches, _ := filepath.Glob(filepath.Join(d.Root(), ".jotter-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestDir_TraversalBlocked(t *testing.T) {
	d := tempVault(t)
	for _, p := range []string{"../../etc/passwd", "../outside.md", "/etc/shadow", "."} {
		if _, err := d.Read(p); err == nil {
			t.Errorf("expected read error for %q", p)
		}
		if err := d.Write(p, []byte("x")); err == nil {
			t.Errorf("expected write error for %q", p)
		}
	}
}

func TestOpenDir(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "new", "vault")
	if _, err := OpenDir(missing, false); err == nil {
		t.Error("expected error for missing dir")
	}
	if _, err := OpenDir(missing, true); err != nil {
		t.Errorf("create: %v", err)
	}

	f, _ := os.CreateTemp(t.TempDir(), "file-*")
	_ = f.Close()
	if _, err := OpenDir(f.Name(), false); err == nil {
		t.Error("expected error when root is a file")
	}
}
