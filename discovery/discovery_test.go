package discovery_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/xraph/warrant/discovery"
)

func TestExpandDefaults(t *testing.T) {
	got := discovery.Expand([]discovery.Declaration{{Resource: "Post"}}, "web", nil)
	if len(got) != len(discovery.DefaultActions) {
		t.Fatalf("expected %d candidates, got %d", len(discovery.DefaultActions), len(got))
	}
	found := false
	for _, c := range got {
		if c.Guard != "web" {
			t.Fatalf("expected default guard, got %q", c.Guard)
		}
		if c.Name == "force-delete Post" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected force-delete Post candidate")
	}
}

func TestExpandDedupAndSort(t *testing.T) {
	decls := []discovery.Declaration{
		{Resource: "Post", Actions: []string{"view", "view", " "}, Guards: []string{"web", "api"}},
		{Resource: "Post", Actions: []string{"view"}, Guards: []string{"web"}},
		{Resource: "  "},
	}
	got := discovery.Expand(decls, "web", func(a, r string) string { return r + "." + a })
	want := []discovery.Candidate{{Name: "Post.view", Guard: "api"}, {Name: "Post.view", Guard: "web"}}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("index %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "permissions.yaml")
	doc := "resources:\n  - resource: Post\n    actions: [view, update]\n  - resource: Comment\n    guards: [api]\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	decls, err := discovery.File{Path: path}.Declarations(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(decls) != 2 || decls[0].Resource != "Post" || decls[1].Guards[0] != "api" {
		t.Fatalf("unexpected declarations: %+v", decls)
	}
	if r := discovery.Resources(decls); len(r) != 2 || r[0] != "Comment" {
		t.Fatalf("unexpected resources: %v", r)
	}
}

func TestFileSourceMissing(t *testing.T) {
	_, err := discovery.File{Path: filepath.Join(t.TempDir(), "nope.yaml")}.Declarations(context.Background())
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
