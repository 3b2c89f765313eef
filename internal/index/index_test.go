package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestBuild_SkipsExcludedDirsAndIndexesDefs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "core/validators.py", "class Validator:\n    def check(self, v):\n        return v\n")
	writeFile(t, root, "__pycache__/stale.py", "def ghost():\n    pass\n")
	writeFile(t, root, ".venv/lib/site.py", "def ghost2():\n    pass\n")

	b := NewBuilder()
	idx, err := b.Build(context.Background(), []Root{{Path: root, Primary: true}})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	if _, ok := idx.Symbols["core.validators.Validator.check"]; !ok {
		t.Errorf("expected core.validators.Validator.check to be indexed, got %v", idx.Symbols)
	}
	for qn := range idx.Symbols {
		if s := shortName(qn); s == "ghost" || s == "ghost2" {
			t.Errorf("excluded directory was indexed: %s", qn)
		}
	}
}

func TestBuild_AuxiliaryRootDoesNotOverridePrimary(t *testing.T) {
	primary := t.TempDir()
	aux := t.TempDir()
	writeFile(t, primary, "mod.py", "def shared():\n    return 1\n")
	writeFile(t, aux, "mod.py", "def shared():\n    return 2\n")

	b := NewBuilder()
	idx, err := b.Build(context.Background(), []Root{
		{Path: primary, Primary: true},
		{Path: aux, Primary: false},
	})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	def, ok := idx.Symbols["mod.shared"]
	if !ok {
		t.Fatalf("expected mod.shared to be indexed")
	}
	if idx.FileToRoot[def.File] != primary {
		t.Errorf("expected primary root to win, got file-to-root %q", idx.FileToRoot[def.File])
	}
}

func TestModuleNameFromPath(t *testing.T) {
	tests := []struct {
		rel  string
		want string
	}{
		{"mod.py", "mod"},
		{"pkg/__init__.py", "pkg"},
		{"pkg/sub/helpers.py", "pkg.sub.helpers"},
	}
	for _, tt := range tests {
		if got := moduleNameFromPath(tt.rel); got != tt.want {
			t.Errorf("moduleNameFromPath(%q) = %q, want %q", tt.rel, got, tt.want)
		}
	}
}
