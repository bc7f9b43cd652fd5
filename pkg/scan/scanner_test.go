package scan

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func mkFile(t *testing.T, root, rel string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("creating fixture dir for %s: %v", rel, err)
	}
	if err := os.WriteFile(path, []byte("tasks: []\n"), 0o644); err != nil {
		t.Fatalf("writing fixture %s: %v", rel, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		t.Fatalf("resolving fixture %s: %v", rel, err)
	}
	return abs
}

func scanPaths(t *testing.T, opts Options) []string {
	t.Helper()
	scanner := NewScanner(opts, zerolog.Nop())
	paths, err := scanner.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	return paths
}

func contains(paths []string, want string) bool {
	for _, p := range paths {
		if p == want {
			return true
		}
	}
	return false
}

func TestScanner_TopLevelIsShallow(t *testing.T) {
	root := t.TempDir()
	top := mkFile(t, root, "tasks.yaml")
	nested := mkFile(t, root, "firmware/tasks.yaml")

	paths := scanPaths(t, Options{Root: root})
	if !contains(paths, top) {
		t.Errorf("Scan() missing top-level file %s", top)
	}
	if contains(paths, nested) {
		t.Errorf("Scan() descended into non-config subdirectory: %s", nested)
	}
}

func TestScanner_ConfigDirsAreRecursive(t *testing.T) {
	root := t.TempDir()
	direct := mkFile(t, root, "config/packet.yaml")
	deep := mkFile(t, root, "configs/boards/rev_b/commands.yml")

	paths := scanPaths(t, Options{Root: root})
	if !contains(paths, direct) {
		t.Errorf("Scan() missing config file %s", direct)
	}
	if !contains(paths, deep) {
		t.Errorf("Scan() missing nested config file %s", deep)
	}
}

func TestScanner_ExtensionFilter(t *testing.T) {
	root := t.TempDir()
	yaml := mkFile(t, root, "a.yaml")
	yml := mkFile(t, root, "b.yml")
	mkFile(t, root, "c.json")
	mkFile(t, root, "d.yaml.bak")

	paths := scanPaths(t, Options{Root: root})
	if len(paths) != 2 {
		t.Fatalf("Scan() returned %d files, want 2: %v", len(paths), paths)
	}
	if !contains(paths, yaml) || !contains(paths, yml) {
		t.Errorf("Scan() = %v, want both %s and %s", paths, yaml, yml)
	}
}

func TestScanner_MergedOutputsExcluded(t *testing.T) {
	root := t.TempDir()
	mkFile(t, root, "tasks_merged.yaml")
	mkFile(t, root, "config/packet_merged.yaml")
	mkFile(t, root, "config/commands_merged.yaml")
	kept := mkFile(t, root, "config/commands.yaml")

	paths := scanPaths(t, Options{Root: root})
	if len(paths) != 1 || paths[0] != kept {
		t.Errorf("Scan() = %v, want only %s", paths, kept)
	}
}

func TestScanner_DeniedDirsPruned(t *testing.T) {
	root := t.TempDir()
	mkFile(t, root, "config/.pio/build/tasks.yaml")
	mkFile(t, root, "config/node_modules/pkg/tasks.yaml")
	mkFile(t, root, "config/build/tasks.yaml")
	mkFile(t, root, "config/__pycache__/tasks.yaml")
	kept := mkFile(t, root, "config/tasks.yaml")

	paths := scanPaths(t, Options{Root: root})
	if len(paths) != 1 || paths[0] != kept {
		t.Errorf("Scan() = %v, want only %s", paths, kept)
	}
}

func TestScanner_WorkDirPruned(t *testing.T) {
	root := t.TempDir()
	mkFile(t, root, "config/.forge/merged/staging.yaml")
	mkFile(t, root, "config/.stage/staging.yaml")
	kept := mkFile(t, root, "config/tasks.yaml")

	t.Run("default name", func(t *testing.T) {
		paths := scanPaths(t, Options{Root: root})
		if len(paths) != 2 {
			t.Errorf("Scan() = %v, want .forge pruned but .stage kept", paths)
		}
	})

	t.Run("override name", func(t *testing.T) {
		paths := scanPaths(t, Options{Root: root, WorkDirName: ".stage"})
		if len(paths) != 2 || !contains(paths, kept) {
			t.Errorf("Scan() = %v, want .stage pruned but .forge kept", paths)
		}
	})
}

func TestScanner_ExtraRoots(t *testing.T) {
	root := t.TempDir()
	extra := t.TempDir()
	kept := mkFile(t, extra, "shared/channels.yaml")

	paths := scanPaths(t, Options{Root: root, ExtraRoots: []string{extra}})
	if len(paths) != 1 || paths[0] != kept {
		t.Errorf("Scan() = %v, want only %s", paths, kept)
	}
}

func TestScanner_DeduplicatesFirstWins(t *testing.T) {
	root := t.TempDir()
	file := mkFile(t, root, "config/tasks.yaml")

	configDir := filepath.Join(root, "config")
	paths := scanPaths(t, Options{Root: root, ExtraRoots: []string{configDir}})
	count := 0
	for _, p := range paths {
		if p == file {
			count++
		}
	}
	if count != 1 {
		t.Errorf("Scan() returned %s %d times, want once", file, count)
	}
}

func TestScanner_OrderIsDeterministic(t *testing.T) {
	root := t.TempDir()
	mkFile(t, root, "config/b.yaml")
	mkFile(t, root, "config/a.yaml")
	mkFile(t, root, "zz.yaml")
	mkFile(t, root, "aa.yaml")

	first := scanPaths(t, Options{Root: root})
	second := scanPaths(t, Options{Root: root})
	if len(first) != 4 {
		t.Fatalf("Scan() returned %d files, want 4", len(first))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("Scan() order not stable: %v vs %v", first, second)
		}
	}
	// Top level is scanned before config directories.
	if filepath.Base(first[0]) != "aa.yaml" || filepath.Base(first[1]) != "zz.yaml" {
		t.Errorf("Scan() top-level files out of order: %v", first)
	}
	if filepath.Base(first[2]) != "a.yaml" || filepath.Base(first[3]) != "b.yaml" {
		t.Errorf("Scan() config files out of order: %v", first)
	}
}

func TestScanner_MissingRootIsNotFatal(t *testing.T) {
	paths := scanPaths(t, Options{Root: filepath.Join(t.TempDir(), "absent")})
	if len(paths) != 0 {
		t.Errorf("Scan() = %v, want empty for missing root", paths)
	}
}

func TestScanner_CancelledContext(t *testing.T) {
	root := t.TempDir()
	mkFile(t, root, "tasks.yaml")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	scanner := NewScanner(Options{Root: root}, zerolog.Nop())
	if _, err := scanner.Scan(ctx); err == nil {
		t.Fatal("Scan() expected error for cancelled context")
	}
}
