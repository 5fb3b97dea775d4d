package test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/mickamy/planview/internal/model"
	"github.com/mickamy/planview/internal/normalizer"
	"github.com/mickamy/planview/internal/parser"
)

var (
	rootPath string
	once     sync.Once
)

// RootPath resolves the repository root (where go.mod resides).
func RootPath(t *testing.T) string {
	t.Helper()
	once.Do(func() {
		wd, err := os.Getwd()
		if err != nil {
			t.Fatalf("getwd: %v", err)
		}
		for {
			if _, err := os.Stat(filepath.Join(wd, "go.mod")); err == nil {
				rootPath = wd
				break
			}
			next := filepath.Dir(wd)
			if next == wd {
				t.Fatalf("go.mod not found from %s", wd)
			}
			wd = next
		}
	})
	return rootPath
}

// SamplePath returns the path of a file under samples/.
func SamplePath(t *testing.T, rel string) string {
	t.Helper()
	return filepath.Join(RootPath(t), "samples", rel)
}

// LoadDocument parses a sample plan in any supported format.
func LoadDocument(t *testing.T, rel string) *model.Document {
	t.Helper()
	f, err := os.Open(SamplePath(t, rel))
	if err != nil {
		t.Fatalf("open plan: %v", err)
	}
	defer func() { _ = f.Close() }()

	doc, err := parser.Parse(f)
	if err != nil {
		t.Fatalf("parse plan: %v", err)
	}
	return doc
}

// LoadSample parses and normalizes a sample plan.
func LoadSample(t *testing.T, rel string) (*model.PlanNode, *model.PlanStats) {
	t.Helper()
	root, stats := normalizer.BuildTree(LoadDocument(t, rel))
	if root == nil {
		t.Fatalf("sample %s has no plan", rel)
	}
	return root, stats
}
