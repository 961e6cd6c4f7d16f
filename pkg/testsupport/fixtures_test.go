package testsupport

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFixture(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "test.txt")
	testContent := []byte("test fixture content")

	if err := os.WriteFile(testFile, testContent, 0o644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	result := LoadFixture(t, testFile)
	if string(result) != string(testContent) {
		t.Errorf("expected %q, got %q", testContent, result)
	}
}

func TestLoadFixtureJSON(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "page.json")
	jsonData, err := json.Marshal(map[string]any{
		"items": []string{"a", "b"},
		"total": 35,
	})
	if err != nil {
		t.Fatalf("failed to marshal test data: %v", err)
	}
	if err := os.WriteFile(testFile, jsonData, 0o644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	var result struct {
		Items []string `json:"items"`
		Total int      `json:"total"`
	}
	LoadFixtureJSON(t, testFile, &result)

	if result.Total != 35 || len(result.Items) != 2 {
		t.Errorf("unexpected fixture content %+v", result)
	}
}

func TestCompareWithGolden(t *testing.T) {
	t.Setenv(UpdateGoldenEnv, "")

	tmpDir := t.TempDir()
	goldenFile := filepath.Join(tmpDir, "nested", "out.golden")

	// first run creates the file
	CompareWithGolden(t, goldenFile, []byte("expected output\n"))
	data, err := os.ReadFile(goldenFile)
	if err != nil {
		t.Fatalf("expected golden file to be created: %v", err)
	}
	if string(data) != "expected output\n" {
		t.Errorf("unexpected golden content %q", data)
	}

	// trailing whitespace is not significant
	CompareWithGolden(t, goldenFile, []byte("expected output"))
}

func TestCompareWithGolden_Update(t *testing.T) {
	t.Setenv(UpdateGoldenEnv, "1")

	goldenFile := filepath.Join(t.TempDir(), "out.golden")
	WriteGolden(t, goldenFile, []byte("old"))

	CompareWithGolden(t, goldenFile, []byte("new"))

	data, err := os.ReadFile(goldenFile)
	if err != nil {
		t.Fatalf("failed to read golden file: %v", err)
	}
	if string(data) != "new" {
		t.Errorf("expected golden file to be rewritten, got %q", data)
	}
}

func TestFixtureServer(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "page.json")
	if err := os.WriteFile(testFile, []byte(`{"items":[],"total":0}`), 0o644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	srv := FixtureServer(t, testFile)

	resp, err := http.Get(srv.URL + "/students?page=1")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %q", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != `{"items":[],"total":0}` {
		t.Errorf("unexpected body %q", body)
	}
}

func TestPaths(t *testing.T) {
	if got := FixturePath("students.json"); got != filepath.Join("testdata", "students.json") {
		t.Errorf("unexpected fixture path %q", got)
	}
	if got := GoldenPath("list.golden"); got != filepath.Join("testdata", "golden", "list.golden") {
		t.Errorf("unexpected golden path %q", got)
	}
}
