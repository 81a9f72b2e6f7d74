package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/livetemplate/blockdraft"
)

// captureStdout runs fn with os.Stdout redirected to a pipe and returns
// what it printed.
func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	fnErr := fn()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	buf.ReadFrom(r)
	return buf.String(), fnErr
}

func mustBlock(t *testing.T, typ blockdraft.BlockType, id string) blockdraft.Block {
	t.Helper()
	b, err := blockdraft.NewBlock(typ, id)
	if err != nil {
		t.Fatalf("NewBlock(%s) failed: %v", typ, err)
	}
	return b
}

// writeSampleTemplate writes a three-block template to dir and returns
// its path. The header and text blocks reference {{customerName}} twice
// and {{quoteTotal}} once.
func writeSampleTemplate(t *testing.T, dir string) string {
	t.Helper()

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	tpl := blockdraft.NewTemplate("tpl-cli", "Quote Follow-up", now)

	header := mustBlock(t, blockdraft.BlockHeader, "b1")
	header.Content = "Hi {{customerName}}"
	text := mustBlock(t, blockdraft.BlockText, "b2")
	text.Content = "Your total is {{quoteTotal}}, {{customerName}}."
	button := mustBlock(t, blockdraft.BlockButton, "b3")
	tpl.Blocks = append(tpl.Blocks, header, text, button)

	data, err := blockdraft.Encode(tpl)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	path := filepath.Join(dir, "followup.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write template: %v", err)
	}
	return path
}

func TestValidateCommandValid(t *testing.T) {
	path := writeSampleTemplate(t, t.TempDir())

	output, err := captureStdout(t, func() error {
		return ValidateCommand([]string{path})
	})
	if err != nil {
		t.Fatalf("ValidateCommand failed: %v", err)
	}
	if !strings.Contains(output, "✓") {
		t.Errorf("expected a ✓ marker, got: %s", output)
	}
	if !strings.Contains(output, "All 1 file(s) valid") {
		t.Errorf("expected summary line, got: %s", output)
	}
}

func TestValidateCommandInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(path, []byte(`{"id": 42}`), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	output, err := captureStdout(t, func() error {
		return ValidateCommand([]string{path})
	})
	if err == nil {
		t.Fatal("expected validation to fail")
	}
	if !strings.Contains(err.Error(), "failed validation") {
		t.Errorf("unexpected error: %v", err)
	}
	if !strings.Contains(output, "❌") {
		t.Errorf("expected a ❌ marker, got: %s", output)
	}
	if !strings.Contains(output, "Invalid template format") {
		t.Errorf("expected the invalid-format message, got: %s", output)
	}
}

func TestValidateCommandDirectory(t *testing.T) {
	dir := t.TempDir()
	writeSampleTemplate(t, dir)
	if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte(`{broken`), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "note.md"), []byte("# Follow up\n\nThanks for your time.\n"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	// Underscore-prefixed directories are skipped, broken or not
	if err := os.MkdirAll(filepath.Join(dir, "_drafts"), 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "_drafts", "wip.json"), []byte(`{broken`), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	output, err := captureStdout(t, func() error {
		return ValidateCommand([]string{dir})
	})
	if err == nil {
		t.Fatal("expected validation to fail")
	}
	if !strings.Contains(err.Error(), "1 of 3 file(s) failed") {
		t.Errorf("unexpected error: %v", err)
	}
	if !strings.Contains(output, "Failed to parse template file") {
		t.Errorf("expected the parse-failure message, got: %s", output)
	}
	if strings.Contains(output, "wip.json") {
		t.Errorf("_drafts should be skipped, got: %s", output)
	}
}

func TestValidateCommandMissingPath(t *testing.T) {
	err := ValidateCommand([]string{"/nonexistent/templates"})
	if err == nil {
		t.Fatal("expected error for missing path")
	}
	if !strings.Contains(err.Error(), "does not exist") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestExportCommandHTML(t *testing.T) {
	dir := t.TempDir()
	path := writeSampleTemplate(t, dir)
	out := filepath.Join(dir, "out.html")

	_, err := captureStdout(t, func() error {
		return ExportCommand([]string{"--format=html", "--out=" + out, path})
	})
	if err != nil {
		t.Fatalf("ExportCommand failed: %v", err)
	}

	html, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	doc := string(html)
	if !strings.Contains(doc, "<!DOCTYPE html>") {
		t.Error("output is not an HTML document")
	}
	if !strings.Contains(doc, "Hi {{customerName}}") {
		t.Error("variables should stay literal without --data")
	}
	if strings.Contains(doc, "prefers-color-scheme") {
		t.Error("portable export should not carry the dark-mode media query")
	}
}

func TestExportCommandWithData(t *testing.T) {
	dir := t.TempDir()
	path := writeSampleTemplate(t, dir)
	dataPath := filepath.Join(dir, "sample.json")
	if err := os.WriteFile(dataPath, []byte(`{"customerName": "Acme Corp"}`), 0644); err != nil {
		t.Fatalf("failed to write data file: %v", err)
	}
	out := filepath.Join(dir, "out.html")

	_, err := captureStdout(t, func() error {
		return ExportCommand([]string{"--data=" + dataPath, "--out=" + out, path})
	})
	if err != nil {
		t.Fatalf("ExportCommand failed: %v", err)
	}

	html, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	doc := string(html)
	if !strings.Contains(doc, "Hi Acme Corp") {
		t.Error("data values were not substituted")
	}
	if !strings.Contains(doc, "{{quoteTotal}}") {
		t.Error("missing variables should stay literal")
	}
}

func TestExportCommandJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeSampleTemplate(t, dir)
	out := filepath.Join(dir, "backup.json")

	_, err := captureStdout(t, func() error {
		return ExportCommand([]string{"--format=json", "--out=" + out, path})
	})
	if err != nil {
		t.Fatalf("ExportCommand failed: %v", err)
	}

	raw, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	tpl, err := blockdraft.DecodeTemplate(raw, out)
	if err != nil {
		t.Fatalf("exported JSON does not decode: %v", err)
	}
	if tpl.ID != "tpl-cli" || len(tpl.Blocks) != 3 {
		t.Errorf("unexpected roundtrip result: id=%s blocks=%d", tpl.ID, len(tpl.Blocks))
	}
}

func TestExportCommandTheme(t *testing.T) {
	dir := t.TempDir()
	path := writeSampleTemplate(t, dir)
	out := filepath.Join(dir, "dark.html")

	_, err := captureStdout(t, func() error {
		return ExportCommand([]string{"--theme=dark", "--out=" + out, path})
	})
	if err != nil {
		t.Fatalf("ExportCommand failed: %v", err)
	}

	html, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	if !strings.Contains(string(html), "theme-dark") {
		t.Error("expected a preview document with the dark theme")
	}

	if err := ExportCommand([]string{"--theme=neon", "--out=" + out, path}); err == nil {
		t.Error("expected error for invalid theme")
	}
}

func TestExportCommandOverwriteGuard(t *testing.T) {
	dir := t.TempDir()
	path := writeSampleTemplate(t, dir)

	err := ExportCommand([]string{"--format=json", "--out=" + path, path})
	if err == nil {
		t.Fatal("expected overwrite guard to trip")
	}
	if !strings.Contains(err.Error(), "overwrite") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestBlocksCommandJSON(t *testing.T) {
	path := writeSampleTemplate(t, t.TempDir())

	output, err := captureStdout(t, func() error {
		return BlocksCommand([]string{path, "--format=json"})
	})
	if err != nil {
		t.Fatalf("BlocksCommand failed: %v", err)
	}

	var rows []map[string]interface{}
	if err := json.Unmarshal([]byte(output), &rows); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, output)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0]["type"] != "header" || rows[0]["position"] != float64(1) {
		t.Errorf("unexpected first row: %v", rows[0])
	}
	if rows[0]["vars"] != "customerName" {
		t.Errorf("expected vars column, got %v", rows[0]["vars"])
	}
	if rows[1]["vars"] != "quoteTotal,customerName" {
		t.Errorf("expected ordered occurrences, got %v", rows[1]["vars"])
	}
	if _, ok := rows[2]["linkUrl"]; !ok {
		t.Errorf("button row should carry its link URL: %v", rows[2])
	}
}

func TestBlocksCommandFilter(t *testing.T) {
	path := writeSampleTemplate(t, t.TempDir())

	output, err := captureStdout(t, func() error {
		return BlocksCommand([]string{path, "--format=json", "--filter=type=button"})
	})
	if err != nil {
		t.Fatalf("BlocksCommand failed: %v", err)
	}
	var rows []map[string]interface{}
	if err := json.Unmarshal([]byte(output), &rows); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if len(rows) != 1 || rows[0]["id"] != "b3" {
		t.Errorf("filter type=button: got %v", rows)
	}

	output, err = captureStdout(t, func() error {
		return BlocksCommand([]string{path, "--format=json", "--filter=type!=button"})
	})
	if err != nil {
		t.Fatalf("BlocksCommand failed: %v", err)
	}
	rows = nil
	if err := json.Unmarshal([]byte(output), &rows); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("filter type!=button: expected 2 rows, got %d", len(rows))
	}
}

func TestBlocksCommandLimit(t *testing.T) {
	path := writeSampleTemplate(t, t.TempDir())

	output, err := captureStdout(t, func() error {
		return BlocksCommand([]string{path, "--format=json", "--limit=2"})
	})
	if err != nil {
		t.Fatalf("BlocksCommand failed: %v", err)
	}
	var rows []map[string]interface{}
	if err := json.Unmarshal([]byte(output), &rows); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("expected 2 rows with --limit=2, got %d", len(rows))
	}
}

func TestBlocksCommandTable(t *testing.T) {
	path := writeSampleTemplate(t, t.TempDir())

	output, err := captureStdout(t, func() error {
		return BlocksCommand([]string{path})
	})
	if err != nil {
		t.Fatalf("BlocksCommand failed: %v", err)
	}
	if !strings.Contains(output, "position") || !strings.Contains(output, " | ") {
		t.Errorf("expected a table header, got: %s", output)
	}
	if !strings.Contains(output, "3 item(s)") {
		t.Errorf("expected a row count, got: %s", output)
	}
}

func TestBlocksCommandUsage(t *testing.T) {
	err := BlocksCommand([]string{"--format=json"})
	if err == nil {
		t.Fatal("expected usage error without a file")
	}
	if !strings.Contains(err.Error(), "usage:") {
		t.Errorf("expected usage message, got: %v", err)
	}
}

func TestVarsCommandOrder(t *testing.T) {
	path := writeSampleTemplate(t, t.TempDir())

	output, err := captureStdout(t, func() error {
		return VarsCommand([]string{path, "--format=json"})
	})
	if err != nil {
		t.Fatalf("VarsCommand failed: %v", err)
	}

	var rows []map[string]interface{}
	if err := json.Unmarshal([]byte(output), &rows); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, output)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 occurrences, got %d", len(rows))
	}

	var names []string
	for _, row := range rows {
		names = append(names, row["name"].(string))
	}
	// Occurrences in document order, duplicates preserved
	want := []string{"customerName", "quoteTotal", "customerName"}
	for i, name := range want {
		if names[i] != name {
			t.Fatalf("occurrence order = %v, want %v", names, want)
		}
	}
	if rows[0]["blockId"] != "b1" || rows[2]["blockId"] != "b2" {
		t.Errorf("unexpected block attribution: %v", rows)
	}
}

func TestVarsCommandSampleValues(t *testing.T) {
	dir := t.TempDir()
	path := writeSampleTemplate(t, dir)
	configContent := "variables:\n  sample:\n    customerName: Acme Corp\n"
	if err := os.WriteFile(filepath.Join(dir, "blockdraft.yaml"), []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	output, err := captureStdout(t, func() error {
		return VarsCommand([]string{path, "--format=json"})
	})
	if err != nil {
		t.Fatalf("VarsCommand failed: %v", err)
	}

	var rows []map[string]interface{}
	if err := json.Unmarshal([]byte(output), &rows); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if rows[0]["sample"] != "Acme Corp" {
		t.Errorf("expected sample value from config, got %v", rows[0])
	}
	if _, ok := rows[1]["sample"]; ok {
		t.Errorf("quoteTotal has no sample value, got %v", rows[1])
	}
}

func TestSendCommandFileSink(t *testing.T) {
	dir := t.TempDir()
	path := writeSampleTemplate(t, dir)
	delivered := filepath.Join(dir, "delivered.html")
	configContent := fmt.Sprintf("sinks:\n  archive:\n    type: file\n    path: %s\n    format: html\n", delivered)
	if err := os.WriteFile(filepath.Join(dir, "blockdraft.yaml"), []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	output, err := captureStdout(t, func() error {
		return SendCommand([]string{"--sink=archive", path})
	})
	if err != nil {
		t.Fatalf("SendCommand failed: %v", err)
	}
	if !strings.Contains(output, "Delivered") {
		t.Errorf("expected delivery confirmation, got: %s", output)
	}

	html, err := os.ReadFile(delivered)
	if err != nil {
		t.Fatalf("sink did not write the artifact: %v", err)
	}
	if !strings.Contains(string(html), "<!DOCTYPE html>") {
		t.Error("delivered artifact is not an HTML document")
	}
}

func TestSendCommandNoSinks(t *testing.T) {
	dir := t.TempDir()
	path := writeSampleTemplate(t, dir)

	err := SendCommand([]string{path})
	if err == nil {
		t.Fatal("expected error without configured sinks")
	}
	if !strings.Contains(err.Error(), "no sinks configured") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSendCommandUnknownSink(t *testing.T) {
	dir := t.TempDir()
	path := writeSampleTemplate(t, dir)
	configContent := fmt.Sprintf("sinks:\n  archive:\n    type: file\n    path: %s\n", filepath.Join(dir, "out.json"))
	if err := os.WriteFile(filepath.Join(dir, "blockdraft.yaml"), []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	err := SendCommand([]string{"--sink=carrier-pigeon", path})
	if err == nil {
		t.Fatal("expected error for unknown sink")
	}
	if !strings.Contains(err.Error(), "not found") || !strings.Contains(err.Error(), "archive") {
		t.Errorf("error should name available sinks: %v", err)
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		input string
		want  interface{}
	}{
		{"true", true},
		{"false", false},
		{"42", int64(42)},
		{"3.14", 3.14},
		{"123.0", 123.0},
		{"1e3", 1000.0},
		{"hello", "hello"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := parseValue(tt.input); got != tt.want {
			t.Errorf("parseValue(%q) = %v (%T), want %v (%T)", tt.input, got, got, tt.want, tt.want)
		}
	}
}

func TestApplyFilter(t *testing.T) {
	rows := []map[string]interface{}{
		{"id": "b1", "type": "header"},
		{"id": "b2", "type": "text"},
		{"id": "b3", "type": "text", "vars": "customerName"},
	}

	if got := applyFilter(rows, "type=text"); len(got) != 2 {
		t.Errorf("type=text: expected 2 rows, got %d", len(got))
	}
	if got := applyFilter(rows, "type!=text"); len(got) != 1 || got[0]["id"] != "b1" {
		t.Errorf("type!=text: got %v", got)
	}
	// Rows missing the field only match negated filters
	if got := applyFilter(rows, "vars=customerName"); len(got) != 1 {
		t.Errorf("vars=customerName: expected 1 row, got %d", len(got))
	}
	if got := applyFilter(rows, "vars!=customerName"); len(got) != 2 {
		t.Errorf("vars!=customerName: expected 2 rows, got %d", len(got))
	}
	// Malformed filters pass everything through
	if got := applyFilter(rows, "nonsense"); len(got) != 3 {
		t.Errorf("malformed filter: expected 3 rows, got %d", len(got))
	}
	if got := applyFilter(rows, ""); len(got) != 3 {
		t.Errorf("empty filter: expected 3 rows, got %d", len(got))
	}
}

func TestParseListFlags(t *testing.T) {
	opts, positional := parseListFlags([]string{"welcome.json", "--format=csv", "--filter=type=header", "--limit=5"})
	if opts.format != "csv" || opts.filter != "type=header" || opts.limit != 5 {
		t.Errorf("unexpected options: %+v", opts)
	}
	if len(positional) != 1 || positional[0] != "welcome.json" {
		t.Errorf("unexpected positional args: %v", positional)
	}

	// Invalid values fall back to defaults
	opts, _ = parseListFlags([]string{"--format=yaml", "--limit=banana"})
	if opts.format != "table" {
		t.Errorf("invalid format should keep the default, got %q", opts.format)
	}
	if opts.limit != 0 {
		t.Errorf("invalid limit should be ignored, got %d", opts.limit)
	}
}
