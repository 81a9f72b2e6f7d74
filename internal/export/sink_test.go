package export

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/livetemplate/blockdraft/internal/config"
)

func TestFileSink(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "template.html")

	sink, err := NewFileSink(path, FormatHTML)
	if err != nil {
		t.Fatalf("NewFileSink() error = %v", err)
	}
	defer sink.Close()

	if err := sink.Send(context.Background(), exportTemplate(t)); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading exported file: %v", err)
	}
	if !strings.HasPrefix(string(data), "<!DOCTYPE html>") {
		t.Error("exported file is not an HTML document")
	}

	// A second send replaces the artifact.
	if err := sink.Send(context.Background(), exportTemplate(t)); err != nil {
		t.Fatalf("second Send() error = %v", err)
	}
}

func TestFileSinkRequiresPath(t *testing.T) {
	if _, err := NewFileSink("", FormatJSON); err == nil {
		t.Error("NewFileSink() accepted an empty path")
	}
}

func TestStdoutSink(t *testing.T) {
	var buf bytes.Buffer
	sink := &StdoutSink{out: &buf, format: FormatJSON}

	if err := sink.Send(context.Background(), exportTemplate(t)); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	out := buf.String()
	if !strings.HasSuffix(out, "\n") {
		t.Error("output should end with a newline")
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Errorf("output is not valid JSON: %v", err)
	}
}

func TestWebhookSink(t *testing.T) {
	var gotContentType, gotSecret, gotTemplate string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotSecret = r.Header.Get("X-Blockdraft-Secret")
		gotTemplate = r.Header.Get("X-Blockdraft-Template")
		buf := new(bytes.Buffer)
		buf.ReadFrom(r.Body)
		gotBody = buf.Bytes()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink, err := NewWebhookSink(srv.URL, "hunter2", FormatJSON, true)
	if err != nil {
		t.Fatalf("NewWebhookSink() error = %v", err)
	}
	defer sink.Close()

	if err := sink.Send(context.Background(), exportTemplate(t)); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", gotContentType)
	}
	if gotSecret != "hunter2" {
		t.Errorf("X-Blockdraft-Secret = %q, want hunter2", gotSecret)
	}
	if gotTemplate != "tpl-1" {
		t.Errorf("X-Blockdraft-Template = %q, want tpl-1", gotTemplate)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(gotBody, &decoded); err != nil {
		t.Errorf("delivered body is not valid JSON: %v", err)
	}
}

func TestWebhookSinkBlocksInternalTargets(t *testing.T) {
	blocked := []string{
		"http://127.0.0.1:9999/hook",
		"http://localhost/hook",
		"http://169.254.169.254/latest/meta-data",
		"http://10.0.0.5/hook",
	}
	for _, u := range blocked {
		if _, err := NewWebhookSink(u, "", FormatJSON, false); err == nil {
			t.Errorf("NewWebhookSink(%q) accepted an internal target", u)
		}
	}
}

func TestWebhookSinkServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	sink, err := NewWebhookSink(srv.URL, "", FormatJSON, true)
	if err != nil {
		t.Fatalf("NewWebhookSink() error = %v", err)
	}

	err = sink.Send(context.Background(), exportTemplate(t))
	if err == nil {
		t.Fatal("Send() succeeded against a failing endpoint")
	}
	if !strings.Contains(err.Error(), "502") {
		t.Errorf("error %q should mention the status code", err)
	}
}

func TestEmailSinkValidation(t *testing.T) {
	if _, err := NewEmailSinkWithConfig("", "from@example.com", "", FormatHTML, "smtp.example.com", "", "", ""); err == nil {
		t.Error("accepted empty recipient")
	}
	if _, err := NewEmailSinkWithConfig("to@example.com", "", "", FormatHTML, "smtp.example.com", "", "", ""); err == nil {
		t.Error("accepted empty sender")
	}
	if _, err := NewEmailSinkWithConfig("to@example.com", "from@example.com", "", FormatHTML, "", "", "", ""); err == nil {
		t.Error("accepted empty SMTP host")
	}

	sink, err := NewEmailSinkWithConfig("to@example.com", "from@example.com", "", FormatHTML, "smtp.example.com", "", "", "")
	if err != nil {
		t.Fatalf("NewEmailSinkWithConfig() error = %v", err)
	}
	if sink.To() != "to@example.com" {
		t.Errorf("To() = %q", sink.To())
	}
}

func TestEmailSinkEnvironment(t *testing.T) {
	t.Setenv("SMTP_HOST", "")
	t.Setenv("SMTP_FROM", "")

	if _, err := NewEmailSink("to@example.com", "", FormatHTML); err == nil {
		t.Error("expected error when SMTP_HOST is not set")
	}

	t.Setenv("SMTP_HOST", "smtp.example.com")
	if _, err := NewEmailSink("to@example.com", "", FormatHTML); err == nil {
		t.Error("expected error when SMTP_FROM is not set")
	}

	t.Setenv("SMTP_FROM", "noreply@example.com")
	sink, err := NewEmailSink("to@example.com", "Your template", FormatHTML)
	if err != nil {
		t.Fatalf("NewEmailSink() error = %v", err)
	}
	if sink.smtpPort != "587" {
		t.Errorf("smtpPort = %q, want default 587", sink.smtpPort)
	}
}

func TestEmailSinkBuildMessage(t *testing.T) {
	sink, err := NewEmailSinkWithConfig("to@example.com", "from@example.com", "", FormatHTML, "smtp.example.com", "2525", "", "")
	if err != nil {
		t.Fatal(err)
	}

	tpl := exportTemplate(t)
	msg := string(sink.buildMessage(tpl, []byte("<html>body</html>")))

	if !strings.Contains(msg, "Subject: Quote Follow-up\r\n") {
		t.Error("empty subject should fall back to the template name")
	}
	if !strings.Contains(msg, "Content-Type: text/html; charset=UTF-8\r\n") {
		t.Error("HTML format should use an HTML content type")
	}
	if !strings.HasSuffix(msg, "\r\n<html>body</html>") {
		t.Error("body should follow the blank header separator")
	}
}

func TestNewFromConfig(t *testing.T) {
	dir := t.TempDir()

	sink, err := NewFromConfig("archive", config.SinkConfig{Type: "file", Path: filepath.Join(dir, "t.json")})
	if err != nil {
		t.Fatalf("file sink: %v", err)
	}
	if sink.Name() != "file" {
		t.Errorf("Name() = %q, want file", sink.Name())
	}

	sink, err = NewFromConfig("pipe", config.SinkConfig{Type: "stdout", Format: "html"})
	if err != nil {
		t.Fatalf("stdout sink: %v", err)
	}
	if sink.Name() != "stdout" {
		t.Errorf("Name() = %q, want stdout", sink.Name())
	}

	sink, err = NewFromConfig("crm", config.SinkConfig{Type: "webhook", URL: "https://hooks.example.com/templates"})
	if err != nil {
		t.Fatalf("webhook sink: %v", err)
	}
	if sink.Name() != "webhook" {
		t.Errorf("Name() = %q, want webhook", sink.Name())
	}

	sink, err = NewFromConfig("team", config.SinkConfig{Type: "slack", Channel: "#quotes", URL: "https://hooks.slack.com/services/T123/B456/abc"})
	if err != nil {
		t.Fatalf("slack sink: %v", err)
	}
	if sink.Name() != "slack" {
		t.Errorf("Name() = %q, want slack", sink.Name())
	}

	if _, err := NewFromConfig("bad", config.SinkConfig{Type: "carrier-pigeon"}); err == nil {
		t.Error("accepted an unsupported sink type")
	}
	if _, err := NewFromConfig("bad", config.SinkConfig{Type: "stdout", Format: "xml"}); err == nil {
		t.Error("accepted an unsupported format")
	}
}

func TestRegistrySendAll(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "a.json")
	second := filepath.Join(dir, "b.html")

	r := NewRegistry()
	sinkA, err := NewFileSink(first, FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	sinkB, err := NewFileSink(second, FormatHTML)
	if err != nil {
		t.Fatal(err)
	}
	r.Register("a", sinkA)
	r.Register("b", sinkB)
	defer r.Close()

	if err := r.SendAll(context.Background(), exportTemplate(t)); err != nil {
		t.Fatalf("SendAll() error = %v", err)
	}
	for _, p := range []string{first, second} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("sink output %s missing: %v", p, err)
		}
	}

	if _, ok := r.Get("a"); !ok {
		t.Error("Get() lost a registered sink")
	}
	if len(r.Names()) != 2 {
		t.Errorf("Names() = %v, want 2 entries", r.Names())
	}
}
