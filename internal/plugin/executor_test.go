package plugin

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

// scriptPlugin writes a shell script hook into a temp dir.
func scriptPlugin(t *testing.T, name, script string) *Plugin {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, name+".sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}

	return &Plugin{
		Manifest: Manifest{
			Name:       name,
			Version:    "1.0.0",
			Executable: name + ".sh",
			Events:     []string{EventCapture},
		},
		Path:       dir,
		Executable: path,
	}
}

func testRequest() *Request {
	return &Request{
		Event:      EventCapture,
		PhotoID:    "photo-1",
		SessionID:  "session-1",
		CapturedAt: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		Distance:   42.5,
		Width:      640,
		Height:     480,
		Mirrored:   true,
	}
}

func TestExecutor_Execute(t *testing.T) {
	plugin := scriptPlugin(t, "hello", `echo '{"success":true,"data":{"message":"hello world"}}'
`)

	response, err := NewExecutor(5*time.Second).Execute(context.Background(), plugin, testRequest())
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	if !response.Success {
		t.Errorf("expected success=true, got false")
	}
	if response.Error != "" {
		t.Errorf("expected empty error, got %q", response.Error)
	}

	var data map[string]interface{}
	if err := json.Unmarshal(response.Data, &data); err != nil {
		t.Fatalf("failed to unmarshal response data: %v", err)
	}
	if data["message"] != "hello world" {
		t.Errorf("expected message 'hello world', got %v", data["message"])
	}
}

func TestExecutor_Execute_ReadsStdin(t *testing.T) {
	plugin := scriptPlugin(t, "echo", `INPUT=$(cat)
echo "{\"success\":true,\"data\":{\"received\":$INPUT}}"
`)

	response, err := NewExecutor(5*time.Second).Execute(context.Background(), plugin, testRequest())
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	var data struct {
		Received Request `json:"received"`
	}
	if err := json.Unmarshal(response.Data, &data); err != nil {
		t.Fatalf("failed to unmarshal response data: %v", err)
	}

	got := data.Received
	if got.Event != EventCapture || got.PhotoID != "photo-1" || got.SessionID != "session-1" {
		t.Errorf("unexpected request echoed back: %+v", got)
	}
	if got.Distance != 42.5 || got.Width != 640 || !got.Mirrored {
		t.Errorf("unexpected capture metadata: %+v", got)
	}
}

func TestExecutor_Timeout(t *testing.T) {
	plugin := scriptPlugin(t, "slow", `sleep 10
echo '{"success":true}'
`)

	start := time.Now()
	_, err := NewExecutor(100*time.Millisecond).Execute(context.Background(), plugin, testRequest())

	if err == nil {
		t.Fatal("expected timeout error, got nil")
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("expected timeout error, got: %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("timeout did not stop the hook")
	}
}

func TestExecutor_CancelledContext(t *testing.T) {
	plugin := scriptPlugin(t, "slow", `sleep 10
`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewExecutor(0).Execute(ctx, plugin, testRequest()); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestExecutor_Execute_ErrorResponse(t *testing.T) {
	plugin := scriptPlugin(t, "failing", `echo '{"success":false,"error":"printer offline"}'
`)

	response, err := NewExecutor(5*time.Second).Execute(context.Background(), plugin, testRequest())
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	if response.Success {
		t.Errorf("expected success=false, got true")
	}
	if response.Error != "printer offline" {
		t.Errorf("expected error 'printer offline', got %q", response.Error)
	}
}

func TestExecutor_Execute_InvalidJSON(t *testing.T) {
	plugin := scriptPlugin(t, "bad", `echo 'not valid json'
`)

	if _, err := NewExecutor(5*time.Second).Execute(context.Background(), plugin, testRequest()); err == nil {
		t.Fatal("expected error for invalid JSON, got nil")
	}
}

func TestExecutor_Execute_NonZeroExit(t *testing.T) {
	plugin := scriptPlugin(t, "exit", `echo "Error: something failed" >&2
exit 1
`)

	_, err := NewExecutor(5*time.Second).Execute(context.Background(), plugin, testRequest())
	if err == nil {
		t.Fatal("expected error for non-zero exit, got nil")
	}
	if !strings.Contains(err.Error(), "something failed") {
		t.Errorf("expected stderr in error, got: %v", err)
	}
}
