package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// setupTestDir points logging at a temp directory and resets global state
func setupTestDir(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	_ = Shutdown()
	SetLogDirectory(dir)
	SetLevel(LevelDebug)

	t.Cleanup(func() {
		_ = Shutdown()
		SetLogDirectory("")
		SetLevel(LevelInfo)
	})
	return dir
}

func readLog(t *testing.T) string {
	t.Helper()
	path := GetLogPath()
	if path == "" {
		t.Fatal("expected a log file to be open")
	}
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	return string(content)
}

func TestLoggerFormatting(t *testing.T) {
	setupTestDir(t)

	logger := NewLogger("test")
	logger.Printf("Test message %d", 123)
	logger.Debugf("Debug message")
	logger.Infof("Info message")
	logger.Warnf("Warning message")
	logger.Errorf("Error message")

	logContent := readLog(t)

	expectedPatterns := []string{
		"[test] [INFO] Test message 123",
		"[test] [DEBUG] Debug message",
		"[test] [INFO] Info message",
		"[test] [WARN] Warning message",
		"[test] [ERROR] Error message",
	}

	for _, pattern := range expectedPatterns {
		if !strings.Contains(logContent, pattern) {
			t.Errorf("Log content missing expected pattern: %q\nContent:\n%s", pattern, logContent)
		}
	}
}

func TestLevelThreshold(t *testing.T) {
	setupTestDir(t)
	SetLevel(LevelWarn)

	logger := NewLogger("filter")
	logger.Debugf("hidden debug")
	logger.Infof("hidden info")
	logger.Warnf("visible warn")

	logContent := readLog(t)
	if strings.Contains(logContent, "hidden") {
		t.Errorf("messages below threshold were written:\n%s", logContent)
	}
	if !strings.Contains(logContent, "visible warn") {
		t.Errorf("warn message missing:\n%s", logContent)
	}
}

func TestMultipleComponentsShareFile(t *testing.T) {
	dir := setupTestDir(t)

	NewLogger("component1").Infof("Message from component1")
	NewLogger("component2").Infof("Message from component2")

	if filepath.Dir(GetLogPath()) != dir {
		t.Errorf("log path %q not under %q", GetLogPath(), dir)
	}

	logContent := readLog(t)
	if !strings.Contains(logContent, "[component1]") {
		t.Error("Log missing component1 entries")
	}
	if !strings.Contains(logContent, "[component2]") {
		t.Error("Log missing component2 entries")
	}
}

func TestLogPathFormat(t *testing.T) {
	setupTestDir(t)

	NewLogger("test").Infof("hello")

	fileName := filepath.Base(GetLogPath())
	if !strings.HasSuffix(fileName, "-tabpilot.log") {
		t.Errorf("Expected log file to end with '-tabpilot.log', got %q", fileName)
	}
	sessionPart := strings.TrimSuffix(fileName, "-tabpilot.log")
	if sessionPart != GetSessionID() {
		t.Errorf("Expected session part %q, got %q", GetSessionID(), sessionPart)
	}
}

func TestGetSessionIDStable(t *testing.T) {
	if GetSessionID() != GetSessionID() {
		t.Error("Expected consistent session ID")
	}
}

func TestShutdownIdempotent(t *testing.T) {
	setupTestDir(t)
	NewLogger("test").Infof("x")

	if err := Shutdown(); err != nil {
		t.Errorf("First shutdown failed: %v", err)
	}
	if err := Shutdown(); err != nil {
		t.Errorf("Second shutdown failed: %v", err)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"loud", LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
