package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Level orders log severities.
type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	}
	return fmt.Sprintf("LEVEL(%d)", int32(l))
}

// ParseLevel converts a config string (debug, info, warn, error) into a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// Logger writes component-tagged lines to a session-specific file in the
// log directory (~/.tabpilot/logs by default).
//
// The file is opened on first write so package-level loggers created in
// init functions still honor SetLogDirectory calls made later by main.
type Logger struct {
	component string
	mu        sync.Mutex
}

var (
	sessionID     string
	sessionIDOnce sync.Once

	dirMu     sync.Mutex
	logDir    string
	sink      *log.Logger
	sinkFile  *os.File
	sinkPath  string
	sinkErr   error
	sinkReady bool

	minLevel atomic.Int32
)

func init() {
	minLevel.Store(int32(LevelInfo))
}

// NewLogger creates a logger for a specific component.
func NewLogger(component string) *Logger {
	return &Logger{component: component}
}

// SetLogDirectory overrides the directory log files are written to.
// Loggers that already wrote keep their open file until Shutdown.
func SetLogDirectory(dir string) {
	dirMu.Lock()
	defer dirMu.Unlock()
	logDir = dir
}

// SetLevel sets the minimum level written by every logger.
func SetLevel(level Level) {
	minLevel.Store(int32(level))
}

// GetSessionID returns the id shared by every logger of this process.
func GetSessionID() string {
	sessionIDOnce.Do(func() {
		sessionID = uuid.New().String()
	})
	return sessionID
}

// GetLogPath returns the active log file path, or "" when logging fell back to stderr.
func GetLogPath() string {
	dirMu.Lock()
	defer dirMu.Unlock()
	return sinkPath
}

// Shutdown closes the shared log file. Safe to call multiple times.
func Shutdown() error {
	dirMu.Lock()
	defer dirMu.Unlock()

	var err error
	if sinkFile != nil {
		err = sinkFile.Close()
		sinkFile = nil
	}
	sink = nil
	sinkPath = ""
	sinkReady = false
	return err
}

// output returns the shared sink, opening the session file on first use.
func output() *log.Logger {
	dirMu.Lock()
	defer dirMu.Unlock()

	if sinkReady {
		return sink
	}
	sinkReady = true

	dir := logDir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			sinkErr = fmt.Errorf("failed to get home directory: %w", err)
			sink = fallback()
			return sink
		}
		dir = filepath.Join(home, ".tabpilot", "logs")
	}

	if err := os.MkdirAll(dir, 0750); err != nil {
		sinkErr = fmt.Errorf("failed to create log directory: %w", err)
		sink = fallback()
		return sink
	}

	path := filepath.Join(dir, GetSessionID()+"-tabpilot.log")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		sinkErr = fmt.Errorf("failed to open log file: %w", err)
		sink = fallback()
		return sink
	}

	sinkFile = file
	sinkPath = path
	sinkErr = nil
	sink = log.New(file, "", 0)
	return sink
}

func fallback() *log.Logger {
	l := log.New(os.Stderr, "", 0)
	l.Printf("WARNING: file logging unavailable (%v), falling back to stderr", sinkErr)
	return l
}

func (l *Logger) write(level Level, format string, v ...interface{}) {
	if int32(level) < minLevel.Load() {
		return
	}

	message := fmt.Sprintf(format, v...)
	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	entry := fmt.Sprintf("[%s] [%s] [%s] %s", timestamp, l.component, level, message)

	out := output()
	l.mu.Lock()
	defer l.mu.Unlock()
	out.Println(entry)
}

// Debugf logs a debug-level message
func (l *Logger) Debugf(format string, v ...interface{}) { l.write(LevelDebug, format, v...) }

// Infof logs an info-level message
func (l *Logger) Infof(format string, v ...interface{}) { l.write(LevelInfo, format, v...) }

// Printf is an alias for Infof.
func (l *Logger) Printf(format string, v ...interface{}) { l.write(LevelInfo, format, v...) }

// Warnf logs a warning-level message
func (l *Logger) Warnf(format string, v ...interface{}) { l.write(LevelWarn, format, v...) }

// Errorf logs an error-level message
func (l *Logger) Errorf(format string, v ...interface{}) { l.write(LevelError, format, v...) }

// Component returns the component tag.
func (l *Logger) Component() string {
	return l.component
}

// Writer returns an io.Writer that targets the same destination as the logger.
func (l *Logger) Writer() io.Writer {
	return output().Writer()
}
