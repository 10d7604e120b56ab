// Package logger provides the bot's logging system on top of logrus.
// Entries go to a colored console, to log files and, optionally, to
// Discord webhooks.
package logger

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
)

// LogLevel represents the severity level of a log message
type LogLevel int

const (
	LevelCritical LogLevel = iota
	LevelError
	LevelWarn
	LevelSuccess
	LevelInfo
	LevelDebug
	LevelSystem
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case LevelCritical:
		return "CRITICAL"
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelSuccess:
		return "SUCCESS"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	case LevelSystem:
		return "SYSTEM"
	default:
		return "UNKNOWN"
	}
}

// Color returns the ANSI color code for the log level
func (l LogLevel) Color() string {
	switch l {
	case LevelCritical:
		return "\033[1;31m"
	case LevelError:
		return "\033[31m"
	case LevelWarn:
		return "\033[33m"
	case LevelSuccess:
		return "\033[32m"
	case LevelInfo:
		return "\033[36m"
	case LevelDebug:
		return "\033[35m"
	case LevelSystem:
		return "\033[34m"
	default:
		return colorReset
	}
}

// DiscordColor returns the Discord embed color for the log level
func (l LogLevel) DiscordColor() int {
	switch l {
	case LevelCritical, LevelError:
		return 0xFF0000
	case LevelWarn:
		return 0xFFFF00
	case LevelSuccess:
		return 0x00FF00
	case LevelInfo:
		return 0x0000FF
	case LevelDebug:
		return 0x800080
	case LevelSystem:
		return 0x808080
	default:
		return 0xFFFFFF
	}
}

// logrusLevel maps our level onto logrus so LOG_LEVEL filtering works.
// Critical uses FatalLevel through Entry.Log, which never exits.
func (l LogLevel) logrusLevel() logrus.Level {
	switch l {
	case LevelCritical:
		return logrus.FatalLevel
	case LevelError:
		return logrus.ErrorLevel
	case LevelWarn:
		return logrus.WarnLevel
	case LevelDebug:
		return logrus.DebugLevel
	default:
		return logrus.InfoLevel
	}
}

const (
	colorReset = "\033[0m"

	levelKey  = "_level"
	prefixKey = "_prefix"

	timeLayout = "2006-01-02 15:04:05"
)

// Logger is the main logging structure
type Logger struct {
	logrus          *logrus.Logger
	errorWebhookURL string
	logsWebhookURL  string
	logFile         *os.File
	errorFile       *os.File
	httpClient      *http.Client
	mu              sync.Mutex
}

var (
	logger *Logger
	once   sync.Once
)

// Init initializes the global logger instance
func Init(errorWebhook, logsWebhook string) *Logger {
	once.Do(func() {
		logger = NewLogger(errorWebhook, logsWebhook)
	})
	return logger
}

// Get returns the global logger instance
func Get() *Logger {
	once.Do(func() {
		logger = NewLogger("", "")
	})
	return logger
}

// NewLogger creates a new Logger writing to stdout and ./logs
func NewLogger(errorWebhook, logsWebhook string) *Logger {
	l := &Logger{
		logrus:          logrus.New(),
		errorWebhookURL: errorWebhook,
		logsWebhookURL:  logsWebhook,
		httpClient:      &http.Client{Timeout: 5 * time.Second},
	}

	l.logrus.SetOutput(os.Stdout)
	l.logrus.SetFormatter(&lineFormatter{colors: true})
	l.logrus.SetLevel(logrus.DebugLevel)

	logsDir := filepath.Join(".", "logs")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		fmt.Printf("Error creating logs directory: %v\n", err)
	}

	var err error
	l.logFile, err = os.OpenFile(filepath.Join(logsDir, "combined.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		fmt.Printf("Error opening combined log file: %v\n", err)
	}

	l.errorFile, err = os.OpenFile(filepath.Join(logsDir, "error.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		fmt.Printf("Error opening error log file: %v\n", err)
	}

	l.logrus.AddHook(&fileHook{owner: l, formatter: &lineFormatter{}})
	if errorWebhook != "" || logsWebhook != "" {
		l.logrus.AddHook(&webhookHook{owner: l})
	}

	return l
}

// SetLevel sets the minimum level by name (debug, info, warn, error).
// Unknown names are ignored.
func (l *Logger) SetLevel(name string) {
	if name == "" {
		return
	}
	lvl, err := logrus.ParseLevel(strings.ToLower(name))
	if err != nil {
		return
	}
	l.logrus.SetLevel(lvl)
}

// SetOutput redirects console output.
func (l *Logger) SetOutput(w io.Writer) {
	l.logrus.SetOutput(w)
}

// SetColors toggles ANSI colors on the console output.
func (l *Logger) SetColors(enabled bool) {
	l.logrus.SetFormatter(&lineFormatter{colors: enabled})
}

func (l *Logger) log(level LogLevel, message, prefix string, fields logrus.Fields) {
	data := make(logrus.Fields, len(fields)+2)
	for k, v := range fields {
		data[k] = v
	}
	data[levelKey] = level
	data[prefixKey] = prefix
	l.logrus.WithFields(data).Log(level.logrusLevel(), message)
}

// Close closes the log files
func (l *Logger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.logFile != nil {
		l.logFile.Close()
		l.logFile = nil
	}
	if l.errorFile != nil {
		l.errorFile.Close()
		l.errorFile = nil
	}
}

// lineFormatter renders "[ts] [LEVEL] [prefix]: message key=value"
type lineFormatter struct {
	colors bool
}

func levelOf(e *logrus.Entry) LogLevel {
	if lvl, ok := e.Data[levelKey].(LogLevel); ok {
		return lvl
	}
	switch e.Level {
	case logrus.PanicLevel, logrus.FatalLevel:
		return LevelCritical
	case logrus.ErrorLevel:
		return LevelError
	case logrus.WarnLevel:
		return LevelWarn
	case logrus.DebugLevel, logrus.TraceLevel:
		return LevelDebug
	default:
		return LevelInfo
	}
}

func (f *lineFormatter) Format(e *logrus.Entry) ([]byte, error) {
	level := levelOf(e)
	prefix, _ := e.Data[prefixKey].(string)

	var b bytes.Buffer
	b.WriteString("[" + e.Time.Format(timeLayout) + "] [")
	if f.colors {
		b.WriteString(level.Color() + level.String() + colorReset)
	} else {
		b.WriteString(level.String())
	}
	b.WriteString("] [" + prefix + "]: " + e.Message)

	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		if k != levelKey && k != prefixKey {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.Data[k])
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

// fileHook copies every entry to combined.log and errors to error.log
type fileHook struct {
	owner     *Logger
	formatter *lineFormatter
}

func (h *fileHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *fileHook) Fire(e *logrus.Entry) error {
	line, err := h.formatter.Format(e)
	if err != nil {
		return err
	}

	h.owner.mu.Lock()
	defer h.owner.mu.Unlock()
	if h.owner.logFile != nil {
		h.owner.logFile.Write(line)
	}
	if levelOf(e) <= LevelError && h.owner.errorFile != nil {
		h.owner.errorFile.Write(line)
	}
	return nil
}

// webhookHook forwards entries to the configured Discord webhooks
type webhookHook struct {
	owner *Logger
}

func (h *webhookHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *webhookHook) Fire(e *logrus.Entry) error {
	level := levelOf(e)
	prefix, _ := e.Data[prefixKey].(string)

	url := h.owner.logsWebhookURL
	if level <= LevelError {
		url = h.owner.errorWebhookURL
	}
	if url == "" {
		return nil
	}

	go h.owner.sendToWebhook(url, level, e.Message, prefix, e.Time)
	return nil
}

type webhookEmbed struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Color       int               `json:"color"`
	Timestamp   string            `json:"timestamp"`
	Footer      map[string]string `json:"footer"`
}

func (l *Logger) sendToWebhook(url string, level LogLevel, message, prefix string, at time.Time) {
	payload := map[string][]webhookEmbed{
		"embeds": {{
			Title:       fmt.Sprintf("[%s] %s", level.String(), prefix),
			Description: fmt.Sprintf("```%s```", message),
			Color:       level.DiscordColor(),
			Timestamp:   at.Format(time.RFC3339),
			Footer:      map[string]string{"text": "🛡️ Sentinel Go"},
		}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return
	}

	resp, err := l.httpClient.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return
	}
	resp.Body.Close()
}

// Entry carries structured fields for a single log call
type Entry struct {
	l      *Logger
	fields logrus.Fields
}

// WithFields attaches structured context to the next log call
func (l *Logger) WithFields(fields logrus.Fields) *Entry {
	return &Entry{l: l, fields: fields}
}

func (e *Entry) Critical(message, prefix string) { e.l.log(LevelCritical, message, prefix, e.fields) }
func (e *Entry) Error(message, prefix string)    { e.l.log(LevelError, message, prefix, e.fields) }
func (e *Entry) Warn(message, prefix string)     { e.l.log(LevelWarn, message, prefix, e.fields) }
func (e *Entry) Info(message, prefix string)     { e.l.log(LevelInfo, message, prefix, e.fields) }
func (e *Entry) Debug(message, prefix string)    { e.l.log(LevelDebug, message, prefix, e.fields) }

// Logging methods

// Critical logs a critical message
func (l *Logger) Critical(message string, prefix string) {
	l.log(LevelCritical, message, prefix, nil)
}

// Error logs an error message
func (l *Logger) Error(message string, prefix string) {
	l.log(LevelError, message, prefix, nil)
}

// Warn logs a warning message
func (l *Logger) Warn(message string, prefix string) {
	l.log(LevelWarn, message, prefix, nil)
}

// Success logs a success message
func (l *Logger) Success(message string, prefix string) {
	l.log(LevelSuccess, message, prefix, nil)
}

// Info logs an info message
func (l *Logger) Info(message string, prefix string) {
	l.log(LevelInfo, message, prefix, nil)
}

// Debug logs a debug message
func (l *Logger) Debug(message string, prefix string) {
	l.log(LevelDebug, message, prefix, nil)
}

// System logs a system message
func (l *Logger) System(message string, prefix string) {
	l.log(LevelSystem, message, prefix, nil)
}

// Package-level functions for convenience

func Critical(message string, prefix string) { Get().Critical(message, prefix) }
func Error(message string, prefix string)    { Get().Error(message, prefix) }
func Warn(message string, prefix string)     { Get().Warn(message, prefix) }
func Success(message string, prefix string)  { Get().Success(message, prefix) }
func Info(message string, prefix string)     { Get().Info(message, prefix) }
func Debug(message string, prefix string)    { Get().Debug(message, prefix) }
func System(message string, prefix string)   { Get().System(message, prefix) }

// WithFields attaches structured context using the global logger
func WithFields(fields logrus.Fields) *Entry {
	return Get().WithFields(fields)
}
