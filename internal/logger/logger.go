package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Logger struct {
	*logrus.Logger
	fileLogger *logrus.Logger
}

var defaultLogger *Logger

func init() {
	// 默认只输出到控制台，文件日志在 Init 中按配置开启
	defaultLogger = &Logger{
		Logger:     newConsoleLogger(os.Stdout, logrus.InfoLevel),
		fileLogger: newDiscardLogger(),
	}
}

func newConsoleLogger(out io.Writer, level logrus.Level) *logrus.Logger {
	consoleLogger := logrus.New()
	consoleLogger.SetFormatter(&logrus.TextFormatter{
		ForceColors:   true,
		FullTimestamp: true,
	})
	consoleLogger.SetOutput(out)
	consoleLogger.SetLevel(level)
	return consoleLogger
}

func newDiscardLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// ParseLevel 解析日志级别，无法识别时返回 info
func ParseLevel(level string) logrus.Level {
	lvl, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// Init 按配置初始化日志：控制台日志 + 可选的轮转文件日志
// 交互式命令会把控制台日志写到 stderr，避免和对话输出混在一起
func Init(dir, level string, console io.Writer) {
	lvl := ParseLevel(level)
	if console == nil {
		console = os.Stdout
	}
	consoleLogger := newConsoleLogger(console, lvl)

	fileLogger := newDiscardLogger()
	if dir != "" {
		// 创建日志目录
		if err := os.MkdirAll(dir, 0755); err != nil {
			consoleLogger.Errorf("无法创建日志目录: %v", err)
		} else {
			fileLogger = logrus.New()
			fileLogger.SetFormatter(&logrus.JSONFormatter{
				PrettyPrint:     false,
				TimestampFormat: "2006-01-02 15:04:05",
			})
			fileLogger.SetLevel(logrus.InfoLevel)
			if lvl > logrus.InfoLevel {
				fileLogger.SetLevel(lvl)
			}

			// 使用lumberjack进行日志轮转
			fileLogger.SetOutput(&lumberjack.Logger{
				Filename:   filepath.Join(dir, "counsel-assist.log"),
				MaxSize:    10,
				MaxBackups: 10,
				MaxAge:     30,
				Compress:   true,
			})
		}
	}

	defaultLogger = &Logger{
		Logger:     consoleLogger,
		fileLogger: fileLogger,
	}
}

// SetOutput 替换控制台输出，测试中用于捕获日志
func SetOutput(out io.Writer) {
	defaultLogger.Logger.SetOutput(out)
}

func Infof(format string, args ...any) {
	defaultLogger.Logger.Infof(format, args...)
	defaultLogger.fileLogger.Infof(format, args...)
}

func Warnf(format string, args ...any) {
	defaultLogger.Logger.Warnf(format, args...)
	defaultLogger.fileLogger.Warnf(format, args...)
}

func Errorf(format string, args ...any) {
	defaultLogger.Logger.Errorf(format, args...)
	defaultLogger.fileLogger.Errorf(format, args...)
}

func Fatalf(format string, args ...any) {
	defaultLogger.fileLogger.Errorf(format, args...)
	defaultLogger.Logger.Fatalf(format, args...)
}

func Debugf(format string, args ...any) {
	defaultLogger.Logger.Debugf(format, args...)
	defaultLogger.fileLogger.Debugf(format, args...)
}
