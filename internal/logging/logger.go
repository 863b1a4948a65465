package logging

import (
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"
)

// LogLevel определяет уровни логирования
type LogLevel int32

const (
	TRACE LogLevel = iota
	DEBUG
	INFO
	WARN
	ERROR
)

// String возвращает строковое представление уровня логирования
func (l LogLevel) String() string {
	switch l {
	case TRACE:
		return "TRACE"
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel разбирает имя уровня без учёта регистра
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return TRACE, nil
	case "DEBUG":
		return DEBUG, nil
	case "", "INFO":
		return INFO, nil
	case "WARN", "WARNING":
		return WARN, nil
	case "ERROR":
		return ERROR, nil
	default:
		return INFO, fmt.Errorf("неизвестный уровень логирования %q", s)
	}
}

// Logger пишет сообщения компонента в консоль и, если задана директория, в файл
type Logger struct {
	component     string
	consoleLogger *log.Logger
	fileLogger    *log.Logger
	file          *os.File

	minConsoleLevel atomic.Int32
	minFileLevel    atomic.Int32
}

// Директория для файлов логов. Пустая строка отключает запись в файл.
var logDir atomic.Value

func init() {
	logDir.Store("logs")
}

// SetLogDir задаёт директорию для файлов логов новых логгеров
func SetLogDir(dir string) {
	logDir.Store(dir)
}

var defaultLogger atomic.Pointer[Logger]

func init() {
	defaultLogger.Store(NewWriterLogger("", os.Stdout, INFO))
}

// NewLogger создаёт логгер компонента: консоль (INFO и выше) и файл
// logs/<component>_<timestamp>.log (все уровни)
func NewLogger(component string) (*Logger, error) {
	l := NewWriterLogger(component, os.Stdout, INFO)

	dir, _ := logDir.Load().(string)
	if dir == "" {
		return l, nil
	}

	// Создаем директорию для логов
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("ошибка создания директории %s: %w", dir, err)
	}

	// Создаем файл для логов с временной меткой
	name := component
	if name == "" {
		name = "worldsim"
	}
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	filename := filepath.Join(dir, fmt.Sprintf("%s_%s.log", name, timestamp))

	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания файла логов: %w", err)
	}

	l.file = file
	l.fileLogger = log.New(file, "", log.LstdFlags)
	l.minFileLevel.Store(int32(TRACE))
	return l, nil
}

// NewWriterLogger создаёт логгер без файла, пишущий в w
func NewWriterLogger(component string, w io.Writer, level LogLevel) *Logger {
	l := &Logger{
		component:     component,
		consoleLogger: log.New(w, "", log.LstdFlags),
	}
	l.minConsoleLevel.Store(int32(level))
	l.minFileLevel.Store(int32(level))
	return l
}

// NewNopLogger создаёт логгер, отбрасывающий все сообщения
func NewNopLogger() *Logger {
	return NewWriterLogger("", io.Discard, ERROR+1)
}

// InitDefaultLogger заменяет логгер по умолчанию логгером с записью в файл
func InitDefaultLogger(component string) error {
	l, err := NewLogger(component)
	if err != nil {
		return err
	}
	if old := defaultLogger.Swap(l); old != nil {
		old.Close()
	}
	return nil
}

// Default возвращает логгер по умолчанию
func Default() *Logger {
	return defaultLogger.Load()
}

// SetLevel задаёт минимальные уровни для консоли и файла
func (l *Logger) SetLevel(console, file LogLevel) {
	l.minConsoleLevel.Store(int32(console))
	l.minFileLevel.Store(int32(file))
}

// Component возвращает имя компонента
func (l *Logger) Component() string {
	return l.component
}

// Close закрывает файл логов
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

func (l *Logger) Trace(format string, args ...interface{}) { l.log(TRACE, format, args...) }
func (l *Logger) Debug(format string, args ...interface{}) { l.log(DEBUG, format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.log(INFO, format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.log(WARN, format, args...) }
func (l *Logger) Error(format string, args ...interface{}) { l.log(ERROR, format, args...) }

// log внутренняя функция для логирования
func (l *Logger) log(level LogLevel, format string, args ...interface{}) {
	toConsole := int32(level) >= l.minConsoleLevel.Load()
	toFile := l.fileLogger != nil && int32(level) >= l.minFileLevel.Load()
	if !toConsole && !toFile {
		return
	}

	var message string
	if l.component != "" {
		message = fmt.Sprintf("[%s] [%s] %s", level.String(), l.component, fmt.Sprintf(format, args...))
	} else {
		message = fmt.Sprintf("[%s] %s", level.String(), fmt.Sprintf(format, args...))
	}

	if toFile {
		l.fileLogger.Println(message)
	}
	if toConsole {
		l.consoleLogger.Println(message)
	}
}

// Trace логирует сообщение уровня TRACE в логгер по умолчанию
func Trace(format string, args ...interface{}) { Default().Trace(format, args...) }

// Debug логирует сообщение уровня DEBUG в логгер по умолчанию
func Debug(format string, args ...interface{}) { Default().Debug(format, args...) }

// Info логирует сообщение уровня INFO в логгер по умолчанию
func Info(format string, args ...interface{}) { Default().Info(format, args...) }

// Warn логирует сообщение уровня WARN в логгер по умолчанию
func Warn(format string, args ...interface{}) { Default().Warn(format, args...) }

// Error логирует сообщение уровня ERROR в логгер по умолчанию
func Error(format string, args ...interface{}) { Default().Error(format, args...) }

// HexDump создает hex дамп данных
func HexDump(data []byte) string {
	if len(data) == 0 {
		return "No data"
	}

	// Ограничиваем размер дампа до 256 байт
	size := len(data)
	if size > 256 {
		size = 256
	}

	return hex.Dump(data[:size])
}
