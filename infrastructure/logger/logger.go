// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package logger

import (
	"bytes"
	"fmt"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

// logEntry is a formatted log line waiting to be written by the backend.
type logEntry struct {
	log   []byte
	level Level
}

// Logger is a subsystem logger for a Backend.
type Logger struct {
	lvl       Level // atomic
	tag       string
	b         *Backend
	writeChan chan<- logEntry
}

// Trace formats message using the default formats for its operands, prepends
// the prefix as necessary, and writes to log with LevelTrace.
func (l *Logger) Trace(args ...interface{}) {
	l.Write(LevelTrace, args...)
}

// Tracef formats message according to format specifier, prepends the prefix as
// necessary, and writes to log with LevelTrace.
func (l *Logger) Tracef(format string, args ...interface{}) {
	l.Writef(LevelTrace, format, args...)
}

// Debug formats message using the default formats for its operands, prepends
// the prefix as necessary, and writes to log with LevelDebug.
func (l *Logger) Debug(args ...interface{}) {
	l.Write(LevelDebug, args...)
}

// Debugf formats message according to format specifier, prepends the prefix as
// necessary, and writes to log with LevelDebug.
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.Writef(LevelDebug, format, args...)
}

// Info formats message using the default formats for its operands, prepends
// the prefix as necessary, and writes to log with LevelInfo.
func (l *Logger) Info(args ...interface{}) {
	l.Write(LevelInfo, args...)
}

// Infof formats message according to format specifier, prepends the prefix as
// necessary, and writes to log with LevelInfo.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.Writef(LevelInfo, format, args...)
}

// Warn formats message using the default formats for its operands, prepends
// the prefix as necessary, and writes to log with LevelWarn.
func (l *Logger) Warn(args ...interface{}) {
	l.Write(LevelWarn, args...)
}

// Warnf formats message according to format specifier, prepends the prefix as
// necessary, and writes to log with LevelWarn.
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.Writef(LevelWarn, format, args...)
}

// Error formats message using the default formats for its operands, prepends
// the prefix as necessary, and writes to log with LevelError.
func (l *Logger) Error(args ...interface{}) {
	l.Write(LevelError, args...)
}

// Errorf formats message according to format specifier, prepends the prefix as
// necessary, and writes to log with LevelError.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.Writef(LevelError, format, args...)
}

// Critical formats message using the default formats for its operands, prepends
// the prefix as necessary, and writes to log with LevelCritical.
func (l *Logger) Critical(args ...interface{}) {
	l.Write(LevelCritical, args...)
}

// Criticalf formats message according to format specifier, prepends the prefix
// as necessary, and writes to log with LevelCritical.
func (l *Logger) Criticalf(format string, args ...interface{}) {
	l.Writef(LevelCritical, format, args...)
}

// Write formats message using the default formats for its operands, prepends
// the prefix as necessary, and writes to log with the given logLevel.
func (l *Logger) Write(logLevel Level, args ...interface{}) {
	if l.Level() <= logLevel {
		l.b.print(logLevel, l.tag, args...)
	}
}

// Writef formats message according to format specifier, prepends the prefix as
// necessary, and writes to log with the given logLevel.
func (l *Logger) Writef(logLevel Level, format string, args ...interface{}) {
	if l.Level() <= logLevel {
		l.b.printf(logLevel, l.tag, format, args...)
	}
}

// Level returns the current logging level.
func (l *Logger) Level() Level {
	return Level(atomic.LoadUint32((*uint32)(&l.lvl)))
}

// SetLevel changes the logging level to the passed level.
func (l *Logger) SetLevel(level Level) {
	atomic.StoreUint32((*uint32)(&l.lvl), uint32(level))
}

// Backend returns the log backend.
func (l *Logger) Backend() *Backend {
	return l.b
}

// bufferPool defines a concurrent safe free list of byte buffers used to
// provide temporary buffers for formatting log messages.
var bufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, normalLogSize))
	},
}

// callsite returns the file name and line number of the callsite to the
// subsystem logger.
func callsite(flag uint32) (string, int) {
	_, file, line, ok := runtime.Caller(calldepth)
	if !ok {
		return "???", 0
	}
	if flag&LogFlagShortFile != 0 {
		short := file
		for i := len(file) - 1; i > 0; i-- {
			if os.IsPathSeparator(file[i]) {
				short = file[i+1:]
				break
			}
		}
		file = short
	}
	return file, line
}

// calldepth is the call depth of the callsite function relative to the
// caller of the subsystem logger.
const calldepth = 4

// formatHeader appends a header in the default format 'YYYY-MM-DD hh:mm:ss.sss
// [LVL] TAG: ' to buf. If either of the Lshortfile or Llongfile flags are
// specified, the file name and line number are included after the tag.
func formatHeader(buf *bytes.Buffer, t time.Time, lvl, tag string, file string, line int) {
	buf.WriteString(t.Format("2006-01-02 15:04:05.000"))
	buf.WriteString(" [")
	buf.WriteString(lvl)
	buf.WriteString("] ")
	buf.WriteString(tag)
	if file != "" {
		fmt.Fprintf(buf, " %s:%d", file, line)
	}
	buf.WriteString(": ")
}

// print outputs a log message to the writer associated with the backend after
// creating a prefix for the given level and tag according to the formatHeader
// function and formatting the provided arguments using the default formatting
// rules.
func (b *Backend) print(lvl Level, tag string, args ...interface{}) {
	t := time.Now() // get as early as possible

	var file string
	var line int
	if b.flag&(LogFlagShortFile|LogFlagLongFile) != 0 {
		file, line = callsite(b.flag)
	}

	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	formatHeader(buf, t, lvl.String(), tag, file, line)
	fmt.Fprintln(buf, args...)
	b.write(lvl, buf)
}

// printf outputs a log message to the writer associated with the backend after
// creating a prefix for the given level and tag according to the formatHeader
// function and formatting the provided arguments according to the given format
// specifier.
func (b *Backend) printf(lvl Level, tag string, format string, args ...interface{}) {
	t := time.Now() // get as early as possible

	var file string
	var line int
	if b.flag&(LogFlagShortFile|LogFlagLongFile) != 0 {
		file, line = callsite(b.flag)
	}

	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	formatHeader(buf, t, lvl.String(), tag, file, line)
	fmt.Fprintf(buf, format, args...)
	buf.WriteByte('\n')
	b.write(lvl, buf)
}

// write hands the formatted line to the backend goroutine, or writes it
// directly when the backend is not running.
func (b *Backend) write(lvl Level, buf *bytes.Buffer) {
	line := make([]byte, buf.Len())
	copy(line, buf.Bytes())
	bufferPool.Put(buf)

	if !b.IsRunning() {
		b.directWrite.Lock()
		defer b.directWrite.Unlock()
		for _, writer := range b.writers {
			if lvl >= writer.LogLevel() {
				_, _ = writer.Write(line)
			}
		}
		return
	}
	b.writeChan <- logEntry{log: line, level: lvl}
}

// LogClosure is a closure that can be printed with %s to be used to
// generate expensive-to-create data for a detailed log level and avoid doing
// the work if the data isn't printed.
type LogClosure func() string

func (c LogClosure) String() string {
	return c()
}

// NewLogClosure casts a function to a LogClosure.
// See LogClosure for details.
func NewLogClosure(c func() string) LogClosure {
	return c
}

// BackendLog is the logging backend used to create all subsystem loggers.
var BackendLog = NewBackend()

var (
	subsystemLoggers      = make(map[string]*Logger)
	subsystemLoggersMutex sync.Mutex
)

// RegisterSubSystem returns the logger of subsystem, creating it on first
// use. New loggers start at LevelInfo.
func RegisterSubSystem(subsystem string) *Logger {
	subsystemLoggersMutex.Lock()
	defer subsystemLoggersMutex.Unlock()
	logger, exists := subsystemLoggers[subsystem]
	if !exists {
		logger = BackendLog.Logger(subsystem)
		logger.SetLevel(LevelInfo)
		subsystemLoggers[subsystem] = logger
	}
	return logger
}

// InitLogStdout attaches stdout to the backend log and starts the logger.
func InitLogStdout(logLevel Level) error {
	err := BackendLog.AddLogWriter(os.Stdout, logLevel)
	if err != nil {
		return err
	}
	return BackendLog.Run()
}

// InitLog attaches log file and error log file to the backend log, alongside
// stdout, and starts the logger.
func InitLog(logFile, errLogFile string) error {
	err := BackendLog.AddLogFile(logFile, LevelTrace)
	if err != nil {
		return errors.Wrapf(err, "adding log file %s as log rotator for level %s",
			logFile, LevelTrace)
	}
	err = BackendLog.AddLogFile(errLogFile, LevelWarn)
	if err != nil {
		return errors.Wrapf(err, "adding log file %s as log rotator for level %s",
			errLogFile, LevelWarn)
	}
	return InitLogStdout(LevelInfo)
}

// SetLogLevel sets the logging level for provided subsystem. Invalid
// subsystems are ignored. Uninitialized subsystems are dynamically created as
// needed.
func SetLogLevel(subsystemID string, logLevel string) error {
	level, ok := LevelFromString(logLevel)
	if !ok {
		return errors.Errorf("invalid log level %s", logLevel)
	}
	RegisterSubSystem(subsystemID).SetLevel(level)
	return nil
}

// SetLogLevels sets the log level for all subsystem loggers to the passed
// level. It also dynamically creates the subsystem loggers as needed, so it
// can be used to initialize the logging system.
func SetLogLevels(logLevel string) error {
	level, ok := LevelFromString(logLevel)
	if !ok {
		return errors.Errorf("invalid log level %s", logLevel)
	}
	subsystemLoggersMutex.Lock()
	defer subsystemLoggersMutex.Unlock()
	for _, logger := range subsystemLoggers {
		logger.SetLevel(level)
	}
	return nil
}

// SupportedSubsystems returns a sorted slice of the supported subsystems for
// logging purposes.
func SupportedSubsystems() []string {
	subsystemLoggersMutex.Lock()
	defer subsystemLoggersMutex.Unlock()
	subsystems := make([]string, 0, len(subsystemLoggers))
	for subsysID := range subsystemLoggers {
		subsystems = append(subsystems, subsysID)
	}
	sort.Strings(subsystems)
	return subsystems
}

// ParseAndSetDebugLevels attempts to parse the specified debug level and set
// the levels accordingly. An appropriate error is returned if anything is
// invalid. The level is either a single level applied to every subsystem or a
// comma separated list of subsystem=level pairs.
func ParseAndSetDebugLevels(debugLevel string) error {
	// When the specified string doesn't have any delimiters, treat it as
	// the log level for all subsystems.
	if !strings.Contains(debugLevel, ",") && !strings.Contains(debugLevel, "=") {
		return SetLogLevels(debugLevel)
	}

	// Split the specified string into subsystem/level pairs while detecting
	// issues and update the log levels accordingly.
	for _, logLevelPair := range strings.Split(debugLevel, ",") {
		if !strings.Contains(logLevelPair, "=") {
			return errors.Errorf("the specified debug level contains an "+
				"invalid subsystem/level pair [%s]", logLevelPair)
		}

		fields := strings.Split(logLevelPair, "=")
		subsysID, logLevel := fields[0], fields[1]

		subsystemLoggersMutex.Lock()
		_, exists := subsystemLoggers[subsysID]
		subsystemLoggersMutex.Unlock()
		if !exists {
			return errors.Errorf("the specified subsystem [%s] is invalid -- "+
				"supported subsystems %s", subsysID,
				strings.Join(SupportedSubsystems(), ", "))
		}

		err := SetLogLevel(subsysID, logLevel)
		if err != nil {
			return err
		}
	}
	return nil
}
