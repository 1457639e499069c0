package internal

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type Importance string

const (
	Info    Importance = " "
	Warning Importance = "?"
	Error   Importance = "!"
)

// LogWriter stores feature log records.
type LogWriter interface {
	WriteLogMessage(data Data) error
}

// ConfigureLogging builds the process logger. Debug mode writes human readable
// lines, otherwise JSON.
func ConfigureLogging(level string, debug bool, output io.Writer) zerolog.Logger {
	if output == nil {
		output = os.Stdout
	}
	parsed, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		parsed = zerolog.InfoLevel
	}
	if debug {
		parsed = zerolog.DebugLevel
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	}
	zerolog.TimeFieldFormat = time.RFC3339
	return zerolog.New(output).Level(parsed).With().Timestamp().Str("service", "evroam").Logger()
}

// WithComponent returns a child logger annotated with the component name.
func WithComponent(log zerolog.Logger, component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Logger implements LogHandler over zerolog. Feature events, warnings and
// errors are also written to the database when one is attached.
type Logger struct {
	log      zerolog.Logger
	location *time.Location

	mu       sync.RWMutex
	database LogWriter
	writer   chan *FeatureLogMessage
	closed   bool
	done     chan struct{}
}

func NewLogger(log zerolog.Logger, location *time.Location) *Logger {
	if location == nil {
		location = time.UTC
	}
	l := &Logger{
		log:      log,
		location: location,
		writer:   make(chan *FeatureLogMessage, 100),
		done:     make(chan struct{}),
	}
	go l.startWriter()
	return l
}

func (l *Logger) SetDatabase(database LogWriter) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.database = database
}

// Zerolog returns the underlying structured logger for a component.
func (l *Logger) Zerolog(component string) zerolog.Logger {
	return WithComponent(l.log, component)
}

func (l *Logger) startWriter() {
	defer close(l.done)
	for message := range l.writer {
		l.mu.RLock()
		database := l.database
		l.mu.RUnlock()
		if database == nil {
			continue
		}
		if err := database.WriteLogMessage(message); err != nil {
			l.log.Error().Err(err).Msg("write log to database failed")
		}
	}
}

// Close stops the database writer after the queued records are written.
func (l *Logger) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	close(l.writer)
	l.mu.Unlock()
	<-l.done
}

func (l *Logger) FeatureEvent(feature, id, text string) {
	l.log.Info().Str("feature", feature).Str("operator_id", id).Msg(text)
	l.store(Info, feature, id, text)
}

func (l *Logger) Debug(text string) {
	l.log.Debug().Msg(text)
}

func (l *Logger) Warn(text string) {
	l.log.Warn().Msg(text)
	l.store(Warning, "warning", "", text)
}

func (l *Logger) Error(text string, err error) {
	l.log.Error().Err(err).Msg(text)
	l.store(Error, "error", "", fmt.Sprintf("%s: %s", text, err))
}

func (l *Logger) store(importance Importance, feature, id, text string) {
	if id == "" {
		id = "*"
	}
	now := time.Now()
	message := &FeatureLogMessage{
		Time:       now.In(l.location).Format(time.DateTime),
		TimeStamp:  now.UTC(),
		Feature:    feature,
		OperatorId: id,
		Text:       text,
		Importance: string(importance),
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed || l.database == nil {
		return
	}
	select {
	case l.writer <- message:
	default:
		l.log.Warn().Str("feature", feature).Msg("log writer queue full, record dropped")
	}
}
