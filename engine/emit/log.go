package emit

import "log/slog"

// Log writes every Event to a *slog.Logger at debug level, one log record
// per Event, with Fields attached as structured attributes.
type Log struct {
	logger *slog.Logger
}

// NewLog returns a Log Emitter writing to logger. If logger is nil,
// slog.Default() is used.
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

func (l *Log) Emit(e Event) {
	args := make([]any, 0, len(e.Fields)*2+6)
	args = append(args, "run_id", e.RunID, "step", e.Step, "node", e.NodeID)
	for k, v := range e.Fields {
		args = append(args, k, v)
	}
	l.logger.Debug(string(e.Kind), args...)
}

func (l *Log) EmitBatch(es []Event) {
	for _, e := range es {
		l.Emit(e)
	}
}

func (l *Log) Flush() {}
