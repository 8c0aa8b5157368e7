package logger

// Noop is a logger that discards everything. Used in tests and as a
// placeholder before the real logger is constructed.
type Noop struct{}

// NewNoop creates a no-op logger.
func NewNoop() *Noop { return &Noop{} }

func (n *Noop) Debug(msg string, fields ...any) {}
func (n *Noop) Info(msg string, fields ...any)  {}
func (n *Noop) Warn(msg string, fields ...any)  {}
func (n *Noop) Error(msg string, fields ...any) {}
func (n *Noop) Fatal(msg string, fields ...any) {}
func (n *Noop) With(fields ...any) Interface    { return n }
func (n *Noop) Sync() error                     { return nil }

var _ Interface = (*Noop)(nil)
