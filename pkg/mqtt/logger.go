package mqtt

import (
	"fmt"

	"github.com/go-logr/logr"
)

// pahoLogger adapts a logr.Logger to paho's printf-style log.Logger.
type pahoLogger struct {
	l     logr.Logger
	isErr bool
}

func newPahoLogger(l logr.Logger, isErr bool) *pahoLogger {
	return &pahoLogger{l: l, isErr: isErr}
}

func (p *pahoLogger) Println(v ...any) {
	p.emit(fmt.Sprint(v...))
}

func (p *pahoLogger) Printf(format string, v ...any) {
	p.emit(fmt.Sprintf(format, v...))
}

func (p *pahoLogger) emit(msg string) {
	if p.isErr {
		p.l.Error(nil, msg)
		return
	}
	// paho debug output is chatty; keep it below info.
	p.l.V(1).Info(msg)
}
