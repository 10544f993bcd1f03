// Package logutil holds helpers for building subsystem loggers.
package logutil

import "github.com/decred/slog"

// prefixLogger prepends a fixed prefix to every message. Level handling is
// delegated to the wrapped logger.
type prefixLogger struct {
	slog.Logger
	prefix string
}

func (p *prefixLogger) Tracef(format string, params ...interface{}) {
	p.Logger.Tracef(p.prefix+" "+format, params...)
}

func (p *prefixLogger) Debugf(format string, params ...interface{}) {
	p.Logger.Debugf(p.prefix+" "+format, params...)
}

func (p *prefixLogger) Infof(format string, params ...interface{}) {
	p.Logger.Infof(p.prefix+" "+format, params...)
}

func (p *prefixLogger) Warnf(format string, params ...interface{}) {
	p.Logger.Warnf(p.prefix+" "+format, params...)
}

func (p *prefixLogger) Errorf(format string, params ...interface{}) {
	p.Logger.Errorf(p.prefix+" "+format, params...)
}

func (p *prefixLogger) Criticalf(format string, params ...interface{}) {
	p.Logger.Criticalf(p.prefix+" "+format, params...)
}

func (p *prefixLogger) Trace(v ...interface{}) {
	p.Logger.Trace(append([]interface{}{p.prefix}, v...)...)
}

func (p *prefixLogger) Debug(v ...interface{}) {
	p.Logger.Debug(append([]interface{}{p.prefix}, v...)...)
}

func (p *prefixLogger) Info(v ...interface{}) {
	p.Logger.Info(append([]interface{}{p.prefix}, v...)...)
}

func (p *prefixLogger) Warn(v ...interface{}) {
	p.Logger.Warn(append([]interface{}{p.prefix}, v...)...)
}

func (p *prefixLogger) Error(v ...interface{}) {
	p.Logger.Error(append([]interface{}{p.prefix}, v...)...)
}

func (p *prefixLogger) Critical(v ...interface{}) {
	p.Logger.Critical(append([]interface{}{p.prefix}, v...)...)
}

// PrefixLogger returns a logger that prepends "[name]" to every message.
func PrefixLogger(log slog.Logger, name string) slog.Logger {
	if log == nil || log == slog.Disabled {
		return slog.Disabled
	}
	return &prefixLogger{Logger: log, prefix: "[" + name + "]"}
}
