// Package logger envuelve zerolog con la superficie mínima que usa el
// pipeline de facturación: eventos por nivel y subloggers con contexto
// fijo (clave, consecutivo) para seguir un comprobante de punta a punta.
package logger

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Config opciones para el logger.
type Config struct {
	Env   string // development -> consola legible; production -> JSON
	Level string // debug, info, warn, error
}

// Logger envuelve zerolog para inyección en el orquestador y el cmd.
type Logger struct {
	zl zerolog.Logger
}

// New crea un logger estructurado sobre stdout. En development la salida es
// consola legible; en cualquier otro entorno, JSON por línea.
func New(cfg Config) *Logger {
	var w io.Writer = os.Stdout
	if cfg.Env == "development" {
		w = zerolog.ConsoleWriter{Out: os.Stdout}
	}
	zl := zerolog.New(w).Level(parseLevel(cfg.Level)).With().Timestamp().Logger()
	return &Logger{zl: zl}
}

// FromZerolog envuelve un logger ya construido (útil en tests para capturar
// la salida en un buffer).
func FromZerolog(zl zerolog.Logger) *Logger {
	return &Logger{zl: zl}
}

func parseLevel(s string) zerolog.Level {
	switch s {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Debug, Info, Warn, Error, Fatal delegan en zerolog.
func (l *Logger) Debug() *zerolog.Event { return l.zl.Debug() }
func (l *Logger) Info() *zerolog.Event  { return l.zl.Info() }
func (l *Logger) Warn() *zerolog.Event  { return l.zl.Warn() }
func (l *Logger) Error() *zerolog.Event { return l.zl.Error() }
func (l *Logger) Fatal() *zerolog.Event { return l.zl.Fatal() }

// With crea un sublogger con campos fijos del comprobante en curso.
func (l *Logger) With() zerolog.Context {
	return l.zl.With()
}
