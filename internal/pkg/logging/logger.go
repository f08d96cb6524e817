package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	clog "github.com/charmbracelet/log"
)

// L is the package-level logger shared by the engine and its drivers.
var L = clog.NewWithOptions(os.Stderr, clog.Options{
	ReportTimestamp: true,
	Prefix:          "digestcracker",
})

// Configure sets the output and level of L. Unknown levels fall back to info.
func Configure(w io.Writer, level string) {
	if w != nil {
		L.SetOutput(w)
	}
	lvl, err := clog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lvl = clog.InfoLevel
	}
	L.SetLevel(lvl)
}

func Debugf(format string, v ...any) {
	L.Debug(fmt.Sprintf(format, v...))
}

func Infof(format string, v ...any) {
	L.Info(fmt.Sprintf(format, v...))
}

func Warnf(format string, v ...any) {
	L.Warn(fmt.Sprintf(format, v...))
}

func Errorf(format string, v ...any) {
	L.Error(fmt.Sprintf(format, v...))
}

// With returns a child logger carrying the given key/value pairs.
func With(keyvals ...any) *clog.Logger {
	return L.With(keyvals...)
}
