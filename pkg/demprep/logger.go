package demprep

import "github.com/rs/zerolog"

// Logger receives the package's diagnostics. It defaults to a disabled logger;
// the CLI installs its configured logger with SetLogger.
var Logger = zerolog.Nop()

// SetLogger replaces the package logger. Passing nil mutes it.
func SetLogger(l *zerolog.Logger) {
	if l == nil {
		Logger = zerolog.Nop()
		return
	}
	Logger = *l
}
