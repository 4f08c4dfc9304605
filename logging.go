package laeproxy

import "go.uber.org/zap"

// NewLogger builds the process-wide zap.Logger: production-configured
// (JSON encoding, info level and above) unless dev is true, in which case
// it uses zap's human-readable development encoding and debug level. This
// is the single environment axis this proxy exposes; it affects only
// logging verbosity, never protocol semantics.
func NewLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
