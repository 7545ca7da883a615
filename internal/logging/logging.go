package logging

import "go.uber.org/zap"

// New builds the production zap logger used by both binaries.
func New() (*zap.Logger, error) {
	return zap.NewProduction()
}
