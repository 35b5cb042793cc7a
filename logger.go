package main

import (
	"go.uber.org/zap"
)

// logger is the package-level structured logger. It stays a nop until
// InitLogger runs, so tests log nothing by default.
var logger = zap.NewNop().Sugar()

// InitLogger builds the process logger: human-readable in debug, JSON
// otherwise. Returns the flush function for main's defer.
func InitLogger(debug bool) (func(), error) {
	var (
		zl  *zap.Logger
		err error
	)
	if debug {
		zl, err = zap.NewDevelopment()
	} else {
		zl, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	logger = zl.Sugar()
	return func() { _ = zl.Sync() }, nil
}
