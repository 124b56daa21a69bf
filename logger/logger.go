// Package logger provides adapters for popular logger libraries to work with toypf's Logger interface.
//
// The adapters allow you to use your existing logger with toypf without writing boilerplate.
// Note that the standard library's slog.Logger already implements toypf.Logger directly.
//
// Example with zap:
//
//	import (
//	    "toypf"
//	    "toypf/logger"
//	    "go.uber.org/zap"
//	)
//
//	func main() {
//	    zapLogger, _ := zap.NewProduction()
//
//	    db, err := toypf.New(toypf.WithLogger(logger.NewZap(zapLogger)))
//	    if err != nil {
//	        panic(err)
//	    }
//	    defer db.Close()
//	}
package logger
