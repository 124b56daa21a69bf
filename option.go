package toypf

import (
	"toypf/internal/base"
	"toypf/internal/buffer"
	"toypf/internal/storage"
)

// Options configures a DB.
type Options struct {
	capacity    int    // Number of page frames in the buffer pool.
	policy      Policy // Victim selection when every frame is in use.
	logger      Logger
	fileCache   int  // Maximum number of OS file handles held open at once.
	syncOnClose bool // fdatasync a file after its pages are released on CloseFile.
}

// DefaultOptions returns the PF layer defaults: 20 frames with LRU
// replacement.
//
// goland:noinspection GoUnusedExportedFunction
func DefaultOptions() Options {
	return Options{
		capacity:  base.DefaultFrames,
		policy:    buffer.LRU,
		logger:    DiscardLogger{},
		fileCache: storage.DefaultHandleCache,
	}
}

// Option configures database options using the functional options pattern.
type Option func(*Options)

// WithCapacity sets the number of frames, between 1 and MaxFrames.
//
//goland:noinspection GoUnusedExportedFunction
func WithCapacity(frames int) Option {
	return func(opts *Options) {
		opts.capacity = frames
	}
}

// WithPolicy sets the replacement policy, LRU or MRU.
//
//goland:noinspection GoUnusedExportedFunction
func WithPolicy(policy Policy) Option {
	return func(opts *Options) {
		opts.policy = policy
	}
}

// WithLogger sets the logger. See package logger for zap and logrus adapters.
//
//goland:noinspection GoUnusedExportedFunction
func WithLogger(logger Logger) Option {
	return func(opts *Options) {
		opts.logger = logger
	}
}

// WithFileCacheSize bounds the number of file descriptors kept open. Files
// beyond the bound stay open logically and are reopened on access.
//
//goland:noinspection GoUnusedExportedFunction
func WithFileCacheSize(n int) Option {
	return func(opts *Options) {
		opts.fileCache = n
	}
}

// WithSyncOnClose makes CloseFile flush the file to stable storage after
// writing back its dirty pages.
//
//goland:noinspection GoUnusedExportedFunction
func WithSyncOnClose() Option {
	return func(opts *Options) {
		opts.syncOnClose = true
	}
}
