package base

import "errors"

// Buffer pool errors.
var (
	ErrNoBufferSpace       = errors.New("no buffer space: every frame is fixed")
	ErrAlreadyFixed        = errors.New("page already fixed")
	ErrNotInBuffer         = errors.New("page not in buffer")
	ErrNotFixed            = errors.New("page not fixed")
	ErrPageAlreadyBuffered = errors.New("page already in buffer")
	ErrPageFixed           = errors.New("file has a fixed page")
	ErrInvalidParameter    = errors.New("invalid buffer parameter")
)

// Paged file errors.
var (
	ErrInvalidPage = errors.New("invalid page number")
	ErrFileNotOpen = errors.New("file not open")
	ErrFileOpen    = errors.New("file is open")
	ErrFileExists  = errors.New("file already exists")
)

// Slotted page errors.
var (
	ErrInvalidSlot    = errors.New("invalid slot")
	ErrRecordDeleted  = errors.New("record deleted")
	ErrRecordTooLarge = errors.New("record too large for a page")
	ErrEmptyRecord    = errors.New("record cannot be empty")
	ErrPageFull       = errors.New("not enough free space on page")
	ErrCorruption     = errors.New("data corruption detected")
)
