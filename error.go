package toypf

import (
	"errors"

	"toypf/internal/base"
)

//goland:noinspection GoUnusedGlobalVariable
var (
	ErrDatabaseClosed = errors.New("database is closed")

	ErrNoBufferSpace       = base.ErrNoBufferSpace
	ErrAlreadyFixed        = base.ErrAlreadyFixed
	ErrNotInBuffer         = base.ErrNotInBuffer
	ErrNotFixed            = base.ErrNotFixed
	ErrPageAlreadyBuffered = base.ErrPageAlreadyBuffered
	ErrPageFixed           = base.ErrPageFixed
	ErrInvalidParameter    = base.ErrInvalidParameter

	ErrInvalidPage = base.ErrInvalidPage
	ErrFileNotOpen = base.ErrFileNotOpen
	ErrFileOpen    = base.ErrFileOpen
	ErrFileExists  = base.ErrFileExists

	ErrInvalidSlot    = base.ErrInvalidSlot
	ErrRecordDeleted  = base.ErrRecordDeleted
	ErrRecordTooLarge = base.ErrRecordTooLarge
	ErrEmptyRecord    = base.ErrEmptyRecord
	ErrPageFull       = base.ErrPageFull
	ErrCorruption     = base.ErrCorruption
)
