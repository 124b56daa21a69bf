// Package slotted encodes variable-length records inside one page.
//
// Layout, all fields little-endian int32:
//
//	[ freeStart ][ records -> ][ free space ][ <- slot directory ][ slotCount ]
//	0           4              ^             ^                    4092       4096
//	                           freeStart     slotDirStart
//
// Slot i occupies [PageSize-4-(i+1)*8, PageSize-4-i*8) and holds
// (offset, length). A length of -1 marks a deleted record. Deletion never
// reclaims space and slots are never reused, so a slot number stays valid
// for the life of the page.
package slotted

import (
	"encoding/binary"
	"fmt"

	"toypf/internal/base"
)

const (
	headerSize  = 4
	trailerSize = 4
	// SlotSize is the size of one directory entry.
	SlotSize = 8

	offFreeStart = 0
	offSlotCount = base.PageSize - trailerSize

	tombstone = -1

	// MaxRecordSize is the largest record an empty page can hold.
	MaxRecordSize = base.PageSize - headerSize - trailerSize - SlotSize
)

func getInt32(b []byte, off int) int {
	return int(int32(binary.LittleEndian.Uint32(b[off:])))
}

func putInt32(b []byte, off, v int) {
	binary.LittleEndian.PutUint32(b[off:], uint32(int32(v)))
}

func slotOffset(i int) int {
	return base.PageSize - trailerSize - (i+1)*SlotSize
}

// Init stamps an empty header on page.
func Init(page []byte) {
	putInt32(page, offFreeStart, headerSize)
	putInt32(page, offSlotCount, 0)
}

// header returns freeStart and slotCount, treating an all-zero header as a
// fresh page.
func header(page []byte) (freeStart, slotCount int, err error) {
	if len(page) != base.PageSize {
		return 0, 0, fmt.Errorf("page is %d bytes: %w", len(page), base.ErrCorruption)
	}
	freeStart = getInt32(page, offFreeStart)
	slotCount = getInt32(page, offSlotCount)
	if freeStart == 0 {
		if slotCount != 0 {
			return 0, 0, fmt.Errorf("slot count %d on uninitialized page: %w", slotCount, base.ErrCorruption)
		}
		return headerSize, 0, nil
	}
	if freeStart < headerSize || slotCount < 0 || freeStart > slotOffset(slotCount-1) {
		return 0, 0, fmt.Errorf("free start %d with %d slots: %w", freeStart, slotCount, base.ErrCorruption)
	}
	return freeStart, slotCount, nil
}

// FreeStart returns the offset of the first unused data byte.
func FreeStart(page []byte) (int, error) {
	fs, _, err := header(page)
	return fs, err
}

// SlotCount returns the number of slots ever appended, tombstones included.
func SlotCount(page []byte) (int, error) {
	_, n, err := header(page)
	return n, err
}

// SlotDirStart returns the offset of the lowest slot directory byte.
func SlotDirStart(page []byte) (int, error) {
	_, n, err := header(page)
	if err != nil {
		return 0, err
	}
	return slotOffset(n - 1), nil
}

// FreeSpace returns the gap between the data area and the slot directory.
func FreeSpace(page []byte) (int, error) {
	fs, n, err := header(page)
	if err != nil {
		return 0, err
	}
	return slotOffset(n-1) - fs, nil
}

// Fits reports whether a record of n bytes and its slot fit on page.
func Fits(page []byte, n int) bool {
	free, err := FreeSpace(page)
	return err == nil && n+SlotSize <= free
}

// Append copies rec into the data area and returns its slot number.
func Append(page, rec []byte) (int, error) {
	if len(rec) == 0 {
		return 0, base.ErrEmptyRecord
	}
	if len(rec) > MaxRecordSize {
		return 0, fmt.Errorf("%d bytes: %w", len(rec), base.ErrRecordTooLarge)
	}
	fs, n, err := header(page)
	if err != nil {
		return 0, err
	}
	if len(rec)+SlotSize > slotOffset(n-1)-fs {
		return 0, fmt.Errorf("%d bytes with %d free: %w", len(rec), slotOffset(n-1)-fs, base.ErrPageFull)
	}

	copy(page[fs:], rec)
	so := slotOffset(n)
	putInt32(page, so, fs)
	putInt32(page, so+4, len(rec))
	putInt32(page, offSlotCount, n+1)
	putInt32(page, offFreeStart, fs+len(rec))
	return n, nil
}

// Slot returns the raw directory entry of slot i. length is -1 for a
// deleted record.
func Slot(page []byte, i int) (offset, length int, err error) {
	fs, n, err := header(page)
	if err != nil {
		return 0, 0, err
	}
	if i < 0 || i >= n {
		return 0, 0, fmt.Errorf("slot %d of %d: %w", i, n, base.ErrInvalidSlot)
	}

	so := slotOffset(i)
	offset = getInt32(page, so)
	length = getInt32(page, so+4)
	if length == tombstone {
		return offset, length, nil
	}
	if offset < headerSize || length < 0 || offset+length > fs {
		return 0, 0, fmt.Errorf("slot %d at %d+%d: %w", i, offset, length, base.ErrCorruption)
	}
	return offset, length, nil
}

// Record returns the bytes of slot i. The slice aliases page.
func Record(page []byte, i int) ([]byte, error) {
	off, length, err := Slot(page, i)
	if err != nil {
		return nil, err
	}
	if length == tombstone {
		return nil, fmt.Errorf("slot %d: %w", i, base.ErrRecordDeleted)
	}
	return page[off : off+length : off+length], nil
}

// Delete tombstones slot i.
func Delete(page []byte, i int) error {
	_, length, err := Slot(page, i)
	if err != nil {
		return err
	}
	if length == tombstone {
		return fmt.Errorf("slot %d: %w", i, base.ErrRecordDeleted)
	}
	putInt32(page, slotOffset(i)+4, tombstone)
	return nil
}

// UsedBytes returns header, data and directory bytes consumed on page.
// Deleted records still count.
func UsedBytes(page []byte) (int, error) {
	fs, n, err := header(page)
	if err != nil {
		return 0, err
	}
	return min(fs+trailerSize+n*SlotSize, base.PageSize), nil
}
