package toypf

import (
	"bytes"
	"errors"
	"fmt"

	"toypf/internal/base"
	"toypf/internal/slotted"
)

// MaxRecordSize is the largest record the default slotted codec accepts.
const MaxRecordSize = slotted.MaxRecordSize

// RID identifies a record by page and slot. It stays valid until the record
// is deleted and is never reused.
type RID struct {
	Page PageNum
	Slot int
}

func (r RID) String() string {
	return fmt.Sprintf("(%d,%d)", r.Page, r.Slot)
}

// Codec is the page format the record store writes through.
type Codec interface {
	Init(page []byte)
	Fits(page []byte, n int) bool
	Append(page, rec []byte) (slot int, err error)
	Record(page []byte, slot int) ([]byte, error)
	Delete(page []byte, slot int) error
	SlotCount(page []byte) (int, error)
	UsedBytes(page []byte) (int, error)
	MaxRecordSize() int
}

// RecordStore stores variable-length records in the pages of one open file.
//
// Insert places a record on the first page, counting from page 0, with room
// for it; the file grows by one page when none has. Deleted records leave a
// tombstone and their space is not reused.
type RecordStore struct {
	db    *DB
	fd    FileID
	codec Codec
}

// Records returns a slotted-page record store over fd.
func (d *DB) Records(fd FileID) *RecordStore {
	return d.RecordsWithCodec(fd, slotted.Codec{})
}

// RecordsWithCodec returns a record store over fd using codec.
func (d *DB) RecordsWithCodec(fd FileID, codec Codec) *RecordStore {
	return &RecordStore{db: d, fd: fd, codec: codec}
}

// MaxRecordSize is the largest record Insert accepts.
func (r *RecordStore) MaxRecordSize() int {
	return r.codec.MaxRecordSize()
}

// Insert stores rec and returns its RID.
func (r *RecordStore) Insert(rec []byte) (RID, error) {
	if len(rec) == 0 {
		return RID{}, ErrEmptyRecord
	}
	if len(rec) > r.codec.MaxRecordSize() {
		return RID{}, fmt.Errorf("record of %d bytes, max %d: %w", len(rec), r.codec.MaxRecordSize(), ErrRecordTooLarge)
	}

	for page := PageNum(0); ; page++ {
		rid, placed := RID{}, false
		err := r.db.withPage(r.fd, page, func(data []byte) (bool, error) {
			if !r.codec.Fits(data, len(rec)) {
				return false, nil
			}
			slot, err := r.codec.Append(data, rec)
			if err != nil {
				return false, err
			}
			rid, placed = RID{Page: page, Slot: slot}, true
			return true, nil
		})
		switch {
		case errors.Is(err, base.ErrInvalidPage):
			return r.insertNewPage(rec)
		case err != nil:
			return RID{}, err
		case placed:
			return rid, nil
		}
	}
}

func (r *RecordStore) insertNewPage(rec []byte) (RID, error) {
	var rid RID
	err := r.db.withNewPage(r.fd, func(page PageNum, data []byte) error {
		r.codec.Init(data)
		slot, err := r.codec.Append(data, rec)
		if err != nil {
			return err
		}
		rid = RID{Page: page, Slot: slot}
		return nil
	})
	return rid, err
}

// Delete tombstones the record at rid.
func (r *RecordStore) Delete(rid RID) error {
	err := r.db.withPage(r.fd, rid.Page, func(data []byte) (bool, error) {
		if err := r.codec.Delete(data, rid.Slot); err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", rid, err)
	}
	return nil
}

// Get returns a copy of the record at rid.
func (r *RecordStore) Get(rid RID) ([]byte, error) {
	var out []byte
	err := r.db.withPage(r.fd, rid.Page, func(data []byte) (bool, error) {
		rec, err := r.codec.Record(data, rid.Slot)
		if err != nil {
			return false, err
		}
		out = bytes.Clone(rec)
		return false, nil
	})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", rid, err)
	}
	return out, nil
}

// Scan returns a cursor over every live record in RID order.
func (r *RecordStore) Scan() *Scanner {
	return &Scanner{rs: r}
}

// PageUsedBytes returns the bytes of page taken by the header, record data
// (deleted records included) and slot directory.
func (r *RecordStore) PageUsedBytes(page PageNum) (int, error) {
	var used int
	err := r.db.withPage(r.fd, page, func(data []byte) (bool, error) {
		var err error
		used, err = r.codec.UsedBytes(data)
		return false, err
	})
	return used, err
}

// Usage summarizes space consumption of a record file.
type Usage struct {
	Pages     int
	Records   int // live records
	Deleted   int // tombstoned slots
	UsedBytes int
}

// Utilization returns used bytes over allocated bytes, or 0 for an empty file.
func (u Usage) Utilization() float64 {
	if u.Pages == 0 {
		return 0
	}
	return float64(u.UsedBytes) / float64(u.Pages*PageSize)
}

// Usage walks every page of the file and totals its space consumption.
func (r *RecordStore) Usage() (Usage, error) {
	n, err := r.db.NumPages(r.fd)
	if err != nil {
		return Usage{}, err
	}

	u := Usage{Pages: n}
	for page := PageNum(0); int(page) < n; page++ {
		err := r.db.withPage(r.fd, page, func(data []byte) (bool, error) {
			used, err := r.codec.UsedBytes(data)
			if err != nil {
				return false, err
			}
			slots, err := r.codec.SlotCount(data)
			if err != nil {
				return false, err
			}
			for slot := 0; slot < slots; slot++ {
				_, err := r.codec.Record(data, slot)
				switch {
				case errors.Is(err, base.ErrRecordDeleted):
					u.Deleted++
				case err != nil:
					return false, err
				default:
					u.Records++
				}
			}
			u.UsedBytes += used
			return false, nil
		})
		if err != nil {
			return Usage{}, fmt.Errorf("page %d: %w", page, err)
		}
	}
	return u, nil
}
