package toypf

import (
	"bytes"
	"errors"

	"toypf/internal/base"
)

// Scanner is a forward-only cursor over the live records of a RecordStore,
// in page then slot order. It holds no page fixed between calls to Next.
// A Scanner cannot be rewound; call Scan again to start over.
//
//	sc := store.Scan()
//	defer sc.Close()
//	for sc.Next() {
//		use(sc.RID(), sc.Record())
//	}
//	if err := sc.Err(); err != nil {
//		...
//	}
type Scanner struct {
	rs   *RecordStore
	page PageNum
	slot int // next slot to examine on page

	rid  RID
	rec  []byte
	err  error
	done bool
}

// Next advances to the next live record. It returns false at the end of the
// file or on error.
func (s *Scanner) Next() bool {
	for !s.done {
		found := false
		err := s.rs.db.withPage(s.rs.fd, s.page, func(data []byte) (bool, error) {
			n, err := s.rs.codec.SlotCount(data)
			if err != nil {
				return false, err
			}
			for s.slot < n {
				slot := s.slot
				s.slot++
				rec, err := s.rs.codec.Record(data, slot)
				if errors.Is(err, base.ErrRecordDeleted) {
					continue
				}
				if err != nil {
					return false, err
				}
				s.rid = RID{Page: s.page, Slot: slot}
				s.rec = bytes.Clone(rec)
				found = true
				return false, nil
			}
			return false, nil
		})

		switch {
		case errors.Is(err, base.ErrInvalidPage):
			s.done = true
		case err != nil:
			s.err = err
			s.done = true
		case found:
			return true
		default:
			s.page++
			s.slot = 0
		}
	}
	s.rec = nil
	return false
}

// Record returns the current record. The slice is owned by the caller.
func (s *Scanner) Record() []byte { return s.rec }

// RID returns the id of the current record.
func (s *Scanner) RID() RID { return s.rid }

// Err returns the error that stopped the scan, if any.
func (s *Scanner) Err() error { return s.err }

// Close ends the scan. Next returns false afterwards.
func (s *Scanner) Close() error {
	s.done = true
	s.rec = nil
	return nil
}
