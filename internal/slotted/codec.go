package slotted

// Codec exposes the package functions as a value, for callers that take
// the page format as a dependency.
type Codec struct{}

func (Codec) Init(page []byte) { Init(page) }

func (Codec) Fits(page []byte, n int) bool { return Fits(page, n) }

func (Codec) Append(page, rec []byte) (int, error) { return Append(page, rec) }

func (Codec) Record(page []byte, slot int) ([]byte, error) { return Record(page, slot) }

func (Codec) Delete(page []byte, slot int) error { return Delete(page, slot) }

func (Codec) SlotCount(page []byte) (int, error) { return SlotCount(page) }

func (Codec) UsedBytes(page []byte) (int, error) { return UsedBytes(page) }

func (Codec) MaxRecordSize() int { return MaxRecordSize }
