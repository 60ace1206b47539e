package ingest

// streaming.go provides the readers used to decode uploads without buffering
// whole files:
//
//   - BOMSkippingReader: removes a UTF-8 BOM written by Windows tools
//   - UTF8Validator: fails with ErrEncoding on the first invalid sequence
//
// Identifier files are expected to be strict UTF-8. A file in any other
// encoding is an ingestion failure, not something to repair.

import (
	"fmt"
	"io"
	"unicode/utf8"
)

// BOMSkippingReader wraps an io.Reader and skips the UTF-8 BOM if present.
type BOMSkippingReader struct {
	reader     io.Reader
	bomChecked bool
	buf        [3]byte
	pending    []byte
}

// NewBOMSkippingReader creates a new BOM-skipping reader.
func NewBOMSkippingReader(r io.Reader) *BOMSkippingReader {
	return &BOMSkippingReader{reader: r}
}

// Read implements io.Reader. On the first read, it checks for and skips the BOM.
func (r *BOMSkippingReader) Read(p []byte) (int, error) {
	if !r.bomChecked {
		r.bomChecked = true

		n, err := io.ReadFull(r.reader, r.buf[:])
		switch err {
		case nil:
		case io.EOF, io.ErrUnexpectedEOF:
			// Short input; whatever we got is all there is.
		default:
			return 0, err
		}

		if n == 3 && r.buf[0] == 0xEF && r.buf[1] == 0xBB && r.buf[2] == 0xBF {
			r.pending = nil
		} else {
			r.pending = r.buf[:n]
		}
	}

	if len(r.pending) > 0 {
		copied := copy(p, r.pending)
		r.pending = r.pending[copied:]
		return copied, nil
	}

	return r.reader.Read(p)
}

// UTF8Validator wraps an io.Reader and returns ErrEncoding as soon as the
// stream contains an invalid UTF-8 sequence. Multi-byte sequences split across
// reads are held back until they are complete.
type UTF8Validator struct {
	reader  io.Reader
	buf     []byte
	ready   []byte // validated bytes not yet handed out
	pending []byte // incomplete trailing sequence from the last fill
	offset  int64
	err     error
}

// NewUTF8Validator creates a validating reader.
func NewUTF8Validator(r io.Reader) *UTF8Validator {
	return &UTF8Validator{
		reader:  r,
		buf:     make([]byte, 4096),
		pending: make([]byte, 0, utf8.UTFMax),
	}
}

// Read implements io.Reader.
func (v *UTF8Validator) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for len(v.ready) == 0 {
		if v.err != nil {
			return 0, v.err
		}
		v.fill()
	}
	n := copy(p, v.ready)
	v.ready = v.ready[n:]
	return n, nil
}

// fill reads the next chunk into buf and validates it. Only called once
// everything from the previous chunk has been handed out.
func (v *UTF8Validator) fill() {
	held := copy(v.buf, v.pending)
	v.pending = v.pending[:0]

	n, err := v.reader.Read(v.buf[held:])
	n += held

	keep := 0
	if err == nil {
		keep = incompleteTrailingBytes(v.buf[:n])
	}

	checked := v.buf[:n-keep]
	if !utf8.Valid(checked) {
		v.err = fmt.Errorf("%w: invalid UTF-8 at byte %d", ErrEncoding, v.offset+int64(firstInvalid(checked)))
		return
	}

	v.pending = append(v.pending, v.buf[n-keep:n]...)
	v.ready = checked
	v.offset += int64(len(checked))
	if err != nil {
		v.err = err
	}
}

// firstInvalid returns the offset of the first invalid sequence in data.
func firstInvalid(data []byte) int {
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size == 1 {
			return i
		}
		i += size
	}
	return len(data)
}

// incompleteTrailingBytes returns the number of bytes at the end of data
// that could be the start of an incomplete multi-byte UTF-8 sequence.
func incompleteTrailingBytes(data []byte) int {
	for i := 1; i <= 3 && i <= len(data); i++ {
		b := data[len(data)-i]
		if b >= 0xC0 {
			if i < runeLen(b) {
				return i
			}
			return 0
		}
		// Anything but a continuation byte ends the search.
		if b&0xC0 != 0x80 {
			return 0
		}
	}
	return 0
}

// runeLen returns the expected length of a UTF-8 sequence starting with byte b.
func runeLen(b byte) int {
	switch {
	case b < 0x80:
		return 1
	case b < 0xC0:
		return 0
	case b < 0xE0:
		return 2
	case b < 0xF0:
		return 3
	default:
		return 4
	}
}
