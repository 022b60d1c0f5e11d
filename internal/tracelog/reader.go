// Copyright the dynslice authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tracelog

import (
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/exp/mmap"
)

// Reader is a forward-only cursor over a dynamic log file. The file is
// memory-mapped rather than read sequentially because a multi-gigabyte
// trace is the common case and the cursor only ever walks it once, end to
// end.
type Reader struct {
	ra   *mmap.ReaderAt
	off  int64
	size int64
}

// Open memory-maps path and positions the cursor at the first record,
// past the opaque header.
func Open(path string) (*Reader, error) {
	ra, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tracelog: open %s: %w", path, err)
	}
	size := int64(ra.Len())
	if size < headerSize {
		ra.Close()
		return nil, fmt.Errorf("tracelog: %s is %d bytes, smaller than the %d-byte header", path, size, headerSize)
	}
	return &Reader{ra: ra, off: headerSize, size: size}, nil
}

// Close releases the underlying mapping.
func (r *Reader) Close() error { return r.ra.Close() }

// Done reports whether the cursor has no more complete records to read.
func (r *Reader) Done() bool { return r.off+recordSize > r.size }

// Offset returns the cursor's current byte position, for diagnostics.
func (r *Reader) Offset() int64 { return r.off }

// Size returns the total byte length of the mapped log, for progress
// reporting (Offset()/Size() approximates how far the cursor has advanced).
func (r *Reader) Size() int64 { return r.size }

// Peek returns the record at the cursor without advancing it.
func (r *Reader) Peek() (Record, error) {
	if r.Done() {
		return Record{}, io.EOF
	}
	var buf [recordSize]byte
	if _, err := r.ra.ReadAt(buf[:], r.off); err != nil {
		return Record{}, fmt.Errorf("tracelog: read at %d: %w", r.off, err)
	}
	return decode(buf[:]), nil
}

// Next returns the record at the cursor and advances past it.
func (r *Reader) Next() (Record, error) {
	rec, err := r.Peek()
	if err != nil {
		return Record{}, err
	}
	r.off += recordSize
	return rec, nil
}

// FastForward advances the cursor to the next FN record whose arg1 equals
// num and whose pc equals pc, per the -n/-p driver flags. It returns
// io.EOF if no such record exists.
func (r *Reader) FastForward(num, pc uint64) error {
	for {
		rec, err := r.Peek()
		if err != nil {
			return err
		}
		if rec.Type == TypeFN && rec.Arg1 == num && rec.PC == pc {
			return nil
		}
		r.off += recordSize
	}
}

func decode(buf []byte) Record {
	le := binary.LittleEndian
	return Record{
		ASID: le.Uint64(buf[0:8]),
		PC:   le.Uint64(buf[8:16]),
		Type: Type(le.Uint64(buf[16:24])),
		Arg1: le.Uint64(buf[24:32]),
		Arg2: le.Uint64(buf[32:40]),
		Arg3: le.Uint64(buf[40:48]),
		Arg4: le.Uint64(buf[48:56]),
	}
}
