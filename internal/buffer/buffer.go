package buffer

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/jittakal/avrobq/internal/errors"
	"github.com/jittakal/avrobq/pkg/buffer"
	"github.com/jittakal/avrobq/pkg/storage"
)

// Ensure implementation satisfies interface at compile time.
var _ buffer.Buffer = (*LineBuffer)(nil)

// LineBuffer holds newline-terminated rows for one part.
type LineBuffer struct {
	data           *bytes.Buffer
	maxSizeBytes   int64
	maxRecords     int
	records        int
	firstWriteTime time.Time
	mu             sync.RWMutex
}

// New creates a line buffer. Zero limits are unlimited.
func New(maxSizeBytes int64, maxRecords int) *LineBuffer {
	return &LineBuffer{
		data:         new(bytes.Buffer),
		maxSizeBytes: maxSizeBytes,
		maxRecords:   maxRecords,
	}
}

// Add appends row and a newline.
func (b *LineBuffer) Add(row []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.records > 0 {
		if b.maxRecords > 0 && b.records >= b.maxRecords {
			return fmt.Errorf("%w: max records (%d) reached", errors.ErrBufferFull, b.maxRecords)
		}
		if b.maxSizeBytes > 0 && int64(b.data.Len()+len(row)+1) > b.maxSizeBytes {
			return fmt.Errorf("%w: max size (%d bytes) would be exceeded", errors.ErrBufferFull, b.maxSizeBytes)
		}
	}

	b.data.Write(row)
	b.data.WriteByte('\n')
	b.records++

	if b.firstWriteTime.IsZero() {
		b.firstWriteTime = time.Now()
	}
	return nil
}

// Drain hands the content to the caller. The buffer starts a fresh backing
// array, so the reader stays valid after further calls to Add.
func (b *LineBuffer) Drain() *bytes.Reader {
	b.mu.Lock()
	defer b.mu.Unlock()

	r := bytes.NewReader(b.data.Bytes())
	b.reset()
	return r
}

// Stats returns the current part statistics.
func (b *LineBuffer) Stats() storage.PartStats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return storage.PartStats{
		SizeBytes:      int64(b.data.Len()),
		RecordCount:    b.records,
		FirstWriteTime: b.firstWriteTime,
	}
}

// IsEmpty returns true if the buffer is empty.
func (b *LineBuffer) IsEmpty() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.records == 0
}

// Reset clears the buffer and resets all statistics.
func (b *LineBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reset()
}

func (b *LineBuffer) reset() {
	b.data = new(bytes.Buffer)
	b.records = 0
	b.firstWriteTime = time.Time{}
}
