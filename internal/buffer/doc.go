// Package buffer implements in-memory accumulation of JSON rows for one
// output part.
//
// A LineBuffer belongs to a single task. Rows are appended in source order,
// each followed by a newline, and the buffer tracks the byte size, row
// count and first write time that rotation policies inspect:
//
//	buf := buffer.New(maxPartSizeBytes, maxRecordsPerPart)
//	if err := buf.Add(row); errors.Is(err, apperrors.ErrBufferFull) {
//	    store.Write(ctx, router.Route(input, seq), buf.Drain())
//	    seq++
//	    buf.Add(row)
//	}
//
// A limit of zero disables it. A row that alone exceeds the size limit is
// accepted into an empty buffer, so no row is ever refused outright.
package buffer
