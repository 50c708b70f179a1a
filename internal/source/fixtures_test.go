package source

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/linkedin/goavro/v2"

	"github.com/jittakal/avrobq/pkg/avro"
)

const eventSchema = `{
  "type": "record",
  "name": "Event",
  "namespace": "com.example",
  "fields": [
    {"name": "id", "type": "long"},
    {"name": "name", "type": ["null", "string"]}
  ]
}`

func eventCodec(t *testing.T) *avro.Codec {
	t.Helper()
	codec, err := avro.NewCodec([]byte(eventSchema))
	if err != nil {
		t.Fatalf("NewCodec() error = %v", err)
	}
	return codec
}

func eventNative(id int64, name string) map[string]any {
	datum := map[string]any{"id": id, "name": nil}
	if name != "" {
		datum["name"] = goavro.Union("string", name)
	}
	return datum
}

// writeOCF writes the data as a container file and returns its path.
func writeOCF(t *testing.T, dir, name string, data ...map[string]any) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	w, err := goavro.NewOCFWriter(goavro.OCFConfig{W: f, Schema: eventSchema})
	if err != nil {
		t.Fatalf("NewOCFWriter() error = %v", err)
	}
	items := make([]any, len(data))
	for i, d := range data {
		items[i] = d
	}
	if len(items) > 0 {
		if err := w.Append(items); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}
	return path
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

type countingMetrics struct {
	mu       sync.Mutex
	read     int
	errors   int
	consumed map[int32]int
}

func (m *countingMetrics) IncRecordsRead(source string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.read++
}

func (m *countingMetrics) IncSourceErrors(source string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors++
}

func (m *countingMetrics) IncMessagesConsumed(topic string, partition int32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.consumed == nil {
		m.consumed = make(map[int32]int)
	}
	m.consumed[partition]++
}

// ids collects the id field of every record.
func ids(t *testing.T, recs []*avro.Record) []int64 {
	t.Helper()
	out := make([]int64, 0, len(recs))
	for _, rec := range recs {
		v, ok := rec.Get("id")
		if !ok {
			t.Fatalf("record without id: %v", rec.Names())
		}
		out = append(out, int64(v.(avro.Long)))
	}
	return out
}
