package storage

import (
	"errors"
	"path/filepath"
	"testing"

	apperrors "github.com/jittakal/avrobq/internal/errors"
)

func TestParseLocation(t *testing.T) {
	tests := []struct {
		ref  string
		want Location
	}{
		{"data/part-0.avro", Location{Scheme: SchemeFile, Key: "data/part-0.avro"}},
		{"/abs/part-0.avro", Location{Scheme: SchemeFile, Key: "/abs/part-0.avro"}},
		{"file:///abs/part-0.avro", Location{Scheme: SchemeFile, Key: "/abs/part-0.avro"}},
		{"file:/abs/part-0.avro", Location{Scheme: SchemeFile, Key: "/abs/part-0.avro"}},
		{`C:\data\part-0.avro`, Location{Scheme: SchemeFile, Key: `C:\data\part-0.avro`}},
		{"gs://bucket/dir/part-0.avro", Location{Scheme: SchemeGCS, Bucket: "bucket", Key: "dir/part-0.avro"}},
		{"gs://bucket", Location{Scheme: SchemeGCS, Bucket: "bucket"}},
		{"s3://bucket/key", Location{Scheme: SchemeS3, Bucket: "bucket", Key: "key"}},
		{"wasbs://box/out/", Location{Scheme: SchemeAzure, Bucket: "box", Key: "out/"}},
		{
			"wasbs://box@acct.blob.core.windows.net/out/a.json",
			Location{Scheme: SchemeAzure, Bucket: "box", Key: "out/a.json"},
		},
		{"kafka://events", Location{Scheme: SchemeKafka, Bucket: "events"}},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, err := ParseLocation(tt.ref)
			if err != nil {
				t.Fatalf("ParseLocation() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseLocation() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseLocation_Errors(t *testing.T) {
	tests := []struct {
		ref         string
		unsupported bool
	}{
		{"hdfs://namenode/data", true},
		{"hdfs:/data/part-0.avro", true},
		{"http://example.com/a.avro", true},
		{"gs:///no-bucket", false},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			_, err := ParseLocation(tt.ref)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.Is(err, apperrors.ErrUnsupportedScheme); got != tt.unsupported {
				t.Errorf("errors.Is(ErrUnsupportedScheme) = %v, want %v (%v)", got, tt.unsupported, err)
			}
		})
	}
}

func TestJoin(t *testing.T) {
	tests := []struct {
		ref  string
		name string
		want string
	}{
		{"out", "schema.bqsc", filepath.Join("out", "schema.bqsc")},
		{"file:///tmp/out", "a.json", "file:///tmp/out/a.json"},
		{"gs://bucket/out", "a.json", "gs://bucket/out/a.json"},
		{"gs://bucket/out/", "a.json", "gs://bucket/out/a.json"},
		{"s3://bucket", "a.json", "s3://bucket/a.json"},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			if got := Join(tt.ref, tt.name); got != tt.want {
				t.Errorf("Join() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestBase(t *testing.T) {
	tests := []struct {
		ref  string
		want string
	}{
		{"data/part-0.avro", "part-0.avro"},
		{"file:///tmp/x.avro", "x.avro"},
		{"gs://bucket/dir/y.avro", "y.avro"},
		{"s3://bucket/k", "k"},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			if got := Base(tt.ref); got != tt.want {
				t.Errorf("Base() = %s, want %s", got, tt.want)
			}
		})
	}
}
