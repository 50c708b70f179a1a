package storage

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	apperrors "github.com/jittakal/avrobq/internal/errors"
)

// Schemes understood by the resolver.
const (
	SchemeFile  = "file"
	SchemeGCS   = "gs"
	SchemeS3    = "s3"
	SchemeAzure = "wasbs"
	SchemeKafka = "kafka"
)

// Location is a parsed storage reference.
type Location struct {
	Scheme string
	// Bucket is the bucket or container. Empty for local files.
	Bucket string
	// Key is the object key, or the filesystem path for local files.
	Key string
}

// ParseLocation splits a reference into scheme, bucket and key. References
// without a scheme are local paths. Azure references may carry the account
// host in the Hadoop form wasbs://container@account.blob.core.windows.net/key.
func ParseLocation(ref string) (Location, error) {
	scheme, rest, found := strings.Cut(ref, "://")
	if !found {
		if strings.HasPrefix(ref, "file:") {
			return Location{Scheme: SchemeFile, Key: strings.TrimPrefix(ref, "file:")}, nil
		}
		if i := strings.Index(ref, ":"); i > 1 && !strings.ContainsAny(ref[:i], `/\`) {
			// scheme:opaque such as hdfs:/data; a one letter prefix is a drive
			return Location{}, fmt.Errorf("%w: %s", apperrors.ErrUnsupportedScheme, ref[:i])
		}
		return Location{Scheme: SchemeFile, Key: ref}, nil
	}

	switch scheme {
	case SchemeFile:
		return Location{Scheme: SchemeFile, Key: rest}, nil
	case SchemeGCS, SchemeS3, SchemeAzure, SchemeKafka:
		bucket, key, _ := strings.Cut(rest, "/")
		if scheme == SchemeAzure {
			bucket, _, _ = strings.Cut(bucket, "@")
		}
		if bucket == "" {
			return Location{}, fmt.Errorf("missing bucket in %s", ref)
		}
		return Location{Scheme: scheme, Bucket: bucket, Key: key}, nil
	default:
		return Location{}, fmt.Errorf("%w: %s", apperrors.ErrUnsupportedScheme, scheme)
	}
}

// Join appends name to a directory or prefix reference.
func Join(ref, name string) string {
	loc, err := ParseLocation(ref)
	if err != nil || loc.Scheme == SchemeFile && !strings.HasPrefix(ref, "file:") {
		return filepath.Join(ref, name)
	}
	if loc.Scheme == SchemeFile {
		return "file://" + path.Join(loc.Key, name)
	}
	return strings.TrimSuffix(ref, "/") + "/" + name
}

// Base returns the last element of a reference.
func Base(ref string) string {
	loc, err := ParseLocation(ref)
	if err != nil || loc.Scheme == SchemeFile {
		return filepath.Base(strings.TrimPrefix(ref, "file://"))
	}
	return path.Base(loc.Key)
}

func (l Location) String() string {
	if l.Scheme == SchemeFile {
		return l.Key
	}
	return l.Scheme + "://" + l.Bucket + "/" + l.Key
}
