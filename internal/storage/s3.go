package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	apperrors "github.com/jittakal/avrobq/internal/errors"
	"github.com/jittakal/avrobq/pkg/storage"
)

// Ensure implementation satisfies interface at compile time.
var _ storage.Store = (*S3Store)(nil)

// S3Config contains AWS S3 configuration.
type S3Config struct {
	Region       string
	Endpoint     string
	UsePathStyle bool
	SSEEnabled   bool
	SSEKMSKeyID  string
}

// S3Store implements storage.Store for s3:// locations.
// It uploads through the multipart manager and applies server-side
// encryption when enabled.
type S3Store struct {
	client      *s3.Client
	uploader    *manager.Uploader
	sseEnabled  bool
	sseKMSKeyID string
	logger      *slog.Logger
	metrics     MetricsCollector
}

// NewS3Store creates a new S3 store.
func NewS3Store(ctx context.Context, cfg S3Config, logger *slog.Logger, metrics MetricsCollector) (*S3Store, error) {
	awsConfig, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	uploader := manager.NewUploader(s3Client, func(u *manager.Uploader) {
		u.PartSize = 10 * 1024 * 1024 // 10MB parts
		u.Concurrency = 5
	})

	logger.Info("S3 store created",
		"region", cfg.Region,
		"sse_enabled", cfg.SSEEnabled,
	)

	return &S3Store{
		client:      s3Client,
		uploader:    uploader,
		sseEnabled:  cfg.SSEEnabled,
		sseKMSKeyID: cfg.SSEKMSKeyID,
		logger:      logger,
		metrics:     metrics,
	}, nil
}

func s3Location(ref string) (Location, error) {
	loc, err := ParseLocation(ref)
	if err != nil {
		return Location{}, err
	}
	if loc.Scheme != SchemeS3 {
		return Location{}, fmt.Errorf("%w: s3 store cannot handle %s", apperrors.ErrUnsupportedScheme, ref)
	}
	return loc, nil
}

// Open opens an object for reading.
func (s *S3Store) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	loc, err := s3Location(ref)
	if err != nil {
		return nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	if err != nil {
		s.incErrors("open")
		return nil, &apperrors.StorageError{Operation: "open", Path: ref, Err: err}
	}
	return out.Body, nil
}

// List returns the object named by ref, or every object under the prefix.
func (s *S3Store) List(ctx context.Context, ref string) ([]storage.Object, error) {
	loc, err := s3Location(ref)
	if err != nil {
		return nil, err
	}

	if loc.Key != "" && !strings.HasSuffix(loc.Key, "/") {
		head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(loc.Bucket),
			Key:    aws.String(loc.Key),
		})
		if err == nil {
			return []storage.Object{{Path: ref, Size: aws.ToInt64(head.ContentLength)}}, nil
		}
		// A missing key is treated as a prefix
	}

	prefix := loc.Key
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	var objects []storage.Object
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(loc.Bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			s.incErrors("list")
			return nil, &apperrors.StorageError{Operation: "list", Path: ref, Err: err}
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if strings.HasSuffix(key, "/") {
				continue
			}
			objects = append(objects, storage.Object{
				Path: "s3://" + loc.Bucket + "/" + key,
				Size: aws.ToInt64(obj.Size),
			})
		}
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Path < objects[j].Path })
	return objects, nil
}

// putInput prepares the upload request, adding SSE if enabled.
func (s *S3Store) putInput(loc Location, body io.Reader) *s3.PutObjectInput {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(loc.Bucket),
		Key:         aws.String(loc.Key),
		Body:        body,
		ContentType: aws.String(contentType(loc.Key)),
	}
	if s.sseEnabled {
		if s.sseKMSKeyID != "" {
			input.ServerSideEncryption = types.ServerSideEncryptionAwsKms
			input.SSEKMSKeyId = aws.String(s.sseKMSKeyID)
		} else {
			input.ServerSideEncryption = types.ServerSideEncryptionAes256
		}
	}
	return input
}

// Write uploads r as one object.
func (s *S3Store) Write(ctx context.Context, ref string, r io.Reader) (int64, error) {
	loc, err := s3Location(ref)
	if err != nil {
		return 0, err
	}
	startTime := time.Now()

	counter := &countingReader{r: r}
	result, err := s.uploader.Upload(ctx, s.putInput(loc, counter))
	if err != nil {
		s.incErrors("write")
		return 0, &apperrors.StorageError{Operation: "upload", Path: ref, Err: err}
	}

	duration := time.Since(startTime)
	s.logger.Info("wrote object to S3",
		"bucket", loc.Bucket,
		"key", loc.Key,
		"bytes_written", counter.n,
		"location", result.Location,
		"total_duration_ms", duration.Milliseconds(),
	)
	if s.metrics != nil {
		s.metrics.ObservePartWritten("s3", counter.n, duration.Seconds())
	}
	return counter.n, nil
}

// Close closes the S3 store.
func (s *S3Store) Close() error {
	s.logger.Info("closing S3 store")
	return nil
}

func (s *S3Store) incErrors(operation string) {
	if s.metrics != nil {
		s.metrics.IncStorageErrors("s3", operation)
	}
}

// countingReader counts the bytes an uploader pulls from r.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
