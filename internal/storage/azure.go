package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"

	apperrors "github.com/jittakal/avrobq/internal/errors"
	"github.com/jittakal/avrobq/pkg/storage"
)

// Ensure implementation satisfies interface at compile time.
var _ storage.Store = (*AzureStore)(nil)

// AzureConfig contains Azure Blob Storage configuration.
type AzureConfig struct {
	AccountName string
	AccountKey  string
	Endpoint    string
}

// AzureStore implements storage.Store for wasbs:// locations. The
// container is taken from each location.
type AzureStore struct {
	client  *azblob.Client
	logger  *slog.Logger
	metrics MetricsCollector
}

func azureConnectionString(cfg AzureConfig) string {
	if cfg.Endpoint != "" {
		return fmt.Sprintf("DefaultEndpointsProtocol=https;AccountName=%s;AccountKey=%s;BlobEndpoint=%s",
			cfg.AccountName, cfg.AccountKey, cfg.Endpoint)
	}
	return fmt.Sprintf("DefaultEndpointsProtocol=https;AccountName=%s;AccountKey=%s;EndpointSuffix=core.windows.net",
		cfg.AccountName, cfg.AccountKey)
}

// NewAzureStore creates a new Azure Blob store.
func NewAzureStore(cfg AzureConfig, logger *slog.Logger, metrics MetricsCollector) (*AzureStore, error) {
	client, err := azblob.NewClientFromConnectionString(azureConnectionString(cfg), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure client: %w", err)
	}

	logger.Info("Azure store created", "account", cfg.AccountName)

	return &AzureStore{client: client, logger: logger, metrics: metrics}, nil
}

func azureLocation(ref string) (Location, error) {
	loc, err := ParseLocation(ref)
	if err != nil {
		return Location{}, err
	}
	if loc.Scheme != SchemeAzure {
		return Location{}, fmt.Errorf("%w: azure store cannot handle %s", apperrors.ErrUnsupportedScheme, ref)
	}
	return loc, nil
}

// Open opens a blob for reading.
func (s *AzureStore) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	loc, err := azureLocation(ref)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.DownloadStream(ctx, loc.Bucket, loc.Key, nil)
	if err != nil {
		s.incErrors("open")
		return nil, &apperrors.StorageError{Operation: "open", Path: ref, Err: err}
	}
	return resp.Body, nil
}

// List returns the blob named by ref, or every blob under the prefix.
func (s *AzureStore) List(ctx context.Context, ref string) ([]storage.Object, error) {
	loc, err := azureLocation(ref)
	if err != nil {
		return nil, err
	}

	pager := s.client.NewListBlobsFlatPager(loc.Bucket, &azblob.ListBlobsFlatOptions{
		Prefix: &loc.Key,
	})

	dir := loc.Key
	if dir != "" && !strings.HasSuffix(dir, "/") {
		dir += "/"
	}

	var objects []storage.Object
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			s.incErrors("list")
			return nil, &apperrors.StorageError{Operation: "list", Path: ref, Err: err}
		}
		for _, item := range page.Segment.BlobItems {
			if item.Name == nil {
				continue
			}
			var size int64
			if item.Properties != nil && item.Properties.ContentLength != nil {
				size = *item.Properties.ContentLength
			}
			obj := storage.Object{Path: "wasbs://" + loc.Bucket + "/" + *item.Name, Size: size}
			if *item.Name == loc.Key {
				return []storage.Object{obj}, nil
			}
			// the prefix also matches siblings such as data.avro.bak
			if strings.HasPrefix(*item.Name, dir) && !strings.HasSuffix(*item.Name, "/") {
				objects = append(objects, obj)
			}
		}
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Path < objects[j].Path })
	return objects, nil
}

// Write uploads r as one block blob.
func (s *AzureStore) Write(ctx context.Context, ref string, r io.Reader) (int64, error) {
	loc, err := azureLocation(ref)
	if err != nil {
		return 0, err
	}
	startTime := time.Now()

	ct := contentType(loc.Key)
	counter := &countingReader{r: r}
	_, err = s.client.UploadStream(ctx, loc.Bucket, loc.Key, counter, &azblob.UploadStreamOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &ct},
	})
	if err != nil {
		s.incErrors("write")
		return 0, &apperrors.StorageError{Operation: "upload", Path: ref, Err: err}
	}

	duration := time.Since(startTime)
	s.logger.Info("wrote blob to Azure",
		"container", loc.Bucket,
		"blob", loc.Key,
		"bytes_written", counter.n,
		"total_duration_ms", duration.Milliseconds(),
	)
	if s.metrics != nil {
		s.metrics.ObservePartWritten("azure", counter.n, duration.Seconds())
	}
	return counter.n, nil
}

// Close closes the Azure store.
func (s *AzureStore) Close() error {
	s.logger.Info("Azure store closed")
	return nil
}

func (s *AzureStore) incErrors(operation string) {
	if s.metrics != nil {
		s.metrics.IncStorageErrors("azure", operation)
	}
}
