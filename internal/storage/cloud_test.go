package storage

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	apperrors "github.com/jittakal/avrobq/internal/errors"
)

func TestS3Store_PutInput(t *testing.T) {
	tests := []struct {
		name    string
		store   S3Store
		wantSSE types.ServerSideEncryption
		wantKMS string
	}{
		{"no encryption", S3Store{}, "", ""},
		{"AES256", S3Store{sseEnabled: true}, types.ServerSideEncryptionAes256, ""},
		{"KMS", S3Store{sseEnabled: true, sseKMSKeyID: "key-1"}, types.ServerSideEncryptionAwsKms, "key-1"},
	}

	loc := Location{Scheme: SchemeS3, Bucket: "bucket", Key: "out/part-m-00000-00000.json"}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := tt.store.putInput(loc, strings.NewReader(""))
			if aws.ToString(input.Bucket) != "bucket" || aws.ToString(input.Key) != loc.Key {
				t.Errorf("bucket/key = %s/%s", aws.ToString(input.Bucket), aws.ToString(input.Key))
			}
			if input.ServerSideEncryption != tt.wantSSE {
				t.Errorf("ServerSideEncryption = %s, want %s", input.ServerSideEncryption, tt.wantSSE)
			}
			if aws.ToString(input.SSEKMSKeyId) != tt.wantKMS {
				t.Errorf("SSEKMSKeyId = %s, want %s", aws.ToString(input.SSEKMSKeyId), tt.wantKMS)
			}
			if aws.ToString(input.ContentType) != "application/json" {
				t.Errorf("ContentType = %s", aws.ToString(input.ContentType))
			}
		})
	}
}

func TestAzureConnectionString(t *testing.T) {
	tests := []struct {
		name    string
		config  AzureConfig
		want    string
		missing string
	}{
		{
			name:    "public cloud",
			config:  AzureConfig{AccountName: "acct", AccountKey: "a2V5"},
			want:    "EndpointSuffix=core.windows.net",
			missing: "BlobEndpoint",
		},
		{
			name:    "custom endpoint",
			config:  AzureConfig{AccountName: "devstoreaccount1", AccountKey: "a2V5", Endpoint: "http://127.0.0.1:10000/devstoreaccount1"},
			want:    "BlobEndpoint=http://127.0.0.1:10000/devstoreaccount1",
			missing: "EndpointSuffix",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := azureConnectionString(tt.config)
			if !strings.Contains(got, tt.want) {
				t.Errorf("connection string %q does not contain %q", got, tt.want)
			}
			if strings.Contains(got, tt.missing) {
				t.Errorf("connection string %q should not contain %q", got, tt.missing)
			}
			if !strings.Contains(got, "AccountName="+tt.config.AccountName) {
				t.Errorf("connection string %q lacks the account", got)
			}
		})
	}
}

func TestGCSClientOptions(t *testing.T) {
	tests := []struct {
		name     string
		config   GCSConfig
		wantAuth string
		wantOpts int
	}{
		{"default credentials", GCSConfig{UseDefaultCredential: true, CredentialsFile: "ignored.json"}, "default", 0},
		{"credentials JSON", GCSConfig{CredentialsJSON: `{"type": "service_account"}`}, "json", 1},
		{"credentials file", GCSConfig{CredentialsFile: "/path/to/credentials.json"}, "file", 1},
		{"fallback", GCSConfig{}, "default", 0},
		{"with endpoint", GCSConfig{Endpoint: "http://localhost:4443/storage/v1/", UseDefaultCredential: true}, "default", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, auth := gcsClientOptions(tt.config)
			if auth != tt.wantAuth {
				t.Errorf("auth = %s, want %s", auth, tt.wantAuth)
			}
			if len(opts) != tt.wantOpts {
				t.Errorf("len(opts) = %d, want %d", len(opts), tt.wantOpts)
			}
		})
	}
}

func TestContentType(t *testing.T) {
	tests := map[string]string{
		"out/part-m-00000-00000.json":    "application/json",
		"out/part-m-00000-00000.json.gz": "application/gzip",
		"out/schema.bqsc":                "application/json",
		"in/a.avro":                      "application/avro",
		"misc.bin":                       "application/octet-stream",
	}
	for key, want := range tests {
		if got := contentType(key); got != want {
			t.Errorf("contentType(%s) = %s, want %s", key, got, want)
		}
	}
}

func TestCloudStores_RejectForeignSchemes(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		call func() error
	}{
		{"s3 store given gs", func() error {
			_, err := (&S3Store{logger: slog.Default()}).Open(ctx, "gs://b/k")
			return err
		}},
		{"gcs store given s3", func() error {
			_, err := (&GCSStore{logger: slog.Default()}).List(ctx, "s3://b/k")
			return err
		}},
		{"azure store given local", func() error {
			_, err := (&AzureStore{logger: slog.Default()}).Write(ctx, "/tmp/x", strings.NewReader(""))
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, apperrors.ErrUnsupportedScheme) {
				t.Errorf("error = %v, want ErrUnsupportedScheme", err)
			}
		})
	}
}
