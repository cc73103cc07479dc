package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// SourceFetcher resolves an import source identifier into raw bytes.
// Plain identifiers are local file paths; "s3://bucket/key" pulls the
// snapshot from S3 (register snapshots are published to a bucket by the
// nightly sync). The S3 client is optional.
type SourceFetcher struct {
	s3 *s3.Client
}

// NewSourceFetcher returns a fetcher for local paths only.
func NewSourceFetcher() *SourceFetcher {
	return &SourceFetcher{}
}

// WithS3 enables s3:// sources.
func (f *SourceFetcher) WithS3(client *s3.Client) *SourceFetcher {
	f.s3 = client
	return f
}

// Fetch reads the whole source into memory. Any failure is a *ReadError.
func (f *SourceFetcher) Fetch(ctx context.Context, source string) ([]byte, error) {
	if strings.HasPrefix(source, "s3://") {
		return f.fetchS3(ctx, source)
	}
	data, err := os.ReadFile(source)
	if err != nil {
		return nil, &ReadError{Source: source, Err: err}
	}
	return data, nil
}

func (f *SourceFetcher) fetchS3(ctx context.Context, source string) ([]byte, error) {
	if f.s3 == nil {
		return nil, &ReadError{Source: source, Err: fmt.Errorf("no S3 client configured")}
	}
	bucket, key, ok := splitS3URL(source)
	if !ok {
		return nil, &ReadError{Source: source, Err: fmt.Errorf("malformed s3 url")}
	}
	out, err := f.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, &ReadError{Source: source, Err: err}
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, &ReadError{Source: source, Err: err}
	}
	return data, nil
}

func splitS3URL(source string) (bucket, key string, ok bool) {
	rest := strings.TrimPrefix(source, "s3://")
	slash := strings.Index(rest, "/")
	if slash <= 0 || slash == len(rest)-1 {
		return "", "", false
	}
	return rest[:slash], rest[slash+1:], true
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// stripBOM removes a UTF-8 byte order mark if present. Register snapshots
// exported from spreadsheet tools routinely carry one.
func stripBOM(data []byte) []byte {
	return bytes.TrimPrefix(data, utf8BOM)
}
