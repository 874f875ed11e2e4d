package sync

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/afero"

	"github.com/chmdznr/course-state-sync/pkg/models"
)

// Sink is where a transferred file ends up
type Sink interface {
	Put(ctx context.Context, savedTo string, r io.Reader, size int64) error
}

// LocalSink writes files to their saved_to path on a filesystem
type LocalSink struct {
	fs afero.Fs
}

// NewLocalSink returns a sink writing to fs
func NewLocalSink(fs afero.Fs) *LocalSink {
	return &LocalSink{fs: fs}
}

// Put writes r to a temporary file next to savedTo and renames it into place,
// so an interrupted transfer never leaves a truncated file at savedTo.
func (s *LocalSink) Put(ctx context.Context, savedTo string, r io.Reader, size int64) error {
	if err := s.fs.MkdirAll(filepath.Dir(savedTo), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", savedTo, err)
	}

	partial := savedTo + ".part"
	f, err := s.fs.OpenFile(partial, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", partial, err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		s.fs.Remove(partial)
		return fmt.Errorf("failed to write %s: %w", savedTo, err)
	}
	if err := f.Close(); err != nil {
		s.fs.Remove(partial)
		return err
	}
	if err := s.fs.Rename(partial, savedTo); err != nil {
		// not every filesystem replaces an existing target on rename
		s.fs.Remove(savedTo)
		if err := s.fs.Rename(partial, savedTo); err != nil {
			s.fs.Remove(partial)
			return fmt.Errorf("failed to move %s into place: %w", savedTo, err)
		}
	}
	return nil
}

// MinioSink mirrors files into a bucket, keyed by their path below root
type MinioSink struct {
	client *minio.Client
	bucket string
	folder string
	root   string
}

// NewMinioSink creates a MinIO client for the profile's destination
func NewMinioSink(profile *models.Profile) (*MinioSink, error) {
	tr := &http.Transport{
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	client, err := minio.New(profile.Destination.Endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(profile.Destination.AccessKey, profile.Destination.SecretKey, ""),
		Secure:       profile.Destination.Secure,
		Transport:    tr,
		BucketLookup: minio.BucketLookupAuto,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MinIO client: %w", err)
	}

	return &MinioSink{
		client: client,
		bucket: profile.Destination.Bucket,
		folder: profile.Destination.Folder,
		root:   profile.RootPath,
	}, nil
}

// Put uploads r as the object for savedTo. A negative size streams.
func (s *MinioSink) Put(ctx context.Context, savedTo string, r io.Reader, size int64) error {
	key := objectKey(s.folder, s.root, savedTo)
	opts := minio.PutObjectOptions{
		ContentType: mime.TypeByExtension(path.Ext(key)),
	}

	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, opts)
	if err != nil {
		if minioErr, ok := err.(minio.ErrorResponse); ok {
			return fmt.Errorf("failed to upload %s/%s: %s: %s", s.bucket, key, minioErr.Code, minioErr.Message)
		}
		return fmt.Errorf("failed to upload %s/%s: %w", s.bucket, key, err)
	}
	return nil
}

// objectKey maps a local destination to an object key: the path below root,
// with forward slashes, inside folder.
func objectKey(folder, root, savedTo string) string {
	rel := savedTo
	if root != "" {
		if r, err := filepath.Rel(root, savedTo); err == nil && !strings.HasPrefix(r, "..") {
			rel = r
		}
	}
	rel = strings.ReplaceAll(filepath.ToSlash(rel), "\\", "/")

	var segments []string
	for _, s := range strings.Split(strings.Trim(folder, "/")+"/"+rel, "/") {
		if s != "" && s != "." {
			segments = append(segments, s)
		}
	}
	return strings.Join(segments, "/")
}
