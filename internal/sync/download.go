package sync

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cheggaaa/pb/v3"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/blake2b"

	"github.com/chmdznr/course-state-sync/pkg/models"
	"github.com/chmdznr/course-state-sync/pkg/pathtools"
	"github.com/chmdznr/course-state-sync/pkg/utils"
)

// TransferStore is the part of the file registry the download backend reads
// pending work from and reports results to
type TransferStore interface {
	GetPendingFiles() ([]models.FileRecord, error)
	UpdateFileStatus(courseID int, contentID string, status models.FileStatus, hash string) error
}

// DownloadConfig holds configuration for the download backend
type DownloadConfig struct {
	NumWorkers   int
	Token        string
	Platform     models.Platform
	Client       *http.Client
	ShowProgress bool
}

// DefaultDownloadConfig returns default download configuration
func DefaultDownloadConfig() DownloadConfig {
	return DownloadConfig{
		NumWorkers:   16,
		Platform:     pathtools.HostPlatform(),
		ShowProgress: true,
	}
}

// DownloadBackend fetches every pending registry entry into a sink
type DownloadBackend struct {
	store      TransferStore
	sink       Sink
	client     *http.Client
	token      string
	platform   models.Platform
	numWorkers int
	progress   bool

	mu     sync.Mutex
	failed []models.FailedTarget
}

// NewDownloadBackend creates a download backend
func NewDownloadBackend(store TransferStore, sink Sink, config *DownloadConfig) *DownloadBackend {
	if config == nil {
		defaultConfig := DefaultDownloadConfig()
		config = &defaultConfig
	}
	client := config.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Minute}
	}
	workers := config.NumWorkers
	if workers <= 0 {
		workers = 1
	}
	platform := config.Platform
	if platform == "" {
		platform = pathtools.HostPlatform()
	}

	return &DownloadBackend{
		store:      store,
		sink:       sink,
		client:     client,
		token:      config.Token,
		platform:   platform,
		numWorkers: workers,
		progress:   config.ShowProgress,
	}
}

func (b *DownloadBackend) Transfers() bool { return true }

// FailedTargets lists the entries that failed during the last Run
func (b *DownloadBackend) FailedTargets() []models.FailedTarget {
	b.mu.Lock()
	defer b.mu.Unlock()
	failed := make([]models.FailedTarget, len(b.failed))
	copy(failed, b.failed)
	return failed
}

// Run transfers all pending entries. Transfer failures are recorded rather
// than returned; only a registry read failure or cancellation ends Run with
// an error. Entries sharing a destination are handled by the same worker one
// after another, so a path never has two transfers in flight.
func (b *DownloadBackend) Run(ctx context.Context) error {
	files, err := b.store.GetPendingFiles()
	if err != nil {
		return fmt.Errorf("failed to get pending files: %w", err)
	}

	b.mu.Lock()
	b.failed = nil
	b.mu.Unlock()

	var (
		groups    [][]models.FileRecord
		index     = make(map[string]int)
		totalSize int64
	)
	for _, file := range files {
		totalSize += file.ContentFilesize
		if i, ok := index[file.SavedTo]; ok {
			groups[i] = append(groups[i], file)
			continue
		}
		index[file.SavedTo] = len(groups)
		groups = append(groups, []models.FileRecord{file})
	}

	log.Infof("Starting transfer of %d files (%s)", len(files), utils.FormatSize(totalSize))
	start := time.Now()

	var bar *pb.ProgressBar
	if b.progress {
		bar = pb.New(len(files))
		bar.SetTemplate(`{{counters . }} {{bar . }} {{percent . }} {{etime . }}`)
		bar.Start()
	}

	jobs := make(chan []models.FileRecord, b.numWorkers)
	var wg sync.WaitGroup
	for i := 0; i < b.numWorkers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for group := range jobs {
				for _, file := range group {
					if ctx.Err() != nil {
						continue
					}
					b.handle(ctx, id, file)
					if bar != nil {
						bar.Increment()
					}
				}
			}
		}(i)
	}

	for _, group := range groups {
		select {
		case jobs <- group:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}
	close(jobs)
	wg.Wait()

	if bar != nil {
		bar.Finish()
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("transfer interrupted: %w", err)
	}

	failed := b.FailedTargets()
	log.WithFields(log.Fields{
		"files":   len(files),
		"failed":  len(failed),
		"elapsed": utils.FormatDuration(time.Since(start)),
	}).Info("Transfer finished")
	return nil
}

func (b *DownloadBackend) handle(ctx context.Context, worker int, file models.FileRecord) {
	hash, err := b.transfer(ctx, file)
	if err != nil {
		if ctx.Err() != nil {
			// leave it pending for the next run
			return
		}
		log.WithFields(log.Fields{
			"worker":   worker,
			"course":   file.CourseID,
			"file":     file.ContentID,
			"saved_to": file.SavedTo,
		}).WithError(err).Warn("Transfer failed")

		if dbErr := b.store.UpdateFileStatus(file.CourseID, file.ContentID, models.StatusFailed, ""); dbErr != nil {
			log.WithError(dbErr).Warnf("Failed to update status for %s", file.SavedTo)
		}
		b.mu.Lock()
		b.failed = append(b.failed, models.FailedTarget{
			CourseID:  file.CourseID,
			ContentID: file.ContentID,
			URL:       file.ContentFileURL,
			SavedTo:   file.SavedTo,
			Err:       err,
		})
		b.mu.Unlock()
		return
	}

	if err := b.store.UpdateFileStatus(file.CourseID, file.ContentID, models.StatusStored, hash); err != nil {
		log.WithError(err).Warnf("Failed to update status for %s", file.SavedTo)
	}
}

// transfer delivers one entry to the sink and returns the blake2b-256 hash
// of what was written
func (b *DownloadBackend) transfer(ctx context.Context, file models.FileRecord) (string, error) {
	hasher, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}

	switch {
	case pathtools.IsURLModule(&file.File):
		content := shortcutContent(file.ContentFilename, file.ContentFileURL, b.platform)
		err = b.sink.Put(ctx, file.SavedTo, io.TeeReader(bytes.NewReader(content), hasher), int64(len(content)))

	// inline content is written as is, even when empty
	case file.ContentType == models.ContentDescription || file.ContentType == models.ContentHTML:
		content := []byte(file.HTML)
		err = b.sink.Put(ctx, file.SavedTo, io.TeeReader(bytes.NewReader(content), hasher), int64(len(content)))

	default:
		err = b.fetch(ctx, file, hasher)
	}
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

func (b *DownloadBackend) fetch(ctx context.Context, file models.FileRecord, hasher io.Writer) error {
	if file.ContentFileURL == "" {
		return fmt.Errorf("no url for %s", file.ContentFilename)
	}
	target, err := b.fileURL(file)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s for %s", resp.Status, file.ContentFilename)
	}

	return b.sink.Put(ctx, file.SavedTo, io.TeeReader(resp.Body, hasher), resp.ContentLength)
}

// fileURL adds the access token to platform-hosted files. External files are
// fetched as they are.
func (b *DownloadBackend) fileURL(file models.FileRecord) (string, error) {
	if b.token == "" || file.IsExternal {
		return file.ContentFileURL, nil
	}
	u, err := url.Parse(file.ContentFileURL)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", file.ContentFileURL, err)
	}
	q := u.Query()
	q.Set("token", b.token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
