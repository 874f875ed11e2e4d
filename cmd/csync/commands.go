package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/eiannone/keyboard"
	homedir "github.com/mitchellh/go-homedir"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"

	"github.com/chmdznr/course-state-sync/internal/db"
	"github.com/chmdznr/course-state-sync/internal/listing"
	"github.com/chmdznr/course-state-sync/internal/sync"
	"github.com/chmdznr/course-state-sync/pkg/models"
	"github.com/chmdznr/course-state-sync/pkg/pathtools"
	"github.com/chmdznr/course-state-sync/pkg/utils"
)

// exitFailedTransfers is the exit code of a sync whose transfers partly failed
const exitFailedTransfers = 2

func openRegistry(c *cli.Context, profileName string) (*db.DB, error) {
	registry, err := db.New(c.String("db-dir"), profileName)
	if err != nil {
		return nil, fmt.Errorf("failed to open registry: %w", err)
	}
	return registry, nil
}

// createProfile stores the sync configuration of a profile in its registry.
//
// The root path may start with ~, which is expanded to the home directory.
// A MinIO destination is optional; without one files are written below root.
func createProfile(c *cli.Context) error {
	profileName := c.String("name")

	registry, err := openRegistry(c, profileName)
	if err != nil {
		return err
	}
	defer registry.Close()

	root, err := homedir.Expand(c.String("root"))
	if err != nil {
		return fmt.Errorf("invalid root path: %w", err)
	}
	platform, err := pathtools.ParsePlatform(c.String("platform"))
	if err != nil {
		return err
	}

	profile := &models.Profile{
		Name:        profileName,
		RootPath:    root,
		ListingPath: c.String("listing"),
		Platform:    platform,
		Workers:     c.Int("workers"),
		Token:       c.String("token"),
	}
	profile.Destination.Endpoint = c.String("endpoint")
	profile.Destination.Bucket = c.String("bucket")
	profile.Destination.Folder = c.String("folder")
	profile.Destination.AccessKey = c.String("access-key")
	profile.Destination.SecretKey = c.String("secret-key")
	profile.Destination.Secure = c.Bool("secure")

	if err := registry.SaveProfile(profile); err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}

	fmt.Printf("Profile '%s' created successfully\n", profileName)
	return nil
}

func startSync(c *cli.Context) error {
	profileName := c.String("profile")

	registry, err := openRegistry(c, profileName)
	if err != nil {
		return err
	}
	defer registry.Close()

	profile, err := registry.GetProfile(profileName)
	if err != nil {
		return fmt.Errorf("failed to get profile: %w", err)
	}

	platform := profile.Platform
	if c.IsSet("platform") {
		if platform, err = pathtools.ParsePlatform(c.String("platform")); err != nil {
			return err
		}
	}
	listingPath := profile.ListingPath
	if c.IsSet("listing") {
		listingPath = c.String("listing")
	}
	workers := profile.Workers
	if c.IsSet("workers") {
		workers = c.Int("workers")
	}

	courses, err := listing.NewLoader(afero.NewOsFs()).Load(listingPath)
	if err != nil {
		return fmt.Errorf("failed to load listing: %w", err)
	}

	var backend sync.Backend
	if c.Bool("fake") {
		backend = sync.NewBookkeepingBackend()
	} else {
		var sink sync.Sink = sync.NewLocalSink(afero.NewOsFs())
		if profile.HasMinio() {
			if sink, err = sync.NewMinioSink(profile); err != nil {
				return err
			}
		}
		backend = sync.NewDownloadBackend(registry, sink, &sync.DownloadConfig{
			NumWorkers:   workers,
			Token:        profile.Token,
			Platform:     platform,
			ShowProgress: true,
		})
	}

	driver := sync.NewDriver(registry, backend, sync.DriverConfig{
		Profile:      profileName,
		Root:         profile.RootPath,
		Platform:     platform,
		PruneMissing: c.Bool("prune"),
	})

	if _, err := driver.Sync(courses); err != nil {
		return fmt.Errorf("failed to sync registry: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	if c.Bool("interactive") && backend.Transfers() {
		watchKeys(ctx, cancel)
	}

	if err := driver.Run(ctx); err != nil {
		return err
	}

	failed := driver.FailedTargets()
	if len(failed) > 0 {
		fmt.Printf("\n%d files could not be transferred:\n", len(failed))
		for _, f := range failed {
			fmt.Printf("- %s (%s): %v\n", f.SavedTo, f.URL, f.Err)
		}
		return cli.Exit("sync finished with failed transfers", exitFailedTransfers)
	}

	fmt.Println("Sync completed successfully")
	return nil
}

// watchKeys cancels ctx when q or Esc is pressed
func watchKeys(ctx context.Context, cancel context.CancelFunc) {
	keys, err := keyboard.GetKeys(10)
	if err != nil {
		log.WithError(err).Warn("Keyboard unavailable, use Ctrl+C to stop")
		return
	}
	fmt.Println("Press q or Esc to stop downloading")

	go func() {
		defer keyboard.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event := <-keys:
				if event.Err != nil {
					return
				}
				if event.Rune == 'q' || event.Key == keyboard.KeyEsc || event.Key == keyboard.KeyCtrlC {
					log.Warn("Stopping, unfinished files stay pending")
					cancel()
					return
				}
			}
		}
	}()
}

// showStatus shows the registry totals of a profile, its last pass and a
// per-course breakdown
func showStatus(c *cli.Context) error {
	profileName := c.String("profile")

	registry, err := openRegistry(c, profileName)
	if err != nil {
		return err
	}
	defer registry.Close()

	profile, err := registry.GetProfile(profileName)
	if err != nil {
		return fmt.Errorf("failed to get profile: %w", err)
	}
	stats, err := registry.GetStats()
	if err != nil {
		return err
	}
	last, err := registry.LastPass(profileName)
	if err != nil {
		return fmt.Errorf("failed to get last pass: %w", err)
	}

	fmt.Printf("Profile: %s\n", profile.Name)
	fmt.Printf("Root Path: %s\n", profile.RootPath)
	fmt.Printf("Listing: %s\n", profile.ListingPath)
	if profile.HasMinio() {
		fmt.Printf("Mirror: %s/%s/%s\n", profile.Destination.Endpoint, profile.Destination.Bucket, profile.Destination.Folder)
	}
	if last != nil {
		fmt.Printf("Last Pass: %s (%d saved, %d deleted, %d pruned)\n",
			humanize.Time(last.FinishedAt), last.Saved, last.Deleted, last.Pruned)
	} else {
		fmt.Println("Last Pass: never")
	}
	fmt.Printf("Courses: %d\n", stats.Courses)
	fmt.Printf("Total Files: %d (Size: %s)\n", stats.TotalFiles, utils.FormatSize(stats.TotalSize))
	fmt.Printf("Files Stored: %d (Size: %s)\n", stats.StoredFiles, utils.FormatSize(stats.StoredSize))
	fmt.Printf("Files Pending: %d (Size: %s)\n", stats.PendingFiles, utils.FormatSize(stats.PendingSize))
	fmt.Printf("Files Failed: %d (Size: %s)\n", stats.FailedFiles, utils.FormatSize(stats.FailedSize))

	courses, err := registry.GetCourseStats()
	if err != nil {
		return err
	}
	if len(courses) == 0 {
		return nil
	}
	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCOURSE\tFILES\tSIZE\tPENDING")
	for _, cs := range courses {
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%d\n", cs.CourseID, cs.CourseFullname, cs.Files, utils.FormatSize(cs.Size), cs.Pending)
	}
	return w.Flush()
}

func listFiles(c *cli.Context) error {
	registry, err := openRegistry(c, c.String("profile"))
	if err != nil {
		return err
	}
	defer registry.Close()

	var files []models.FileRecord
	if c.IsSet("course") {
		files, err = registry.GetFiles(c.Int("course"))
	} else {
		files, err = registry.GetAllFiles()
	}
	if err != nil {
		return fmt.Errorf("failed to list files: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "COURSE\tID\tSTATUS\tSIZE\tSAVED TO")
	for _, f := range files {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", f.CourseID, f.ContentID, f.Status, utils.FormatSize(f.ContentFilesize), f.SavedTo)
	}
	return w.Flush()
}
