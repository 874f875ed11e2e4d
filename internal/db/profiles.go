package db

import (
	"fmt"

	"github.com/chmdznr/course-state-sync/pkg/models"
)

// GetProfile retrieves a profile by name
func (db *DB) GetProfile(name string) (*models.Profile, error) {
	var (
		profile  models.Profile
		platform string
	)
	err := db.QueryRow(`
		SELECT name, root_path, listing_path, platform, workers, token,
			endpoint, bucket, folder, access_key, secret_key, secure
		FROM profiles WHERE name = ?
	`, name).Scan(
		&profile.Name,
		&profile.RootPath,
		&profile.ListingPath,
		&platform,
		&profile.Workers,
		&profile.Token,
		&profile.Destination.Endpoint,
		&profile.Destination.Bucket,
		&profile.Destination.Folder,
		&profile.Destination.AccessKey,
		&profile.Destination.SecretKey,
		&profile.Destination.Secure,
	)
	if err != nil {
		return nil, fmt.Errorf("profile not found: %w", err)
	}
	profile.Platform = models.Platform(platform)
	return &profile, nil
}

// SaveProfile creates or replaces a profile
func (db *DB) SaveProfile(profile *models.Profile) error {
	_, err := db.Exec(`
		INSERT OR REPLACE INTO profiles (name, root_path, listing_path, platform, workers, token,
			endpoint, bucket, folder, access_key, secret_key, secure)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		profile.Name,
		profile.RootPath,
		profile.ListingPath,
		string(profile.Platform),
		profile.Workers,
		profile.Token,
		profile.Destination.Endpoint,
		profile.Destination.Bucket,
		profile.Destination.Folder,
		profile.Destination.AccessKey,
		profile.Destination.SecretKey,
		profile.Destination.Secure,
	)
	return err
}
