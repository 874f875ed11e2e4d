package pathtools

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/chmdznr/course-state-sync/pkg/models"
)

// extensionRule maps a class of files to the extension appended to their
// sanitized filename. Rules are checked in order and the first match wins.
type extensionRule struct {
	name  string
	match func(file *models.File) bool
	ext   func(platform models.Platform) string
}

var extensionRules = []extensionRule{
	{
		name:  "description",
		match: func(f *models.File) bool { return f.ContentType == models.ContentDescription },
		ext:   fixed(".md"),
	},
	{
		name:  "html",
		match: func(f *models.File) bool { return f.ContentType == models.ContentHTML },
		ext:   fixed(".html"),
	},
	{
		name:  "url module",
		match: func(f *models.File) bool { return IsURLModule(f) },
		ext:   ShortcutExtension,
	},
}

func fixed(ext string) func(models.Platform) string {
	return func(models.Platform) string { return ext }
}

// IsURLModule reports whether file originates from a url activity.
func IsURLModule(file *models.File) bool {
	return strings.HasPrefix(file.ModuleModname, "url")
}

// ShortcutExtension is the link-file extension used on platform.
func ShortcutExtension(platform models.Platform) string {
	switch platform {
	case models.PlatformWindows, models.PlatformDarwin:
		return ".URL"
	default:
		return ".desktop"
	}
}

// ExtensionFor returns the extension appended to the sanitized filename of
// file, or "" when no rule applies.
func ExtensionFor(file *models.File, platform models.Platform) string {
	for _, rule := range extensionRules {
		if rule.match(file) {
			return rule.ext(platform)
		}
	}
	return ""
}

// ResolveSavedTo joins the base directory with the sanitized filename and the
// extension selected for file. It does not touch the filesystem.
func ResolveSavedTo(base, filename string, file *models.File, platform models.Platform) string {
	return filepath.Join(base, filename+ExtensionFor(file, platform))
}

// HostPlatform returns the platform family of the running binary.
func HostPlatform() models.Platform {
	return platformFromGOOS(runtime.GOOS)
}

func platformFromGOOS(goos string) models.Platform {
	switch goos {
	case "windows":
		return models.PlatformWindows
	case "darwin", "ios":
		return models.PlatformDarwin
	default:
		return models.PlatformLinux
	}
}

// ParsePlatform parses a --platform value. An empty value selects the host.
func ParsePlatform(s string) (models.Platform, error) {
	switch strings.ToLower(s) {
	case "":
		return HostPlatform(), nil
	case "linux":
		return models.PlatformLinux, nil
	case "windows":
		return models.PlatformWindows, nil
	case "darwin", "macos":
		return models.PlatformDarwin, nil
	}
	return "", fmt.Errorf("unknown platform %q", s)
}
