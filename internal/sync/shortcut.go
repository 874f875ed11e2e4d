package sync

import (
	"fmt"

	"github.com/chmdznr/course-state-sync/pkg/models"
)

// shortcutContent renders a link file pointing at url in the format the
// platform's file manager opens: an Internet Shortcut on Windows and macOS,
// a freedesktop Link entry elsewhere.
func shortcutContent(name, url string, platform models.Platform) []byte {
	switch platform {
	case models.PlatformWindows, models.PlatformDarwin:
		return []byte(fmt.Sprintf("[InternetShortcut]\r\nURL=%s\r\n", url))
	default:
		return []byte(fmt.Sprintf("[Desktop Entry]\nEncoding=UTF-8\nName=%s\nType=Link\nURL=%s\nIcon=text-html\n", name, url))
	}
}
