package rooms

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	slugDisallowed = regexp.MustCompile(`[^a-z0-9_\s-]`)
	slugSpaces     = regexp.MustCompile(`\s+`)
	slugDashes     = regexp.MustCompile(`-+`)
)

// Slugify builds a URL-friendly room slug from its name and creation time, e.g.
// "Team Sketch!" at 1700000000000ms becomes "team-sketch-loyw3v28".
func Slugify(name string, now time.Time) string {
	base := strings.TrimSpace(strings.ToLower(name))
	base = slugDisallowed.ReplaceAllString(base, "")
	base = slugSpaces.ReplaceAllString(base, "-")
	base = slugDashes.ReplaceAllString(base, "-")
	return base + "-" + strconv.FormatInt(now.UnixMilli(), 36)
}
