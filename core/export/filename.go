package export

import (
	"regexp"
	"strings"
	"time"
)

const defaultImageExt = "jpg"

var imageExtRegex = regexp.MustCompile(`\.([a-zA-Z0-9]+)(?:\?|$)`)

// ImageFilename returns the deterministic name an image is archived under:
// `{sanitized-name}-{YYYY-MM-DD}.{ext}`, the date being the tribute creation day (UTC).
func ImageFilename(name string, createdAt time.Time, imageRef string) string {
	return sanitizeName(name) + "-" + createdAt.UTC().Format("2006-01-02") + "." + imageExtension(imageRef)
}

// sanitizeName replaces every rune outside [A-Za-z0-9] with a dash, one dash per rune.
func sanitizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || ('0' <= r && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('-')
		}
	}
	return b.String()
}

func imageExtension(ref string) string {
	if m := imageExtRegex.FindStringSubmatch(ref); m != nil {
		return strings.ToLower(m[1])
	}
	return defaultImageExt
}
