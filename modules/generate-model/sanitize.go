package generatemodel

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// SanitizeAssetName normalizes a source filename into the character set the
// remote asset API accepts: lower-case, spaces to underscores, everything
// outside [a-z0-9_.] stripped. When the result is empty or does not start
// with an alphanumeric, a timestamped name carrying the original extension is
// synthesized instead.
func SanitizeAssetName(filename string) string {
	name := strings.ToLower(filename)
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '.' {
			return r
		}
		return -1
	}, name)

	if name == "" || !isAlphanumeric(rune(name[0])) {
		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
		if ext == "" {
			ext = "png"
		}
		name = fmt.Sprintf("mpx_%d.%s", time.Now().Unix(), ext)
	}

	return name
}

func isAlphanumeric(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
}

// DetectMimeType maps a filename extension to the upload content type,
// defaulting to PNG for anything unrecognized.
func DetectMimeType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".bmp":
		return "image/bmp"
	case ".webp":
		return "image/webp"
	default:
		return "image/png"
	}
}
