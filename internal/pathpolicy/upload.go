// Validates binary asset uploads and derives their destination path.

package pathpolicy

import (
	"fmt"
	"path"
	"slices"
	"strings"
)

// MaxUploadBytes is the largest decoded upload accepted.
const MaxUploadBytes = 8 << 20

// DefaultAssetDir is where uploads land in the repository.
const DefaultAssetDir = "public/uploads"

// UploadTypes lists the accepted upload MIME types.
var UploadTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
	"image/svg+xml",
}

// CheckUpload validates the declared content type and decoded size of an
// upload. Path rules do not apply to uploads since the destination is
// derived by UploadPath.
func CheckUpload(contentType string, size int) Decision {
	if !slices.Contains(UploadTypes, strings.ToLower(strings.TrimSpace(contentType))) {
		return deny("invalid file type %q; allowed: %s", contentType, strings.Join(UploadTypes, ", "))
	}
	if size > MaxUploadBytes {
		return deny("file too large: %d bytes (max %d)", size, MaxUploadBytes)
	}
	return allow()
}

// SanitizeFilename replaces every byte outside [A-Za-z0-9.-] with '-' and
// lower-cases the result. Directory components are dropped first.
func SanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	b := []byte(name)
	for i, c := range b {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '.', c == '-':
		case c >= 'A' && c <= 'Z':
			b[i] = c + 'a' - 'A'
		default:
			b[i] = '-'
		}
	}
	return string(b)
}

// UploadPath returns the repository path for an uploaded file under dir.
// The caller never controls more than the final path element.
func UploadPath(dir, filename string) (string, error) {
	name := SanitizeFilename(filename)
	if strings.Trim(name, ".-") == "" {
		return "", fmt.Errorf("invalid filename %q", filename)
	}
	if dir == "" {
		dir = DefaultAssetDir
	}
	return strings.TrimSuffix(dir, "/") + "/" + name, nil
}
