package media

import "fmt"

// UploadError marks a size or type constraint violated before any bytes left
// the process, so callers can tell local validation apart from transport
// failures.
type UploadError struct {
	Reason string
}

func (e *UploadError) Error() string { return e.Reason }

// BlueskyMaxBlobBytes is the hard cap the AT Protocol puts on a single blob.
const BlueskyMaxBlobBytes = 1_000_000

// Constraint describes what one platform accepts before the adapter is even
// consulted. Platform posting rules (required boards, required media) belong
// to the adapters; this table only covers bytes and types.
type Constraint struct {
	MaxBytes     int64
	AllowedMimes map[string]struct{}
}

func mimes(list ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(list))
	for _, v := range list {
		m[v] = struct{}{}
	}
	return m
}

var constraints = map[string]Constraint{
	"mastodon": {
		MaxBytes:     40 * 1024 * 1024,
		AllowedMimes: mimes("image/jpeg", "image/png", "image/gif", "image/webp", "video/mp4", "video/quicktime"),
	},
	"x": {
		MaxBytes:     512 * 1024 * 1024,
		AllowedMimes: mimes("image/jpeg", "image/png", "image/gif", "image/webp", "video/mp4"),
	},
	"pinterest": {
		MaxBytes:     20 * 1024 * 1024,
		AllowedMimes: mimes("image/jpeg", "image/png"),
	},
	"bluesky": {
		MaxBytes:     BlueskyMaxBlobBytes,
		AllowedMimes: mimes("image/jpeg", "image/png", "image/gif", "image/webp"),
	},
	"facebook": {
		MaxBytes:     1024 * 1024 * 1024,
		AllowedMimes: mimes("image/jpeg", "image/png", "image/gif", "video/mp4", "video/quicktime"),
	},
	"instagram": {
		MaxBytes:     300 * 1024 * 1024,
		AllowedMimes: mimes("image/jpeg", "image/png", "video/mp4", "video/quicktime"),
	},
	"reddit": {
		MaxBytes: 0, // text and link posts only
	},
}

// Validate enforces a platform's size and type constraints for a single file.
// It never performs I/O; a nil error means the bytes are allowed to leave the
// process.
func Validate(platform string, f *File) error {
	c, ok := constraints[platform]
	if !ok {
		return &UploadError{Reason: fmt.Sprintf("unknown platform %q", platform)}
	}

	if c.MaxBytes == 0 {
		return &UploadError{Reason: fmt.Sprintf("%s does not accept media uploads", platform)}
	}

	if f.Size > c.MaxBytes {
		return &UploadError{Reason: fmt.Sprintf(
			"%s: file %q is %d bytes, exceeds the %d byte limit", platform, f.Name, f.Size, c.MaxBytes)}
	}

	if _, ok := c.AllowedMimes[f.MimeType]; !ok {
		return &UploadError{Reason: fmt.Sprintf("%s does not accept %s files", platform, f.MimeType)}
	}

	return nil
}

// ValidateAll checks every file against one platform's constraints.
func ValidateAll(platform string, files []*File) error {
	for _, f := range files {
		if err := Validate(platform, f); err != nil {
			return err
		}
	}
	return nil
}
