package media

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// jpegHeader is enough of a JPEG for filetype sniffing.
var jpegHeader = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x46, 0x49, 0x46, 0x00}

func jpegFile(t *testing.T, size int) *File {
	t.Helper()
	data := make([]byte, size)
	copy(data, jpegHeader)
	f, err := FromBytes("photo.jpg", data)
	require.NoError(t, err)
	return f
}

func TestFromBytesSniffsMime(t *testing.T) {
	f := jpegFile(t, 512)
	assert.Equal(t, "image/jpeg", f.MimeType)
	assert.Equal(t, int64(512), f.Size)
	assert.True(t, f.IsImage())
	assert.False(t, f.IsVideo())
}

func TestFromBytesRejectsUnknownType(t *testing.T) {
	_, err := FromBytes("garbage.bin", bytes.Repeat([]byte{0x00}, 64))
	require.Error(t, err)

	var uploadErr *UploadError
	assert.ErrorAs(t, err, &uploadErr)
}

func TestValidateBlueskyBlobCap(t *testing.T) {
	over := jpegFile(t, BlueskyMaxBlobBytes+1)
	err := Validate("bluesky", over)
	require.Error(t, err)

	var uploadErr *UploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.Contains(t, uploadErr.Reason, "exceeds")

	under := jpegFile(t, BlueskyMaxBlobBytes)
	assert.NoError(t, Validate("bluesky", under))
}

func TestValidateRejectsDisallowedMime(t *testing.T) {
	f := jpegFile(t, 128)
	f.MimeType = "application/pdf"

	for _, platform := range []string{"mastodon", "x", "pinterest", "bluesky", "facebook", "instagram"} {
		err := Validate(platform, f)
		require.Error(t, err, platform)

		var uploadErr *UploadError
		assert.ErrorAs(t, err, &uploadErr)
	}
}

func TestValidateRedditRejectsAllMedia(t *testing.T) {
	err := Validate("reddit", jpegFile(t, 128))
	require.Error(t, err)

	var uploadErr *UploadError
	assert.ErrorAs(t, err, &uploadErr)
}

func TestValidateAll(t *testing.T) {
	files := []*File{jpegFile(t, 128), jpegFile(t, BlueskyMaxBlobBytes+1)}

	assert.NoError(t, ValidateAll("mastodon", files))
	assert.Error(t, ValidateAll("bluesky", files))
	assert.NoError(t, ValidateAll("bluesky", nil))
}
