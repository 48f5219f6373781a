package media

import (
	"fmt"
	"strings"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
)

// File is a raw media asset held in memory for the duration of one publish
// request. Persistence of media is a collaborator concern, not ours.
type File struct {
	Name     string
	MimeType string
	Size     int64
	Data     []byte
}

// FromBytes sniffs the real content type from the payload instead of trusting
// the client-provided filename or mimetype.
func FromBytes(name string, data []byte) (*File, error) {
	kind, err := filetype.Match(data)
	if err != nil || kind == types.Unknown {
		return nil, &UploadError{Reason: fmt.Sprintf("unrecognized file type for %q", name)}
	}

	return &File{
		Name:     name,
		MimeType: kind.MIME.Value,
		Size:     int64(len(data)),
		Data:     data,
	}, nil
}

func (f *File) IsImage() bool {
	return strings.HasPrefix(f.MimeType, "image/")
}

func (f *File) IsVideo() bool {
	return strings.HasPrefix(f.MimeType, "video/")
}

func (f *File) IsGIF() bool {
	return f.MimeType == "image/gif"
}
