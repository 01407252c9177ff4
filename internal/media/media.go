package media

import (
	"strings"

	"golang.org/x/text/cases"
)

// Kind is the preview category of a media file
type Kind int

const (
	KindOther Kind = iota
	KindImage
	KindVideo
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "IMAGE"
	case KindVideo:
		return "VIDEO"
	default:
		return "OTHER"
	}
}

var (
	imageExts = map[string]bool{"jpg": true, "jpeg": true, "png": true, "gif": true, "webp": true, "bmp": true}
	videoExts = map[string]bool{"mp4": true, "webm": true, "mov": true, "avi": true, "mkv": true}
)

// Extension returns the case-folded characters after the last dot.
// A path without a dot yields the whole path, folded.
func Extension(path string) string {
	ext := path
	if i := strings.LastIndex(path, "."); i >= 0 {
		ext = path[i+1:]
	}
	// Casers carry state, so each call gets its own
	return cases.Fold().String(ext)
}

// Classify maps a file path to its Kind by extension
func Classify(path string) Kind {
	ext := Extension(path)
	switch {
	case imageExts[ext]:
		return KindImage
	case videoExts[ext]:
		return KindVideo
	default:
		return KindOther
	}
}

// Item is one file in the queue
type Item struct {
	Path string `json:"path"`
	Kind Kind   `json:"kind"`
}

// NewItem classifies path into an Item
func NewItem(path string) Item {
	return Item{Path: path, Kind: Classify(path)}
}
