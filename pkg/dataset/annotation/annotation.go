// Parsing of per-image annotation files.
//
// An annotation file is a JSON document describing one source image and
// the labeled shapes on it. Shapes are either tags (whole-image labels)
// or polygons (region labels). One file looks like:
//
//	{
//	    "image": {"width": 1920, "height": 1080, "original_filename": "cat01.png"},
//	    "annotations": [
//	        {"name": "cat", "polygon": {"path": [{"x": 0, "y": 0}, ...]}},
//	        {"name": "indoor", "tag": {}}
//	    ]
//	}
package annotation

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Kind of a labeled shape.
type Kind string

const (
	KindTag     Kind = "tag"
	KindPolygon Kind = "polygon"
)

var ErrUnknownKind = errors.New("unknown annotation kind")

// Kinds lists all annotation kinds.
func Kinds() []Kind {
	return []Kind{KindTag, KindPolygon}
}

// ParseKind converts a plain string into a Kind.
//
// Unknown strings cause ErrUnknownKind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindTag, KindPolygon:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownKind, s)
	}
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Polygon struct {
	Path []Point `json:"path"`
}

// Tag carries no payload. Its presence on an entry marks the entry as
// a whole-image label.
type Tag struct{}

// Entry is one labeled shape of a Record.
type Entry struct {
	Name    string   `json:"name"`
	Tag     *Tag     `json:"tag,omitempty"`
	Polygon *Polygon `json:"polygon,omitempty"`
}

// Has reports whether the entry carries a shape of the given kind.
func (e Entry) Has(kind Kind) bool {
	switch kind {
	case KindTag:
		return e.Tag != nil
	case KindPolygon:
		return e.Polygon != nil
	default:
		return false
	}
}

type Image struct {
	Width            int    `json:"width"`
	Height           int    `json:"height"`
	OriginalFilename string `json:"original_filename,omitempty"`
}

// Record is the parsed content of one annotation file.
//
// Records are treated as immutable once read from storage.
type Record struct {
	Image       Image   `json:"image"`
	Annotations []Entry `json:"annotations"`
}

// Parse reads a Record out of raw JSON.
func Parse(content []byte) (*Record, error) {
	rec := &Record{}
	if err := json.Unmarshal(content, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Load reads and parses the annotation file at path.
//
// A file which cannot be read or parsed is a fatal error for the
// caller; there is no lenient mode.
func Load(path string) (*Record, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	rec, err := Parse(content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rec, nil
}

var imageExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".bmp":  {},
	".tif":  {},
	".tiff": {},
}

// SupportedImageExtensions lists the extensions accepted as images.
func SupportedImageExtensions() []string {
	return []string{".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff"}
}

// IsImageExtensionAllowed reports whether ext (with leading dot,
// case-insensitive) names a supported image format.
func IsImageExtensionAllowed(ext string) bool {
	_, ok := imageExtensions[strings.ToLower(ext)]
	return ok
}
