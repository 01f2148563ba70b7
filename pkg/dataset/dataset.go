// On-disk layout of a local annotation dataset.
//
// A dataset root contains:
//
//	<root>/annotations/<stem>.json   one annotation file per image
//	<root>/images/<stem>.<ext>       the image carrying that stem
//	<root>/lists/                    derived artifacts (class lists, split manifests)
package dataset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/co2meal/stratum/pkg/dataset/annotation"
	"github.com/co2meal/stratum/pkg/utils"
	kpath "github.com/co2meal/stratum/pkg/utils/path"
)

var (
	ErrNoAnnotations  = errors.New("annotations directory is not found")
	ErrMissingImage   = errors.New("annotation has no corresponding image")
	ErrAmbiguousImage = errors.New("image is present with multiple extensions")
)

// Dataset points at a dataset root on the local filesystem.
type Dataset struct {
	root string
}

// New resolves root (tilde and relative paths allowed) into a Dataset.
//
// The annotations directory must exist; everything else is created on
// demand.
func New(root string) (Dataset, error) {
	resolved, err := kpath.Resolve(root)
	if err != nil {
		return Dataset{}, err
	}
	d := Dataset{root: resolved}
	if s, err := os.Stat(d.AnnotationsDir()); err != nil || !s.IsDir() {
		return Dataset{}, fmt.Errorf("%w: %s", ErrNoAnnotations, d.AnnotationsDir())
	}
	return d, nil
}

func (d Dataset) Root() string {
	return d.root
}

func (d Dataset) AnnotationsDir() string {
	return filepath.Join(d.root, "annotations")
}

func (d Dataset) ImagesDir() string {
	return filepath.Join(d.root, "images")
}

func (d Dataset) ListsDir() string {
	return filepath.Join(d.root, "lists")
}

// AnnotationFiles lists the annotation files of the dataset, sorted by
// name.
//
// The position of a file in this listing is its image index: every
// index-valued artifact of this package (class indices, split
// assignments) refers into this slice. Index stability across runs
// holds only because the listing is sorted.
func (d Dataset) AnnotationFiles() ([]string, error) {
	entries, err := os.ReadDir(d.AnnotationsDir())
	if err != nil {
		return nil, err
	}

	files := []string{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		files = append(files, filepath.Join(d.AnnotationsDir(), e.Name()))
	}
	return files, nil
}

// Stems returns the stems (file names without ".json") of the
// annotation files, in the same order as AnnotationFiles.
func (d Dataset) Stems() ([]string, error) {
	files, err := d.AnnotationFiles()
	if err != nil {
		return nil, err
	}
	return utils.Map(files, Stem), nil
}

// Stem extracts the image stem from an annotation file path.
func Stem(file string) string {
	return strings.TrimSuffix(filepath.Base(file), ".json")
}

// FindImage locates the image file carrying stem under images/.
//
// Exactly one image with a supported extension must exist:
// none is ErrMissingImage, more than one is ErrAmbiguousImage.
func (d Dataset) FindImage(stem string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(d.ImagesDir(), stem+".*"))
	if err != nil {
		return "", err
	}
	images := utils.Filter(matches, func(m string) bool {
		return annotation.IsImageExtensionAllowed(filepath.Ext(m))
	})

	switch len(images) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrMissingImage, stem)
	case 1:
		return images[0], nil
	default:
		return "", fmt.Errorf("%w: %s", ErrAmbiguousImage, stem)
	}
}
