// Flattening of polygon annotations into object-detection records.
//
// A Record is the per-image unit detection frameworks consume: the
// image file, its size, and one Object per polygon with its bounding
// box, flattened segmentation and category id.
package detection

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/co2meal/stratum/pkg/dataset"
	"github.com/co2meal/stratum/pkg/dataset/annotation"
	"github.com/co2meal/stratum/pkg/dataset/split"
	"github.com/co2meal/stratum/pkg/utils"
	"github.com/co2meal/stratum/pkg/utils/tuple"
)

var (
	ErrInvalidSelection = errors.New("invalid split selection")
	ErrEmptySplit       = errors.New("split holds no images")
	ErrUnknownClass     = errors.New("label is not in the class list")
)

// SplitType selects which partitioner's manifest to read.
type SplitType string

const (
	SplitTypeRandom     SplitType = "random"
	SplitTypeStratified SplitType = "stratified"
)

// ParseSplitType converts a plain string into a SplitType.
func ParseSplitType(s string) (SplitType, error) {
	switch t := SplitType(s); t {
	case SplitTypeRandom, SplitTypeStratified:
		return t, nil
	default:
		return "", fmt.Errorf(
			"%w: split type should be either 'random' or 'stratified': %s",
			ErrInvalidSelection, s,
		)
	}
}

// Selection names one partition of one persisted split.
//
// Split is the directory name under lists/ holding the manifests; the
// zero value selects the "split" alias.
type Selection struct {
	Partition split.Partition
	SplitType SplitType
	Kind      annotation.Kind
	Split     string
}

func (s Selection) Validate() error {
	if _, err := split.ParsePartition(string(s.Partition)); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidSelection, s.Partition)
	}
	if _, err := ParseSplitType(string(s.SplitType)); err != nil {
		return err
	}
	if _, err := annotation.ParseKind(string(s.Kind)); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidSelection, s.Kind)
	}
	return nil
}

func (s Selection) splitName() string {
	if s.Split == "" {
		return "split"
	}
	return s.Split
}

// file is the manifest file name for this selection. Random splits do
// not depend on the annotation kind.
func (s Selection) file() string {
	if s.SplitType == SplitTypeRandom {
		return fmt.Sprintf("random_%s.txt", s.Partition)
	}
	return fmt.Sprintf("stratified_%s_%s.txt", s.Kind, s.Partition)
}

// Resolve reads the selected manifest and pairs each stem with its
// image and annotation paths, in manifest order.
//
// Every stem must have exactly one image; an empty manifest is
// ErrEmptySplit.
func Resolve(ds dataset.Dataset, sel Selection) ([]tuple.Pair[string, string], error) {
	if err := sel.Validate(); err != nil {
		return nil, err
	}

	manifest := filepath.Join(ds.ListsDir(), sel.splitName(), sel.file())
	content, err := os.ReadFile(manifest)
	if err != nil {
		return nil, err
	}

	stems := utils.Filter(
		utils.Map(strings.Split(string(content), "\n"), strings.TrimSpace),
		func(stem string) bool { return stem != "" },
	)
	pairs, err := utils.MapUntilError(stems, func(stem string) (tuple.Pair[string, string], error) {
		image, err := ds.FindImage(stem)
		if err != nil {
			return tuple.Pair[string, string]{}, err
		}
		return tuple.PairOf(image, filepath.Join(ds.AnnotationsDir(), stem+".json")), nil
	})
	if err != nil {
		return nil, err
	}

	if len(pairs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptySplit, manifest)
	}
	return pairs, nil
}

// BBoxModeXYXYAbs marks BBox as absolute [x0, y0, x1, y1] corners.
const BBoxModeXYXYAbs = 0

// Object is one detected region of a Record.
type Object struct {
	BBox         [4]float64  `json:"bbox"`
	BBoxMode     int         `json:"bbox_mode"`
	Segmentation [][]float64 `json:"segmentation"`
	CategoryID   int         `json:"category_id"`
	IsCrowd      int         `json:"iscrowd"`
}

// Record is the flattened detection view of one image.
type Record struct {
	FileName string   `json:"file_name"`
	Height   int      `json:"height"`
	Width    int      `json:"width"`
	ImageID  int      `json:"image_id"`
	Objects  []Object `json:"annotations"`
}

// Records resolves the selection and reformats each annotation file
// into a detection Record.
//
// Only polygon entries contribute Objects; polygons with fewer than 3
// points are discarded. CategoryID is the position of the label in the
// persisted class list with the background line stripped, so the class
// list files must exist before calling this.
func Records(ds dataset.Dataset, sel Selection) ([]Record, error) {
	pairs, err := Resolve(ds, sel)
	if err != nil {
		return nil, err
	}

	classes, err := ds.Classes(sel.Kind, true)
	if err != nil {
		return nil, err
	}
	categoryOf := map[string]int{}
	for i, name := range classes {
		categoryOf[name] = i
	}

	records := []Record{}
	for imageID, pair := range pairs {
		imagePath, annotationPath := pair.Decompose()
		rec, err := annotation.Load(annotationPath)
		if err != nil {
			return nil, err
		}

		objects := []Object{}
		for _, entry := range rec.Annotations {
			if entry.Polygon == nil || len(entry.Polygon.Path) < 3 {
				continue
			}
			category, ok := categoryOf[entry.Name]
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrUnknownClass, entry.Name)
			}
			objects = append(objects, makeObject(entry.Polygon.Path, category))
		}

		records = append(records, Record{
			FileName: imagePath,
			Height:   rec.Image.Height,
			Width:    rec.Image.Width,
			ImageID:  imageID,
			Objects:  objects,
		})
	}
	return records, nil
}

func makeObject(path []annotation.Point, category int) Object {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range path {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}

	segmentation := make([]float64, 0, 2*len(path))
	for _, p := range path {
		segmentation = append(segmentation, p.X, p.Y)
	}

	return Object{
		BBox:         [4]float64{minX, minY, maxX, maxY},
		BBoxMode:     BBoxModeXYXYAbs,
		Segmentation: [][]float64{segmentation},
		CategoryID:   category,
		IsCrowd:      0,
	}
}
