package detection_test

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/co2meal/stratum/pkg/dataset"
	"github.com/co2meal/stratum/pkg/dataset/annotation"
	"github.com/co2meal/stratum/pkg/dataset/detection"
	"github.com/co2meal/stratum/pkg/dataset/split"
	"github.com/co2meal/stratum/pkg/utils"
	"github.com/co2meal/stratum/pkg/utils/cmp"
	"github.com/co2meal/stratum/pkg/utils/try"
	"github.com/co2meal/stratum/pkg/utils/tuple"
)

// newRoot lays out a dataset with a persisted default split.
//
// Annotation content is keyed by stem; each stem also gets a png under
// images/ unless listed in noImage.
func newRoot(t *testing.T, annotations map[string]string, manifests map[string]string, noImage ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, dir := range []string{"annotations", "images", filepath.Join("lists", "split_v20_t0")} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Symlink(
		filepath.Join(root, "lists", "split_v20_t0"), filepath.Join(root, "lists", "split"),
	); err != nil {
		t.Fatal(err)
	}

	skip := utils.ToSet(noImage)
	for stem, content := range annotations {
		if err := os.WriteFile(
			filepath.Join(root, "annotations", stem+".json"), []byte(content), 0644,
		); err != nil {
			t.Fatal(err)
		}
		if _, ok := skip[stem]; ok {
			continue
		}
		if err := os.WriteFile(
			filepath.Join(root, "images", stem+".png"), []byte("png"), 0644,
		); err != nil {
			t.Fatal(err)
		}
	}
	for name, content := range manifests {
		if err := os.WriteFile(
			filepath.Join(root, "lists", "split_v20_t0", name), []byte(content), 0644,
		); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func polygoned(name string, points ...[2]float64) string {
	path := ""
	for i, p := range points {
		if 0 < i {
			path += ", "
		}
		path += fmt.Sprintf(`{"x": %f, "y": %f}`, p[0], p[1])
	}
	return fmt.Sprintf(`{"name": %q, "polygon": {"path": [%s]}}`, name, path)
}

func TestSelectionValidate(t *testing.T) {
	for name, testcase := range map[string]detection.Selection{
		"bad partition":  {Partition: "validation", SplitType: "random", Kind: "tag"},
		"bad split type": {Partition: "train", SplitType: "sorted", Kind: "tag"},
		"bad kind":       {Partition: "train", SplitType: "stratified", Kind: "box"},
	} {
		t.Run(name, func(t *testing.T) {
			if err := testcase.Validate(); !errors.Is(err, detection.ErrInvalidSelection) {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}

	ok := detection.Selection{
		Partition: split.PartitionVal,
		SplitType: detection.SplitTypeStratified,
		Kind:      annotation.KindPolygon,
	}
	if err := ok.Validate(); err != nil {
		t.Errorf("valid selection rejected: %v", err)
	}
}

func TestResolve(t *testing.T) {
	annotations := map[string]string{
		"a": `{"image": {"width": 4, "height": 4}, "annotations": []}`,
		"b": `{"image": {"width": 4, "height": 4}, "annotations": []}`,
		"c": `{"image": {"width": 4, "height": 4}, "annotations": []}`,
	}

	t.Run("it pairs stems with images in manifest order", func(t *testing.T) {
		root := newRoot(t, annotations, map[string]string{
			"stratified_polygon_train.txt": "b\na\n",
		})
		ds := try.To(dataset.New(root)).OrFatal(t)

		sel := detection.Selection{
			Partition: split.PartitionTrain,
			SplitType: detection.SplitTypeStratified,
			Kind:      annotation.KindPolygon,
		}
		pairs := try.To(detection.Resolve(ds, sel)).OrFatal(t)

		expected := []tuple.Pair[string, string]{
			tuple.PairOf(
				filepath.Join(root, "images", "b.png"),
				filepath.Join(root, "annotations", "b.json"),
			),
			tuple.PairOf(
				filepath.Join(root, "images", "a.png"),
				filepath.Join(root, "annotations", "a.json"),
			),
		}
		if !cmp.SliceEq(pairs, expected) {
			t.Errorf("unexpected pairs: (actual, expected) = (%v, %v)", pairs, expected)
		}
	})

	t.Run("random manifests do not depend on the kind", func(t *testing.T) {
		root := newRoot(t, annotations, map[string]string{
			"random_val.txt": "c\n",
		})
		ds := try.To(dataset.New(root)).OrFatal(t)

		sel := detection.Selection{
			Partition: split.PartitionVal,
			SplitType: detection.SplitTypeRandom,
			Kind:      annotation.KindTag,
		}
		pairs := try.To(detection.Resolve(ds, sel)).OrFatal(t)
		if len(pairs) != 1 || pairs[0].First != filepath.Join(root, "images", "c.png") {
			t.Errorf("unexpected pairs: %v", pairs)
		}
	})

	t.Run("an empty manifest is an error", func(t *testing.T) {
		root := newRoot(t, annotations, map[string]string{
			"random_test.txt": "",
		})
		ds := try.To(dataset.New(root)).OrFatal(t)

		sel := detection.Selection{
			Partition: split.PartitionTest,
			SplitType: detection.SplitTypeRandom,
			Kind:      annotation.KindTag,
		}
		if _, err := detection.Resolve(ds, sel); !errors.Is(err, detection.ErrEmptySplit) {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("a stem without an image is fatal", func(t *testing.T) {
		root := newRoot(t, annotations, map[string]string{
			"random_train.txt": "a\nb\n",
		}, "b")
		ds := try.To(dataset.New(root)).OrFatal(t)

		sel := detection.Selection{
			Partition: split.PartitionTrain,
			SplitType: detection.SplitTypeRandom,
			Kind:      annotation.KindTag,
		}
		if _, err := detection.Resolve(ds, sel); !errors.Is(err, dataset.ErrMissingImage) {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestRecords(t *testing.T) {
	annotations := map[string]string{
		"a": fmt.Sprintf(
			`{"image": {"width": 100, "height": 50}, "annotations": [%s, %s, %s]}`,
			polygoned("cat", [2]float64{10, 10}, [2]float64{30, 12}, [2]float64{20, 40}),
			polygoned("dog", [2]float64{0, 0}, [2]float64{5, 5}), // too few points
			`{"name": "indoor", "tag": {}}`,
		),
		"b": fmt.Sprintf(
			`{"image": {"width": 100, "height": 50}, "annotations": [%s]}`,
			polygoned("dog", [2]float64{1, 2}, [2]float64{3, 4}, [2]float64{5, 0}),
		),
	}

	newRecordsRoot := func(t *testing.T, classList string) dataset.Dataset {
		root := newRoot(t, annotations, map[string]string{
			"stratified_polygon_train.txt": "a\nb\n",
		})
		if err := os.WriteFile(
			filepath.Join(root, "lists", "classes_polygon.txt"), []byte(classList), 0644,
		); err != nil {
			t.Fatal(err)
		}
		return try.To(dataset.New(root)).OrFatal(t)
	}

	sel := detection.Selection{
		Partition: split.PartitionTrain,
		SplitType: detection.SplitTypeStratified,
		Kind:      annotation.KindPolygon,
	}

	t.Run("it flattens polygons and strips the background class", func(t *testing.T) {
		ds := newRecordsRoot(t, "__background__\ncat\ndog\n")
		records := try.To(detection.Records(ds, sel)).OrFatal(t)

		if len(records) != 2 {
			t.Fatalf("unexpected record count: %d", len(records))
		}

		a := records[0]
		if a.Height != 50 || a.Width != 100 || a.ImageID != 0 {
			t.Errorf("unexpected record header: %+v", a)
		}
		if filepath.Base(a.FileName) != "a.png" {
			t.Errorf("unexpected file name: %s", a.FileName)
		}
		if len(a.Objects) != 1 {
			t.Fatalf("short polygons and tags should be dropped: %+v", a.Objects)
		}

		obj := a.Objects[0]
		if obj.BBox != [4]float64{10, 10, 30, 40} {
			t.Errorf("unexpected bbox: %v", obj.BBox)
		}
		if obj.BBoxMode != detection.BBoxModeXYXYAbs || obj.IsCrowd != 0 {
			t.Errorf("unexpected object flags: %+v", obj)
		}
		if obj.CategoryID != 0 { // "cat", after stripping __background__
			t.Errorf("unexpected category: %d", obj.CategoryID)
		}
		if len(obj.Segmentation) != 1 ||
			!cmp.SliceEq(obj.Segmentation[0], []float64{10, 10, 30, 12, 20, 40}) {
			t.Errorf("unexpected segmentation: %v", obj.Segmentation)
		}

		b := records[1]
		if b.ImageID != 1 || len(b.Objects) != 1 || b.Objects[0].CategoryID != 1 {
			t.Errorf("unexpected second record: %+v", b)
		}
	})

	t.Run("a label missing from the class list is an error", func(t *testing.T) {
		ds := newRecordsRoot(t, "cat\n")
		if _, err := detection.Records(ds, sel); !errors.Is(err, detection.ErrUnknownClass) {
			t.Errorf("unexpected error: %v", err)
		}
	})
}
