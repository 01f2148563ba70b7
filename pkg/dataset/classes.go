package dataset

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/co2meal/stratum/pkg/dataset/annotation"
	xe "github.com/co2meal/stratum/pkg/errors"
	"github.com/co2meal/stratum/pkg/utils"
)

// BackgroundClass is a reserved label which may occupy the first line
// of a class list file.
const BackgroundClass = "__background__"

// ExtractClasses scans the annotation files for labels of the given
// kind and returns both directions of the image-label relation:
//
//   - classByLabel: label name -> indices of images carrying it
//   - labelsByImage: image index -> label names present on it
//
// Indices refer into AnnotationFiles. Entries of other kinds are
// skipped. Index slices and label slices are sorted, so the result is
// deterministic for a fixed directory content. A file which cannot be
// read or parsed fails the whole extraction.
func (d Dataset) ExtractClasses(kind annotation.Kind) (map[string][]int, map[int][]string, error) {
	files, err := d.AnnotationFiles()
	if err != nil {
		return nil, nil, err
	}

	classByLabel := map[string]map[int]struct{}{}
	labelsByImage := map[int]map[string]struct{}{}
	for i, file := range files {
		rec, err := annotation.Load(file)
		if err != nil {
			return nil, nil, err
		}
		for _, entry := range rec.Annotations {
			if !entry.Has(kind) {
				continue
			}
			if classByLabel[entry.Name] == nil {
				classByLabel[entry.Name] = map[int]struct{}{}
			}
			classByLabel[entry.Name][i] = struct{}{}
			if labelsByImage[i] == nil {
				labelsByImage[i] = map[string]struct{}{}
			}
			labelsByImage[i][entry.Name] = struct{}{}
		}
	}

	byLabel := map[string][]int{}
	for label, indices := range classByLabel {
		byLabel[label] = utils.Sorted(
			utils.KeysOf(indices), func(a, b int) bool { return a < b },
		)
	}
	byImage := map[int][]string{}
	for index, labels := range labelsByImage {
		byImage[index] = utils.Sorted(
			utils.KeysOf(labels), func(a, b string) bool { return a < b },
		)
	}
	return byLabel, byImage, nil
}

func (d Dataset) classListPath(kind annotation.Kind) string {
	return filepath.Join(d.ListsDir(), "classes_"+string(kind)+".txt")
}

// MakeClassLists extracts classes for every annotation kind and writes
// each non-empty result to lists/classes_<kind>.txt, one sorted label
// per line. Kinds with no labels get no file.
func (d Dataset) MakeClassLists() error {
	if err := os.MkdirAll(d.ListsDir(), os.FileMode(0755)); err != nil {
		return xe.Wrap(err)
	}

	for _, kind := range annotation.Kinds() {
		classByLabel, _, err := d.ExtractClasses(kind)
		if err != nil {
			return err
		}
		if len(classByLabel) == 0 {
			continue
		}
		names := utils.Sorted(
			utils.KeysOf(classByLabel), func(a, b string) bool { return a < b },
		)
		content := strings.Join(names, "\n") + "\n"
		if err := os.WriteFile(d.classListPath(kind), []byte(content), os.FileMode(0644)); err != nil {
			return xe.Wrap(err)
		}
	}
	return nil
}

// Classes reads the class list of the given kind.
//
// With stripBackground, a leading BackgroundClass line is dropped.
func (d Dataset) Classes(kind annotation.Kind, stripBackground bool) ([]string, error) {
	content, err := os.ReadFile(d.classListPath(kind))
	if err != nil {
		return nil, err
	}

	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	classes := utils.Map(lines, strings.TrimSpace)
	if stripBackground && 0 < len(classes) && classes[0] == BackgroundClass {
		classes = classes[1:]
	}
	return classes, nil
}
