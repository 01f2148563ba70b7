package remote

import (
	"context"
	"os"
	"path/filepath"

	"github.com/co2meal/stratum/pkg/utils"
	"github.com/co2meal/stratum/pkg/utils/pool"
)

// Pull downloads every annotation of the remote dataset slug into
// dest/annotations/, one <stem>.json per annotation.
//
// Downloads run through pool.Map, so units failing to download or to
// write are dropped rather than failing the pull. The returned stems
// are the ones actually written; callers wanting to know about missed
// units should compare against ListAnnotations.
func Pull(ctx context.Context, c Client, slug string, dest string, opts ...pool.Option) ([]string, error) {
	stems, err := c.ListAnnotations(ctx, slug)
	if err != nil {
		return nil, err
	}

	annotationsDir := filepath.Join(dest, "annotations")
	if err := os.MkdirAll(annotationsDir, os.FileMode(0755)); err != nil {
		return nil, err
	}

	tasks := utils.Map(stems, func(stem string) func(context.Context) (string, error) {
		return func(ctx context.Context) (string, error) {
			content, err := c.GetAnnotation(ctx, slug, stem)
			if err != nil {
				return "", err
			}
			file := filepath.Join(annotationsDir, stem+".json")
			if err := os.WriteFile(file, content, os.FileMode(0644)); err != nil {
				return "", err
			}
			return stem, nil
		}
	})

	return pool.Map(ctx, tasks, opts...), nil
}
