package split

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/co2meal/stratum/pkg/dataset"
	"github.com/co2meal/stratum/pkg/dataset/annotation"
	xe "github.com/co2meal/stratum/pkg/errors"
	"github.com/co2meal/stratum/pkg/utils"
)

type Strategy string

const (
	StrategyRandom            Strategy = "random"
	StrategyStratifiedTag     Strategy = "stratified_tag"
	StrategyStratifiedPolygon Strategy = "stratified_polygon"
)

func stratifiedStrategy(kind annotation.Kind) Strategy {
	return Strategy("stratified_" + string(kind))
}

type Partition string

const (
	PartitionTrain Partition = "train"
	PartitionVal   Partition = "val"
	PartitionTest  Partition = "test"
)

// ParsePartition converts a plain string into a Partition.
func ParsePartition(s string) (Partition, error) {
	switch p := Partition(s); p {
	case PartitionTrain, PartitionVal, PartitionTest:
		return p, nil
	default:
		return "", fmt.Errorf(
			"%w: partition should be either 'train', 'val', or 'test': %s",
			ErrInvalidSplitConfig, s,
		)
	}
}

// Manifest maps each split strategy to the files holding its
// partitions. Paths are listed whether or not the strategy was
// actually computed; a stratified strategy whose annotation kind has
// no labels leaves no files behind.
type Manifest map[Strategy]map[Partition]string

// Options selects one split configuration.
//
// Seed fixes the randomness of both partitioners. ForceResplit
// discards a persisted split with the same identity. MakeDefault
// points the "split" alias at this split.
type Options struct {
	Fractions
	Seed         int64
	ForceResplit bool
	MakeDefault  bool
}

// ID derives the split identity: the directory name under lists/
// caching this configuration. Fractions map to integer percents
// (split_v20_t10); a non-zero seed is appended as _s<seed>.
//
// Fractions with more than two decimal digits truncate here, so two
// configurations may share an identity while differing slightly in
// effect. The fractions themselves, not the percents, feed the
// partitioners.
func (o Options) ID() string {
	id := fmt.Sprintf("split_v%d_t%d", int(o.Val*100), int(o.Test*100))
	if o.Seed != 0 {
		id += fmt.Sprintf("_s%d", o.Seed)
	}
	return id
}

func newManifest(splitDir string, withTest bool) Manifest {
	m := Manifest{}
	for _, strategy := range []Strategy{
		StrategyRandom, StrategyStratifiedTag, StrategyStratifiedPolygon,
	} {
		paths := map[Partition]string{
			PartitionTrain: filepath.Join(splitDir, string(strategy)+"_train.txt"),
			PartitionVal:   filepath.Join(splitDir, string(strategy)+"_val.txt"),
		}
		if withTest {
			paths[PartitionTest] = filepath.Join(splitDir, string(strategy)+"_test.txt")
		}
		m[strategy] = paths
	}
	return m
}

// SplitDataset computes and persists every split manifest for the
// dataset: random, stratified-by-tag and stratified-by-polygon
// (stratified ones skipped when the kind has no labels at all).
//
// Index lists are written one stem per line under
// lists/<identity>/<strategy>_<partition>.txt. An existing identity
// directory is reused as-is unless ForceResplit. The lists/split
// symlink is (re)pointed at this identity when MakeDefault is set or
// no alias exists yet.
//
// ctx is consulted between phases; a canceled context aborts with its
// cause. Callers may guard ctx with filewatch.UntilModifyContext over
// the annotations directory to abort when annotations change mid-run.
func SplitDataset(ctx context.Context, ds dataset.Dataset, opts Options) (Manifest, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	files, err := ds.AnnotationFiles()
	if err != nil {
		return nil, err
	}
	stems := utils.Map(files, dataset.Stem)

	splitDir := filepath.Join(ds.ListsDir(), opts.ID())
	manifest := newManifest(splitDir, 0 < opts.Test)

	_, statErr := os.Stat(splitDir)
	if opts.ForceResplit || os.IsNotExist(statErr) {
		if err := os.MkdirAll(splitDir, os.FileMode(0755)); err != nil {
			return nil, xe.Wrap(err)
		}

		random := Random(len(stems), opts.Fractions, opts.Seed)
		if err := writeAssignment(manifest[StrategyRandom], stems, random); err != nil {
			return nil, err
		}

		for _, kind := range annotation.Kinds() {
			if err := interrupted(ctx); err != nil {
				return nil, err
			}
			_, labelsByImage, err := ds.ExtractClasses(kind)
			if err != nil {
				return nil, err
			}
			if len(labelsByImage) == 0 {
				continue
			}
			stratified, err := Stratified(labelsByImage, opts.Fractions, opts.Seed)
			if err != nil {
				return nil, err
			}
			if err := writeAssignment(manifest[stratifiedStrategy(kind)], stems, stratified); err != nil {
				return nil, err
			}
		}
	}

	alias := filepath.Join(ds.ListsDir(), "split")
	_, aliasErr := os.Lstat(alias)
	if opts.MakeDefault || os.IsNotExist(aliasErr) {
		if aliasErr == nil {
			if err := os.Remove(alias); err != nil {
				return nil, xe.Wrap(err)
			}
		}
		if err := os.Symlink(splitDir, alias); err != nil {
			return nil, xe.Wrap(err)
		}
	}

	return manifest, nil
}

func writeAssignment(paths map[Partition]string, stems []string, a Assignment) error {
	write := func(path string, indices []int) error {
		lines := utils.Map(indices, func(i int) string { return stems[i] })
		content := ""
		if 0 < len(lines) {
			content = strings.Join(lines, "\n") + "\n"
		}
		if err := os.WriteFile(path, []byte(content), os.FileMode(0644)); err != nil {
			return xe.Wrap(err)
		}
		return nil
	}

	if err := write(paths[PartitionTrain], a.Train); err != nil {
		return err
	}
	if err := write(paths[PartitionVal], a.Val); err != nil {
		return err
	}
	if a.Test != nil {
		if err := write(paths[PartitionTest], a.Test); err != nil {
			return err
		}
	}
	return nil
}

func interrupted(ctx context.Context) error {
	if ctx.Err() != nil {
		return context.Cause(ctx)
	}
	return nil
}
