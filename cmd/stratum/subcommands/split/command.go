package split

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/youta-t/flarc"

	senv "github.com/co2meal/stratum/cmd/stratum/env"
	"github.com/co2meal/stratum/cmd/stratum/subcommands/common"
	"github.com/co2meal/stratum/pkg/dataset"
	"github.com/co2meal/stratum/pkg/dataset/split"
	"github.com/co2meal/stratum/pkg/utils"
	"github.com/co2meal/stratum/pkg/utils/filewatch"
)

type Flags struct {
	Val       string `flag:"val" metavar:"FRACTION" help:"fraction of images for the validation partition. Default: stratumenv or 0.1."`
	Test      string `flag:"test" metavar:"FRACTION" help:"fraction of images for the test partition. Default: stratumenv or 0.2."`
	Seed      string `flag:"seed" help:"seed for the split randomness. Default: stratumenv or 0."`
	Force     bool   `flag:"force" help:"recompute the split even if it is already persisted."`
	NoDefault bool   `flag:"no-default" help:"do not point the lists/split alias at this split."`
}

const ARG_DATASET_ROOT = "DATASET_ROOT"

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"partition a dataset into train/val/test image lists",
		Flags{},
		flarc.Args{
			{
				Name: ARG_DATASET_ROOT, Required: false,
				Help: "root of the local dataset (holding annotations/). Default: current directory.",
			},
		},
		common.NewTask(Task()),
		flarc.WithDescription(`
Compute train/val/test splits of a local dataset and persist them as
image lists under "lists/".

Three strategies are computed at once: a uniform random split and a
label-stratified split per annotation kind (tag, polygon). The split is
cached by its fractions and seed; rerunning with the same configuration
reuses the persisted lists unless --force is given.

Split with 20% validation and 10% test images:
	{{ .Command }} --val 0.2 --test 0.1 ~/datasets/wildlife
`),
	)
}

func fraction(s string, fallback float64) (float64, error) {
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Join(flarc.ErrUsage, fmt.Errorf("not a fraction: %s", s))
	}
	return v, nil
}

func Task() common.Task[Flags] {
	return func(
		ctx context.Context,
		logger *log.Logger,
		e senv.Env,
		cl flarc.Commandline[Flags],
		params []any,
	) error {
		root := "."
		if args := cl.Args()[ARG_DATASET_ROOT]; 0 < len(args) {
			root = args[0]
		}
		ds, err := dataset.New(root)
		if err != nil {
			return err
		}

		flags := cl.Flags()
		fractions := e.Fractions()
		if fractions.Val, err = fraction(flags.Val, fractions.Val); err != nil {
			return err
		}
		if fractions.Test, err = fraction(flags.Test, fractions.Test); err != nil {
			return err
		}
		seed := e.SplitSeed()
		if flags.Seed != "" {
			seed, err = strconv.ParseInt(flags.Seed, 10, 64)
			if err != nil {
				return errors.Join(flarc.ErrUsage, fmt.Errorf("not a seed: %s", flags.Seed))
			}
		}

		opts := split.Options{
			Fractions:    fractions,
			Seed:         seed,
			ForceResplit: flags.Force,
			MakeDefault:  !flags.NoDefault,
		}

		// Class lists are derived from the same annotation files and
		// consumed by `stratum annotations`; refresh them here so a
		// split is always accompanied by matching lists.
		if err := ds.MakeClassLists(); err != nil {
			return err
		}

		// Abort rather than persist a split of a moving target.
		ctx, cancel, err := filewatch.UntilModifyContext(ctx, ds.AnnotationsDir())
		if err != nil {
			return err
		}
		defer cancel()

		manifest, err := split.SplitDataset(ctx, ds, opts)
		if err != nil {
			return err
		}

		logger.Printf("split %s is ready:", opts.ID())
		for _, strategy := range utils.Sorted(
			utils.KeysOf(manifest),
			func(a, b split.Strategy) bool { return a < b },
		) {
			for _, partition := range []split.Partition{
				split.PartitionTrain, split.PartitionVal, split.PartitionTest,
			} {
				path, ok := manifest[strategy][partition]
				if !ok {
					continue
				}
				fmt.Fprintln(cl.Stdout(), path)
			}
		}
		return nil
	}
}
