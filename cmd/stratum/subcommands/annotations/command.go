package annotations

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/youta-t/flarc"

	senv "github.com/co2meal/stratum/cmd/stratum/env"
	"github.com/co2meal/stratum/cmd/stratum/subcommands/common"
	"github.com/co2meal/stratum/pkg/dataset"
	"github.com/co2meal/stratum/pkg/dataset/annotation"
	"github.com/co2meal/stratum/pkg/dataset/detection"
	"github.com/co2meal/stratum/pkg/dataset/split"
)

type Flags struct {
	SplitType string `flag:"split-type" metavar:"random|stratified" help:"split strategy to read."`
	Kind      string `flag:"kind" metavar:"tag|polygon" help:"annotation kind to read."`
	Split     string `flag:"split" help:"name of the split directory under lists/. Default: the 'split' alias."`
}

const ARG_PARTITION = "PARTITION"
const ARG_DATASET_ROOT = "DATASET_ROOT"

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"emit detection records of one split partition as JSON",
		Flags{
			SplitType: string(detection.SplitTypeStratified),
			Kind:      string(annotation.KindPolygon),
		},
		flarc.Args{
			{
				Name: ARG_PARTITION, Required: true,
				Help: "partition to read: train, val or test.",
			},
			{
				Name: ARG_DATASET_ROOT, Required: false,
				Help: "root of the local dataset. Default: current directory.",
			},
		},
		common.NewTask(Task()),
		flarc.WithDescription(`
Read the image list of one (split, partition) pair and re-serialize the
polygon annotations of its images as flattened detection records, one
JSON array on stdout.

Emit the records of the stratified-by-polygon validation partition:
	{{ .Command }} val ~/datasets/wildlife
`),
	)
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
		sel := detection.Selection{
			Partition: split.Partition(cl.Args()[ARG_PARTITION][0]),
			SplitType: detection.SplitType(flags.SplitType),
			Kind:      annotation.Kind(flags.Kind),
			Split:     flags.Split,
		}
		if err := sel.Validate(); err != nil {
			return errors.Join(flarc.ErrUsage, err)
		}

		records, err := detection.Records(ds, sel)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cl.Stdout())
		enc.SetIndent("", "    ")
		return enc.Encode(records)
	}
}
