package classes

import (
	"context"
	"fmt"
	"log"

	"github.com/youta-t/flarc"

	senv "github.com/co2meal/stratum/cmd/stratum/env"
	"github.com/co2meal/stratum/cmd/stratum/subcommands/common"
	"github.com/co2meal/stratum/pkg/dataset"
	"github.com/co2meal/stratum/pkg/dataset/annotation"
)

const ARG_DATASET_ROOT = "DATASET_ROOT"

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"extract class lists of a dataset",
		struct{}{},
		flarc.Args{
			{
				Name: ARG_DATASET_ROOT, Required: false,
				Help: "root of the local dataset (holding annotations/). Default: current directory.",
			},
		},
		common.NewTask(Task()),
		flarc.WithDescription(`
Scan the annotation files of a dataset and write the sorted label names
per annotation kind to "lists/classes_<kind>.txt". Kinds with no labels
get no file. The lists are also printed to stdout.
`),
	)
}

func Task() common.Task[struct{}] {
	return func(
		ctx context.Context,
		logger *log.Logger,
		e senv.Env,
		cl flarc.Commandline[struct{}],
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

		if err := ds.MakeClassLists(); err != nil {
			return err
		}

		for _, kind := range annotation.Kinds() {
			names, err := ds.Classes(kind, false)
			if err != nil {
				logger.Printf("no %s classes found", kind)
				continue
			}
			fmt.Fprintf(cl.Stdout(), "%s:\n", kind)
			for _, name := range names {
				fmt.Fprintf(cl.Stdout(), "    %s\n", name)
			}
		}
		return nil
	}
}
