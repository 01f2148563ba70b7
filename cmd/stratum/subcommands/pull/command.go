package pull

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/youta-t/flarc"

	"github.com/co2meal/stratum/cmd/stratum/env"
	"github.com/co2meal/stratum/cmd/stratum/subcommands/common"
	"github.com/co2meal/stratum/pkg/dataset/remote"
	kpath "github.com/co2meal/stratum/pkg/utils/path"
	"github.com/co2meal/stratum/pkg/utils/pool"
)

type Flags struct {
	Workers int `flag:"workers" alias:"w" help:"number of parallel downloads. Default: number of CPUs."`
}

type Command struct {
	progressOutput io.Writer
}

func WithProgressOutput(w io.Writer) func(com *Command) *Command {
	return func(com *Command) *Command {
		com.progressOutput = w
		return com
	}
}

const (
	ARG_DATASET = "DATASET"
	ARG_DEST    = "DEST"
)

func New(options ...func(com *Command) *Command) (flarc.Command, error) {
	command := &Command{
		progressOutput: os.Stderr,
	}
	for _, opt := range options {
		command = opt(command)
	}

	return flarc.NewCommand(
		"download annotations of a remote dataset to your local filesystem",
		Flags{},
		flarc.Args{
			{
				Name: ARG_DATASET, Required: true,
				Help: "slug of the remote dataset to be pulled.",
			},
			{
				Name: ARG_DEST, Required: false,
				Help: `
directory where the dataset will be located at.
Annotations are written under "DEST/annotations/".
Default: current directory ".".
`,
			},
		},
		common.NewRemoteTask(command.Task()),
		flarc.WithDescription(`
Download every annotation of a remote dataset.

Failed units are skipped rather than aborting the whole pull; compare
the reported counts to see whether anything was missed.

Pull dataset "wildlife" into "./wildlife":
	{{ .Command }} wildlife wildlife
`),
	)
}

func (cmd *Command) Task() common.RemoteTask[Flags] {
	return func(
		ctx context.Context,
		logger *log.Logger,
		e env.Env,
		client remote.Client,
		cl flarc.Commandline[Flags],
		params []any,
	) error {
		slug := cl.Args()[ARG_DATASET][0]

		dest := "."
		if args := cl.Args()[ARG_DEST]; 0 < len(args) {
			dest = args[0]
		}
		dest, err := kpath.Resolve(dest)
		if err != nil {
			return fmt.Errorf("path resolving error for '%s': %w", dest, err)
		}

		opts := []pool.Option{pool.WithProgressOutput(cmd.progressOutput)}
		if 0 < cl.Flags().Workers {
			opts = append(opts, pool.WithWorkers(cl.Flags().Workers))
		}

		stems, err := client.ListAnnotations(ctx, slug)
		if err != nil {
			return err
		}

		pulled, err := remote.Pull(ctx, client, slug, dest, opts...)
		if err != nil {
			return err
		}

		logger.Printf("pulled %d/%d annotations into %s", len(pulled), len(stems), dest)
		if len(pulled) < len(stems) {
			logger.Printf("%d annotations could not be downloaded; retry to complete the dataset", len(stems)-len(pulled))
		}
		return nil
	}
}
