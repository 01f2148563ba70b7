package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path"

	subannotations "github.com/co2meal/stratum/cmd/stratum/subcommands/annotations"
	subclasses "github.com/co2meal/stratum/cmd/stratum/subcommands/classes"
	"github.com/co2meal/stratum/cmd/stratum/subcommands/common"
	subinit "github.com/co2meal/stratum/cmd/stratum/subcommands/initialize"
	"github.com/co2meal/stratum/cmd/stratum/subcommands/logger"
	subpull "github.com/co2meal/stratum/cmd/stratum/subcommands/pull"
	subsplit "github.com/co2meal/stratum/cmd/stratum/subcommands/split"
	subver "github.com/co2meal/stratum/cmd/stratum/subcommands/version"
	"github.com/co2meal/stratum/pkg/utils/try"
	"github.com/youta-t/flarc"
)

func main() {
	name := path.Base(os.Args[0])
	logger := logger.Default()
	logger.SetPrefix(fmt.Sprintf("[%s] ", name))

	ctx, cancel := signal.NotifyContext(
		context.Background(), os.Interrupt, os.Kill,
	)
	defer cancel()

	cf := try.To(common.Flags(".")).OrFatal(logger)
	init := try.To(subinit.New()).OrFatal(logger)
	pull := try.To(subpull.New()).OrFatal(logger)
	split := try.To(subsplit.New()).OrFatal(logger)
	classes := try.To(subclasses.New()).OrFatal(logger)
	annotations := try.To(subannotations.New()).OrFatal(logger)
	version := try.To(subver.New()).OrFatal(logger)

	stratum := try.To(
		flarc.NewCommandGroup(
			"Dataset train/val/test splitter",
			cf,
			flarc.WithSubcommand("init", init),
			flarc.WithSubcommand("pull", pull),
			flarc.WithSubcommand("split", split),
			flarc.WithSubcommand("classes", classes),
			flarc.WithSubcommand("annotations", annotations),
			flarc.WithSubcommand("version", version),
		),
	).OrFatal(logger)

	os.Exit(flarc.Run(ctx, stratum, flarc.WithHelp(true)))
}
