package common

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/co2meal/stratum/cmd/stratum/config/profiles"
	"github.com/co2meal/stratum/cmd/stratum/env"
	"github.com/co2meal/stratum/pkg/dataset/remote"
	"github.com/youta-t/flarc"
)

type TaskWithCommonFlag[T any] func(
	ctx context.Context,
	logger *log.Logger,
	commonFlag CommonFlags,
	cl flarc.Commandline[T],
	params []any,
) error

// NewTaskWithCommonFlag wraps a task needing the raw common flags,
// giving it a logger prefixed with the full command name.
func NewTaskWithCommonFlag[T any](task TaskWithCommonFlag[T]) flarc.Task[T] {
	return func(ctx context.Context, cl flarc.Commandline[T], pos []any) error {
		var commonFlag CommonFlags
		found := false
		newpos := make([]any, 0, len(pos))
		for _, p := range pos {
			switch v := p.(type) {
			case CommonFlags:
				found = true
				commonFlag = v
			default:
				newpos = append(newpos, p)
			}
		}
		if !found {
			return errors.New("programming error: common flags not found")
		}

		logger := log.New(cl.Stderr(), "", log.LstdFlags)
		logger.SetPrefix(fmt.Sprintf("[%s] ", cl.Fullname()))

		return task(
			ctx,
			logger,
			commonFlag,
			cl,
			newpos,
		)
	}
}

type Task[T any] func(
	ctx context.Context,
	logger *log.Logger,
	e env.Env,
	cl flarc.Commandline[T],
	params []any,
) error

// NewTask wraps a local task: the stratumenv is loaded (a missing file
// yields the defaults) and passed in.
func NewTask[T any](task Task[T]) flarc.Task[T] {
	return NewTaskWithCommonFlag(func(
		ctx context.Context,
		logger *log.Logger,
		commonFlag CommonFlags,
		cl flarc.Commandline[T],
		params []any,
	) error {
		e, err := env.LoadEnv(commonFlag.Env)
		if err != nil {
			return fmt.Errorf("%w: failed to load stratumenv", err)
		}
		return task(ctx, logger, *e, cl, params)
	})
}

type RemoteTask[T any] func(
	ctx context.Context,
	logger *log.Logger,
	e env.Env,
	client remote.Client,
	cl flarc.Commandline[T],
	params []any,
) error

// NewRemoteTask wraps a task talking to the annotation service: the
// profile store is loaded, the named profile picked, and a client
// built from it.
func NewRemoteTask[T any](task RemoteTask[T]) flarc.Task[T] {
	return NewTaskWithCommonFlag(func(
		ctx context.Context,
		logger *log.Logger,
		commonFlag CommonFlags,
		cl flarc.Commandline[T],
		params []any,
	) error {
		profile, err := profiles.LoadProfileStore(commonFlag.ProfileStore)
		if err != nil {
			if errors.Is(err, profiles.ErrProfileStoreNotFound) {
				return fmt.Errorf(
					"%w: profile store (%s) is not found. Please try `stratum init` first",
					err, commonFlag.ProfileStore,
				)
			}
			return fmt.Errorf(
				"%w: failed to load profile store (%s)",
				err, commonFlag.ProfileStore,
			)
		}
		prof, ok := profile[commonFlag.Profile]
		if !ok {
			return fmt.Errorf(
				"profile '%s' not found in the profile store (%s)",
				commonFlag.Profile, commonFlag.ProfileStore,
			)
		}

		e, err := env.LoadEnv(commonFlag.Env)
		if err != nil {
			return fmt.Errorf("%w: failed to load stratumenv", err)
		}

		client, err := remote.NewClient(prof)
		if err != nil {
			return fmt.Errorf(
				"%w: failed to create client. Your profile (%s in %s) can be broken.\n\nRemove it and try `stratum init` again",
				err, commonFlag.Profile, commonFlag.ProfileStore,
			)
		}
		return task(ctx, logger, *e, client, cl, params)
	})
}
