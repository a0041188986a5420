package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/sweep"
)

// sweep runs the named job, or every job in registration order when name is empty.
func (cli *commandLine) sweep(name string) error {
	ctx := context.Background()
	names := []string{name}
	if name == "" {
		names = cli.scheduler.Jobs()
	}

	summaries := make([]sweep.Summary, 0, len(names))
	for _, n := range names {
		summary, err := cli.scheduler.RunNow(ctx, n)
		if err != nil {
			if err == sweep.ErrUnknownJob {
				return fmt.Errorf("%q: %v", n, err)
			}
			return errors.Wrapf(err, "running sweep %s", n)
		}
		summaries = append(summaries, summary)
	}
	return cli.print(summaries)
}
