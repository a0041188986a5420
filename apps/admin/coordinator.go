package main

import (
	"context"
	"time"

	"github.com/trezcool/academia/core/coordinator"
)

var nowFunc = time.Now // mockable

func (cli *commandLine) assign(na coordinator.NewAssignment) error {
	c, err := cli.coordinatorSvc.Assign(context.Background(), na, "" /* by the admin CLI */, nowFunc())
	if err != nil {
		return err
	}
	return cli.print(c)
}

func (cli *commandLine) revoke(userID string) error {
	c, err := cli.coordinatorSvc.Revoke(context.Background(), userID, nowFunc())
	if err != nil {
		return err
	}
	return cli.print(c)
}
