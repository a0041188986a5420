package main

import (
	"context"
	"fmt"

	echoapi "github.com/trezcool/academia/apps/api/echo"
	"github.com/trezcool/academia/core/user"
)

func (cli *commandLine) addUser(nu user.NewUser) error {
	usr, err := cli.usrSvc.Create(context.Background(), nu)
	if err != nil {
		return err
	}
	return cli.print(usr)
}

func (cli *commandLine) token(userID string) error {
	usr, err := cli.usrSvc.GetByID(context.Background(), userID)
	if err != nil {
		return err
	}
	token, err := echoapi.GenerateToken(cli.conf, echoapi.GetUserClaims(cli.conf, usr))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cli.out, token)
	return err
}
