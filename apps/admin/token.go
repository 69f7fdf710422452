package main

import (
	"context"
	"fmt"

	echoapi "github.com/ahmedramy514/khadamli-darasi/apps/api/echo"
	"github.com/ahmedramy514/khadamli-darasi/core"
)

func (cli *commandLine) token(email string) error {
	acc, err := cli.accounts.GetByEmail(context.Background(), core.CleanString(email, true /* lower */))
	if err != nil {
		return err
	}
	token, err := echoapi.GenerateToken(cli.conf, echoapi.NewClaims(cli.conf, acc))
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
