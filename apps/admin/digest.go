package main

import (
	"context"
	"fmt"
)

func (cli *commandLine) digest() error {
	count, err := cli.notifications.SendUnreadDigests(context.Background(), cli.accounts, cli.mailer)
	if err != nil {
		return err
	}
	fmt.Printf("sent %d digest(s)\n", count)
	return nil
}
