package main

import (
	"context"
	"fmt"
)

func (cli *commandLine) resetWeekly() error {
	count, err := cli.accounts.ResetAllWeeklyPoints(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("weekly points reset for %d account(s)\n", count)
	return nil
}
