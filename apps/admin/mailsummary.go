package main

import (
	"context"
	"fmt"

	"github.com/trezcool/comedor/core"
)

func (cli *commandLine) mailSummary(date string) error {
	day, err := core.ParseDate("date", date, cli.conf.Today())
	if err != nil {
		return err
	}
	sum, err := cli.attendanceSvc.MailDailySummary(context.Background(), day)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "summary for %s mailed to %s: %d diners\n", day, cli.conf.KitchenEmail, sum.Total)
	return nil
}
