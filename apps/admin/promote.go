package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/trezcool/comedor/core/promotion"
)

// promote prints the plan and, when confirmed, applies it.
func (cli *commandLine) promote(confirm bool, repeat []string) error {
	ctx := context.Background()
	plan, err := cli.promotionSvc.BuildPlan(ctx)
	if err != nil {
		return err
	}
	for _, id := range repeat {
		if err := plan.Repeat(id); err != nil {
			return err
		}
	}

	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	for _, e := range plan.Entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Student.ID, e.Student.Name, e.Origin.Label(), destinationLabel(e))
	}
	for _, x := range plan.Excluded {
		fmt.Fprintf(w, "%s\t%s\t%s\t(%s)\n", x.Student.ID, x.Student.Name, x.Course.Label(), x.Reason)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if !confirm {
		fmt.Fprintln(cli.out, "nothing applied; run again with -confirm")
		return nil
	}
	res, err := cli.promotionSvc.Apply(ctx, plan, true)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "batch %s: %d promoted, %d repeated\n", res.Batch, len(res.Promoted), res.Repeated)
	for _, id := range res.Missing {
		fmt.Fprintf(cli.out, "student %s no longer exists, skipped\n", id)
	}
	return nil
}

func destinationLabel(e promotion.Entry) string {
	if e.Decision == promotion.Repeat {
		return "repeats"
	}
	return "-> " + e.Destination.Label()
}

func (cli *commandLine) undoPromotion() error {
	res, err := cli.promotionSvc.Undo(context.Background())
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "batch %s undone: %d restored\n", res.Batch, res.Restored)
	for _, id := range res.Missing {
		fmt.Fprintf(cli.out, "student %s no longer exists, log entry dropped\n", id)
	}
	for _, id := range res.Stranded {
		fmt.Fprintf(cli.out, "student %s kept: origin course no longer exists\n", id)
	}
	return nil
}
