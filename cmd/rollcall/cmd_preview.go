package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"rollcall/internal/dispatch"
	"rollcall/internal/logging"
	"rollcall/internal/report"
)

// errCheckFailed is returned by preview --check when a message does not
// describe its own classification.
var errCheckFailed = errors.New("rendered messages failed verification")

func newPreviewCmd(a *app) *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Print the messages a run would send, without a browser",
		Long: `Fetches the sheet and renders every message exactly as run would, printing
them instead of sending. Cell values in tracked columns that match neither
absence value are listed afterwards, since they silently count as present.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPreview(cmd, check)
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "Verify that each message lists exactly the absences it was built from")
	return cmd
}

func (a *app) runPreview(cmd *cobra.Command, check bool) error {
	cfg, err := a.config()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	printBanner(out, "preview")

	ctx := cmd.Context()
	tbl, b, err := a.prepare(ctx, cfg)
	if err != nil {
		return err
	}

	d := &dispatch.Dispatcher{Builder: b, Sender: &dispatch.PreviewSender{W: out}, Log: a.log, DryRun: true}
	sum, err := d.Run(ctx, tbl)
	if err != nil {
		return err
	}

	if values := report.PresentValues(tbl.Rows, b.DateColumns, b.Sentinels); len(values) > 0 {
		fmt.Fprintln(out, subtleStyle.Render("Values counted as present:"))
		for _, v := range values {
			fmt.Fprintf(out, "  %-20q %d\n", v.Value, v.Count)
		}
		fmt.Fprintln(out)
	}

	if check {
		failed := 0
		for _, row := range tbl.Rows {
			msg, outcome := b.Build(row)
			if outcome != report.Ready {
				continue
			}
			if err := b.Verify(msg); err != nil {
				failed++
				fmt.Fprintln(out, warnStyle.Render(err.Error()))
			}
		}
		if failed > 0 {
			a.log.Event(logging.StatusError, fmt.Sprintf("%d messages failed verification", failed))
			return fmt.Errorf("%w: %d", errCheckFailed, failed)
		}
		fmt.Fprintln(out, subtleStyle.Render("All messages verified."))
	}

	a.log.Event(logging.StatusFinished, "Preview finished: "+sum.String(), sum.Fields()...)
	return nil
}
