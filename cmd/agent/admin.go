package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strconv"

	"github.com/benmeehan/fieldsales-agent/internal/models"
	"github.com/benmeehan/fieldsales-agent/internal/services"
)

const adminUsage = `admin commands:
  visits                            list all visits
  uplifts                           list all uplifts
  pending                           list uplifts awaiting review
  approve <row>                     approve a pending uplift
  reject -reason text <row>         reject a pending uplift
  targets                           list agent targets
  set-target -id ID -name NAME -daily N -weekly N -monthly N
  summary [-type daily|weekly|monthly] [-month M] [-year Y] [-salesperson NAME]
`

func runAdmin(ctx context.Context, admin *services.AdminService, args []string) error {
	if len(args) == 0 {
		return errors.New(adminUsage)
	}
	command, args := args[0], args[1:]

	switch command {
	case "visits":
		rows, err := admin.Visits(ctx)
		if err != nil {
			return err
		}
		return printJSON(rows)
	case "uplifts":
		rows, err := admin.Uplifts(ctx)
		if err != nil {
			return err
		}
		return printJSON(rows)
	case "pending":
		rows, err := admin.PendingUplifts(ctx)
		if err != nil {
			return err
		}
		return printJSON(rows)
	case "approve":
		row, err := rowArg(args)
		if err != nil {
			return err
		}
		return admin.ApproveUplift(ctx, row)
	case "reject":
		fs := flag.NewFlagSet("reject", flag.ExitOnError)
		reason := fs.String("reason", "", "rejection reason")
		_ = fs.Parse(args)

		row, err := rowArg(fs.Args())
		if err != nil {
			return err
		}
		return admin.RejectUplift(ctx, row, *reason)
	case "targets":
		targets, err := admin.Targets(ctx)
		if err != nil {
			return err
		}
		return printJSON(targets)
	case "set-target":
		var target models.Target
		fs := flag.NewFlagSet("set-target", flag.ExitOnError)
		fs.StringVar(&target.NationalID, "id", "", "agent national ID")
		fs.StringVar(&target.Name, "name", "", "agent name")
		fs.IntVar(&target.DailyTarget, "daily", 0, "daily target in cartons")
		fs.IntVar(&target.WeeklyTarget, "weekly", 0, "weekly target in cartons")
		fs.IntVar(&target.MonthlyTarget, "monthly", 0, "monthly target in cartons")
		_ = fs.Parse(args)

		return admin.SetTargets(ctx, target)
	case "summary":
		var params models.SummaryParams
		fs := flag.NewFlagSet("summary", flag.ExitOnError)
		fs.StringVar(&params.Type, "type", models.PeriodMonthly, "daily, weekly or monthly")
		month := fs.Int("month", 0, "month (1-12), all months when 0")
		fs.IntVar(&params.Year, "year", 0, "year, current year when 0")
		fs.StringVar(&params.Salesperson, "salesperson", "", "limit to one agent")
		_ = fs.Parse(args)

		if *month != 0 {
			params.Month = month
		}
		summary, err := admin.Summary(ctx, params)
		if err != nil {
			return err
		}
		return printJSON(struct {
			models.AdminSummary
			Totals models.SummaryTotals `json:"totals"`
		}{summary, summary.Totals()})
	default:
		return fmt.Errorf("unknown admin command %q\n%s", command, adminUsage)
	}
}

func rowArg(args []string) (int, error) {
	if len(args) != 1 {
		return 0, errors.New("expected exactly one row index")
	}
	row, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid row index %q: %w", args[0], err)
	}
	return row, nil
}
