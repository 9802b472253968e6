package main

import (
	"context"
)

func runAudit(ctx context.Context, a *App, args []string) error {
	fs := flags("audit", a)
	limit := fs.Int("limit", 50, "number of entries")
	if err := fs.Parse(args); err != nil {
		return err
	}
	entries, err := a.audit.List(ctx, *limit)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.CreatedAt.Local().Format("02/01/2006 15:04:05"), e.Actor, e.Action, e.Resource, e.Metadata,
		})
	}
	return table(a.out, "DATE\tACTEUR\tACTION\tRESSOURCE\tDETAILS", rows)
}
