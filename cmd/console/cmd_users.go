package main

import (
	"context"
	"fmt"

	"envmonitor/console/internal/platform/rbac"
	userdomain "envmonitor/console/internal/user/domain"
	usersvc "envmonitor/console/internal/user/service"
)

func userRows(users []userdomain.User) [][]string {
	rows := make([][]string, 0, len(users))
	for _, u := range users {
		rows = append(rows, []string{
			fmt.Sprint(u.ID), u.Username, u.Email, rbac.Role(u.Role).Label(), u.Status.Label(),
		})
	}
	return rows
}

const userHeader = "ID\tUSERNAME\tEMAIL\tROLE\tSTATUS"

func runUsersList(ctx context.Context, a *App, args []string) error {
	fs := flags("users list", a)
	status := fs.String("status", "all", "all, pending, active or inactive")
	search := fs.String("search", "", "case-insensitive search term")
	field := fs.String("field", "all", "search field: all, username or email")
	page := fs.Int("page", 1, "page number")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.users.Load(ctx); err != nil {
		return err
	}
	a.users.ApplyFilters(userdomain.Filter{
		Status: userdomain.StatusFilter(*status),
		Term:   *search,
		Field:  userdomain.SearchField(*field),
	})
	a.users.GoToPage(*page)
	if err := table(a.out, userHeader, userRows(a.users.Page())); err != nil {
		return err
	}
	n, total := a.users.PageNumber()
	counts := a.users.Counts()
	fmt.Fprintf(a.out, "page %d/%d, %d pending, %d active\n", n, total,
		counts[userdomain.UserStatusPending], counts[userdomain.UserStatusActive])
	return nil
}

func runUsersPending(ctx context.Context, a *App, _ []string) error {
	pending, err := a.users.LoadPending(ctx)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		fmt.Fprintln(a.out, "no account is waiting for approval")
		return nil
	}
	return table(a.out, userHeader, userRows(pending))
}

// userTransition loads the list so the view-model can patch the account, then applies op.
func userTransition(op string, call func(m *usersvc.Manager, ctx context.Context, id int64) error) runFunc {
	return func(ctx context.Context, a *App, args []string) error {
		id, err := idArg(args)
		if err != nil {
			return err
		}
		if err := a.users.Load(ctx); err != nil {
			return err
		}
		if err := call(a.users, ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "user %d %s\n", id, op)
		return nil
	}
}

var (
	runUsersApprove    = userTransition("approved", (*usersvc.Manager).Approve)
	runUsersReject     = userTransition("rejected", (*usersvc.Manager).Reject)
	runUsersDeactivate = userTransition("deactivated", (*usersvc.Manager).Deactivate)
)

func runUsersDelete(ctx context.Context, a *App, args []string) error {
	id, err := idArg(args)
	if err != nil {
		return err
	}
	if !confirm(a.out, fmt.Sprintf("Delete user %d?", id)) {
		fmt.Fprintln(a.out, "cancelled")
		return nil
	}
	return userTransition("deleted", (*usersvc.Manager).Delete)(ctx, a, args)
}
