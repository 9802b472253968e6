package main

import (
	"context"
	"errors"
	"fmt"

	authsvc "envmonitor/console/internal/auth/service"
	"envmonitor/console/internal/platform/rbac"
)

func runLogin(ctx context.Context, a *App, args []string) error {
	fs := flags("login", a)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	remember := fs.Bool("remember", false, "keep the session")
	if err := fs.Parse(args); err != nil {
		return err
	}
	s, err := a.auth.Login(ctx, authsvc.Credentials{Email: *email, Password: *password, RememberMe: *remember})
	if err != nil {
		if errors.Is(err, authsvc.ErrInvalidCredentials) {
			return errors.New("email ou mot de passe incorrect")
		}
		return err
	}
	fmt.Fprintf(a.out, "signed in as %s (%s), landing on %s\n", s.User.DisplayName(), rbac.Role(s.User.Role).Label(), authsvc.LandingRoute(s.User))
	return nil
}

func runRegister(ctx context.Context, a *App, args []string) error {
	fs := flags("register", a)
	var r authsvc.Registration
	fs.StringVar(&r.Username, "username", "", "user name (3 characters or more)")
	fs.StringVar(&r.Email, "email", "", "account email")
	fs.StringVar(&r.Password, "password", "", "password (6 characters or more)")
	fs.StringVar(&r.ConfirmPassword, "confirm", "", "password again")
	if err := fs.Parse(args); err != nil {
		return err
	}
	res, err := a.auth.Register(ctx, r)
	if err != nil {
		return err
	}
	if res.SignedIn {
		fmt.Fprintf(a.out, "registered and signed in as %s, landing on %s\n", res.User.DisplayName(), res.NextRoute)
		return nil
	}
	fmt.Fprintln(a.out, "registered; an administrator must approve the account before you can sign in")
	return nil
}

func runLogout(ctx context.Context, a *App, _ []string) error {
	if err := a.auth.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "signed out")
	return nil
}

func runWhoami(_ context.Context, a *App, _ []string) error {
	u, ok := a.holder.User()
	if !ok || !a.holder.IsAuthenticated() {
		fmt.Fprintln(a.out, "not signed in")
		return nil
	}
	return table(a.out, "ID\tUSERNAME\tEMAIL\tROLE\tENABLED", [][]string{{
		fmt.Sprint(u.ID), u.Username, u.Email, rbac.Role(u.Role).Label(), fmt.Sprint(u.IsEnabled()),
	}})
}

func runPasswordForgot(ctx context.Context, a *App, args []string) error {
	fs := flags("password forgot", a)
	email := fs.String("email", "", "account email")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.auth.ForgotPassword(ctx, *email); err != nil {
		if errors.Is(err, authsvc.ErrNoAccount) {
			return errors.New("aucun compte n'est associé à cet email")
		}
		return err
	}
	fmt.Fprintln(a.out, "a reset link was sent to", *email)
	return nil
}

func runPasswordValidate(ctx context.Context, a *App, args []string) error {
	fs := flags("password validate", a)
	token := fs.String("token", "", "reset token from the mail")
	if err := fs.Parse(args); err != nil {
		return err
	}
	ok, err := a.auth.ValidateResetToken(ctx, *token)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("reset token is invalid or expired")
	}
	fmt.Fprintln(a.out, "reset token is valid")
	return nil
}

func runPasswordReset(ctx context.Context, a *App, args []string) error {
	fs := flags("password reset", a)
	token := fs.String("token", "", "reset token from the mail")
	password := fs.String("password", "", "new password")
	confirmPw := fs.String("confirm", "", "new password again")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.auth.ResetPassword(ctx, *token, *password, *confirmPw); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "password changed; sign in with the new password")
	return nil
}
