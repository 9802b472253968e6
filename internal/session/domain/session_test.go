package domain

import (
	"errors"
	"testing"
)

func TestSession_Validate(t *testing.T) {
	user := User{ID: 3, Username: "amina", Role: "USER"}
	testCases := []struct {
		name    string
		session Session
		wantErr error
	}{
		{"valid", Session{Token: "t", User: user}, nil},
		{"blank token", Session{Token: "  ", User: user}, ErrEmptyToken},
		{"no user", Session{Token: "t"}, ErrNoUser},
		{"whitespace user", Session{Token: "t", User: User{Username: " ", Email: " "}}, ErrNoUser},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.session.Validate(); !errors.Is(err, tc.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestUser_IsEnabled(t *testing.T) {
	yes, no := true, false
	if !(User{}).IsEnabled() {
		t.Error("missing Enabled should count as enabled")
	}
	if !(User{Enabled: &yes}).IsEnabled() {
		t.Error("Enabled=true should be enabled")
	}
	if (User{Enabled: &no}).IsEnabled() {
		t.Error("Enabled=false should be disabled")
	}
}

func TestUser_DisplayName(t *testing.T) {
	if got := (User{Username: "amina", Email: "a@x.ma"}).DisplayName(); got != "amina" {
		t.Errorf("DisplayName = %q, want %q", got, "amina")
	}
	if got := (User{Email: "a@x.ma"}).DisplayName(); got != "a@x.ma" {
		t.Errorf("DisplayName = %q, want %q", got, "a@x.ma")
	}
}
