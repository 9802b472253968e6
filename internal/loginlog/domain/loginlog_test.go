package domain

import (
	"testing"
)

func TestMaskIP(t *testing.T) {
	testCases := []struct {
		ip   string
		want string
	}{
		{"192.168.1.42", "192.168.xxx.xxx"},
		{"10.0.0.1", "10.0.xxx.xxx"},
		{"2001:db8:85a3:0:0:8a2e:370:7334", "2001:db8:xxx:xxx"},
		{"::1", "::1"},
		{"", "N/A"},
		{"localhost", "localhost"},
	}
	for _, tc := range testCases {
		if got := MaskIP(tc.ip); got != tc.want {
			t.Errorf("MaskIP(%q) = %q, want %q", tc.ip, got, tc.want)
		}
	}
}

func TestFormatTime(t *testing.T) {
	testCases := []struct {
		in   string
		want string
	}{
		{"2024-05-03T14:07:09", "03/05/2024 14:07"},
		{"2024-05-03T14:07:09.123456", "03/05/2024 14:07"},
		{"2024-05-03T14:07:09Z", "03/05/2024 14:07"},
		{"", "N/A"},
		{"yesterday", "yesterday"},
	}
	for _, tc := range testCases {
		if got := (LoginLog{LoginTime: tc.in}).FormatTime(); got != tc.want {
			t.Errorf("FormatTime(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFilters_Query(t *testing.T) {
	f := Filters{Username: "  bob ", Status: StatusFailure}
	if f.Empty() {
		t.Fatal("Empty = true, want false")
	}
	q := f.Query()
	if q.Encode() != "status=FAILURE&username=bob" {
		t.Errorf("Query = %q", q.Encode())
	}
	if !(Filters{Username: "   "}).Empty() {
		t.Error("blank username should count as empty")
	}
}

func TestStatus_Labels(t *testing.T) {
	if StatusSuccess.Label() != "Succès" || StatusFailure.Label() != "Échec" {
		t.Errorf("labels = %q/%q", StatusSuccess.Label(), StatusFailure.Label())
	}
	if Status("x").Valid() {
		t.Error("unknown status should be invalid")
	}
}

func TestStats_SuccessRate(t *testing.T) {
	if got := ZeroStats().SuccessRate(); got != 0 {
		t.Errorf("SuccessRate = %v, want 0", got)
	}
	s := Stats{TotalLogins: 8, SuccessfulLogins: 6}
	if got := s.SuccessRate(); got != 75 {
		t.Errorf("SuccessRate = %v, want 75", got)
	}
}
