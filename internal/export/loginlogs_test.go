package export

import (
	"strings"
	"testing"

	loginlogdomain "envmonitor/console/internal/loginlog/domain"
)

func TestLoginLogsTable(t *testing.T) {
	logs := []loginlogdomain.LoginLog{
		{ID: 1, Username: "amal", IPAddress: "10.0.0.4", LoginTime: "2024-02-01T10:15:00", Status: loginlogdomain.StatusSuccess, UserAgent: "Firefox"},
		{ID: 2, Username: "karim", IPAddress: "10.0.0.9", Status: loginlogdomain.StatusFailure},
	}
	tbl := LoginLogsTable(logs)
	if got := strings.Join(tbl.Headers, ","); got != "Utilisateur,Adresse IP,Date/Heure,Statut,Navigateur" {
		t.Errorf("Headers = %q", got)
	}
	want := [][]string{
		{"amal", "10.0.0.4", "01/02/2024 10:15", "Succès", "Firefox"},
		{"karim", "10.0.0.9", "N/A", "Échec", "Non spécifié"},
	}
	for i := range want {
		if strings.Join(tbl.Rows[i], "|") != strings.Join(want[i], "|") {
			t.Errorf("row %d = %v, want %v", i, tbl.Rows[i], want[i])
		}
	}
}
