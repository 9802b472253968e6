package export

import (
	loginlogdomain "envmonitor/console/internal/loginlog/domain"
)

var loginLogHeaders = []string{"Utilisateur", "Adresse IP", "Date/Heure", "Statut", "Navigateur"}

// LoginLogsTable lays out a page of login logs as the viewer shows them.
func LoginLogsTable(logs []loginlogdomain.LoginLog) Table {
	t := Table{Title: "Journaux de connexion", Headers: loginLogHeaders, Rows: make([][]string, 0, len(logs))}
	for _, l := range logs {
		t.Rows = append(t.Rows, []string{l.Username, l.IPAddress, l.FormatTime(), l.Status.Label(), l.Browser()})
	}
	return t
}
