package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	alertdomain "envmonitor/console/internal/alert/domain"
)

// Alert export columns.
const (
	ColAlertID        = "ID"
	ColAlertDate      = "Date"
	ColAlertType      = "Type"
	ColAlertSeverity  = "Severity"
	ColAlertParameter = "Parameter"
	ColAlertValue     = "Value"
	ColAlertMessage   = "Message"
)

var alertHeaders = []string{
	ColAlertID, ColAlertDate, ColAlertType, ColAlertSeverity, ColAlertParameter, ColAlertValue, ColAlertMessage,
}

// AlertsTable lays alerts out with RFC3339 dates. A missing value is an empty cell.
func AlertsTable(alerts []alertdomain.Alert) Table {
	t := Table{Title: "Alertes", Headers: alertHeaders, Rows: make([][]string, 0, len(alerts))}
	for _, a := range alerts {
		value := ""
		if a.Value != nil {
			value = strconv.FormatFloat(*a.Value, 'f', -1, 64)
		}
		date := ""
		if !a.Timestamp.IsZero() {
			date = a.Timestamp.Format(time.RFC3339)
		}
		t.Rows = append(t.Rows, []string{
			strconv.FormatInt(a.ID, 10), date, string(a.Type), string(a.Severity), string(a.Parameter), value, a.Message,
		})
	}
	return t
}

// ParseAlertsCSV reads a file written by WriteCSV(AlertsTable(...)). Columns are matched by header
// name; alerts without a type get one derived from the message and parameter.
func ParseAlertsCSV(r io.Reader) ([]alertdomain.Alert, error) {
	rows, err := readCSV(r)
	if err != nil {
		return nil, fmt.Errorf("export: read alerts csv: %w", err)
	}
	recs, err := records(rows, ColAlertSeverity, ColAlertMessage)
	if err != nil {
		return nil, err
	}
	out := make([]alertdomain.Alert, 0, len(recs))
	for i, rec := range recs {
		a, err := alertFromRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("%w %d: %v", ErrMalformedRow, i+2, err)
		}
		out = append(out, a)
	}
	return out, nil
}

func alertFromRecord(rec record) (alertdomain.Alert, error) {
	a := alertdomain.Alert{
		Type:      alertdomain.Type(rec.get(ColAlertType)),
		Severity:  alertdomain.Severity(rec.get(ColAlertSeverity)),
		Parameter: alertdomain.Parameter(rec.get(ColAlertParameter)),
		Message:   rec.get(ColAlertMessage),
	}
	if s := rec.get(ColAlertID); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return a, fmt.Errorf("id %q", s)
		}
		a.ID = id
	}
	if s := rec.get(ColAlertDate); s != "" {
		ts, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return a, fmt.Errorf("date %q", s)
		}
		a.Timestamp = ts
	}
	if s := rec.get(ColAlertValue); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return a, fmt.Errorf("value %q", s)
		}
		a.Value = &v
	}
	a.Normalize()
	return a, nil
}

// WriteAlertsJSON writes alerts in their wire JSON.
func WriteAlertsJSON(w io.Writer, alerts []alertdomain.Alert) error {
	if alerts == nil {
		alerts = []alertdomain.Alert{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(alerts)
}

// ParseAlertsJSON reads alerts written by WriteAlertsJSON.
func ParseAlertsJSON(r io.Reader) ([]alertdomain.Alert, error) {
	var out []alertdomain.Alert
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return nil, fmt.Errorf("export: decode alerts json: %w", err)
	}
	for i := range out {
		out[i].Normalize()
	}
	return out, nil
}
