package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	sensordomain "envmonitor/console/internal/sensor/domain"
)

// SensorsSheet is the worksheet name of sensor workbooks.
const SensorsSheet = "Capteurs"

// Sensor export columns.
const (
	ColSensorID       = "ID"
	ColSensorName     = "Nom"
	ColSensorType     = "Type"
	ColSensorLocation = "Localisation"
	ColSensorStatus   = "Statut"
)

var sensorHeaders = []string{ColSensorName, ColSensorType, ColSensorLocation, ColSensorStatus}

func sensorCells(s sensordomain.Sensor) []string {
	return []string{s.Name, s.Type.Label(), s.Loc().String(), s.Status.Label()}
}

// SensorsTable lays sensors out for the workbook: name, type label, location and status label.
func SensorsTable(sensors []sensordomain.Sensor) Table {
	t := Table{Title: SensorsSheet, Headers: sensorHeaders, Rows: make([][]string, 0, len(sensors))}
	for _, s := range sensors {
		t.Rows = append(t.Rows, sensorCells(s))
	}
	return t
}

// SensorsCSVTable is SensorsTable with a leading ID column.
func SensorsCSVTable(sensors []sensordomain.Sensor) Table {
	t := Table{
		Title:   SensorsSheet,
		Headers: append([]string{ColSensorID}, sensorHeaders...),
		Rows:    make([][]string, 0, len(sensors)),
	}
	for _, s := range sensors {
		t.Rows = append(t.Rows, append([]string{strconv.FormatInt(s.ID, 10)}, sensorCells(s)...))
	}
	return t
}

// WriteSensorsXLSX writes sensors to the Capteurs sheet.
func WriteSensorsXLSX(w io.Writer, sensors []sensordomain.Sensor) error {
	return WriteXLSX(w, SensorsTable(sensors), SensorsSheet)
}

// ParseSensorsXLSX reads sensors from the Capteurs sheet, or the first sheet when it is absent.
// Labels map back to their values; unknown type and status labels become temperature and actif.
func ParseSensorsXLSX(r io.Reader) ([]sensordomain.Sensor, error) {
	rows, err := readXLSX(r, SensorsSheet)
	if err != nil {
		return nil, err
	}
	return sensorsFromRows(rows, importLabels)
}

// ParseSensorsCSV reads sensors written by WriteCSV(SensorsCSVTable(...)). A type or status cell
// that is not a known label is kept as the raw value, as Label wrote it.
func ParseSensorsCSV(r io.Reader) ([]sensordomain.Sensor, error) {
	rows, err := readCSV(r)
	if err != nil {
		return nil, fmt.Errorf("export: read sensors csv: %w", err)
	}
	return sensorsFromRows(rows, exportLabels)
}

// labelReader turns type and status cells back into values.
type labelReader struct {
	typ    func(string) sensordomain.Type
	status func(string) sensordomain.Status
}

var (
	importLabels = labelReader{typ: sensordomain.TypeFromLabel, status: sensordomain.StatusFromLabel}
	exportLabels = labelReader{
		typ: func(cell string) sensordomain.Type {
			if t, ok := sensordomain.LookupTypeLabel(cell); ok {
				return t
			}
			return sensordomain.Type(cell)
		},
		status: func(cell string) sensordomain.Status {
			if s, ok := sensordomain.LookupStatusLabel(cell); ok {
				return s
			}
			return sensordomain.Status(cell)
		},
	}
)

func sensorsFromRows(rows [][]string, labels labelReader) ([]sensordomain.Sensor, error) {
	recs, err := records(rows, ColSensorName)
	if err != nil {
		return nil, err
	}
	out := make([]sensordomain.Sensor, 0, len(recs))
	for i, rec := range recs {
		s := sensordomain.Sensor{
			Name:     rec.get(ColSensorName),
			Type:     labels.typ(rec.get(ColSensorType)),
			Location: rec.get(ColSensorLocation),
			Status:   labels.status(rec.get(ColSensorStatus)),
		}
		if id := rec.get(ColSensorID); id != "" {
			n, err := strconv.ParseInt(id, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w %d: id %q", ErrMalformedRow, i+2, id)
			}
			s.ID = n
		}
		out = append(out, s)
	}
	return out, nil
}

// WriteSensorsJSON writes sensors in their wire JSON.
func WriteSensorsJSON(w io.Writer, sensors []sensordomain.Sensor) error {
	if sensors == nil {
		sensors = []sensordomain.Sensor{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(sensors)
}

// ParseSensorsJSON reads sensors written by WriteSensorsJSON.
func ParseSensorsJSON(r io.Reader) ([]sensordomain.Sensor, error) {
	var out []sensordomain.Sensor
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return nil, fmt.Errorf("export: decode sensors json: %w", err)
	}
	return out, nil
}
