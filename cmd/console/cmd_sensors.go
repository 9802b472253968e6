package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"envmonitor/console/internal/export"
	sensordomain "envmonitor/console/internal/sensor/domain"
	sensorsvc "envmonitor/console/internal/sensor/service"
)

const sensorHeader = "ID\tNOM\tTYPE\tLOCALISATION\tSTATUT\tVALEUR"

func sensorRows(sensors []sensordomain.Sensor) [][]string {
	rows := make([][]string, 0, len(sensors))
	for _, s := range sensors {
		value := s.Value
		if value == "" {
			value = "-"
		}
		rows = append(rows, []string{
			fmt.Sprint(s.ID), s.Name, s.Type.Label(), s.Loc().String(), s.Status.Label(), value,
		})
	}
	return rows
}

func runSensorsList(ctx context.Context, a *App, args []string) error {
	fs := flags("sensors list", a)
	typ := fs.String("type", "", "temperature, humidity or air_quality")
	status := fs.String("status", "", "actif, inactif or maintenance")
	search := fs.String("search", "", "name or location substring")
	current := fs.Bool("current", false, "list current readings")
	page := fs.Int("page", 1, "page number")
	if err := fs.Parse(args); err != nil {
		return err
	}
	load := a.sensors.Load
	if *current {
		load = a.sensors.LoadCurrent
	}
	if err := load(ctx); err != nil {
		return err
	}
	a.sensors.ApplyFilters(sensorsvc.Filter{Type: sensordomain.Type(*typ), Status: sensordomain.Status(*status), Term: *search})
	a.sensors.GoToPage(*page)
	if err := table(a.out, sensorHeader, sensorRows(a.sensors.Page())); err != nil {
		return err
	}
	n, total := a.sensors.PageNumber()
	c := a.sensors.Counts()
	fmt.Fprintf(a.out, "page %d/%d, %d sensors: %d actif, %d inactif, %d maintenance\n", n, total, c.Total,
		c.ByStatus[sensordomain.StatusActive], c.ByStatus[sensordomain.StatusInactive], c.ByStatus[sensordomain.StatusMaintenance])
	return nil
}

func runSensorsCreate(ctx context.Context, a *App, args []string) error {
	fs := flags("sensors create", a)
	name := fs.String("name", "", "sensor name")
	typ := fs.String("type", string(sensordomain.TypeTemperature), "temperature, humidity or air_quality")
	status := fs.String("status", string(sensordomain.StatusActive), "actif, inactif or maintenance")
	location := fs.String("location", "", "free-text location")
	lat := fs.Float64("lat", 0, "map latitude")
	lon := fs.Float64("lon", 0, "map longitude")
	if err := fs.Parse(args); err != nil {
		return err
	}
	d := sensorsvc.Draft{
		Name:     *name,
		Type:     sensordomain.Type(*typ),
		Status:   sensordomain.Status(*status),
		Location: sensordomain.TextLocation(*location),
	}
	if flagSet(fs, "lat") || flagSet(fs, "lon") {
		d.Location = sensordomain.MapLocation(*lat, *lon)
	}
	s, err := a.sensors.Create(ctx, d)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "created sensor %d (%s)\n", s.ID, s.Name)
	return nil
}

func flagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func runSensorsDelete(ctx context.Context, a *App, args []string) error {
	id, err := idArg(args)
	if err != nil {
		return err
	}
	if !confirm(a.out, fmt.Sprintf("Delete sensor %d?", id)) {
		fmt.Fprintln(a.out, "cancelled")
		return nil
	}
	if err := a.sensors.Load(ctx); err != nil {
		return err
	}
	if err := a.sensors.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "sensor %d deleted\n", id)
	return nil
}

func historyRows(entries []sensordomain.HistoryEntry) [][]string {
	rows := make([][]string, 0, len(entries))
	for i, e := range entries {
		rows = append(rows, []string{fmt.Sprint(i), e.Date.Format("02/01/2006 15:04"), e.Status.Label(), e.Comment})
	}
	return rows
}

func runSensorsHistory(ctx context.Context, a *App, args []string) error {
	id, err := idArg(args)
	if err != nil {
		return err
	}
	s, err := a.sensors.Get(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s (%s, %s) %s\n", s.Name, s.Type.Label(), s.Loc().String(), s.Status.Label())
	entries, err := a.sensors.History(ctx, id)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(a.out, "no maintenance history")
		return nil
	}
	return table(a.out, "#\tDATE\tSTATUT\tCOMMENTAIRE", historyRows(entries))
}

func runSensorsAddHistory(ctx context.Context, a *App, args []string) error {
	fs := flags("sensors add-history", a)
	status := fs.String("status", string(sensordomain.StatusMaintenance), "status recorded with the entry")
	comment := fs.String("comment", "", "entry text")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := idArg(fs.Args())
	if err != nil {
		return err
	}
	entries, err := a.sensors.AddHistory(ctx, id, sensordomain.Status(*status), *comment)
	if err != nil {
		return err
	}
	return table(a.out, "#\tDATE\tSTATUT\tCOMMENTAIRE", historyRows(entries))
}

func runSensorsGenerate(ctx context.Context, a *App, args []string) error {
	id, err := idArg(args)
	if err != nil {
		return err
	}
	if err := a.sensors.GenerateData(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "test data generated for sensor %d\n", id)
	return nil
}

func runSensorsExport(ctx context.Context, a *App, args []string) error {
	fs := flags("sensors export", a)
	format := fs.String("format", string(export.FormatXLSX), "xlsx, csv, json or pdf")
	out := fs.String("o", "", "output file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	f, err := export.ParseFormat(*format)
	if err != nil {
		return err
	}
	if err := a.sensors.Load(ctx); err != nil {
		return err
	}
	sensors := a.sensors.All()
	return a.writeExport(ctx, "capteurs", f, *out, func(w io.Writer) error {
		switch f {
		case export.FormatXLSX:
			return export.WriteSensorsXLSX(w, sensors)
		case export.FormatJSON:
			return export.WriteSensorsJSON(w, sensors)
		case export.FormatCSV:
			return export.WriteCSV(w, export.SensorsCSVTable(sensors))
		default:
			return export.Write(w, export.SensorsTable(sensors), f)
		}
	})
}

func runSensorsImport(ctx context.Context, a *App, args []string) error {
	if len(args) == 0 {
		return errors.New("missing file argument")
	}
	file, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer file.Close()

	var rows []sensordomain.Sensor
	switch strings.ToLower(filepath.Ext(args[0])) {
	case ".csv":
		rows, err = export.ParseSensorsCSV(file)
	case ".json":
		rows, err = export.ParseSensorsJSON(file)
	default:
		rows, err = export.ParseSensorsXLSX(file)
	}
	if err != nil {
		return err
	}
	res := a.sensors.Import(ctx, rows)
	fmt.Fprintf(a.out, "%d sensors imported, %d errors\n", res.Imported, res.Errors)
	return nil
}
