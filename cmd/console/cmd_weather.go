package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// defaultCity is shown when no city is given.
const defaultCity = "El Jadida"

func cityArg(args []string) string {
	if c := strings.TrimSpace(strings.Join(args, " ")); c != "" {
		return c
	}
	return defaultCity
}

func runWeatherCurrent(ctx context.Context, a *App, args []string) error {
	d, err := a.weather.City(ctx, cityArg(args))
	if err != nil {
		return err
	}
	c := d.Current
	fmt.Fprintf(a.out, "%s %s: %d°C (ressenti %d°C), %s\n", d.Name, d.Country, c.Temp, c.FeelsLike, c.Condition)
	fmt.Fprintf(a.out, "humidité %.0f%%, pression %.0f hPa, visibilité %.1f km, vent %d km/h %s\n",
		c.Humidity, c.Pressure, c.Visibility, d.Wind.Speed, d.Wind.Direction)

	rows := make([][]string, 0, len(d.Hourly))
	for _, h := range d.Hourly {
		rows = append(rows, []string{
			h.Time.Local().Format("15:04"), fmt.Sprintf("%d°C", h.Temp), h.Condition,
			fmt.Sprintf("%d%%", h.Precipitation), fmt.Sprintf("%d km/h", h.WindSpeed),
		})
	}
	if err := table(a.out, "HEURE\tTEMP\tCONDITION\tPRECIP\tVENT", rows); err != nil {
		return err
	}
	rows = rows[:0]
	for _, day := range d.Daily {
		rows = append(rows, []string{
			day.Date.Local().Format("Mon 02/01"), fmt.Sprintf("%d°C", day.MinTemp), fmt.Sprintf("%d°C", day.MaxTemp),
			day.Condition, fmt.Sprintf("%d%%", day.Precipitation),
		})
	}
	return table(a.out, "JOUR\tMIN\tMAX\tCONDITION\tPRECIP", rows)
}

func runWeatherForecast(ctx context.Context, a *App, args []string) error {
	fs := flags("weather forecast", a)
	days := fs.Int("days", 5, "number of days")
	if err := fs.Parse(args); err != nil {
		return err
	}
	raw, err := a.weather.Forecast(ctx, cityArg(fs.Args()), *days)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return err
	}
	buf.WriteByte('\n')
	_, err = buf.WriteTo(a.out)
	return err
}

func runWeatherSearch(ctx context.Context, a *App, args []string) error {
	q := strings.TrimSpace(strings.Join(args, " "))
	if q == "" {
		return errors.New("missing search query")
	}
	locs, err := a.weather.Search(ctx, q)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(locs))
	for _, l := range locs {
		rows = append(rows, []string{
			l.Name, l.State, l.Country, strconv.FormatFloat(l.Lat, 'f', 4, 64), strconv.FormatFloat(l.Lon, 'f', 4, 64),
		})
	}
	return table(a.out, "NOM\tREGION\tPAYS\tLAT\tLON", rows)
}

func runWeatherCoords(ctx context.Context, a *App, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: weather coords LAT LON")
	}
	lat, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("longitude: %w", err)
	}
	b := a.weather.Basic(ctx, lat, lon)
	if b.Fallback {
		fmt.Fprintln(a.out, "weather data unavailable, showing defaults")
	}
	fmt.Fprintf(a.out, "%d°C, %s, humidité %.0f%%, vent %d km/h %s, pression %.0f hPa, visibilité %.1f km\n",
		b.Temperature, b.Condition, b.Humidity, b.WindSpeed, b.WindDirection, b.Pressure, b.Visibility)
	return nil
}

func runWeatherCompareHistory(ctx context.Context, a *App, args []string) error {
	fs := flags("weather compare-history", a)
	add := fs.String("add", "", "city to add to the comparison list")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cities, err := a.compare.Cities(ctx)
	if *add != "" {
		cities, err = a.compare.AddCity(ctx, *add)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "cities: %s\n", strings.Join(cities, ", "))

	entries, err := a.compare.Entries(ctx)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.Date.Local().Format("02/01/2006"), e.City,
			fmt.Sprintf("%.1f°C", e.OpenWeather.Temperature), fmt.Sprintf("%.1f°C", e.WeatherAPI.Temperature),
			fmt.Sprintf("%d%%", e.Accuracy.OpenWeather), fmt.Sprintf("%d%%", e.Accuracy.WeatherAPI),
		})
	}
	if err := table(a.out, "DATE\tVILLE\tOPENWEATHER\tWEATHERAPI\tPRECISION OW\tPRECISION WA", rows); err != nil {
		return err
	}
	ow, wa, err := a.compare.Averages(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "average accuracy: OpenWeather %.1f%%, WeatherAPI %.1f%%\n", ow, wa)
	return nil
}
