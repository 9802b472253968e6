package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"envmonitor/console/internal/export"
	"envmonitor/console/internal/telemetry"
)

var errMissingID = errors.New("missing id argument")

// table prints tab-separated rows aligned in columns.
func table(w io.Writer, header string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, header)
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	return tw.Flush()
}

// idArg parses the single positional id.
func idArg(args []string) (int64, error) {
	if len(args) == 0 {
		return 0, errMissingID
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", args[0])
	}
	return id, nil
}

// stdin is the interactive input of confirm and watch.
var stdin io.Reader = os.Stdin

// confirm asks a yes/no question on stdin. Anything but y/yes/o/oui is a no.
var confirm = func(w io.Writer, question string) bool {
	fmt.Fprintf(w, "%s [y/N] ", question)
	line, _ := bufio.NewReader(stdin).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes", "o", "oui":
		return true
	}
	return false
}

// writeExport writes one export file, named <kind>_<date>.<ext> unless path is set.
func (a *App) writeExport(ctx context.Context, kind string, f export.Format, path string, write func(io.Writer) error) error {
	if path == "" {
		path = export.FileName(kind, f, day())
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(file); err != nil {
		file.Close()
		os.Remove(path)
		return fmt.Errorf("export %s: %w", kind, err)
	}
	if err := file.Close(); err != nil {
		return err
	}
	telemetry.EmitAsync(a.emitter, ctx, telemetry.NewEvent(telemetry.KindExportWritten, "console", a.actor(), path,
		map[string]string{"kind": kind, "format": string(f)}))
	fmt.Fprintf(a.out, "wrote %s\n", path)
	return nil
}

func ptrFloat(p *float64) string {
	if p == nil {
		return "-"
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}
