package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/MKhiriev/go-health-keeper/models"
)

type printer struct {
	w      io.Writer
	asJSON bool
	styles styles
}

func newPrinter(w io.Writer, opts *RootOptions) printer {
	return printer{w: w, asJSON: opts.Format == "json", styles: newStyles(w)}
}

func (p printer) json(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (p printer) records(records []models.Record) error {
	if p.asJSON {
		if records == nil {
			records = []models.Record{}
		}
		return p.json(records)
	}

	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTIME\tSYNCED\tPAYLOAD")
	for _, r := range records {
		payload, _ := json.Marshal(r.Payload)
		fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", r.ID, formatMillis(r.Timestamp), r.Synced, payload)
	}
	return tw.Flush()
}

func (p printer) record(r models.Record) error {
	if p.asJSON {
		return p.json(r)
	}

	payload, _ := json.Marshal(r.Payload)
	fmt.Fprintf(p.w, "id:        %s\n", r.ID)
	fmt.Fprintf(p.w, "type:      %s\n", r.EntityType)
	fmt.Fprintf(p.w, "time:      %s\n", formatMillis(r.Timestamp))
	fmt.Fprintf(p.w, "updated:   %s\n", formatMillis(r.UpdatedAt))
	fmt.Fprintf(p.w, "synced:    %t\n", r.Synced)
	if r.Deleted {
		fmt.Fprintf(p.w, "deleted:   %s\n", formatMillis(derefMillis(r.DeletedAt)))
	}
	_, err := fmt.Fprintf(p.w, "payload:   %s\n", payload)
	return err
}

func (p printer) status(s models.SyncStatus) error {
	if p.asJSON {
		return p.json(s)
	}

	lastRun := "never"
	if s.LastRunAt != 0 {
		lastRun = formatMillis(s.LastRunAt)
	}

	line := func(label string, value any) {
		fmt.Fprintf(p.w, "%s %v\n", p.styles.label.Render(fmt.Sprintf("%-14s", label+":")), value)
	}
	line("last run", lastRun)
	line("pushed", s.Pushed)
	line("pulled", s.Pulled)
	line("skipped", s.Skipped)
	line("pending", s.Pending)
	if s.AuthRequired {
		line("auth required", p.styles.warn.Render("yes, supply a new token"))
	} else {
		line("auth required", "no")
	}
	if s.LastError != "" {
		line("last error", p.styles.err.Render(s.LastError))
	}
	return nil
}

// written reports the outcome of a local write.
func (p printer) written(id string, result fmt.Stringer) error {
	if p.asJSON {
		return p.json(map[string]string{"id": id, "result": result.String()})
	}
	_, err := fmt.Fprintf(p.w, "%s (%s)\n", id, result)
	return err
}

func formatMillis(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}

func derefMillis(ms *int64) int64 {
	if ms == nil {
		return 0
	}
	return *ms
}
