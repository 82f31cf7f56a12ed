package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/kailas-cloud/incidex"
)

type outputFormat string

const (
	formatText outputFormat = "text"
	formatJSON outputFormat = "json"
)

type printer struct {
	w      io.Writer
	format outputFormat
}

func newPrinter(w io.Writer, format string) (*printer, error) {
	switch f := outputFormat(strings.ToLower(format)); f {
	case formatText, formatJSON:
		return &printer{w: w, format: f}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want text or json)", format)
	}
}

func (p *printer) json(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

func (p *printer) ranking(items []incidex.RankedIncident) error {
	if p.format == formatJSON {
		return p.json(items)
	}
	if len(items) == 0 {
		_, err := fmt.Fprintln(p.w, "No matching incidents.")
		return err
	}
	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSIMILARITY\tRISK\tRELEVANCE\tDOMAIN\tTITLE")
	for i := range items {
		it := &items[i]
		fmt.Fprintf(tw, "%d\t%.3f\t%.3f\t%.3f\t%s\t%s\n",
			it.ID, it.Similarity, it.Risk, it.Relevance, it.RiskDomain, it.Title)
	}
	return tw.Flush()
}

func (p *printer) assessments(items []incidex.Assessment) error {
	if p.format == formatJSON {
		return p.json(items)
	}
	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "INCIDENT\tSTATUS\tTRANSFERABILITY\tSCALE\tRATIONALE")
	for i := range items {
		a := &items[i]
		fmt.Fprintf(tw, "%d\t%s\t%.2f\t%s\t%s\n",
			a.IncidentID, a.Status, a.Transferability, a.Scale, oneLine(a.Rationale))
	}
	return tw.Flush()
}

func (p *printer) assessment(a *incidex.Assessment) error {
	if p.format == formatJSON {
		return p.json(a)
	}
	fmt.Fprintf(p.w, "Incident %d for product %d (%s, %s, %s)\n",
		a.IncidentID, a.ProductID, a.Mode, a.Scale, a.Status)
	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	for _, dim := range sortedKeys(a.Scores) {
		fmt.Fprintf(tw, "  %s\t%.2f\t%s\n", dim, a.Scores[dim], oneLine(a.Rationales[dim]))
	}
	fmt.Fprintf(tw, "  transferability\t%.2f\t\n", a.Transferability)
	if err := tw.Flush(); err != nil {
		return err
	}
	if a.Rationale != "" {
		fmt.Fprintf(p.w, "\n%s\n", a.Rationale)
	}
	return nil
}

func (p *printer) text(s string) error {
	if p.format == formatJSON {
		return p.json(map[string]string{"explanation": s})
	}
	_, err := fmt.Fprintln(p.w, s)
	return err
}

func (p *printer) health(h incidex.HealthStatus) error {
	if p.format == formatJSON {
		return p.json(h)
	}
	fmt.Fprintf(p.w, "status: %s\n", h.Status)
	for _, name := range sortedKeys(h.Checks) {
		fmt.Fprintf(p.w, "  %s: %s\n", name, h.Checks[name])
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
