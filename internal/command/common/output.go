package common

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/Dzhud/issue-tracker/internal/issue"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
)

func PrintJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.WithStack(enc.Encode(v))
}

// PrintTable writes one row per issue.
func PrintTable(w io.Writer, issues []*issue.Issue) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tTITLE\tUPDATED")
	for _, i := range issues {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i.ID, i.Status, oneLine(i.Title, 60), humanize.Time(i.UpdatedAt))
	}
	return errors.WithStack(tw.Flush())
}

// PrintIssue writes a detailed view of one issue.
func PrintIssue(w io.Writer, i *issue.Issue) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	description := "-"
	if i.Description != nil {
		description = *i.Description
	}
	fmt.Fprintf(tw, "ID:\t%d\n", i.ID)
	fmt.Fprintf(tw, "Title:\t%s\n", i.Title)
	fmt.Fprintf(tw, "Status:\t%s\n", i.Status)
	fmt.Fprintf(tw, "Description:\t%s\n", description)
	fmt.Fprintf(tw, "Created:\t%s (%s)\n", i.CreatedAt.Format("Jan 2, 2006 15:04 MST"), humanize.Time(i.CreatedAt))
	fmt.Fprintf(tw, "Updated:\t%s (%s)\n", i.UpdatedAt.Format("Jan 2, 2006 15:04 MST"), humanize.Time(i.UpdatedAt))
	return errors.WithStack(tw.Flush())
}

func oneLine(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > limit {
		return string(r[:limit-1]) + "…"
	}
	return s
}
