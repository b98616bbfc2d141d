package web

import (
	"embed"
	"html/template"
	"net/url"
	"time"

	"github.com/Dzhud/issue-tracker/internal/issue"
	"github.com/dustin/go-humanize"
)

//go:embed templates/*.html
var templateFS embed.FS

var statusLabels = map[issue.Status]string{
	issue.StatusOpen:       "Open",
	issue.StatusInProgress: "In Progress",
	issue.StatusClosed:     "Closed",
}

func statusLabel(s issue.Status) string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

func statusClass(s issue.Status) string {
	if s.Valid() {
		return "status-" + string(s)
	}
	return "status-unknown"
}

func formatDate(t time.Time) string {
	return t.Format("Jan 2, 2006")
}

// description returns the text to display, or "" for a null or empty one.
func description(i *issue.Issue) string {
	if i.Description == nil {
		return ""
	}
	return *i.Description
}

func parseTemplates() (*template.Template, error) {
	return template.New("").Funcs(template.FuncMap{
		"statusLabel": statusLabel,
		"statusClass": statusClass,
		"formatDate":  formatDate,
		"ago":         humanize.Time,
		"description": description,
	}).ParseFS(templateFS, "templates/*.html")
}

// page is shared by every view.
type page struct {
	PageTitle string
	Error     string
	Detail    string
	Statuses  []issue.Status
	// ReturnTo is the encoded list filter to come back to after an action.
	ReturnTo template.URL
}

type listPage struct {
	page
	Issues   []*issue.Issue
	Filter   issue.Filter
	Filtered bool
}

type formPage struct {
	page
	Action      string
	Title       string
	Description string
	Status      issue.Status
}

// returnTo keeps only the filter parameters of a query so that redirects
// cannot be steered elsewhere.
func returnTo(f issue.Filter) template.URL {
	q := url.Values{}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	return template.URL(q.Encode())
}

func filterFrom(raw string) issue.Filter {
	q, err := url.ParseQuery(raw)
	if err != nil {
		return issue.Filter{}
	}
	return issue.Filter{Status: issue.Status(q.Get("status")), Search: q.Get("search")}
}
