// Package web serves the HTML frontend: a filterable issue list and a
// create/edit form. It holds no business logic and talks to the API only
// through the typed client.
package web

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Dzhud/issue-tracker/internal/issue"
	"github.com/Dzhud/issue-tracker/pkg/client"
	"github.com/Dzhud/issue-tracker/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
)

const (
	msgLoadFailed   = "Failed to load issues"
	msgCreateFailed = "Failed to create issue"
	msgUpdateFailed = "Failed to update issue"
	msgDeleteFailed = "Failed to delete issue"
	msgNotFound     = "Issue not found"
)

// IssueAPI is the subset of the API client used by the views.
type IssueAPI interface {
	ListIssues(ctx context.Context, funcs ...client.ListIssuesOptionFunc) ([]*issue.Issue, error)
	GetIssue(ctx context.Context, id int64) (*issue.Issue, error)
	CreateIssue(ctx context.Context, n issue.NewIssue) (*issue.Issue, error)
	UpdateIssue(ctx context.Context, id int64, p issue.Patch) (*issue.Issue, error)
	DeleteIssue(ctx context.Context, id int64) (*client.DeletedIssue, error)
}

type Server struct {
	api IssueAPI
	// inflight collapses duplicate submissions of the same action.
	inflight singleflight.Group
	log      *logger.Component
}

func NewServer(api IssueAPI) *Server {
	return &Server{api: api, log: logger.Named("web")}
}

// Register parses the embedded templates and mounts the views on r.
func (s *Server) Register(r *gin.Engine) error {
	tmpl, err := parseTemplates()
	if err != nil {
		return errors.Wrap(err, "parse templates")
	}
	r.SetHTMLTemplate(tmpl)

	r.GET("/", s.list)
	r.GET("/issues/new", s.newForm)
	r.POST("/issues", s.create)
	r.GET("/issues/:id/edit", s.editForm)
	r.POST("/issues/:id", s.update)
	r.POST("/issues/:id/delete", s.remove)
	return nil
}

func (s *Server) list(c *gin.Context) {
	f := issue.Filter{Status: issue.Status(c.Query("status")), Search: c.Query("search")}
	s.renderList(c, http.StatusOK, f, "", "")
}

// renderList loads the issues for f and renders the list view. A load
// failure replaces the results with a banner; other banners are kept.
func (s *Server) renderList(c *gin.Context, code int, f issue.Filter, banner, detail string) {
	data := listPage{
		page:     s.page("Issues", f),
		Filter:   f,
		Filtered: f.Status != "" || f.Search != "",
	}
	data.Error, data.Detail = banner, detail

	issues, err := s.api.ListIssues(c.Request.Context(), client.WithFilter(f))
	if err != nil {
		s.log.Errorf("list issues: %+v", err)
		if data.Error == "" {
			data.Error = msgLoadFailed
		}
		if code == http.StatusOK {
			code = http.StatusBadGateway
		}
	}
	data.Issues = issues
	c.HTML(code, "list.html", data)
}

func (s *Server) page(title string, f issue.Filter) page {
	return page{PageTitle: title, Statuses: issue.Statuses, ReturnTo: returnTo(f)}
}

func (s *Server) newForm(c *gin.Context) {
	f := issue.Filter{Status: issue.Status(c.Query("status")), Search: c.Query("search")}
	c.HTML(http.StatusOK, "form.html", formPage{
		page:   s.page("New issue", f),
		Action: "/issues",
		Status: issue.StatusOpen,
	})
}

func (s *Server) editForm(c *gin.Context) {
	f := issue.Filter{Status: issue.Status(c.Query("status")), Search: c.Query("search")}
	id, ok := parseID(c.Param("id"))
	if !ok {
		s.renderList(c, http.StatusNotFound, f, msgNotFound, "")
		return
	}
	i, err := s.api.GetIssue(c.Request.Context(), id)
	if err != nil {
		if client.IsNotFound(err) {
			s.renderList(c, http.StatusNotFound, f, msgNotFound, "")
			return
		}
		s.log.Errorf("get issue %d: %+v", id, err)
		s.renderList(c, http.StatusBadGateway, f, msgLoadFailed, "")
		return
	}
	c.HTML(http.StatusOK, "form.html", formPage{
		page:        s.page("Edit issue", f),
		Action:      fmt.Sprintf("/issues/%d", i.ID),
		Title:       i.Title,
		Description: description(i),
		Status:      i.Status,
	})
}

// submitted is the form payload shared by create and update.
type submitted struct {
	title       string
	description string
	status      issue.Status
	filter      issue.Filter
}

func readForm(c *gin.Context) submitted {
	return submitted{
		title:       c.PostForm("title"),
		description: c.PostForm("description"),
		status:      issue.Status(c.PostForm("status")),
		filter:      filterFrom(c.PostForm("return_to")),
	}
}

func (s *Server) create(c *gin.Context) {
	in := readForm(c)
	key := fmt.Sprintf("create\x00%s\x00%s\x00%s", in.title, in.description, in.status)
	ctx := sharedContext(c)
	_, err, _ := s.inflight.Do(key, func() (any, error) {
		n := issue.NewIssue{Title: in.title, Status: in.status}
		if in.description != "" {
			n.Description = &in.description
		}
		return s.api.CreateIssue(ctx, n)
	})
	if err != nil {
		s.renderFormError(c, "New issue", "/issues", in, msgCreateFailed, err)
		return
	}
	s.redirect(c, in.filter)
}

func (s *Server) update(c *gin.Context) {
	in := readForm(c)
	id, ok := parseID(c.Param("id"))
	if !ok {
		s.renderList(c, http.StatusNotFound, in.filter, msgNotFound, "")
		return
	}
	key := fmt.Sprintf("update\x00%d\x00%s\x00%s\x00%s", id, in.title, in.description, in.status)
	ctx := sharedContext(c)
	_, err, _ := s.inflight.Do(key, func() (any, error) {
		return s.api.UpdateIssue(ctx, id, issue.Patch{
			Title:       issue.Some(in.title),
			Description: issue.Some(in.description),
			Status:      issue.Some(in.status),
		})
	})
	if err != nil {
		if client.IsNotFound(err) {
			s.renderList(c, http.StatusNotFound, in.filter, msgUpdateFailed, msgNotFound)
			return
		}
		s.renderFormError(c, "Edit issue", fmt.Sprintf("/issues/%d", id), in, msgUpdateFailed, err)
		return
	}
	s.redirect(c, in.filter)
}

func (s *Server) remove(c *gin.Context) {
	f := filterFrom(c.PostForm("return_to"))
	id, ok := parseID(c.Param("id"))
	if !ok {
		s.renderList(c, http.StatusNotFound, f, msgDeleteFailed, msgNotFound)
		return
	}
	ctx := sharedContext(c)
	_, err, _ := s.inflight.Do("delete\x00"+strconv.FormatInt(id, 10), func() (any, error) {
		return s.api.DeleteIssue(ctx, id)
	})
	if err != nil {
		code, detail := failure(err)
		if code != http.StatusNotFound {
			s.log.Errorf("delete issue %d: %+v", id, err)
		}
		s.renderList(c, code, f, msgDeleteFailed, detail)
		return
	}
	s.redirect(c, f)
}

// renderFormError redisplays the submitted values under a banner.
func (s *Server) renderFormError(c *gin.Context, title, action string, in submitted, banner string, err error) {
	code, detail := failure(err)
	if code >= http.StatusInternalServerError {
		s.log.Errorf("%s: %+v", banner, err)
	}
	p := s.page(title, in.filter)
	p.Error, p.Detail = banner, detail
	c.HTML(code, "form.html", formPage{
		page:        p,
		Action:      action,
		Title:       in.title,
		Description: in.description,
		Status:      in.status,
	})
}

// failure maps an API error to the status of the rendered page and a detail
// line. Only client errors carry the API's message.
func failure(err error) (int, string) {
	switch code := client.StatusCode(err); {
	case code == http.StatusNotFound:
		return http.StatusNotFound, msgNotFound
	case code >= 400 && code < 500:
		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			return code, apiErr.Message
		}
		return code, ""
	default:
		return http.StatusBadGateway, ""
	}
}

func (s *Server) redirect(c *gin.Context, f issue.Filter) {
	target := "/"
	if q := returnTo(f); q != "" {
		target += "?" + string(q)
	}
	c.Redirect(http.StatusSeeOther, target)
}

// sharedContext detaches a collapsed action from the cancellation of the
// request that happened to start it, so duplicates waiting on it still
// get its result.
func sharedContext(c *gin.Context) context.Context {
	return context.WithoutCancel(c.Request.Context())
}

func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	return id, err == nil && id > 0
}
