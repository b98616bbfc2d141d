package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/Dzhud/issue-tracker/internal/issue"
	"github.com/Dzhud/issue-tracker/internal/issue/service"
	"github.com/gin-gonic/gin"
)

const (
	msgNotFound   = "Issue not found"
	msgInternal   = "Internal server error"
	msgBadRequest = "Invalid request body"
	msgDeleted    = "Issue deleted successfully"
	paramID       = "id"
	queryStatus   = "status"
	querySearch   = "search"
)

// DeleteResponse is the body returned by DELETE /api/issues/:id.
type DeleteResponse struct {
	Message string       `json:"message"`
	Issue   *issue.Issue `json:"issue"`
}

// RegisterIssueRoutes mounts the JSON issue API on r.
func RegisterIssueRoutes(r gin.IRouter, svc service.Service) {
	g := r.Group("/api/issues")

	g.GET("", func(c *gin.Context) {
		f := issue.Filter{
			Status: issue.Status(c.Query(queryStatus)),
			Search: c.Query(querySearch),
		}
		list, err := svc.List(c.Request.Context(), f)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	})

	g.GET("/:id", func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		i, err := svc.Get(c.Request.Context(), id)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, i)
	})

	g.POST("", func(c *gin.Context) {
		var req issue.NewIssue
		if err := bindJSON(c, &req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": msgBadRequest})
			return
		}
		i, err := svc.Create(c.Request.Context(), req)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, i)
	})

	g.PUT("/:id", func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		var req issue.Patch
		if err := bindJSON(c, &req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": msgBadRequest})
			return
		}
		i, err := svc.Update(c.Request.Context(), id, req)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, i)
	})

	g.DELETE("/:id", func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		i, err := svc.Delete(c.Request.Context(), id)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, DeleteResponse{Message: msgDeleted, Issue: i})
	})
}

// parseID writes a 404 for identifiers that can never match a row.
func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(paramID), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": msgNotFound})
		return 0, false
	}
	return id, true
}

func fail(c *gin.Context, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Message})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": msgNotFound})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgInternal})
	}
}

// bindJSON decodes the request body into v. An empty body leaves v zero so
// the service reports the missing fields.
func bindJSON(c *gin.Context, v any) error {
	if err := c.ShouldBindJSON(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
