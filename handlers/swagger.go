package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the issue API.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg gin.IRouter) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(swaggerHTML))
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>issue-tracker API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "issue-tracker", "version": "v1.0.0" },
  "components": {
    "schemas": {
      "Status": { "type": "string", "enum": ["open", "in-progress", "closed"] },
      "Issue": {
        "type": "object",
        "properties": {
          "id": { "type": "integer", "format": "int64" },
          "title": { "type": "string" },
          "description": { "type": "string", "nullable": true },
          "status": { "$ref": "#/components/schemas/Status" },
          "created_at": { "type": "string", "format": "date-time" },
          "updated_at": { "type": "string", "format": "date-time" }
        }
      },
      "NewIssue": {
        "type": "object",
        "required": ["title"],
        "properties": {
          "title": { "type": "string" },
          "description": { "type": "string", "nullable": true },
          "status": { "$ref": "#/components/schemas/Status" }
        }
      },
      "IssuePatch": {
        "type": "object",
        "description": "Only present keys are written; description may be null.",
        "properties": {
          "title": { "type": "string" },
          "description": { "type": "string", "nullable": true },
          "status": { "$ref": "#/components/schemas/Status" }
        }
      },
      "Error": { "type": "object", "properties": { "error": { "type": "string" } } }
    }
  },
  "paths": {
    "/api/issues": {
      "get": {
        "summary": "List issues, newest first",
        "parameters": [
          { "name": "status", "in": "query", "schema": { "$ref": "#/components/schemas/Status" } },
          { "name": "search", "in": "query", "schema": { "type": "string" }, "description": "case-insensitive substring of title or description" }
        ],
        "responses": { "200": { "description": "issues", "content": { "application/json": { "schema": { "type": "array", "items": { "$ref": "#/components/schemas/Issue" } } } } }, "500": { "description": "store failure" } }
      },
      "post": {
        "summary": "Create an issue",
        "requestBody": { "content": { "application/json": { "schema": { "$ref": "#/components/schemas/NewIssue" } } } },
        "responses": { "201": { "description": "created" }, "400": { "description": "validation failed" }, "500": { "description": "store failure" } }
      }
    },
    "/api/issues/{id}": {
      "parameters": [ { "name": "id", "in": "path", "required": true, "schema": { "type": "integer" } } ],
      "get": { "summary": "Get an issue", "responses": { "200": { "description": "issue" }, "404": { "description": "Issue not found" } } },
      "put": {
        "summary": "Partially update an issue",
        "requestBody": { "content": { "application/json": { "schema": { "$ref": "#/components/schemas/IssuePatch" } } } },
        "responses": { "200": { "description": "updated issue" }, "400": { "description": "validation failed" }, "404": { "description": "Issue not found" } }
      },
      "delete": { "summary": "Delete an issue", "responses": { "200": { "description": "message and deleted issue" }, "404": { "description": "Issue not found" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "ok" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "exposition format" } } } }
  }
}`
