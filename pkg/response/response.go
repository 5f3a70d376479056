// Package response renders the JSON envelope every endpoint replies with.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/blog-api/internal/models"
	appErrors "github.com/noah-isme/blog-api/pkg/errors"
)

// Envelope is the body shape shared by success and error responses. Exactly
// one of Data or Error is set; Pagination and Meta ride along when present.
type Envelope struct {
	Data       interface{}            `json:"data,omitempty"`
	Error      *appErrors.Error       `json:"error,omitempty"`
	Pagination *models.Pagination     `json:"pagination,omitempty"`
	Meta       map[string]interface{} `json:"meta,omitempty"`
}

// JSON writes a success envelope. Pagination may be nil; at most the first
// meta map is used.
func JSON(c *gin.Context, status int, data interface{}, pagination *models.Pagination, meta ...map[string]interface{}) {
	noStore(c)
	envelope := Envelope{Data: data, Pagination: pagination}
	if len(meta) > 0 && meta[0] != nil {
		envelope.Meta = meta[0]
	}
	c.JSON(status, envelope)
}

// Created writes a 201 envelope around data.
func Created(c *gin.Context, data interface{}) {
	JSON(c, http.StatusCreated, data, nil)
}

// Error converts err through appErrors.FromError and writes it with the
// status the error carries.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	noStore(c)
	c.JSON(appErr.Status, Envelope{Error: appErr})
}

// NoContent writes an empty 204.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// API responses carry per-user data, so proxies must not cache them.
func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
}
