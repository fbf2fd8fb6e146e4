package utils

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Toast variants understood by the panel UI
const (
	ToastDefault     = "default"
	ToastDestructive = "destructive"
)

// Toast is the user-facing notification attached to a response
type Toast struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Variant     string `json:"variant,omitempty"`
}

// Response represents a standard API response
type Response struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Toast     *Toast      `json:"toast,omitempty"`
	Timestamp string      `json:"timestamp"`
	Meta      interface{} `json:"meta,omitempty"`
}

// ErrorResponse represents an error response with request context
type ErrorResponse struct {
	Success   bool        `json:"success"`
	Error     string      `json:"error"`
	Code      int         `json:"code"`
	Toast     Toast       `json:"toast"`
	Timestamp string      `json:"timestamp"`
	Request   RequestInfo `json:"request"`
	Details   interface{} `json:"details,omitempty"`
}

// RequestInfo provides context about the failed request
type RequestInfo struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	Query  string `json:"query,omitempty"`
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// SendSuccess sends a successful response
func SendSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success:   true,
		Data:      data,
		Timestamp: now(),
	})
}

// SendCreated sends a 201 with a toast
func SendCreated(c *gin.Context, data interface{}, title, description string) {
	c.JSON(http.StatusCreated, Response{
		Success:   true,
		Data:      data,
		Toast:     &Toast{Title: title, Description: description, Variant: ToastDefault},
		Timestamp: now(),
	})
}

// SendSuccessWithToast sends a successful response the UI should announce
func SendSuccessWithToast(c *gin.Context, data interface{}, title, description string) {
	c.JSON(http.StatusOK, Response{
		Success:   true,
		Data:      data,
		Toast:     &Toast{Title: title, Description: description, Variant: ToastDefault},
		Timestamp: now(),
	})
}

// SendSuccessWithMeta sends a successful response with metadata
func SendSuccessWithMeta(c *gin.Context, data interface{}, meta interface{}) {
	c.JSON(http.StatusOK, Response{
		Success:   true,
		Data:      data,
		Meta:      meta,
		Timestamp: now(),
	})
}

// SendError sends an error response with a destructive toast
func SendError(c *gin.Context, statusCode int, message string) {
	SendErrorWithDetails(c, statusCode, message, nil)
}

// SendErrorWithDetails sends an error response carrying extra details
func SendErrorWithDetails(c *gin.Context, statusCode int, message string, details interface{}) {
	c.JSON(statusCode, ErrorResponse{
		Success: false,
		Error:   message,
		Code:    statusCode,
		Toast: Toast{
			Title:       toastTitle(statusCode),
			Description: message,
			Variant:     ToastDestructive,
		},
		Timestamp: now(),
		Request: RequestInfo{
			Method: c.Request.Method,
			Path:   c.Request.URL.Path,
			Query:  c.Request.URL.RawQuery,
		},
		Details: details,
	})
}

func toastTitle(statusCode int) string {
	switch statusCode {
	case http.StatusBadRequest:
		return "Invalid Request"
	case http.StatusUnauthorized:
		return "Authentication Failed"
	case http.StatusForbidden:
		return "Permission Denied"
	case http.StatusNotFound:
		return "Not Found"
	case http.StatusConflict:
		return "Conflict"
	case http.StatusTooManyRequests:
		return "Too Many Requests"
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return "Service Unavailable"
	default:
		return "Error"
	}
}
