package dto

import (
	"time"

	"github.com/oneboxhq/onebox/internal/enum"
)

// EmailSearchParams mirrors the query string of GET /v1/emails.
type EmailSearchParams struct {
	Query     string              `form:"q"`
	AccountID string              `form:"account"`
	Folder    string              `form:"folder"`
	Category  enum.IntentCategory `form:"category"`
	IsRead    *bool               `form:"isRead"`
	DateFrom  *time.Time          `form:"dateFrom" time_format:"2006-01-02T15:04:05Z07:00"`
	DateTo    *time.Time          `form:"dateTo" time_format:"2006-01-02T15:04:05Z07:00"`
	Limit     int                 `form:"limit"`
}

// UpdateCategoryRequest is the body of PATCH /v1/emails/:id/category.
type UpdateCategoryRequest struct {
	Category string `json:"category" binding:"required"`
}

type ReplyResponse struct {
	EmailID string `json:"emailId"`
	Reply   string `json:"reply"`
}
