package dto

import (
	"time"

	"github.com/yigit/substitutions/internal/domain"
)

// SubstitutionListResponse is the payload of GET /substitutions
type SubstitutionListResponse struct {
	Items     []domain.Relation `json:"items"`
	Count     int               `json:"count" example:"12"`
	Status    string            `json:"status" example:"ok" enums:"loading,ok,empty,error"`
	Message   string            `json:"message,omitempty" example:"No substitution data available."`
	Received  int               `json:"received" example:"14"`
	Dropped   int               `json:"dropped" example:"0"`
	FetchedAt *time.Time        `json:"fetchedAt,omitempty"`
}

// NewSubstitutionListResponse builds the list payload. Items is never null.
func NewSubstitutionListResponse(items []domain.Relation, status, message string, received, dropped int, fetchedAt time.Time) SubstitutionListResponse {
	if items == nil {
		items = []domain.Relation{}
	}
	resp := SubstitutionListResponse{
		Items:    items,
		Count:    len(items),
		Status:   status,
		Message:  message,
		Received: received,
		Dropped:  dropped,
	}
	if !fetchedAt.IsZero() {
		resp.FetchedAt = &fetchedAt
	}
	return resp
}
