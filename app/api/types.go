package api

import (
	"github.com/openlmia/lmiahub/app/database"
	"github.com/openlmia/lmiahub/app/tasks"
)

type Handler struct {
	repo      database.RecordRepository
	scheduler tasks.TaskSchedulerInterface
	version   string
}

type recordResponse struct {
	ID           int64  `json:"id"`
	Employer     string `json:"employer"`
	Province     string `json:"province"`
	Stream       string `json:"stream"`
	City         string `json:"city,omitempty"`
	PostalCode   string `json:"postal_code,omitempty"`
	NocCode      string `json:"noc_code"`
	NocTitle     string `json:"noc_title,omitempty"`
	Positions    int    `json:"positions_approved"`
	Status       string `json:"status"`
	DecisionDate string `json:"decision_date"`
	SourceFile   string `json:"source_file"`
	WebsiteURL   string `json:"website_url,omitempty"`
}

type pagedResponse struct {
	Items      []recordResponse `json:"items"`
	Page       int              `json:"page"`
	PerPage    int              `json:"per_page"`
	Total      int              `json:"total"`
	TotalPages int              `json:"total_pages"`
}
