package dto

import (
	"github.com/noah-isme/agenda-api/internal/models"
	"github.com/noah-isme/agenda-api/pkg/caldate"
)

// ExportRequest captures the POST /schedule/exports payload.
type ExportRequest struct {
	Format     models.ExportFormat `json:"format"`
	Date       caldate.Date        `json:"date"`
	View       string              `json:"view"`
	ResourceID int64               `json:"resource_id,omitempty"`
}

// ExportJobResponse is returned after enqueueing an export.
type ExportJobResponse struct {
	ID       string              `json:"id"`
	Format   models.ExportFormat `json:"format"`
	Status   models.ExportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ExportStatusResponse exposes job progress metadata.
type ExportStatusResponse struct {
	ID        string                 `json:"id"`
	Format    models.ExportFormat    `json:"format"`
	Params    models.ExportJobParams `json:"params"`
	Status    models.ExportStatus    `json:"status"`
	Progress  int                    `json:"progress"`
	ResultURL *string                `json:"result_url,omitempty"`
	Error     *string                `json:"error,omitempty"`
}
