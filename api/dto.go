/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Pipeline results are
  reshaped here so the HTTP contract can evolve independently of the
  pipeline types.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers (through config.Factory), not in DTOs.

SEE ALSO:
  - handlers.go: Uses these types
  - config/factory.go: ClientConfigJSON, IncentiveRuleJSON
*/
package api

import (
	"time"

	"github.com/warp/flexpay-engine/config"
	"github.com/warp/flexpay-engine/payroll"
	"github.com/warp/flexpay-engine/timecard"
)

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// HealthDTO is returned by the health check.
type HealthDTO struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// =============================================================================
// CONFIGURATION
// =============================================================================

// ClientConfigDTO is a stored client configuration and its resolved form.
type ClientConfigDTO struct {
	ClientID  string          `json:"client_id"`
	Version   int             `json:"version"`
	UpdatedAt *time.Time      `json:"updated_at,omitempty"`
	Resolved  config.Resolved `json:"resolved"`
}

// IncentiveRuleDTO is a stored incentive rule.
type IncentiveRuleDTO struct {
	Position int `json:"position"`
	config.IncentiveRuleJSON
}

// =============================================================================
// RUNS
// =============================================================================

// RejectionSummaryDTO summarizes rows dropped by a run.
type RejectionSummaryDTO struct {
	Total    int                           `json:"total"`
	ByReason map[timecard.RejectReason]int `json:"by_reason"`
	Rows     []timecard.Rejection          `json:"rows"`
}

// PayrollResponseDTO is the payroll run response.
type PayrollResponseDTO struct {
	RunID      string              `json:"run_id,omitempty"`
	ClientID   string              `json:"client_id"`
	Count      int                 `json:"count"`
	CSV        string              `json:"csv"`
	Records    []payroll.Record    `json:"records"`
	Stats      payroll.Stats       `json:"stats"`
	Rejections RejectionSummaryDTO `json:"rejections"`
	Defaulted  bool                `json:"config_defaulted"`
}

// InvoiceResponseDTO is the invoice run response.
type InvoiceResponseDTO struct {
	RunID                string              `json:"run_id,omitempty"`
	ClientID             string              `json:"client_id"`
	InvoiceNumber        string              `json:"invoice_number"`
	HasMicrohospitals    bool                `json:"has_microhospitals"`
	MainCount            int                 `json:"main_count"`
	MicroCount           int                 `json:"micro_count"`
	MainInvoiceCSV       string              `json:"main_invoice_csv"`
	MicroInvoiceCSV      string              `json:"micro_invoice_csv"`
	MainProductivityCSV  string              `json:"main_productivity_csv"`
	MicroProductivityCSV string              `json:"micro_productivity_csv"`
	Rejections           RejectionSummaryDTO `json:"rejections"`
	UnmappedFacilities   []string            `json:"unmapped_facilities,omitempty"`
	Defaulted            bool                `json:"config_defaulted"`
}

func summarize(rejections []timecard.Rejection) RejectionSummaryDTO {
	if rejections == nil {
		rejections = []timecard.Rejection{}
	}
	return RejectionSummaryDTO{
		Total:    len(rejections),
		ByReason: timecard.CountByReason(rejections),
		Rows:     rejections,
	}
}
