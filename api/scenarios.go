/*
scenarios.go - Demo client loaders for testing and demonstrations

PURPOSE:

	Provides pre-built client configurations so a fresh server can run the
	payroll and invoice pipelines against realistic settings. Each scenario
	stores one client config document and its incentive rules.

AVAILABLE SCENARIOS:

	defaults:          Client with no overrides (pure defaults)
	icu-night:         ICU night-shift incentive, client pay rates
	microhospitals:    Client fee rate with two micro facilities

USAGE VIA API:

	GET  /api/scenarios
	POST /api/scenarios/load
	{"scenario_id": "icu-night"}

NOTE:

	Loading a scenario overwrites the demo client's stored configuration.

SEE ALSO:
  - handlers.go: Config handlers used to inspect the result
*/
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/warp/flexpay-engine/config"
	"go.uber.org/zap"
)

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ClientID    string `json:"client_id"`
}

// LoadScenarioRequest selects a scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

type scenario struct {
	ScenarioDTO
	config string
	rules  []string
}

var scenarios = []scenario{
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "defaults",
			Name:        "Defaults",
			Description: "No overrides: 58/63 rates, FXDY/FXNT, 0.5h lunch, 25.00 fee",
			ClientID:    "demo-defaults",
		},
		config: `{}`,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "icu-night",
			Name:        "ICU night incentive",
			Description: "Client rates 60/66 with a 2.00 incentive on ICU night shifts",
			ClientID:    "demo-icu",
		},
		config: `{"payroll":{"day_pay_rate":"60","night_pay_rate":"66","approver_name":"Pat Morgan"}}`,
		rules: []string{
			`{"id":"icu-night","company":"Main Hospital","cost_centers":["ICU"],"shift_type":"Night","amount":"2.00","description":"ICU Night"}`,
			`{"id":"weekend-er","company":"Main Hospital","cost_centers":["ER"],"days_of_week":[0,6],"amount":"1.50","description":"Weekend ER"}`,
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "microhospitals",
			Name:        "Microhospital split",
			Description: "27.50 fee with MH01 and MH02 invoiced separately",
			ClientID:    "demo-micro",
		},
		config: `{"invoice":{"flex_fee_rate":"27.50","micro_facilities":["MH01","MH02"]}}`,
	},
}

// ListScenarios returns the available demo scenarios.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	dtos := make([]ScenarioDTO, len(scenarios))
	for i, s := range scenarios {
		dtos[i] = s.ScenarioDTO
	}
	writeJSON(w, http.StatusOK, dtos)
}

// LoadScenario stores a scenario's client configuration.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	for _, s := range scenarios {
		if s.ID != req.ScenarioID {
			continue
		}
		if err := h.loadScenario(r.Context(), s); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
			return
		}
		h.logger.Info("scenario loaded", zap.String("scenario", s.ID), zap.String("client_id", s.ClientID))
		writeJSON(w, http.StatusOK, ClientConfigDTO{
			ClientID: s.ClientID,
			Resolved: h.Resolver.Resolve(r.Context(), s.ClientID),
		})
		return
	}
	writeError(w, http.StatusNotFound, "Unknown scenario", nil)
}

func (h *Handler) loadScenario(ctx context.Context, s scenario) error {
	if _, err := h.Store.SaveClientConfig(ctx, s.ClientID, s.config); err != nil {
		return err
	}
	records := make([]config.RuleRecord, 0, len(s.rules))
	for _, doc := range s.rules {
		rule, err := h.Factory.ParseIncentiveRule(doc)
		if err != nil {
			return err
		}
		records = append(records, config.RuleRecord{ID: rule.ID, RuleJSON: doc, Active: rule.Active})
	}
	return h.Store.ReplaceIncentiveRules(ctx, s.ClientID, records)
}
