package suggestions

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"wayfarer/models"
	"wayfarer/utils"
)

const maxBodyBytes = 1 << 20

// PlanStore is what the handlers need from the plan assembly service.
type PlanStore interface {
	Ingest(ctx context.Context, doc *models.PlanDocument) (*models.PlanDocument, error)
	Fetch(ctx context.Context, planID int) (*models.PlanDocument, error)
}

type Handler struct {
	svc   *Service
	plans PlanStore
}

func NewHandler(svc *Service, plans PlanStore) *Handler {
	return &Handler{svc: svc, plans: plans}
}

type generateRequest struct {
	Prompt string `json:"prompt"`
}

// modifyRequest names the plan to revise either inline or by planId.
type modifyRequest struct {
	Prompt string               `json:"prompt"`
	PlanID int                  `json:"planId"`
	Plan   *models.PlanDocument `json:"plan"`
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		return fmt.Errorf("%w: malformed request: %v", models.ErrValidation, err)
	}
	return nil
}

// respond returns the generated document, or persists it first when the
// request asks for ?persist=true.
func (h *Handler) respond(w http.ResponseWriter, r *http.Request, doc *models.PlanDocument) {
	if !utils.QueryFlag(r, "persist") {
		utils.RespondWithJSON(w, http.StatusOK, doc)
		return
	}
	created, err := h.plans.Ingest(r.Context(), doc)
	if err != nil {
		utils.RespondWithServiceError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, utils.M{
		"planId": created.PlanID,
		"_id":    created.ID,
		"plan":   created,
	})
}

// POST /plan-suggestion/
func (h *Handler) Suggest(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req generateRequest
	if err := decode(w, r, &req); err != nil {
		utils.RespondWithServiceError(w, r, err)
		return
	}
	doc, err := h.svc.Generate(r.Context(), req.Prompt)
	if err != nil {
		utils.RespondWithServiceError(w, r, err)
		return
	}
	h.respond(w, r, doc)
}

// PUT /modify-plan-suggestion/
func (h *Handler) Modify(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req modifyRequest
	if err := decode(w, r, &req); err != nil {
		utils.RespondWithServiceError(w, r, err)
		return
	}
	plan := req.Plan
	if plan == nil {
		if req.PlanID <= 0 {
			utils.RespondWithServiceError(w, r, fmt.Errorf("%w: plan or planId required", models.ErrValidation))
			return
		}
		var err error
		if plan, err = h.plans.Fetch(r.Context(), req.PlanID); err != nil {
			utils.RespondWithServiceError(w, r, err)
			return
		}
	}
	doc, err := h.svc.Modify(r.Context(), req.Prompt, plan)
	if err != nil {
		utils.RespondWithServiceError(w, r, err)
		return
	}
	h.respond(w, r, doc)
}
