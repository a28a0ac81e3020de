// Package itinerary serves the plan HTTP surface.
package itinerary

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/julienschmidt/httprouter"

	"wayfarer/export"
	"wayfarer/models"
	"wayfarer/utils"
)

const maxBodyBytes = 1 << 20

// PlanService is the plan assembly service as the handlers use it.
type PlanService interface {
	Ingest(ctx context.Context, doc *models.PlanDocument) (*models.PlanDocument, error)
	Fetch(ctx context.Context, planID int) (*models.PlanDocument, error)
	MaxPlanID(ctx context.Context) (int, error)
	ListPlans(ctx context.Context, page, limit int) ([]models.PlanSummary, error)
	CreateEmptyPlan(ctx context.Context, shell models.PlanPatch) (*models.Plan, error)
	UpdatePlan(ctx context.Context, planID int, patch models.PlanPatch) (*models.Plan, error)
	AppendActivity(ctx context.Context, planID, dayNumber int, doc *models.ActivityDocument) (*models.ActivityDocument, error)
	UpdateActivity(ctx context.Context, planID, dayNumber int, activityHex string, repl *models.ActivityDocument) (*models.Activity, error)
	DeleteActivity(ctx context.Context, activityHex string) (models.DeleteActivityResult, error)
	DeletePlan(ctx context.Context, planID int) (models.DeletePlanResult, error)
	RefreshWeather(ctx context.Context, planID int) (*models.PlanDocument, error)
}

type Handler struct {
	plans         PlanService
	publicBaseURL string
}

func NewHandler(plans PlanService, publicBaseURL string) *Handler {
	return &Handler{plans: plans, publicBaseURL: strings.TrimSuffix(publicBaseURL, "/")}
}

// PlanPath is the client path of a stored plan.
func PlanPath(planID int) string {
	return "/plan/" + strconv.Itoa(planID)
}

func intParam(ps httprouter.Params, name string) (int, error) {
	v, err := strconv.Atoi(ps.ByName(name))
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", models.ErrInvalidID, name, ps.ByName(name))
	}
	return v, nil
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", models.ErrValidation, err)
	}
	return body, nil
}

// GET /plan/:planId
func (h *Handler) GetPlan(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	planID, err := intParam(ps, "planId")
	if err != nil {
		utils.RespondWithServiceError(w, r, err)
		return
	}
	doc, err := h.plans.Fetch(r.Context(), planID)
	if utils.StatusFor(err) == http.StatusNotFound {
		http.Error(w, "Plan not found", http.StatusNotFound)
		return
	}
	if err != nil {
		utils.RespondWithServiceError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, doc)
}

// GET /plans
func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	opts := utils.ParseQueryOptions(r)
	plans, err := h.plans.ListPlans(r.Context(), opts.Page, opts.Limit)
	if err != nil {
		utils.RespondWithServiceError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"plans": plans, "page": opts.Page, "limit": opts.Limit})
}

// GET /max-plan-id
func (h *Handler) MaxPlanID(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	max, err := h.plans.MaxPlanID(r.Context())
	if err != nil {
		utils.RespondWithServiceError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, max)
}

// POST /plan/
func (h *Handler) IngestPlan(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	body, err := readBody(w, r)
	if err != nil {
		utils.RespondWithServiceError(w, r, err)
		return
	}
	doc, err := models.DecodePlanDocument([]byte(utils.CollapseWhitespace(string(body))))
	if err != nil {
		utils.RespondWithServiceError(w, r, err)
		return
	}
	created, err := h.plans.Ingest(r.Context(), doc)
	if err != nil {
		utils.RespondWithServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", PlanPath(created.PlanID))
	utils.RespondWithJSON(w, http.StatusCreated, utils.M{"planId": created.PlanID, "_id": created.ID})
}

// POST /new-plan/
func (h *Handler) NewPlan(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	body, err := readBody(w, r)
	if err != nil {
		utils.RespondWithServiceError(w, r, err)
		return
	}
	var shell models.PlanPatch
	if len(strings.TrimSpace(string(body))) > 0 {
		if err := json.Unmarshal(body, &shell); err != nil {
			utils.RespondWithServiceError(w, r, fmt.Errorf("%w: malformed plan: %v", models.ErrValidation, err))
			return
		}
	}
	plan, err := h.plans.CreateEmptyPlan(r.Context(), shell)
	if err != nil {
		utils.RespondWithServiceError(w, r, err)
		return
	}
	path := PlanPath(plan.PlanID)
	w.Header().Set("Location", path)
	utils.RespondWithJSON(w, http.StatusCreated, utils.M{"path": path, "planId": plan.PlanID})
}

// POST /plan/:planId
func (h *Handler) UpdatePlan(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	planID, err := intParam(ps, "planId")
	if err != nil {
		utils.RespondWithServiceError(w, r, err)
		return
	}
	var patch models.PlanPatch
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&patch); err != nil {
		utils.RespondWithServiceError(w, r, fmt.Errorf("%w: malformed update: %v", models.ErrValidation, err))
		return
	}
	if patch.Empty() {
		utils.RespondWithServiceError(w, r, fmt.Errorf("%w: no updatable fields", models.ErrValidation))
		return
	}
	plan, err := h.plans.UpdatePlan(r.Context(), planID, patch)
	if err != nil {
		utils.RespondWithServiceError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, plan)
}

func decodeActivity(w http.ResponseWriter, r *http.Request) (*models.ActivityDocument, error) {
	body, err := readBody(w, r)
	if err != nil {
		return nil, err
	}
	return models.DecodeActivityDocument(body)
}

// PUT /plan/:planId/:day
func (h *Handler) AppendActivity(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	planID, err := intParam(ps, "planId")
	if err != nil {
		utils.RespondWithServiceError(w, r, err)
		return
	}
	day, err := intParam(ps, "day")
	if err != nil {
		utils.RespondWithServiceError(w, r, err)
		return
	}
	doc, err := decodeActivity(w, r)
	if err != nil {
		utils.RespondWithServiceError(w, r, err)
		return
	}
	created, err := h.plans.AppendActivity(r.Context(), planID, day, doc)
	if err != nil {
		utils.RespondWithServiceError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, utils.M{"_id": created.ID, "activity": created})
}

// PUT /plan/:planId/:day/:activityId
func (h *Handler) UpdateActivity(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	planID, err := intParam(ps, "planId")
	if err != nil {
		utils.RespondWithServiceError(w, r, err)
		return
	}
	day, err := intParam(ps, "day")
	if err != nil {
		utils.RespondWithServiceError(w, r, err)
		return
	}
	doc, err := decodeActivity(w, r)
	if err != nil {
		utils.RespondWithServiceError(w, r, err)
		return
	}
	updated, err := h.plans.UpdateActivity(r.Context(), planID, day, ps.ByName("activityId"), doc)
	if err != nil {
		utils.RespondWithServiceError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, updated)
}

// DELETE /activity/:activityId
func (h *Handler) DeleteActivity(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	res, err := h.plans.DeleteActivity(r.Context(), ps.ByName("activityId"))
	if err != nil {
		utils.RespondWithServiceError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, res)
}

// DELETE /plan/:planId
func (h *Handler) DeletePlan(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	planID, err := intParam(ps, "planId")
	if err != nil {
		utils.RespondWithServiceError(w, r, err)
		return
	}
	res, err := h.plans.DeletePlan(r.Context(), planID)
	if err != nil {
		utils.RespondWithServiceError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, res)
}

// POST /plan/:planId/weather
func (h *Handler) RefreshWeather(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	planID, err := intParam(ps, "planId")
	if err != nil {
		utils.RespondWithServiceError(w, r, err)
		return
	}
	doc, err := h.plans.RefreshWeather(r.Context(), planID)
	if err != nil {
		utils.RespondWithServiceError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, doc)
}

// GET /plan/:planId/export
func (h *Handler) ExportPlan(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	planID, err := intParam(ps, "planId")
	if err != nil {
		utils.RespondWithServiceError(w, r, err)
		return
	}
	doc, err := h.plans.Fetch(r.Context(), planID)
	if err != nil {
		utils.RespondWithServiceError(w, r, err)
		return
	}
	pdf, err := export.PlanPDF(doc, h.publicBaseURL+PlanPath(planID))
	if err != nil {
		utils.RespondWithServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=plan-%d.pdf", planID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}
