package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chi_middleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	campaignApp "github.com/paymitra/paymitra/internal/campaign_service/app"
	"github.com/paymitra/paymitra/internal/core_domain"
)

// CampaignHandler exposes campaign setup, send and analytics to operators.
type CampaignHandler struct {
	registry *campaignApp.RegistryService
	logger   *slog.Logger
	validate *validator.Validate
}

func NewCampaignHandler(registry *campaignApp.RegistryService, logger *slog.Logger, validate *validator.Validate) *CampaignHandler {
	return &CampaignHandler{
		registry: registry,
		logger:   logger.With("component", "campaign_handler"),
		validate: validate,
	}
}

func (h *CampaignHandler) SetupCampaign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))
	campaignID := chi.URLParam(r, "campaignID")

	var reqDTO SetupCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
		logger.WarnContext(ctx, "Failed to decode setup request body", "error", err)
		respondJSON(w, http.StatusBadRequest, GenericErrorResponse{Error: "invalid request body"})
		return
	}
	defer r.Body.Close()

	if err := h.validate.StructCtx(ctx, reqDTO); err != nil {
		logger.WarnContext(ctx, "Validation failed for setup request", "error", err)
		respondJSON(w, http.StatusBadRequest, GenericErrorResponse{Error: "validation failed", Details: err.Error()})
		return
	}

	result, err := h.registry.RegisterRecipients(ctx, campaignID, reqDTO.BorrowerIDs)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to register recipients", "campaign_id", campaignID, "error", err)
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, SetupCampaignResponse{
		Registered: result.Registered,
		Skipped:    result.Skipped,
	})
}

func (h *CampaignHandler) SendCampaign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))
	campaignID := chi.URLParam(r, "campaignID")

	if err := h.registry.TriggerSend(ctx, campaignID); err != nil {
		logger.ErrorContext(ctx, "Failed to trigger campaign send", "campaign_id", campaignID, "error", err)
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusAccepted, SendCampaignResponse{
		Message: "Campaign send accepted and is being processed.",
	})
}

func (h *CampaignHandler) CampaignAnalytics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))
	campaignID := chi.URLParam(r, "campaignID")

	analytics, err := h.registry.Analytics(ctx, campaignID)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to load campaign analytics", "campaign_id", campaignID, "error", err)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, analytics)
}

func (h *CampaignHandler) RegisterTemplate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	var reqDTO RegisterTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
		logger.WarnContext(ctx, "Failed to decode template request body", "error", err)
		respondJSON(w, http.StatusBadRequest, GenericErrorResponse{Error: "invalid request body"})
		return
	}
	defer r.Body.Close()

	if err := h.validate.StructCtx(ctx, reqDTO); err != nil {
		respondJSON(w, http.StatusBadRequest, GenericErrorResponse{Error: "validation failed", Details: err.Error()})
		return
	}

	tmpl := &core_domain.MessageTemplate{
		Name:       reqDTO.Name,
		Language:   reqDTO.Language,
		Type:       reqDTO.Type,
		Content:    reqDTO.Content,
		IsApproved: reqDTO.IsApproved,
	}
	if err := h.registry.RegisterTemplate(ctx, tmpl); err != nil {
		logger.WarnContext(ctx, "Failed to register template", "name", reqDTO.Name, "error", err)
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, RegisterTemplateResponse{ID: tmpl.ID})
}
