package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/schoolhq/settlement-engine/internal/domain"
	"github.com/schoolhq/settlement-engine/internal/service"
	customError "github.com/schoolhq/settlement-engine/pkg/errors"
	"github.com/schoolhq/settlement-engine/pkg/response"
)

// FinanceHandler exposes the read side (breakdowns, allocation history,
// settlement drill-down) plus manual settlement logging.
type FinanceHandler struct {
	ledger    *service.LedgerService
	balance   *service.BalanceService
	validator *validator.Validate
}

func NewFinanceHandler(ledger *service.LedgerService, balance *service.BalanceService) *FinanceHandler {
	return &FinanceHandler{
		ledger:    ledger,
		balance:   balance,
		validator: validator.New(),
	}
}

// GetBreakdown handles GET /guardians/{guardianId}/breakdown
func (h *FinanceHandler) GetBreakdown(w http.ResponseWriter, r *http.Request) {
	guardianID, err := uuid.Parse(mux.Vars(r)["guardianId"])
	if err != nil {
		response.BadRequest(w, "Invalid guardian ID", err)
		return
	}

	sessionID, err := optionalUUIDParam(r, "session")
	if err != nil {
		response.BadRequest(w, "Invalid session ID", err)
		return
	}
	termID, err := optionalUUIDParam(r, "term")
	if err != nil {
		response.BadRequest(w, "Invalid term ID", err)
		return
	}

	breakdown, err := h.balance.Breakdown(r.Context(), guardianID, sessionID, termID)
	if err != nil {
		writeBusinessError(w, err)
		return
	}

	response.Success(w, breakdown)
}

// GetSettlement handles GET /settlements/{settlementId}
func (h *FinanceHandler) GetSettlement(w http.ResponseWriter, r *http.Request) {
	settlementID, err := uuid.Parse(mux.Vars(r)["settlementId"])
	if err != nil {
		response.BadRequest(w, "Invalid settlement ID", err)
		return
	}

	settlement, err := h.ledger.GetSettlement(r.Context(), settlementID)
	if err != nil {
		writeBusinessError(w, err)
		return
	}

	response.Success(w, settlement)
}

// GetSettlementAllocations handles GET /settlements/{settlementId}/allocations
func (h *FinanceHandler) GetSettlementAllocations(w http.ResponseWriter, r *http.Request) {
	settlementID, err := uuid.Parse(mux.Vars(r)["settlementId"])
	if err != nil {
		response.BadRequest(w, "Invalid settlement ID", err)
		return
	}

	settlement, err := h.ledger.GetSettlement(r.Context(), settlementID)
	if err != nil {
		writeBusinessError(w, err)
		return
	}

	response.Success(w, settlement.Allocations)
}

// GetStudentAllocations handles GET /students/{studentId}/allocations
func (h *FinanceHandler) GetStudentAllocations(w http.ResponseWriter, r *http.Request) {
	studentID, err := uuid.Parse(mux.Vars(r)["studentId"])
	if err != nil {
		response.BadRequest(w, "Invalid student ID", err)
		return
	}

	sessionID, err := optionalUUIDParam(r, "session")
	if err != nil {
		response.BadRequest(w, "Invalid session ID", err)
		return
	}
	termID, err := optionalUUIDParam(r, "term")
	if err != nil {
		response.BadRequest(w, "Invalid term ID", err)
		return
	}

	allocations, err := h.ledger.ListStudentAllocations(r.Context(), studentID, sessionID, termID)
	if err != nil {
		writeBusinessError(w, err)
		return
	}

	response.Success(w, allocations)
}

// CreateManualSettlement handles POST /settlements/manual
func (h *FinanceHandler) CreateManualSettlement(w http.ResponseWriter, r *http.Request) {
	var req domain.ManualSettlementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", err)
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, "Validation failed", err)
		return
	}

	settlement, err := h.ledger.RecordManual(r.Context(), &req)
	if err != nil {
		writeBusinessError(w, err)
		return
	}

	response.Created(w, &domain.SettlementResponse{Settlement: settlement})
}

// ListUnclaimed handles GET /settlements/unclaimed
func (h *FinanceHandler) ListUnclaimed(w http.ResponseWriter, r *http.Request) {
	payments, err := h.ledger.ListUnclaimed(r.Context())
	if err != nil {
		writeBusinessError(w, err)
		return
	}

	response.Success(w, payments)
}

func optionalUUIDParam(r *http.Request, name string) (*uuid.UUID, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func writeBusinessError(w http.ResponseWriter, err error) {
	var businessErr *customError.BusinessError
	if errors.As(err, &businessErr) {
		switch businessErr.Code {
		case customError.ErrCodeGuardianNotFound,
			customError.ErrCodeSettlementNotFound,
			customError.ErrCodeWalletNotFound:
			response.NotFound(w, businessErr.Message)
			return
		case customError.ErrCodeSessionNotFound,
			customError.ErrCodeInvalidAmount:
			response.BadRequest(w, businessErr.Message, businessErr.Err)
			return
		}
	}

	response.InternalServerError(w, "Request failed", err)
}
