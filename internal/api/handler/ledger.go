// internal/api/handler/ledger.go
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"balance-ledger/internal/api/types"
	"balance-ledger/internal/domain"
	"balance-ledger/internal/service"
	"balance-ledger/internal/util"
)

// DefaultTimeout bounds the handling of a single request.
const DefaultTimeout = 30 * time.Second

// LedgerHandler handles HTTP requests for balance operations.
type LedgerHandler struct {
	service service.LedgerService
	logger  *slog.Logger
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(svc service.LedgerService, logger *slog.Logger) *LedgerHandler {
	return &LedgerHandler{
		service: svc,
		logger:  logger,
	}
}

// Helper function to send JSON responses.
func (h *LedgerHandler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

// Helper function to send error responses.
func (h *LedgerHandler) respondWithError(w http.ResponseWriter, err error) {
	statusCode := http.StatusInternalServerError
	message := "Internal server error"

	switch util.KindOf(err) {
	case util.KindInvalidInput:
		statusCode = http.StatusUnprocessableEntity
		message = err.Error()
	case util.KindNotFound:
		statusCode = http.StatusNotFound
		message = "User not found"
	case util.KindInsufficientFunds:
		statusCode = http.StatusConflict
		message = "Insufficient funds"
	case util.KindStorageConflict:
		statusCode = http.StatusServiceUnavailable
		message = "Ledger is busy, retry the request"
	case util.KindStorageUnavailable:
		statusCode = http.StatusServiceUnavailable
		message = "Ledger storage unavailable"
	default:
		h.logger.Error("Unhandled service error", "error", err)
	}

	if util.IsRetryable(err) {
		w.Header().Set("Retry-After", "1")
	}
	h.respondWithJSON(w, statusCode, map[string]string{"error": message})
}

func (h *LedgerHandler) respondMalformed(w http.ResponseWriter) {
	h.respondWithJSON(w, http.StatusBadRequest, map[string]string{"error": "Malformed JSON body"})
}

// decodeRequest reads a JSON body into dst and validates it. It writes the error response itself.
func (h *LedgerHandler) decodeRequest(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.respondMalformed(w)
		return false
	}
	if err := validateRequest(dst); err != nil {
		h.respondWithError(w, err)
		return false
	}
	return true
}

// DepositRequest represents the request body for deposit.
type DepositRequest struct {
	UserID  int64           `json:"user_id" validate:"required,gt=0"`
	Amount  decimal.Decimal `json:"amount" validate:"positive_decimal,cents"`
	Comment *string         `json:"comment" validate:"omitempty,max=255"`
}

// Deposit handles the deposit money request.
// POST /api/deposit
func (h *LedgerHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req DepositRequest
	if !h.decodeRequest(w, r, &req) {
		return
	}

	balance, _, err := h.service.Deposit(r.Context(), req.UserID, req.Amount, req.Comment)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Deposit successful",
		"user_id": balance.UserID,
		"balance": domain.FormatAmount(balance.Amount),
	})
}

// WithdrawRequest represents the request body for withdraw.
type WithdrawRequest struct {
	UserID  int64           `json:"user_id" validate:"required,gt=0"`
	Amount  decimal.Decimal `json:"amount" validate:"positive_decimal,cents"`
	Comment *string         `json:"comment" validate:"omitempty,max=255"`
}

// Withdraw handles the withdraw money request.
// POST /api/withdraw
func (h *LedgerHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req WithdrawRequest
	if !h.decodeRequest(w, r, &req) {
		return
	}

	balance, _, err := h.service.Withdraw(r.Context(), req.UserID, req.Amount, req.Comment)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Withdrawal successful",
		"user_id": balance.UserID,
		"balance": domain.FormatAmount(balance.Amount),
	})
}

// TransferRequest represents the request body for transfer.
type TransferRequest struct {
	FromUserID int64           `json:"from_user_id" validate:"required,gt=0"`
	ToUserID   int64           `json:"to_user_id" validate:"required,gt=0"`
	Amount     decimal.Decimal `json:"amount" validate:"positive_decimal,cents"`
	Comment    *string         `json:"comment" validate:"omitempty,max=255"`
}

// Transfer handles the transfer money request.
// POST /api/transfer
func (h *LedgerHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if !h.decodeRequest(w, r, &req) {
		return
	}

	result, err := h.service.Transfer(r.Context(), req.FromUserID, req.ToUserID, req.Amount, req.Comment)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message":      "Transfer successful",
		"from_user_id": result.From.UserID,
		"to_user_id":   result.To.UserID,
		"amount":       domain.FormatAmount(result.Out.Amount),
	})
}

// GetBalance handles the get balance request.
// GET /api/balance/{userID}
func (h *LedgerHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserID(r)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	balance, err := h.service.GetBalance(r.Context(), userID)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"user_id": balance.UserID,
		"balance": domain.FormatAmount(balance.Amount),
	})
}

// TransactionResponse is the wire form of a ledger record.
type TransactionResponse struct {
	ID            int64                  `json:"id"`
	UserID        int64                  `json:"user_id"`
	Type          domain.TransactionType `json:"type"`
	Amount        string                 `json:"amount"`
	Comment       *string                `json:"comment"`
	RelatedUserID *int64                 `json:"related_user_id"`
	CreatedAt     time.Time              `json:"created_at"`
}

// GetTransactionHistory handles the get transaction history request.
// GET /api/users/{userID}/transactions
func (h *LedgerHandler) GetTransactionHistory(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserID(r)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	// Unparsable values fall back to the first default page; bounds are the service's.
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		limit = 0
	}
	offset, err := strconv.Atoi(r.URL.Query().Get("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}

	transactions, total, err := h.service.GetTransactionHistory(r.Context(), userID, limit, offset)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	data := make([]TransactionResponse, 0, len(transactions))
	for _, txn := range transactions {
		data = append(data, TransactionResponse{
			ID:            txn.ID,
			UserID:        txn.UserID,
			Type:          txn.Type,
			Amount:        domain.FormatAmount(txn.Amount),
			Comment:       txn.Comment,
			RelatedUserID: txn.RelatedUserID,
			CreatedAt:     txn.CreatedAt,
		})
	}

	h.respondWithJSON(w, http.StatusOK, types.PaginatedResponse[TransactionResponse]{
		Data:       data,
		Limit:      service.HistoryLimit(limit),
		Offset:     offset,
		TotalCount: total,
	})
}

func parseUserID(r *http.Request) (int64, error) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || !domain.ValidUserID(userID) {
		return 0, util.ErrInvalidInput
	}
	return userID, nil
}
