package api

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"

	"matchbook/internal/models"
	"matchbook/internal/store"
)

// SymbolHandler serves the symbol registry endpoints.
type SymbolHandler struct {
	symbols *store.SymbolStore
}

func NewSymbolHandler(symbols *store.SymbolStore) *SymbolHandler {
	return &SymbolHandler{symbols: symbols}
}

// ListSymbols handles GET /api/symbols.
func (h *SymbolHandler) ListSymbols(c *gin.Context) {
	if h.symbols == nil {
		AbortWithError(c, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "symbol registry not configured")
		return
	}

	symbols, err := h.symbols.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, http.StatusInternalServerError, ErrCodeInternalError, "failed to list symbols")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"symbols": symbols,
		"count":   len(symbols),
	})
}

// GetSymbol handles GET /api/symbols/:symbol.
func (h *SymbolHandler) GetSymbol(c *gin.Context) {
	if h.symbols == nil {
		AbortWithError(c, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "symbol registry not configured")
		return
	}

	symbol, err := h.symbols.Get(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		if err == sql.ErrNoRows {
			AbortWithError(c, http.StatusNotFound, ErrCodeNotFound, "symbol not found")
			return
		}
		AbortWithError(c, http.StatusInternalServerError, ErrCodeInternalError, "failed to get symbol")
		return
	}

	c.JSON(http.StatusOK, symbol)
}

// CreateSymbolRequest is the symbol registration payload.
type CreateSymbolRequest struct {
	Name     string `json:"name" binding:"required"`
	TickSize int64  `json:"tick_size" binding:"omitempty,gt=0"`
}

// CreateSymbol handles POST /api/symbols.
func (h *SymbolHandler) CreateSymbol(c *gin.Context) {
	if h.symbols == nil {
		AbortWithError(c, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "symbol registry not configured")
		return
	}

	var req CreateSymbolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}

	if req.TickSize == 0 {
		req.TickSize = 1
	}

	symbol := &models.Symbol{Name: req.Name, TickSize: req.TickSize}
	if err := symbol.Validate(); err != nil {
		AbortWithError(c, http.StatusBadRequest, ErrCodeValidationFailed, err.Error())
		return
	}

	exists, err := h.symbols.Exists(c.Request.Context(), req.Name)
	if err != nil {
		AbortWithError(c, http.StatusInternalServerError, ErrCodeInternalError, "failed to check symbol")
		return
	}
	if exists {
		AbortWithError(c, http.StatusConflict, ErrCodeConflict, "symbol already exists")
		return
	}

	if err := h.symbols.Create(c.Request.Context(), symbol); err != nil {
		AbortWithError(c, http.StatusInternalServerError, ErrCodeInternalError, "failed to create symbol")
		return
	}

	c.JSON(http.StatusCreated, symbol)
}
