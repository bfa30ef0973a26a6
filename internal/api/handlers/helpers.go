package handlers

import (
	"log/slog"
	"net/http"

	"github.com/jerseyshop/storefront-api/internal/api/middleware"
	"github.com/jerseyshop/storefront-api/internal/errors"
	"github.com/jerseyshop/storefront-api/internal/models"
	"github.com/jerseyshop/storefront-api/internal/utils/response"
)

// requireClaims writes a 401 and returns false when the request carries no claims.
func requireClaims(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (*models.Claims, bool) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		logger.Warn("Unauthorized request: missing user claims")
		response.Error(w, errors.UnauthorizedError("Authentication required"))

		return nil, false
	}

	return claims, true
}
