package handlers

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/VMAzure/azurenet-engine/internal/api/middleware"
	"github.com/VMAzure/azurenet-engine/internal/security"
	"github.com/VMAzure/azurenet-engine/pkg/interfaces"
)

// AuthHandler выпускает обновлённые токены admin API
type AuthHandler struct {
	jwt    *security.JWTManager
	logger interfaces.LoggerPort
}

// NewAuthHandler создает обработчик аутентификации
func NewAuthHandler(jwtManager *security.JWTManager, logger interfaces.LoggerPort) *AuthHandler {
	return &AuthHandler{jwt: jwtManager, logger: logger}
}

// Refresh выпускает свежий токен по ещё действующему: оператору не нужно
// перелогиниваться, пока текущий токен не истёк
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, errorResponse{
			Error: "unauthorized",
			Code:  http.StatusUnauthorized,
		})
		return
	}

	token, err := h.jwt.Generate(claims.UserID, claims.Roles)
	if err != nil {
		h.logger.Error("Ошибка выпуска токена",
			interfaces.LogField{Key: "user", Value: claims.UserID},
			interfaces.LogField{Key: "error", Value: err.Error()})
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, errorResponse{
			Error: "internal_error",
			Code:  http.StatusInternalServerError,
		})
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response{
		Success: true,
		Data:    map[string]string{"token": token},
	})
}
