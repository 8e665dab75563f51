package middleware

import (
	"net/http"

	"github.com/angelmondragon/campuspoints-backend/api/responses"
	"github.com/angelmondragon/campuspoints-backend/pkg/enums"
	"github.com/angelmondragon/campuspoints-backend/pkg/logger"
)

// RequireRole rejects callers ranked below minimum.
func RequireRole(minimum enums.Role, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := ActorFromContext(r.Context()).Require(minimum); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
