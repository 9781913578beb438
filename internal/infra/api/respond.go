package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"fitness-coaching-platform/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps domain errors onto HTTP statuses with user-facing
// Turkish messages. Anything unmapped is logged and hidden behind a 500.
func writeDomainError(w http.ResponseWriter, log *zerolog.Logger, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, "Geçersiz istek")
	case errors.Is(err, domain.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "E-posta veya şifre hatalı")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "Bu işlem için yetkiniz yok")
	case errors.Is(err, domain.ErrNotLinked):
		writeError(w, http.StatusForbidden, "Bu danışan size bağlı değil")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "Kayıt bulunamadı")
	case errors.Is(err, domain.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "Bu e-posta adresi zaten kayıtlı")
	case errors.Is(err, domain.ErrPackageInactive):
		writeError(w, http.StatusConflict, "Paket satışa kapalı")
	case errors.Is(err, domain.ErrPaymentNotConfigured):
		writeError(w, http.StatusServiceUnavailable, "Ödeme altyapısı yapılandırılmamış")
	case errors.Is(err, domain.ErrGatewayRejected):
		writeError(w, http.StatusBadGateway, "Ödeme sağlayıcısı isteği reddetti")
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "Çok fazla deneme. Lütfen daha sonra tekrar deneyin.")
	default:
		log.Error().Err(err).Msg("unhandled error in request")
		writeError(w, http.StatusInternalServerError, "Beklenmeyen bir hata oluştu")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Geçersiz istek gövdesi")
		return false
	}
	return true
}
