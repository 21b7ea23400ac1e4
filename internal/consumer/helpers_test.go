package consumer

import (
	"net/http"
	"net/http/httptest"

	"github.com/Sheliakhin-Golang-portfolio/ReviewRelay/internal/obs"
)

func healthy(h *obs.Health) bool {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	return rec.Code == http.StatusOK
}
