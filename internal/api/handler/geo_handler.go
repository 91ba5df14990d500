package handler

import (
	"net/http"

	"geoauth/internal/app/service"
	"geoauth/internal/common"

	"github.com/go-chi/chi/v5"
)

type GeoHandler struct {
	geoService *service.GeoService
}

func NewGeoHandler(geoService *service.GeoService) *GeoHandler {
	return &GeoHandler{geoService: geoService}
}

// Search is public; Route is registered behind the authenticator.
func (h *GeoHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/api/search", h.search)
}

func (h *GeoHandler) RegisterProtectedRoutes(r chi.Router) {
	r.Get("/api/route", h.route)
}

func (h *GeoHandler) search(w http.ResponseWriter, r *http.Request) {
	features, err := h.geoService.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, features)
}

func (h *GeoHandler) route(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	payload, err := h.geoService.Route(r.Context(), service.RouteRequest{
		Start: query.Get("start"),
		End:   query.Get("end"),
		Mode:  query.Get("mode"),
	})
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(payload)
}
