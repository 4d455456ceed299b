package api

import (
	"net/http"

	"github.com/erazemk/inventar/internal/imaging"
	"github.com/erazemk/inventar/internal/inventory"
)

// ImagesHandler serves and accepts hosted images.
type ImagesHandler struct {
	Inventory *inventory.Service
}

// Get handles GET /api/images/{id}.
func (h *ImagesHandler) Get(w http.ResponseWriter, r *http.Request) {
	mime, data, err := h.Inventory.Image(r.Context(), r.PathValue("id"))
	if err != nil {
		serviceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(data)
}

// Upload handles POST /api/images and returns the hosted URL.
func (h *ImagesHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes+(1<<20))

	if err := r.ParseMultipartForm(imaging.MaxUploadBytes); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "image file required")
		return
	}
	defer file.Close()

	url, err := h.Inventory.HostImage(r.Context(), file)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, map[string]string{"url": url})
}
