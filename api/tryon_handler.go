package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/raushankrgupta/fitly-tryon/tryon"
	"github.com/raushankrgupta/fitly-tryon/utils"
)

// BaseImageRequest selects a non-upload base image source.
type BaseImageRequest struct {
	Source   string `json:"source"`
	Snapshot string `json:"snapshot"`
	Denied   bool   `json:"denied"`
}

// GarmentRequest carries a garment image URL or a product page URL.
type GarmentRequest struct {
	URL        string `json:"url"`
	ProductURL string `json:"product_url"`
}

// TryOnRequest represents the request body for virtual try-on
type TryOnRequest struct {
	Category string `json:"category"`
}

type TokenRequest struct {
	Token string `json:"token"`
}

type APIURLRequest struct {
	APIURL string `json:"api_url"`
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// LoadTryOnHandler starts a fresh page: state reset, retry slot and cached
// base applied.
func (h *Handler) LoadTryOnHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer utils.FlushLog(&logMessageBuilder)
	utils.AddToLogMessage(&logMessageBuilder, "[Load Try-On API]")

	view, err := h.TryOn.Load(r.Context(), sessionFrom(r.Context()))
	if err != nil {
		respondErr(w, &logMessageBuilder, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, view)
}

// BaseImageHandler sets the person photo from an upload, a camera snapshot
// or the saved default.
func (h *Handler) BaseImageHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer utils.FlushLog(&logMessageBuilder)
	utils.AddToLogMessage(&logMessageBuilder, "[Base Image API]")

	var src tryon.BaseSource
	if isMultipart(r) {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			utils.RespondError(w, &logMessageBuilder, "Error parsing form data", http.StatusBadRequest)
			return
		}
		data, contentType, err := readUpload(r, "file")
		if err != nil {
			utils.RespondError(w, &logMessageBuilder, "Error reading file", http.StatusBadRequest)
			return
		}
		src = tryon.BaseSource{Kind: tryon.BaseUpload, Data: data, ContentType: contentType}
	} else {
		var req BaseImageRequest
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.RespondError(w, &logMessageBuilder, "Invalid request body", http.StatusBadRequest)
			return
		}
		switch req.Source {
		case "camera":
			src = tryon.BaseSource{Kind: tryon.BaseCamera, Snapshot: req.Snapshot, Denied: req.Denied}
		case "default":
			src = tryon.BaseSource{Kind: tryon.BaseDefault}
		default:
			utils.RespondError(w, &logMessageBuilder, "source must be camera or default", http.StatusBadRequest)
			return
		}
	}
	utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Base source: %d", src.Kind))

	view, err := h.TryOn.AcquireBase(r.Context(), sessionFrom(r.Context()), src)
	if err != nil {
		respondErr(w, &logMessageBuilder, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, view)
}

func (h *Handler) SaveDefaultBaseHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer utils.FlushLog(&logMessageBuilder)
	utils.AddToLogMessage(&logMessageBuilder, "[Default Base Image API]")

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		utils.RespondError(w, &logMessageBuilder, "Error parsing form data", http.StatusBadRequest)
		return
	}
	data, contentType, err := readUpload(r, "file")
	if err != nil {
		utils.RespondError(w, &logMessageBuilder, "Error reading file", http.StatusBadRequest)
		return
	}

	view, err := h.TryOn.SaveDefaultBase(r.Context(), sessionFrom(r.Context()), data, contentType)
	if err != nil {
		respondErr(w, &logMessageBuilder, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, view)
}

// GarmentHandler replaces the garment overlay from an upload, an image URL
// or a retail product page.
func (h *Handler) GarmentHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer utils.FlushLog(&logMessageBuilder)
	utils.AddToLogMessage(&logMessageBuilder, "[Garment API]")

	var src tryon.GarmentSource
	if isMultipart(r) {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			utils.RespondError(w, &logMessageBuilder, "Error parsing form data", http.StatusBadRequest)
			return
		}
		data, contentType, err := readUpload(r, "file")
		if err != nil {
			utils.RespondError(w, &logMessageBuilder, "Error reading file", http.StatusBadRequest)
			return
		}
		src = tryon.GarmentSource{
			Kind:        tryon.GarmentUpload,
			Data:        data,
			ContentType: contentType,
			Accessory:   r.FormValue("accessory") == "true",
		}
	} else {
		var req GarmentRequest
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.RespondError(w, &logMessageBuilder, "Invalid request body", http.StatusBadRequest)
			return
		}
		if req.ProductURL != "" {
			utils.AddToLogMessage(&logMessageBuilder, "Product page: "+req.ProductURL)
			src = tryon.GarmentSource{Kind: tryon.GarmentProductPage, URL: req.ProductURL}
		} else {
			src = tryon.GarmentSource{Kind: tryon.GarmentURL, URL: req.URL}
		}
	}

	view, err := h.TryOn.AcquireGarment(r.Context(), sessionFrom(r.Context()), src)
	if err != nil {
		respondErr(w, &logMessageBuilder, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, view)
}

func (h *Handler) ComboHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer utils.FlushLog(&logMessageBuilder)
	style := r.PathValue("style")
	utils.AddToLogMessage(&logMessageBuilder, "[Combo API] style="+style)

	view, err := h.TryOn.ApplyCombo(r.Context(), sessionFrom(r.Context()), style)
	if err != nil {
		respondErr(w, &logMessageBuilder, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, view)
}

// PreviewHandler returns the ordered overlay stack.
func (h *Handler) PreviewHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer utils.FlushLog(&logMessageBuilder)
	utils.AddToLogMessage(&logMessageBuilder, "[Preview API]")

	layers, err := h.TryOn.Preview(r.Context(), sessionFrom(r.Context()))
	if err != nil {
		respondErr(w, &logMessageBuilder, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"layers": layers})
}

// PreviewImageHandler renders the overlay stack into one PNG.
func (h *Handler) PreviewImageHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer utils.FlushLog(&logMessageBuilder)
	utils.AddToLogMessage(&logMessageBuilder, "[Preview Image API]")

	png, err := h.TryOn.RenderPreview(r.Context(), sessionFrom(r.Context()))
	if err != nil {
		respondErr(w, &logMessageBuilder, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// VirtualTryOnHandler handles the virtual try-on request
func (h *Handler) VirtualTryOnHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer utils.FlushLog(&logMessageBuilder)
	utils.AddToLogMessage(&logMessageBuilder, "[Virtual Try-On API]")

	var req TryOnRequest
	if r.ContentLength != 0 {
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.RespondError(w, &logMessageBuilder, "Invalid request body", http.StatusBadRequest)
			return
		}
	}
	utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Category: %q", req.Category))

	view, err := h.TryOn.TryOn(r.Context(), sessionFrom(r.Context()), req.Category)
	if err != nil {
		respondErr(w, &logMessageBuilder, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, view)
}

// TokenHandler accepts an HF token and replays the parked try-on once.
func (h *Handler) TokenHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer utils.FlushLog(&logMessageBuilder)
	utils.AddToLogMessage(&logMessageBuilder, "[HF Token API]")

	var req TokenRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondError(w, &logMessageBuilder, "Invalid request body", http.StatusBadRequest)
		return
	}

	view, err := h.TryOn.SubmitToken(r.Context(), sessionFrom(r.Context()), req.Token)
	if err != nil {
		respondErr(w, &logMessageBuilder, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, view)
}

func (h *Handler) RecommendHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer utils.FlushLog(&logMessageBuilder)
	utils.AddToLogMessage(&logMessageBuilder, "[Recommend API]")

	rec, err := h.TryOn.Recommend(r.Context(), sessionFrom(r.Context()))
	if err != nil {
		respondErr(w, &logMessageBuilder, err)
		return
	}
	utils.AddToLogMessage(&logMessageBuilder, "Source: "+rec.Source)
	utils.RespondJSON(w, http.StatusOK, rec)
}

// SaveOutfitHandler flattens the result and stores it in the wardrobe.
func (h *Handler) SaveOutfitHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer utils.FlushLog(&logMessageBuilder)
	utils.AddToLogMessage(&logMessageBuilder, "[Save Outfit API]")

	var req tryon.SaveInput
	if r.ContentLength != 0 {
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.RespondError(w, &logMessageBuilder, "Invalid request body", http.StatusBadRequest)
			return
		}
	}

	outfit, err := h.TryOn.Save(r.Context(), sessionFrom(r.Context()), req)
	if err != nil {
		respondErr(w, &logMessageBuilder, err)
		return
	}
	utils.AddToLogMessage(&logMessageBuilder, "Saved outfit: "+outfit.ID)
	utils.RespondJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Outfit saved to your wardrobe!",
		"outfit":  outfit,
	})
}

func (h *Handler) APIURLHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer utils.FlushLog(&logMessageBuilder)
	utils.AddToLogMessage(&logMessageBuilder, "[API URL API]")

	var req APIURLRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondError(w, &logMessageBuilder, "Invalid request body", http.StatusBadRequest)
		return
	}

	url, err := h.TryOn.SetAPIURL(r.Context(), sessionFrom(r.Context()), req.APIURL)
	if err != nil {
		respondErr(w, &logMessageBuilder, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"api_url": url})
}

// ScrapeHandler resolves a product page to its main garment image.
func (h *Handler) ScrapeHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer utils.FlushLog(&logMessageBuilder)
	utils.AddToLogMessage(&logMessageBuilder, "[Scrape API]")

	targetURL := r.URL.Query().Get("url")
	if targetURL == "" {
		utils.RespondError(w, &logMessageBuilder, "Missing 'url' query parameter", http.StatusBadRequest)
		return
	}
	if h.Garments == nil {
		utils.RespondError(w, &logMessageBuilder, "Scraping is disabled", http.StatusNotImplemented)
		return
	}
	utils.AddToLogMessage(&logMessageBuilder, "Target URL: "+targetURL)

	image, err := h.Garments.FindGarmentImage(r.Context(), targetURL)
	if err != nil {
		utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Scrape failed: %v", err))
		utils.RespondError(w, &logMessageBuilder, "Could not find a product image on that page", http.StatusBadGateway)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"image_url": image})
}
