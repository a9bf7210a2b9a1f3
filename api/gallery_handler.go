package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/raushankrgupta/fitly-tryon/utils"
	"github.com/raushankrgupta/fitly-tryon/wardrobe"
)

const maxPageSize = 100

// GalleryResponse represents the response structure for the gallery API
type GalleryResponse struct {
	Items       []wardrobe.Item `json:"items"`
	Total       int             `json:"total"`
	CurrentPage int             `json:"current_page"`
	TotalPages  int             `json:"total_pages"`
}

// GalleryHandler lists the user's saved outfits newest first, filtered by
// ?style= and ?accessory=. Pagination applies only when ?limit= is given.
func (h *Handler) GalleryHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer utils.FlushLog(&logMessageBuilder)
	utils.AddToLogMessage(&logMessageBuilder, "[Gallery API]")

	userID, _ := GetUserIDFromContext(r.Context())
	items, err := h.Wardrobe.List(r.Context(), userID)
	if err != nil {
		respondErr(w, &logMessageBuilder, err)
		return
	}

	query := r.URL.Query()
	items = wardrobe.ApplyFilters(items, wardrobe.Filter{
		Style:     query.Get("style"),
		Accessory: query.Get("accessory"),
	})

	page, limit := 1, 0
	if p, err := strconv.Atoi(query.Get("page")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(query.Get("limit")); err == nil && l > 0 {
		limit = min(l, maxPageSize)
	}

	total := len(items)
	totalPages := 0
	if total > 0 {
		totalPages = 1
	}
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
		if page > totalPages {
			items = []wardrobe.Item{}
		} else {
			start := (page - 1) * limit
			end := start + limit
			if end > total {
				end = total
			}
			items = items[start:end]
		}
	}

	utils.RespondJSON(w, http.StatusOK, GalleryResponse{
		Items:       items,
		Total:       total,
		CurrentPage: page,
		TotalPages:  totalPages,
	})
}

// RenameOutfitHandler edits an outfit's style and display labels.
func (h *Handler) RenameOutfitHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer utils.FlushLog(&logMessageBuilder)
	id := r.PathValue("id")
	utils.AddToLogMessage(&logMessageBuilder, "[Rename Outfit API] id="+id)

	var req wardrobe.RenameRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondError(w, &logMessageBuilder, "Invalid request body", http.StatusBadRequest)
		return
	}

	userID, _ := GetUserIDFromContext(r.Context())
	item, err := h.Wardrobe.Rename(r.Context(), userID, id, req)
	if err != nil {
		respondErr(w, &logMessageBuilder, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, item)
}

// DeleteOutfitHandler removes an outfit. The page confirms first, so the
// request must carry ?confirm=true.
func (h *Handler) DeleteOutfitHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer utils.FlushLog(&logMessageBuilder)
	id := r.PathValue("id")
	utils.AddToLogMessage(&logMessageBuilder, "[Delete Outfit API] id="+id)

	if r.URL.Query().Get("confirm") != "true" {
		utils.RespondError(w, &logMessageBuilder, "Deletion must be confirmed", http.StatusBadRequest)
		return
	}

	userID, _ := GetUserIDFromContext(r.Context())
	if err := h.Wardrobe.Delete(r.Context(), userID, id); err != nil {
		respondErr(w, &logMessageBuilder, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "Outfit deleted"})
}

// RetryOutfitHandler parks the outfit for the try-on page to pick up.
func (h *Handler) RetryOutfitHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer utils.FlushLog(&logMessageBuilder)
	id := r.PathValue("id")
	utils.AddToLogMessage(&logMessageBuilder, "[Retry Outfit API] id="+id)

	userID, _ := GetUserIDFromContext(r.Context())
	retry, err := h.Wardrobe.Retry(r.Context(), userID, id)
	if err != nil {
		respondErr(w, &logMessageBuilder, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"redirect": "/",
		"retry":    retry,
	})
}
