package api

import (
	"encoding/base64"
	"net/http"
	"time"

	"github.com/berrythewa/clipvault/internal/types"
	"github.com/go-chi/chi/v5"
)

// itemResponse renders images as data URLs for browsers
type itemResponse struct {
	ID          int64             `json:"id"`
	ContentType types.ContentType `json:"content_type"`
	Text        string            `json:"text_content,omitempty"`
	Image       string            `json:"image_data,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	IsFavorite  bool              `json:"is_favorite"`
	Tags        []string          `json:"tags"`
}

func newItemResponse(it *types.Item) itemResponse {
	resp := itemResponse{
		ID:          it.ID,
		ContentType: it.ContentType,
		Text:        it.Text,
		CreatedAt:   it.CreatedAt,
		IsFavorite:  it.IsFavorite,
		Tags:        it.Tags,
	}
	if resp.Tags == nil {
		resp.Tags = []string{}
	}
	if it.ContentType == types.TypeImage {
		resp.Image = "data:image/png;base64," + base64.StdEncoding.EncodeToString(it.Image)
	}
	return resp
}

type pageResponse struct {
	Items      []itemResponse `json:"items"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"per_page"`
	TotalPages int            `json:"total_pages"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Backend string `json:"backend"`
}

type addRequest struct {
	Text string `json:"text"`
}

type addResponse struct {
	ID       int64 `json:"id"`
	Inserted bool  `json:"inserted"`
}

type clearRequest struct {
	KeepFavorites bool `json:"keep_favorites"`
}

type tagRequest struct {
	Tag string `json:"tag"`
}

type tagsRequest struct {
	Tags []string `json:"tags"`
}

type tagsResponse struct {
	Tags []string `json:"tags"`
}

type captureResponse struct {
	Running bool `json:"running"`
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Backend: h.svc.Backend()})
}

func (h *handlers) listItems(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	filter, err := types.ParseFilter(params.Get("filter"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	page, err := queryInt(r, "page")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	perPage, err := queryInt(r, "per_page")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.svc.List(r.Context(), types.Query{
		Filter:   filter,
		Search:   params.Get("search"),
		Tag:      params.Get("tag"),
		Page:     page,
		PageSize: perPage,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := pageResponse{
		Items:      make([]itemResponse, 0, len(result.Items)),
		Total:      result.Total,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalPages: result.TotalPages,
	}
	for _, it := range result.Items {
		resp.Items = append(resp.Items, newItemResponse(it))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) addItem(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	id, inserted, err := h.svc.AddText(r.Context(), req.Text)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	status := http.StatusCreated
	if !inserted {
		status = http.StatusOK
	}
	writeJSON(w, status, addResponse{ID: id, Inserted: inserted})
}

func (h *handlers) clearItems(w http.ResponseWriter, r *http.Request) {
	// A missing keep_favorites keeps them.
	req := clearRequest{KeepFavorites: true}
	if r.ContentLength != 0 {
		if err := decodeBody(w, r, &req); err != nil {
			h.writeError(w, r, err)
			return
		}
	}
	n, err := h.svc.Clear(r.Context(), req.KeepFavorites)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted": n})
}

func (h *handlers) getItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	item, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newItemResponse(item))
}

func (h *handlers) deleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	deleted, err := h.svc.Delete(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}

func (h *handlers) toggleFavorite(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	fav, err := h.svc.ToggleFavorite(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"is_favorite": fav})
}

func (h *handlers) copyItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if _, err := h.svc.Copy(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) getItemTags(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	item, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tagsResponse{Tags: newItemResponse(item).Tags})
}

func (h *handlers) addItemTag(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req tagRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	tags, err := h.svc.AddTag(r.Context(), id, req.Tag)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tagsResponse{Tags: tags})
}

func (h *handlers) setItemTags(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req tagsRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	tags, err := h.svc.SetTags(r.Context(), id, req.Tags)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tagsResponse{Tags: tags})
}

func (h *handlers) removeItemTag(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	tags, err := h.svc.RemoveTag(r.Context(), id, chi.URLParam(r, "tag"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tagsResponse{Tags: tags})
}

func (h *handlers) allTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.svc.AllTags(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if tags == nil {
		tags = []string{}
	}
	writeJSON(w, http.StatusOK, tagsResponse{Tags: tags})
}

func (h *handlers) captureStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, captureResponse{Running: h.svc.IsCapturing()})
}

func (h *handlers) startCapture(w http.ResponseWriter, r *http.Request) {
	h.svc.StartCapture()
	writeJSON(w, http.StatusOK, captureResponse{Running: h.svc.IsCapturing()})
}

func (h *handlers) stopCapture(w http.ResponseWriter, r *http.Request) {
	h.svc.StopCapture()
	writeJSON(w, http.StatusOK, captureResponse{Running: h.svc.IsCapturing()})
}
