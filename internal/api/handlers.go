package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/novelcipher/internal/apperr"
	"github.com/starford/novelcipher/internal/chapter"
	"github.com/starford/novelcipher/internal/checksum"
)

// Handler holds API route handlers.
type Handler struct {
	svc *chapter.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *chapter.Service) *Handler {
	return &Handler{svc: svc}
}

// chapterNumber parses the {number} URL parameter.
func chapterNumber(r *http.Request) (int, bool) {
	n, err := strconv.Atoi(chi.URLParam(r, "number"))
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// writeError maps domain errors to HTTP statuses.
func writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorBody("chapter already exists"))
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody("checksum mismatch"))
	case errors.Is(err, apperr.ErrInvalidChapter):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody(err.Error()))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// ListChapters handles GET /api/chapters.
//
//	@Summary	List chapters ordered by number
//	@Tags		chapters
//	@Produce	json
//	@Param		limit	query		int	false	"Page size"
//	@Param		offset	query		int	false	"Page offset"
//	@Success	200		{object}	ChapterListResponse
//	@Router		/chapters [get]
func (h *Handler) ListChapters(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.svc.ListChapters(r.Context(), limit, offset)
	if err != nil {
		writeError(w, "list chapters", err)
		return
	}
	writeJSON(w, http.StatusOK, ChapterListResponse{Chapters: items, Total: total})
}

// GetChapter handles GET /api/chapters/{number}.
//
//	@Summary	Get a sealed chapter
//	@Tags		chapters
//	@Produce	json
//	@Param		number			path		int		true	"Chapter number"
//	@Param		If-None-Match	header		string	false	"Cached checksum"
//	@Success	200				{object}	ChapterDetail
//	@Success	304				"Not modified"
//	@Failure	404				{object}	errResponse
//	@Router		/chapters/{number} [get]
func (h *Handler) GetChapter(w http.ResponseWriter, r *http.Request) {
	n, ok := chapterNumber(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid chapter number"))
		return
	}
	d, err := h.svc.GetChapter(r.Context(), n)
	if err != nil {
		writeError(w, "get chapter", err)
		return
	}
	w.Header().Set("ETag", checksum.ETag(d.Checksum))
	if inm := r.Header.Get("If-None-Match"); inm != "" && checksum.FromIfMatch(inm) == d.Checksum {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// CreateChapter handles POST /api/chapters.
//
//	@Summary	Upload a sealed chapter
//	@Tags		chapters
//	@Accept		json
//	@Produce	json
//	@Param		body	body		CreateChapterRequest	true	"Chapter to create"
//	@Success	201		{object}	ChapterDetail
//	@Failure	400		{object}	errResponse
//	@Failure	409		{object}	errResponse
//	@Security	BearerAuth
//	@Router		/chapters [post]
func (h *Handler) CreateChapter(w http.ResponseWriter, r *http.Request) {
	var req CreateChapterRequest
	if !readJSON(w, r, &req) {
		return
	}
	d, err := h.svc.CreateChapter(r.Context(), chapter.Draft{
		Number: req.Number,
		Title:  req.Title,
		Tags:   req.Tags,
	}, req.Ciphertext)
	if err != nil {
		writeError(w, "create chapter", err)
		return
	}
	w.Header().Set("ETag", checksum.ETag(d.Checksum))
	writeJSON(w, http.StatusCreated, d)
}

// UpdateChapter handles PUT /api/chapters/{number}.
//
//	@Summary	Replace a chapter with optimistic concurrency
//	@Tags		chapters
//	@Accept		json
//	@Produce	json
//	@Param		number		path		int						true	"Chapter number"
//	@Param		If-Match	header		string					false	"Checksum for optimistic concurrency"
//	@Param		body		body		UpdateChapterRequest	true	"Updated chapter"
//	@Success	200			{object}	ChapterDetail
//	@Failure	400			{object}	errResponse
//	@Failure	404			{object}	errResponse
//	@Failure	409			{object}	errResponse
//	@Security	BearerAuth
//	@Router		/chapters/{number} [put]
func (h *Handler) UpdateChapter(w http.ResponseWriter, r *http.Request) {
	n, ok := chapterNumber(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid chapter number"))
		return
	}
	var req UpdateChapterRequest
	if !readJSON(w, r, &req) {
		return
	}

	ifMatch := checksum.FromIfMatch(r.Header.Get("If-Match"))
	d, err := h.svc.UpdateChapter(r.Context(), chapter.Draft{
		Number: n,
		Title:  req.Title,
		Tags:   req.Tags,
	}, req.Ciphertext, ifMatch)
	if err != nil {
		writeError(w, "update chapter", err)
		return
	}
	w.Header().Set("ETag", checksum.ETag(d.Checksum))
	writeJSON(w, http.StatusOK, d)
}

// DeleteChapter handles DELETE /api/chapters/{number}.
//
//	@Summary	Delete a chapter
//	@Tags		chapters
//	@Param		number	path	int	true	"Chapter number"
//	@Success	204		"Chapter deleted"
//	@Failure	404		{object}	errResponse
//	@Security	BearerAuth
//	@Router		/chapters/{number} [delete]
func (h *Handler) DeleteChapter(w http.ResponseWriter, r *http.Request) {
	n, ok := chapterNumber(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid chapter number"))
		return
	}
	if err := h.svc.DeleteChapter(r.Context(), n); err != nil {
		writeError(w, "delete chapter", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/search.
//
//	@Summary	Search chapter titles and tags
//	@Tags		search
//	@Produce	json
//	@Param		q		query		string	true	"Search query"
//	@Param		limit	query		int		false	"Max results"
//	@Success	200		{object}	SearchResponse
//	@Failure	400		{object}	errResponse
//	@Router		/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
