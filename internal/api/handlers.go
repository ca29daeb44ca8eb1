package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/baxromumarov/nowcoder-search/internal/core"
	"github.com/baxromumarov/nowcoder-search/internal/scraper"
)

type BatchSearchRequest struct {
	Keywords []string `json:"keywords"`
	MaxPages *int     `json:"max_pages,omitempty"`
	Tag      *int     `json:"tag,omitempty"`
	Order    *string  `json:"order,omitempty"`
}

// handleSearch mirrors the search tool: ?q=&max_pages=&tag=&order=
// An empty tag= turns the category filter off.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("q")
	if query == "" {
		respondError(w, http.StatusBadRequest, "q is required")
		return
	}

	opts := core.SearchOptions{
		Query:    query,
		MaxPages: core.DefaultMaxPages,
		Tag:      core.DefaultTag,
		Order:    core.DefaultOrder,
	}
	if q.Has("max_pages") {
		n, err := parseInt(q.Get("max_pages"), "max_pages")
		if err == nil {
			err = core.ValidateMaxPages(n)
		}
		if err != nil {
			respondServiceError(w, err)
			return
		}
		opts.MaxPages = n
	}
	if q.Has("tag") {
		tag, err := parseTag(q.Get("tag"))
		if err != nil {
			respondServiceError(w, err)
			return
		}
		opts.Tag = tag
	}
	if q.Has("order") {
		opts.Order = scraper.Order(q.Get("order"))
	}

	res, err := s.svc.Search(r.Context(), opts)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleBatchSearch(w http.ResponseWriter, r *http.Request) {
	var req BatchSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	opts := core.BatchOptions{MaxPages: core.DefaultMaxPages}
	if req.MaxPages != nil {
		if err := core.ValidateMaxPages(*req.MaxPages); err != nil {
			respondServiceError(w, err)
			return
		}
		opts.MaxPages = *req.MaxPages
	}
	if req.Tag != nil {
		tag, err := scraper.ParseTagID(*req.Tag)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		opts.Tag = tag
	}
	if req.Order != nil {
		opts.Order = scraper.Order(*req.Order)
	}

	res, err := s.svc.BatchSearch(r.Context(), req.Keywords, opts)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleFeedDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := s.svc.FeedDetail(r.Context(), chi.URLParam(r, "uuid"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, detail)
}

func (s *Server) handleDiscussDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := s.svc.DiscussDetail(r.Context(), chi.URLParam(r, "contentID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, detail)
}

func respondServiceError(w http.ResponseWriter, err error) {
	respondError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch scraper.KindOf(err) {
	case scraper.ErrorValidation:
		return http.StatusBadRequest
	case scraper.ErrorNotFound:
		return http.StatusNotFound
	case scraper.ErrorNetwork, scraper.ErrorUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func parseInt(raw, name string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &scraper.Error{
			Kind:    scraper.ErrorValidation,
			Op:      "search",
			Message: fmt.Sprintf("%s must be an integer, got %q", name, raw),
		}
	}
	return n, nil
}

func parseTag(raw string) (scraper.TagID, error) {
	if raw == "" {
		return scraper.TagNone, nil
	}
	n, err := parseInt(raw, "tag")
	if err != nil {
		return scraper.TagNone, err
	}
	return scraper.ParseTagID(n)
}
