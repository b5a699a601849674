package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lumenlocal/rankdesk/internal/auth"
	"github.com/lumenlocal/rankdesk/internal/domain"
	"github.com/lumenlocal/rankdesk/internal/pkg/httputil"
	"github.com/lumenlocal/rankdesk/internal/video"
)

// ListVideos returns the org's video recordings.
func (h *Handlers) ListVideos(w http.ResponseWriter, r *http.Request) {
	p := ParsePagination(r, 50, 200)
	q := r.URL.Query()

	videos, total, err := h.videos.List(r.Context(), auth.OrgID(r.Context()), video.ListFilter{
		WebsiteID: q.Get("website_id"),
		Status:    domain.VideoStatus(q.Get("status")),
		Limit:     p.Limit,
		Offset:    p.Offset,
	})
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, NewPaginatedResponse(videos, p, total))
}

// UploadVideo accepts a multipart upload and enqueues it for processing.
// The file goes under the "file" part; title and website_id ride along as
// form fields.
func (h *Handlers) UploadVideo(w http.ResponseWriter, r *http.Request) {
	// Cap the body before the multipart parser can spool an oversized
	// upload to disk. The extra MiB covers the non-file form fields.
	r.Body = http.MaxBytesReader(w, r.Body, h.videos.MaxBytes()+(1<<20))

	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.Error(w, http.StatusRequestEntityTooLarge, "file exceeds upload limit")
			return
		}
		httputil.BadRequest(w, "expected multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.BadRequest(w, "missing file part")
		return
	}
	defer file.Close()

	in := video.UploadInput{
		Title:        r.FormValue("title"),
		OriginalName: header.Filename,
	}
	if v := r.FormValue("website_id"); v != "" {
		in.WebsiteID = &v
	}

	v, err := h.videos.Upload(r.Context(), auth.OrgID(r.Context()), auth.UserID(r.Context()), in, file)
	if err != nil {
		if errors.Is(err, video.ErrTooLarge) {
			httputil.Error(w, http.StatusRequestEntityTooLarge, "file exceeds upload limit")
			return
		}
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.Created(w, v)
}

// GetVideo returns one video row including processing status.
func (h *Handlers) GetVideo(w http.ResponseWriter, r *http.Request) {
	v, err := h.videos.Get(r.Context(), auth.OrgID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, video.ErrNotFound) {
			httputil.NotFound(w, "video not found")
			return
		}
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, v)
}

// VideoPlayback returns presigned playback URLs for a ready video.
func (h *Handlers) VideoPlayback(w http.ResponseWriter, r *http.Request) {
	urls, err := h.videos.Playback(r.Context(), auth.OrgID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		switch {
		case errors.Is(err, video.ErrNotFound):
			httputil.NotFound(w, "video not found")
		case errors.Is(err, video.ErrNotReady):
			httputil.Error(w, http.StatusConflict, "video is still processing")
		default:
			httputil.InternalError(w, err)
		}
		return
	}
	httputil.OK(w, urls)
}

// DeleteVideo removes a video and its stored artifacts.
func (h *Handlers) DeleteVideo(w http.ResponseWriter, r *http.Request) {
	err := h.videos.Delete(r.Context(), auth.OrgID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, video.ErrNotFound) {
			httputil.NotFound(w, "video not found")
			return
		}
		httputil.InternalError(w, err)
		return
	}
	httputil.NoContent(w)
}
