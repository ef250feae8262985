package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/videoarena/videoarena/internal/api/response"
	"github.com/videoarena/videoarena/internal/video"
)

// NewUploadVideoHandler returns the handler for POST /api/v1/videos. The
// file arrives as the multipart field "file" and must carry a video/*
// content type.
func NewUploadVideoHandler(videos *video.Storage, maxSize int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxSize+1<<20) // payload cap plus multipart overhead

		file, header, err := r.FormFile("file")
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Multipart field 'file' is required", nil)
			return
		}
		defer file.Close()

		contentType := header.Header.Get("Content-Type")
		if !strings.HasPrefix(contentType, "video/") {
			response.Error(w, http.StatusBadRequest, "INVALID_FILE_TYPE", "Please upload a video file", nil)
			return
		}

		meta, err := videos.Save(header.Filename, contentType, file)
		if errors.Is(err, video.ErrTooLarge) {
			response.Error(w, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE",
				"File exceeds the maximum upload size", nil)
			return
		}
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to save file", nil)
			return
		}

		response.Created(w, meta)
	}
}

// NewGetVideoHandler returns the handler for GET /api/v1/videos/{videoID},
// serving the stored file.
func NewGetVideoHandler(videos *video.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		videoID := chi.URLParam(r, "videoID")
		path, err := videos.Resolve(videoID)
		if err != nil {
			response.Error(w, http.StatusNotFound, "VIDEO_NOT_FOUND", "Video not found", nil)
			return
		}
		w.Header().Set("Content-Type", video.MimeType(path))
		http.ServeFile(w, r, path)
	}
}

// NewVideoMetadataHandler returns the handler for
// GET /api/v1/videos/{videoID}/metadata.
func NewVideoMetadataHandler(videos *video.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		videoID := chi.URLParam(r, "videoID")
		meta, err := videos.Get(videoID)
		if err != nil {
			response.Error(w, http.StatusNotFound, "VIDEO_NOT_FOUND", "Video not found", nil)
			return
		}
		response.JSON(w, meta)
	}
}
