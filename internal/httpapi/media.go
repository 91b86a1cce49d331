package httpapi

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/khelan-mehta/avatar-backend/internal/media"
)

const (
	multipartMemory   = 32 << 20
	multipartOverhead = 1 << 20
)

type videoResponse struct {
	VideoURL *string `json:"videoUrl"`
}

type uploadVideoResponse struct {
	Message  string `json:"message"`
	VideoURL string `json:"videoUrl"`
	Filename string `json:"filename"`
}

type samplesResponse struct {
	Message string         `json:"message,omitempty"`
	Samples []media.Object `json:"samples"`
}

func (s *Server) handleVideo(w http.ResponseWriter, r *http.Request) {
	if s.media == nil {
		respondJSON(w, http.StatusOK, videoResponse{})
		return
	}
	obj, ok, err := s.media.AvatarVideo(r.Context())
	s.metrics.IncStoreOp("get_video", err)
	if err != nil {
		s.logWarn("media: look up avatar video: %v", err)
	}
	if err != nil || !ok {
		respondJSON(w, http.StatusOK, videoResponse{})
		return
	}
	u := media.PublicURL(obj.Name)
	respondJSON(w, http.StatusOK, videoResponse{VideoURL: &u})
}

func (s *Server) handleUploads(w http.ResponseWriter, r *http.Request) {
	if s.media == nil {
		respondError(w, http.StatusNotFound, "not_found", "Not found")
		return
	}
	name := chi.URLParam(r, "*")
	rc, obj, err := s.media.Open(r.Context(), name)
	if err != nil {
		if errors.Is(err, media.ErrNotFound) || errors.Is(err, media.ErrInvalidName) {
			respondError(w, http.StatusNotFound, "not_found", "Not found")
			return
		}
		s.logError("media: open %s: %v", name, err)
		respondError(w, http.StatusInternalServerError, "store_error", "Failed to read file")
		return
	}
	defer rc.Close()

	if obj.ContentType != "" {
		w.Header().Set("Content-Type", obj.ContentType)
	}
	if rs, ok := rc.(io.ReadSeeker); ok {
		http.ServeContent(w, r, obj.Name, obj.ModTime, rs)
		return
	}
	w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	if !obj.ModTime.IsZero() {
		w.Header().Set("Last-Modified", obj.ModTime.UTC().Format(http.TimeFormat))
	}
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = io.Copy(w, rc)
	}
}

func (s *Server) handleUploadVideo(w http.ResponseWriter, r *http.Request) {
	if s.media == nil {
		respondError(w, http.StatusNotImplemented, "unavailable", "media storage not configured")
		return
	}
	if !s.parseMultipart(w, r, s.cfg.MaxVideoBytes+multipartOverhead) {
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("video")
	if err != nil {
		respondError(w, http.StatusBadRequest, "file_required", "No video file provided")
		return
	}
	defer file.Close()

	obj, err := s.media.ReplaceAvatarVideo(r.Context(), uploadFrom(header, file))
	s.metrics.IncStoreOp("put_video", err)
	if err != nil {
		s.respondMediaError(w, err, "Only video files are allowed")
		return
	}
	s.logInfo("admin: avatar video replaced name=%s size=%d", obj.Name, obj.Size)
	respondJSON(w, http.StatusOK, uploadVideoResponse{
		Message:  "Video uploaded successfully",
		VideoURL: media.PublicURL(obj.Name),
		Filename: obj.Name,
	})
}

func (s *Server) handleListSamples(w http.ResponseWriter, r *http.Request) {
	if s.media == nil {
		respondJSON(w, http.StatusOK, samplesResponse{Samples: []media.Object{}})
		return
	}
	samples, err := s.media.Samples(r.Context())
	s.metrics.IncStoreOp("list_samples", err)
	if err != nil {
		s.logError("admin: list voice samples: %v", err)
		respondError(w, http.StatusInternalServerError, "store_error", "Failed to list voice samples")
		return
	}
	if samples == nil {
		samples = []media.Object{}
	}
	respondJSON(w, http.StatusOK, samplesResponse{Samples: samples})
}

func (s *Server) handleUploadSamples(w http.ResponseWriter, r *http.Request) {
	if s.media == nil {
		respondError(w, http.StatusNotImplemented, "unavailable", "media storage not configured")
		return
	}
	limit := int64(media.MaxSamplesPerUpload)*s.cfg.MaxSampleBytes + multipartOverhead
	if !s.parseMultipart(w, r, limit) {
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["samples"]
	if len(headers) > media.MaxSamplesPerUpload {
		respondError(w, http.StatusBadRequest, "too_many_files", "At most 5 voice samples per upload")
		return
	}
	uploads := make([]media.Upload, 0, len(headers))
	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_request", "Failed to read uploaded file")
			return
		}
		defer f.Close()
		uploads = append(uploads, uploadFrom(h, f))
	}

	added, err := s.media.AddSamples(r.Context(), uploads)
	s.metrics.IncStoreOp("put_samples", err)
	if err != nil {
		s.respondMediaError(w, err, "Only audio files are allowed")
		return
	}
	s.logInfo("admin: %d voice samples uploaded", len(added))
	respondJSON(w, http.StatusOK, samplesResponse{
		Message: "Voice samples uploaded successfully",
		Samples: added,
	})
}

func (s *Server) handleDeleteSample(w http.ResponseWriter, r *http.Request) {
	if s.media == nil {
		respondError(w, http.StatusNotImplemented, "unavailable", "media storage not configured")
		return
	}
	filename := chi.URLParam(r, "filename")
	err := s.media.DeleteSample(r.Context(), filename)
	s.metrics.IncStoreOp("delete_sample", err)
	if err != nil {
		switch {
		case errors.Is(err, media.ErrNotFound):
			respondError(w, http.StatusNotFound, "not_found", "Voice sample not found")
		case errors.Is(err, media.ErrInvalidName):
			respondError(w, http.StatusBadRequest, "invalid_filename", "Invalid filename")
		default:
			s.logError("admin: delete voice sample %s: %v", filename, err)
			respondError(w, http.StatusInternalServerError, "store_error", "Failed to delete voice sample")
		}
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Voice sample deleted"})
}

func (s *Server) parseMultipart(w http.ResponseWriter, r *http.Request, limit int64) bool {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "file_too_large", "File too large")
			return false
		}
		respondError(w, http.StatusBadRequest, "invalid_request", "Expected a multipart/form-data body")
		return false
	}
	return true
}

func (s *Server) respondMediaError(w http.ResponseWriter, err error, unsupportedMessage string) {
	switch {
	case errors.Is(err, media.ErrUnsupportedType):
		respondError(w, http.StatusBadRequest, "unsupported_media_type", unsupportedMessage)
	case errors.Is(err, media.ErrTooLarge):
		respondError(w, http.StatusRequestEntityTooLarge, "file_too_large", "File too large")
	case errors.Is(err, media.ErrTooManyFiles):
		respondError(w, http.StatusBadRequest, "too_many_files", "At most 5 voice samples per upload")
	default:
		s.logError("media: store upload: %v", err)
		respondError(w, http.StatusInternalServerError, "store_error", "Failed to store file")
	}
}

func uploadFrom(h *multipart.FileHeader, body io.Reader) media.Upload {
	return media.Upload{
		Filename:    h.Filename,
		ContentType: h.Header.Get("Content-Type"),
		Size:        h.Size,
		Body:        body,
	}
}
