package handler

import (
	"bytes"
	"database/sql"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/uniaccess/campus-assist/internal/model"
	"github.com/uniaccess/campus-assist/internal/repository"
	"github.com/uniaccess/campus-assist/internal/storage"
)

// Upload constraints, enforced fully before any storage call so an
// oversized or malformed file never reaches the backend.
const (
	maxImageBytes  = 2 << 20   // profile images
	maxLetterBytes = 2 << 20   // application letters (PDF)
	maxVideoBytes  = 100 << 20 // disability evidence videos
	maxImageDim    = 1024      // pixels, either axis
)

// UploadHandler accepts role documents: profile images, helper
// application letters, and student disability evidence videos.
type UploadHandler struct {
	Uploads *repository.UploadRepo
	Backend storage.Backend
}

func NewUploadHandler(r *repository.UploadRepo, b storage.Backend) *UploadHandler {
	return &UploadHandler{Uploads: r, Backend: b}
}

type uploadView struct {
	ID          uint64 `json:"id"`
	Kind        string `json:"kind"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
	CreatedAt   string `json:"created_at"`
}

func uploadToView(u model.Upload) uploadView {
	return uploadView{
		ID:          u.ID,
		Kind:        u.Kind,
		ContentType: u.ContentType,
		SizeBytes:   u.SizeBytes,
		CreatedAt:   u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// Create stores a multipart file under the given kind. The file part
// must be named "file" and the form field "kind" one of the Upload*
// constants.
func (h *UploadHandler) Create(c echo.Context) error {
	actor := actorFrom(c)

	kind := strings.ToUpper(strings.TrimSpace(c.FormValue("kind")))
	switch kind {
	case model.UploadProfileImage, model.UploadLetter, model.UploadVideo:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid kind"})
	}
	if !kindAllowedFor(actor.Role, kind) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "kind not allowed for role"})
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "file required"})
	}

	limit := limitFor(kind)
	if fh.Size > limit {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "file too large"})
	}

	src, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "open file failed"})
	}
	defer src.Close()

	// Read with a hard cap in case the multipart size header lies.
	data, err := io.ReadAll(io.LimitReader(src, limit+1))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "read file failed"})
	}
	if int64(len(data)) > limit {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "file too large"})
	}

	contentType := fh.Header.Get("Content-Type")
	if err := checkContent(kind, contentType, data); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	key, err := h.Backend.Store(ctx, actor.ID, kind, fh.Filename, bytes.NewReader(data), contentType)
	if err != nil {
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "store file failed"})
	}

	u := model.Upload{
		UserID:      actor.ID,
		Kind:        kind,
		StorageKey:  key,
		ContentType: contentType,
		SizeBytes:   int64(len(data)),
	}
	id, err := h.Uploads.Create(ctx, &u)
	if err != nil {
		// Keep the store consistent with the database.
		_ = h.Backend.Delete(ctx, key)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save upload failed"})
	}
	created, err := h.Uploads.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusCreated, uploadToView(created))
}

// List returns the caller's uploads.
func (h *UploadHandler) List(c echo.Context) error {
	actor := actorFrom(c)

	ctx, cancel := reqCtx(c)
	defer cancel()

	uploads, err := h.Uploads.ListByUser(ctx, actor.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]uploadView, 0, len(uploads))
	for _, u := range uploads {
		out = append(out, uploadToView(u))
	}
	return c.JSON(http.StatusOK, echo.Map{"uploads": out})
}

// URL returns a short-lived fetch address for one of the caller's
// uploads. Admins may fetch anyone's.
func (h *UploadHandler) URL(c echo.Context) error {
	actor := actorFrom(c)
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Uploads.GetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if u.UserID != actor.ID && actor.Role != model.RoleAdmin {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	url, err := h.Backend.URL(ctx, u.StorageKey, 15*time.Minute)
	if err != nil {
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "resolve url failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"url": url})
}

// Serve streams a stored object back to its owner (or an admin).
// Only the local backend routes URLs here; S3 serves through
// presigned links that never touch this process.
func (h *UploadHandler) Serve(c echo.Context) error {
	actor := actorFrom(c)
	key := c.Param("*")

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Uploads.GetByKey(ctx, key)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if u.UserID != actor.ID && actor.Role != model.RoleAdmin {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	rc, err := h.Backend.Retrieve(ctx, u.StorageKey)
	if err != nil {
		if err == storage.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
		}
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "retrieve failed"})
	}
	defer rc.Close()

	contentType := u.ContentType
	if contentType == "" {
		if info, err := h.Backend.Metadata(ctx, u.StorageKey); err == nil {
			contentType = info.ContentType
		}
	}
	return c.Stream(http.StatusOK, contentType, rc)
}

// kindAllowedFor ties role-specific media to the role that owes it:
// application letters come from helpers, disability videos from
// students. Profile images are open to every role.
func kindAllowedFor(role, kind string) bool {
	switch kind {
	case model.UploadLetter:
		return role == model.RoleHelper
	case model.UploadVideo:
		return role == model.RoleStudent
	default:
		return true
	}
}

func limitFor(kind string) int64 {
	switch kind {
	case model.UploadVideo:
		return maxVideoBytes
	case model.UploadLetter:
		return maxLetterBytes
	default:
		return maxImageBytes
	}
}

// checkContent validates the payload against its declared kind:
// profile images must be PNG/JPEG within the pixel bounds, letters
// must be PDF, videos must carry a video MIME type.
func checkContent(kind, contentType string, data []byte) error {
	switch kind {
	case model.UploadProfileImage:
		if contentType != "image/png" && contentType != "image/jpeg" {
			return errBadUpload("profile image must be PNG or JPEG")
		}
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return errBadUpload("not a decodable image")
		}
		if cfg.Width > maxImageDim || cfg.Height > maxImageDim {
			return errBadUpload("image exceeds 1024x1024")
		}
	case model.UploadLetter:
		if contentType != "application/pdf" || !bytes.HasPrefix(data, []byte("%PDF")) {
			return errBadUpload("letter must be a PDF")
		}
	case model.UploadVideo:
		if !strings.HasPrefix(contentType, "video/") {
			return errBadUpload("video content type required")
		}
	}
	return nil
}

type errBadUpload string

func (e errBadUpload) Error() string { return string(e) }
