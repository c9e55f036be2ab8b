// internal/app/features/upload/handler.go
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	imagestore "github.com/dalemusser/contenthub/internal/app/store/images"
	"github.com/dalemusser/contenthub/internal/app/system/apperr"
	"github.com/dalemusser/contenthub/internal/app/system/auditlog"
	"github.com/dalemusser/contenthub/internal/app/system/auth"
	"github.com/dalemusser/contenthub/internal/app/system/normalize"
	"github.com/dalemusser/contenthub/internal/app/system/respond"
	"github.com/dalemusser/contenthub/internal/app/system/telegram"
	"github.com/dalemusser/contenthub/internal/app/system/timeouts"
	"github.com/dalemusser/contenthub/internal/domain/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// MaxFileSize is the per-file upload limit.
	MaxFileSize = 10 << 20
	// MaxFiles caps a multi-file upload at one Telegram album.
	MaxFiles = telegram.MaxMediaGroup
	// DefaultRatePerMinute is the per-IP request budget for upload routes.
	DefaultRatePerMinute = 30
)

// Uploader stores photos remotely. *telegram.Client satisfies it.
type Uploader interface {
	SendPhoto(ctx context.Context, p telegram.Photo, caption string) (string, error)
	SendMediaGroup(ctx context.Context, photos []telegram.Photo, caption string) ([]string, error)
}

// Handler accepts image uploads, pushes them to Telegram and records the
// slug to file id mapping.
type Handler struct {
	Images        *imagestore.Store
	Bot           Uploader
	RatePerMinute int
	AuditLog      *auditlog.Logger
	Log           *zap.Logger
}

// NewHandler creates an upload Handler. ratePerMinute <= 0 uses the default.
func NewHandler(images *imagestore.Store, bot Uploader, ratePerMinute int, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	if ratePerMinute <= 0 {
		ratePerMinute = DefaultRatePerMinute
	}
	return &Handler{
		Images:        images,
		Bot:           bot,
		RatePerMinute: ratePerMinute,
		AuditLog:      audit,
		Log:           logger,
	}
}

type uploadResult struct {
	FileID string `json:"file_id"`
	Slug   string `json:"slug"`
}

type multiResult struct {
	Fields     []uploadResult `json:"fields"`
	Duplicates []string       `json:"duplicates"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| Form helpers                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

func parseForm(w http.ResponseWriter, r *http.Request, maxBody int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := r.ParseMultipartForm(MaxFileSize); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return apperr.BadRequest("File too large (max 10 MB)")
		}
		return apperr.BadRequest("Request must be a multipart form")
	}
	return nil
}

func caption(r *http.Request) (string, error) {
	c := strings.TrimSpace(r.FormValue("caption"))
	if c == "" {
		return "", apperr.BadRequest("Caption is required")
	}
	if normalize.Slug(c) == "" {
		return "", apperr.BadRequest("Caption must contain letters or digits")
	}
	return c, nil
}

// readPhoto loads one image part. The stored filename is random so the
// original name never reaches Telegram.
func readPhoto(fh *multipart.FileHeader) (telegram.Photo, error) {
	if !strings.HasPrefix(fh.Header.Get("Content-Type"), "image/") {
		return telegram.Photo{}, apperr.BadRequest("Only image files are allowed")
	}
	if fh.Size > MaxFileSize {
		return telegram.Photo{}, apperr.BadRequest("File too large (max 10 MB)")
	}
	f, err := fh.Open()
	if err != nil {
		return telegram.Photo{}, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxFileSize+1))
	if err != nil {
		return telegram.Photo{}, fmt.Errorf("read upload: %w", err)
	}
	if len(data) > MaxFileSize {
		return telegram.Photo{}, apperr.BadRequest("File too large (max 10 MB)")
	}

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if ext == "" {
		ext = ".jpg"
	}
	return telegram.Photo{Filename: uuid.NewString() + ext, Data: data}, nil
}

func actorID(r *http.Request) string {
	if u, ok := auth.CurrentUser(r); ok {
		return u.ID
	}
	return ""
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /upload-telegram/upload                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(w, r, MaxFileSize+1<<20); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	capt, err := caption(r)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		respond.Error(w, h.Log, apperr.BadRequest("No file uploaded"))
		return
	}
	photo, err := readPhoto(files[0])
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	slug := normalize.Slug(capt)

	lookupCtx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	_, err = h.Images.FindBySlug(lookupCtx, slug)
	cancel()
	switch {
	case err == nil:
		respond.Error(w, h.Log, apperr.BadRequest("Slug already exists"))
		return
	case !errors.Is(err, imagestore.ErrNotFound):
		respond.Error(w, h.Log, err)
		return
	}

	upCtx, upCancel := context.WithTimeout(r.Context(), timeouts.Upstream())
	defer upCancel()

	fileID, err := h.Bot.SendPhoto(upCtx, photo, capt)
	if err != nil {
		h.Log.Error("telegram upload failed", zap.String("slug", slug), zap.Error(err))
		respond.Error(w, h.Log, apperr.Wrap(apperr.KindUpstreamUploadFailed, err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if _, err := h.Images.Create(ctx, slug, fileID); err != nil {
		if errors.Is(err, imagestore.ErrDuplicateSlug) {
			respond.Error(w, h.Log, apperr.BadRequest("Slug already exists"))
			return
		}
		respond.Error(w, h.Log, err)
		return
	}

	h.AuditLog.ImagesUploaded(r.Context(), r, actorID(r), []string{slug})
	respond.Created(w, "Upload successful", uploadResult{FileID: fileID, Slug: slug})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /upload-telegram/upload-multiple                                        |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleUploadMultiple(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(w, r, MaxFiles*MaxFileSize+1<<20); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	capt, err := caption(r)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	files := r.MultipartForm.File["files"]
	switch {
	case len(files) == 0:
		respond.Error(w, h.Log, apperr.BadRequest("No files uploaded"))
		return
	case len(files) > MaxFiles:
		respond.Error(w, h.Log, apperr.BadRequest(fmt.Sprintf("At most %d files per upload", MaxFiles)))
		return
	}

	photos := make([]telegram.Photo, 0, len(files))
	for _, fh := range files {
		p, err := readPhoto(fh)
		if err != nil {
			respond.Error(w, h.Log, err)
			return
		}
		photos = append(photos, p)
	}

	upCtx, upCancel := context.WithTimeout(r.Context(), timeouts.Upstream())
	defer upCancel()

	ids, err := h.Bot.SendMediaGroup(upCtx, photos, capt)
	if err != nil {
		h.Log.Error("telegram album upload failed", zap.Int("files", len(photos)), zap.Error(err))
		respond.Error(w, h.Log, apperr.Wrap(apperr.KindUpstreamUploadFailed, err))
		return
	}

	imgs := make([]models.Image, len(ids))
	for i, id := range ids {
		imgs[i] = models.Image{Slug: normalize.Slug(fmt.Sprintf("%s-%d", capt, i+1)), FileID: id}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	res, err := h.Images.InsertMany(ctx, imgs)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	out := multiResult{Fields: make([]uploadResult, 0, len(res.Images)), Duplicates: res.Duplicates}
	slugs := make([]string, 0, len(res.Images))
	for _, img := range res.Images {
		out.Fields = append(out.Fields, uploadResult{FileID: img.FileID, Slug: img.Slug})
		slugs = append(slugs, img.Slug)
	}
	if out.Duplicates == nil {
		out.Duplicates = []string{}
	}

	h.AuditLog.ImagesUploaded(r.Context(), r, actorID(r), slugs)
	respond.Created(w, "Upload successful", out)
}
