// internal/app/features/images/handler.go
package images

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	imagestore "github.com/dalemusser/contenthub/internal/app/store/images"
	"github.com/dalemusser/contenthub/internal/app/system/apperr"
	"github.com/dalemusser/contenthub/internal/app/system/auditlog"
	"github.com/dalemusser/contenthub/internal/app/system/auth"
	"github.com/dalemusser/contenthub/internal/app/system/filecache"
	"github.com/dalemusser/contenthub/internal/app/system/respond"
	"github.com/dalemusser/contenthub/internal/app/system/telegram"
	"github.com/dalemusser/contenthub/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CacheControl marks served images as immutable: a slug never changes its bytes.
const CacheControl = "public, max-age=31536000, immutable"

// FileSource resolves and downloads stored files. *telegram.Client satisfies it.
type FileSource interface {
	FilePath(ctx context.Context, fileID string) (string, error)
	OpenFile(ctx context.Context, filePath string) (io.ReadCloser, error)
}

// Handler serves and deletes hosted images.
type Handler struct {
	Images         *imagestore.Store
	Files          FileSource
	Paths          *filecache.Cache
	AllowedOrigins []string
	AuditLog       *auditlog.Logger
	Log            *zap.Logger
}

// NewHandler creates an images Handler. paths may be a disabled cache.
func NewHandler(images *imagestore.Store, files FileSource, paths *filecache.Cache, allowedOrigins []string, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	if paths == nil {
		paths = filecache.New(nil, "", 0, logger)
	}
	return &Handler{
		Images:         images,
		Files:          files,
		Paths:          paths,
		AllowedOrigins: allowedOrigins,
		AuditLog:       audit,
		Log:            logger,
	}
}

type slugsRequest struct {
	Slugs []string `json:"slugs"`
}

type deleteResult struct {
	Slugs    []string `json:"slugs"`
	Affected int64    `json:"affected"`
}

// refererAllowed reports whether referer comes from one of origins. Scheme
// and host (with port) must match exactly.
func refererAllowed(referer string, origins []string) bool {
	ref, err := url.Parse(referer)
	if err != nil || ref.Scheme == "" || ref.Host == "" {
		return false
	}
	for _, o := range origins {
		allowed, err := url.Parse(o)
		if err != nil || allowed.Host == "" {
			continue
		}
		if strings.EqualFold(ref.Scheme, allowed.Scheme) && strings.EqualFold(ref.Host, allowed.Host) {
			return true
		}
	}
	return false
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /images/{type}/{slug}                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleServe streams the image behind slug. Only pages served from an
// allowed origin may embed it.
func (h *Handler) HandleServe(w http.ResponseWriter, r *http.Request) {
	if !refererAllowed(r.Referer(), h.AllowedOrigins) {
		respond.Error(w, h.Log, apperr.New(apperr.KindForbidden, "Access to this image is forbidden"))
		return
	}
	slug := chi.URLParam(r, "slug")

	lookupCtx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	img, err := h.Images.FindBySlug(lookupCtx, slug)
	cancel()
	if err != nil {
		if errors.Is(err, imagestore.ErrNotFound) {
			respond.Error(w, h.Log, apperr.New(apperr.KindNotFound, "Image not found"))
			return
		}
		respond.Error(w, h.Log, err)
		return
	}

	ctx, cancelUp := context.WithTimeout(r.Context(), timeouts.Upstream())
	defer cancelUp()

	body, err := h.open(ctx, img.FileID)
	if err != nil {
		if errors.Is(err, telegram.ErrFileNotFound) {
			respond.Error(w, h.Log, apperr.New(apperr.KindNotFound, "Image not found"))
			return
		}
		h.Log.Error("image download failed", zap.String("slug", slug), zap.Error(err))
		respond.Error(w, h.Log, apperr.New(apperr.KindUpstreamUploadFailed, "Failed to fetch image"))
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", CacheControl)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		h.Log.Warn("image stream interrupted", zap.String("slug", slug), zap.Error(err))
	}
}

// open resolves the file path through the cache and opens it. A cached path
// the host no longer knows is dropped and resolved once more.
func (h *Handler) open(ctx context.Context, fileID string) (io.ReadCloser, error) {
	load := func(ctx context.Context) (string, error) {
		return h.Files.FilePath(ctx, fileID)
	}

	path, err := h.Paths.GetOrLoad(ctx, fileID, load)
	if err != nil {
		return nil, err
	}
	body, err := h.Files.OpenFile(ctx, path)
	if err == nil || !errors.Is(err, telegram.ErrFileNotFound) || !h.Paths.Enabled() {
		return body, err
	}

	if derr := h.Paths.Delete(ctx, fileID); derr != nil {
		h.Log.Warn("drop stale file path", zap.String("file_id", fileID), zap.Error(derr))
	}
	if path, err = h.Paths.GetOrLoad(ctx, fileID, load); err != nil {
		return nil, err
	}
	return h.Files.OpenFile(ctx, path)
}

/*─────────────────────────────────────────────────────────────────────────────*
| DELETE /images/{slug}                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if _, err := h.Images.DeleteBySlug(ctx, slug); err != nil {
		if errors.Is(err, imagestore.ErrNotFound) {
			respond.Error(w, h.Log, apperr.New(apperr.KindNotFound, `Image with slug "`+slug+`" not found`))
			return
		}
		respond.Error(w, h.Log, err)
		return
	}

	h.AuditLog.ImagesDeleted(r.Context(), r, actorID(r), []string{slug}, 1)
	respond.OK(w, "Image deleted", deleteResult{Slugs: []string{slug}, Affected: 1})
}

/*─────────────────────────────────────────────────────────────────────────────*
| DELETE /images                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleDeleteMany(w http.ResponseWriter, r *http.Request) {
	var req slugsRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	slugs := make([]string, 0, len(req.Slugs))
	for _, s := range req.Slugs {
		if s = strings.TrimSpace(s); s != "" {
			slugs = append(slugs, s)
		}
	}
	if len(slugs) == 0 {
		respond.Error(w, h.Log, apperr.BadRequest("No slugs provided"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	deleted, n, err := h.Images.DeleteMany(ctx, slugs)
	if err != nil {
		if errors.Is(err, imagestore.ErrNotFound) {
			respond.Error(w, h.Log, apperr.New(apperr.KindNotFound, "No images found for the given slugs"))
			return
		}
		respond.Error(w, h.Log, err)
		return
	}

	h.AuditLog.ImagesDeleted(r.Context(), r, actorID(r), deleted, n)
	respond.OK(w, "Images deleted", deleteResult{Slugs: deleted, Affected: n})
}

func actorID(r *http.Request) string {
	if u, ok := auth.CurrentUser(r); ok {
		return u.ID
	}
	return ""
}
