// internal/app/features/users/excel.go
package users

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/dalemusser/contenthub/internal/app/system/apperr"
	"github.com/dalemusser/contenthub/internal/app/system/authz"
	"github.com/dalemusser/contenthub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/contenthub/internal/app/system/normalize"
	"github.com/dalemusser/contenthub/internal/app/system/password"
	"github.com/dalemusser/contenthub/internal/app/system/respond"
	"github.com/dalemusser/contenthub/internal/app/system/timeouts"
	"github.com/dalemusser/contenthub/internal/app/system/xlsx"
	"github.com/dalemusser/contenthub/internal/domain/models"
	"go.uber.org/zap"
)

// importResult reports what an import did with each sheet row.
type importResult struct {
	Inserted   int             `json:"inserted"`
	Duplicates []string        `json:"duplicates"`
	Invalid    []xlsx.RowError `json:"invalid"`
}

// sendWorkbook buffers the workbook so a write failure still yields a clean
// JSON error instead of a truncated download.
func (h *Handler) sendWorkbook(w http.ResponseWriter, filename string, write func(*bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	w.Header().Set("Content-Type", xlsx.ContentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.Log.Warn("write workbook", zap.String("filename", filename), zap.Error(err))
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /users/export                                                            |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	q := listQuery(r)
	excludeSelf(r, &q)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	page, err := h.Users.List(ctx, q)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	h.sendWorkbook(w, fmt.Sprintf("users_page_%d.xlsx", page.Meta.Page), func(buf *bytes.Buffer) error {
		return xlsx.ExportUsers(buf, page.Result)
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /users/template                                                          |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleTemplate(w http.ResponseWriter, r *http.Request) {
	h.sendWorkbook(w, "import_template.xlsx", func(buf *bytes.Buffer) error {
		return xlsx.WriteTemplate(buf)
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /users/import                                                           |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, xlsx.MaxUploadSize+1<<20)
	if err := r.ParseMultipartForm(xlsx.MaxUploadSize); err != nil {
		respond.Error(w, h.Log, apperr.BadRequest("upload must be a multipart form no larger than 5 MB"))
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		respond.Error(w, h.Log, apperr.BadRequest("No file uploaded"))
		return
	}
	defer file.Close()

	rows, rowErrs, err := xlsx.ParseUsers(file)
	if err != nil {
		if errors.Is(err, xlsx.ErrNoHeader) {
			respond.Error(w, h.Log, apperr.BadRequest(err.Error()))
			return
		}
		respond.Error(w, h.Log, apperr.BadRequest("file is not a readable .xlsx workbook"))
		return
	}

	batch := make([]models.User, 0, len(rows))
	for _, row := range rows {
		// Sheet cells get the same markup pass as JSON profile edits.
		u := models.User{
			Name:     normalize.Name(htmlsanitize.StripTags(row.Name)),
			Email:    row.Email,
			Age:      row.Age,
			Gender:   htmlsanitize.StripTags(row.Gender),
			Bio:      htmlsanitize.Sanitize(row.Bio),
			Role:     row.Role,
			Provider: row.Provider,
			Birthday: row.Birthday,
			Avatar:   row.Avatar,
		}
		if row.Password != "" {
			hash, err := password.Hash(row.Password)
			if err != nil {
				respond.Error(w, h.Log, err)
				return
			}
			u.Password = hash
		}
		batch = append(batch, u)
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Batch())
	defer cancel()

	res, err := h.Users.InsertMany(ctx, batch, authz.Actor(r))
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	for _, email := range res.Invalid {
		rowErrs = append(rowErrs, xlsx.RowError{Email: email, Reason: "rejected by store"})
	}
	out := importResult{
		Inserted:   res.Inserted,
		Duplicates: res.Duplicates,
		Invalid:    rowErrs,
	}
	if out.Duplicates == nil {
		out.Duplicates = []string{}
	}
	if out.Invalid == nil {
		out.Invalid = []xlsx.RowError{}
	}

	h.AuditLog.UsersImported(r.Context(), r, actorID(r), out.Inserted, len(out.Duplicates), len(out.Invalid))
	respond.OK(w, "Users imported", out)
}
