package http

import (
	"io"
	"mime"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/classwork/internal/apperr"
	"github.com/mind-engage/classwork/internal/rbac"
	"github.com/mind-engage/classwork/internal/storage"

	auth "github.com/mind-engage/classwork/internal/auth/middleware"
)

const maxUpload = 32 << 20

// MountUploads serves lesson material: POST / stores a multipart "file"
// under the course given in "course_id", GET /* streams a stored key back to
// callers with access to that course.
func MountUploads(r chi.Router, d Deps, upload func(http.Handler) http.Handler) {
	r.With(upload).Post("/", func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
		f, hdr, err := r.FormFile("file")
		if err != nil {
			writeError(w, r, d.log(), apperr.Validation("file required", map[string]string{"file": "required"}))
			return
		}
		defer f.Close()

		key, err := d.Blobs.Put(r.Context(), storage.MaterialKey(r.FormValue("course_id"), hdr.Filename), f)
		if err != nil {
			writeError(w, r, d.log(), err)
			return
		}
		d.log().Info("material uploaded", "key", key, "size", hdr.Size)
		writeJSON(w, http.StatusCreated, map[string]string{"key": key, "url": d.Blobs.URL(key)})
	})

	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "*")
		course, _ := storage.CourseOf(key)
		ctx := r.Context()
		if err := d.Service.MaterialAccess(ctx, auth.SubjectFromContext(ctx), rbac.RoleFromContext(ctx), course); err != nil {
			writeError(w, r, d.log(), err)
			return
		}
		rc, err := d.Blobs.Get(ctx, key)
		if err != nil {
			writeError(w, r, d.log(), err)
			return
		}
		defer rc.Close()
		ct := mime.TypeByExtension(path.Ext(key))
		if ct == "" {
			ct = "application/octet-stream"
		}
		w.Header().Set("Content-Type", ct)
		_, _ = io.Copy(w, rc)
	})
}
