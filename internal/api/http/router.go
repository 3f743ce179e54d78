package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/classwork/internal/rbac"

	auth "github.com/mind-engage/classwork/internal/auth/middleware"
)

// Mount registers every route on r. Global middleware (request ids, CORS,
// timeouts) is the caller's business.
func Mount(r chi.Router, d Deps) {
	requireAuth := auth.JWTMiddleware(d.Auth)
	optionalAuth := auth.OptionalJWT(d.Auth)
	attachRole := auth.AttachRoleFromStore(d.Service.Store())

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", ReadyHandler(d))

	r.Route("/auth", func(ar chi.Router) {
		ar.Post("/register", RegisterHandler(d))
		ar.Post("/login", LoginHandler(d))
		ar.With(requireAuth, attachRole).Get("/me", MeHandler(d))
	})

	r.Route("/api", func(api chi.Router) {
		// Public catalog; a token, when sent, still selects the role.
		api.Group(func(pub chi.Router) {
			pub.Use(optionalAuth, attachRole)
			pub.Get("/courses", ListCoursesHandler(d))
			pub.Get("/courses/slug/{slug}", CourseBySlugHandler(d))
			pub.Get("/courses/{courseID}/access", CourseAccessHandler(d))
		})

		api.Group(func(pr chi.Router) {
			pr.Use(requireAuth, attachRole)

			pr.With(rbac.Require(rbac.ManageCourse)).Post("/courses", ImportCourseHandler(d))
			pr.With(rbac.Require(rbac.GrantAccess)).Post("/courses/{courseID}/access-grants", GrantAccessHandler(d))

			pr.Route("/classwork", func(cr chi.Router) {
				cr.Get("/courses/{slug}", LearningContentHandler(d))
				cr.Post("/lessons/{lessonID}/complete", CompleteLessonHandler(d))
				cr.Get("/lessons/{lessonID}/clips", LessonClipsHandler(d))

				cr.Group(func(qr chi.Router) {
					qr.Use(rbac.Require(rbac.TakeQuiz))
					qr.Get("/quizzes/{quizID}/questions", QuizQuestionsHandler(d))
					qr.Post("/quizzes/{quizID}/submit", SubmitQuizHandler(d))
					qr.Get("/quizzes/{quizID}/attempts", QuizAttemptsHandler(d))
				})

				cr.Get("/certificates", CertificatesOverviewHandler(d))
				cr.With(rbac.Require(rbac.RequestCertificate)).Post("/certificates", RequestCertificateHandler(d))
				cr.With(rbac.Require(rbac.ReviewCertificates)).Get("/certificates/requests", CertificateRequestsHandler(d))
				cr.With(rbac.Require(rbac.ReviewCertificates)).Put("/certificates/{certificateID}", UpdateCertificateHandler(d))
			})

			pr.Post("/enrollments", EnrollHandler(d))
			pr.Get("/enrollments/me", MyEnrollmentsHandler(d))
			pr.With(rbac.Require(rbac.ManageEnrollments)).Get("/enrollments", ListEnrollmentsHandler(d))
			pr.With(rbac.Require(rbac.ManageEnrollments)).Put("/enrollments/{enrollmentID}", UpdateEnrollmentHandler(d))

			if d.Blobs != nil {
				pr.Route("/uploads", func(ur chi.Router) {
					MountUploads(ur, d, rbac.Require(rbac.UploadMaterial))
				})
			}
		})
	})
}

func ReadyHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.DB == nil {
			w.WriteHeader(http.StatusOK)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := d.DB.PingContext(ctx); err != nil {
			d.log().Warn("readiness check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, errorBody{Message: "database unavailable"})
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}
