package learning

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/classwork/internal/apperr"
	"github.com/mind-engage/classwork/internal/classwork"
	syncx "github.com/mind-engage/classwork/internal/sync"
)

// CertificatesOverview lists the user's certificates and their progress in
// every course they hold a completed enrollment for.
func (s *Service) CertificatesOverview(ctx context.Context, userID string) (classwork.CertificatesOverview, error) {
	certs, err := s.store.ListCertificates(ctx, classwork.CertificateFilter{UserID: userID})
	if err != nil {
		return classwork.CertificatesOverview{}, err
	}
	has := map[string]bool{}
	for _, c := range certs {
		has[c.CourseID] = true
	}
	enrollments, err := s.store.ListEnrollments(ctx, classwork.EnrollmentFilter{
		UserID: userID, Status: classwork.PaymentCompleted,
	})
	if err != nil {
		return classwork.CertificatesOverview{}, err
	}
	completions := make([]classwork.CourseCompletion, 0, len(enrollments))
	for _, e := range enrollments {
		done, total, err := s.progress(ctx, userID, e.CourseID)
		if err != nil {
			return classwork.CertificatesOverview{}, err
		}
		cc := classwork.CourseCompletion{
			CourseID:         e.CourseID,
			CompletedLessons: done,
			TotalLessons:     total,
			IsComplete:       total > 0 && done >= total,
			HasCertificate:   has[e.CourseID],
		}
		if e.Course != nil {
			cc.CourseTitle, cc.CourseSlug = e.Course.Title, e.Course.Slug
		}
		completions = append(completions, cc)
	}
	return classwork.CertificatesOverview{Certificates: certs, Completions: completions}, nil
}

// progress counts completed lessons against every lesson of the course.
func (s *Service) progress(ctx context.Context, userID, courseID string) (done, total int, err error) {
	chapters, err := s.store.ListChapters(ctx, courseID)
	if err != nil {
		return 0, 0, err
	}
	completed, err := s.store.CompletedLessonIDs(ctx, userID, courseID)
	if err != nil {
		return 0, 0, err
	}
	for _, ch := range chapters {
		for _, l := range ch.Lessons {
			total++
			if completed[l.ID] {
				done++
			}
		}
	}
	return done, total, nil
}

// RequestCertificate files a pending certificate request. The course must be
// paid for and fully completed; a second request for the same course is a
// Conflict.
func (s *Service) RequestCertificate(ctx context.Context, userID, courseID string) (classwork.Certificate, error) {
	if courseID == "" {
		return classwork.Certificate{}, apperr.Validation("course_id is required", map[string]string{"course_id": "required"})
	}
	e, err := s.store.FindEnrollment(ctx, userID, courseID)
	if apperr.Is(err, apperr.KindNotFound) || (err == nil && e.PaymentStatus != classwork.PaymentCompleted) {
		return classwork.Certificate{}, apperr.Forbidden("a completed enrollment is required")
	}
	if err != nil {
		return classwork.Certificate{}, err
	}
	done, total, err := s.progress(ctx, userID, courseID)
	if err != nil {
		return classwork.Certificate{}, err
	}
	if total == 0 || done < total {
		return classwork.Certificate{}, apperr.Validation(
			fmt.Sprintf("complete all lessons first (%d of %d done)", done, total), nil)
	}
	c, err := s.store.CreateCertificate(ctx, classwork.Certificate{
		UserID: userID, CourseID: courseID, Status: classwork.CertificatePending, CreatedAt: s.now(),
	})
	if err != nil {
		return classwork.Certificate{}, err
	}
	s.record(ctx, syncx.CertificateRequested, c.ID, map[string]string{"user_id": userID, "course_id": courseID})
	return c, nil
}

func (s *Service) CertificateRequests(ctx context.Context, status string) ([]classwork.Certificate, error) {
	return s.store.ListCertificates(ctx, classwork.CertificateFilter{Status: status})
}

// UpdateCertificateStatus moves a pending certificate to approved or
// rejected. Approval stamps the certificate number and issue date. Any other
// transition is a Conflict.
func (s *Service) UpdateCertificateStatus(ctx context.Context, actorID, certID, status string) (classwork.Certificate, error) {
	if status != classwork.CertificateApproved && status != classwork.CertificateRejected &&
		status != classwork.CertificatePending {
		return classwork.Certificate{}, apperr.Validation("invalid status", map[string]string{"status": "must be approved or rejected"})
	}
	c, err := s.store.GetCertificate(ctx, certID)
	if err != nil {
		return classwork.Certificate{}, err
	}
	if c.Status != classwork.CertificatePending || status == classwork.CertificatePending {
		return classwork.Certificate{}, apperr.Conflict(fmt.Sprintf("certificate is %s and cannot become %s", c.Status, status))
	}

	from := c.Status
	now := s.now().UTC()
	c.Status = status
	if status == classwork.CertificateApproved {
		num := CertificateNumber(now)
		by := actorID
		c.CertificateNumber, c.IssuedAt, c.ApprovedBy, c.ApprovedAt = &num, &now, &by, &now
	}
	if err := s.store.TransitionCertificate(ctx, c, from); err != nil {
		return classwork.Certificate{}, err
	}
	s.record(ctx, syncx.CertificateStatusChanged, c.ID, map[string]string{
		"from": from, "to": status, "by": actorID,
	})
	s.log.Info("certificate status changed", "certificate_id", c.ID, "status", status, "by", actorID)
	return s.store.GetCertificate(ctx, c.ID)
}

// CertificateNumber formats CERT-YYYYMMDD-XXXXXXXX with eight random
// uppercase hex digits.
func CertificateNumber(t time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
	return "CERT-" + t.Format("20060102") + "-" + suffix
}
