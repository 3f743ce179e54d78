package learning

import (
	"context"

	"github.com/mind-engage/classwork/internal/apperr"
	"github.com/mind-engage/classwork/internal/classwork"
	syncx "github.com/mind-engage/classwork/internal/sync"
)

// Enroll opens a pending enrollment; payment is confirmed later by staff.
func (s *Service) Enroll(ctx context.Context, userID, courseID string, method *string) (classwork.Enrollment, error) {
	c, err := s.store.GetCourse(ctx, courseID)
	if err != nil {
		return classwork.Enrollment{}, err
	}
	if !c.IsPublished {
		return classwork.Enrollment{}, apperr.NotFound("course not found")
	}
	return s.store.CreateEnrollment(ctx, classwork.Enrollment{
		UserID: userID, CourseID: courseID, PaymentStatus: classwork.PaymentPending,
		PaymentMethod: method, EnrolledAt: s.now(),
	})
}

// MyEnrollments lists the user's enrollments with lesson progress.
func (s *Service) MyEnrollments(ctx context.Context, userID string) ([]classwork.Enrollment, error) {
	list, err := s.store.ListEnrollments(ctx, classwork.EnrollmentFilter{UserID: userID})
	if err != nil {
		return nil, err
	}
	for i := range list {
		done, total, err := s.progress(ctx, userID, list[i].CourseID)
		if err != nil {
			return nil, err
		}
		p := classwork.EnrollmentProgress{CompletedLessons: done, TotalLessons: total}
		if total > 0 {
			p.Percent = 100 * float64(done) / float64(total)
		}
		list[i].Profile = nil
		list[i].Progress = &p
	}
	return list, nil
}

func (s *Service) Enrollments(ctx context.Context, f classwork.EnrollmentFilter) ([]classwork.Enrollment, error) {
	return s.store.ListEnrollments(ctx, f)
}

func (s *Service) SetEnrollmentStatus(ctx context.Context, actorID, id, status string) (classwork.Enrollment, error) {
	switch status {
	case classwork.PaymentPending, classwork.PaymentCompleted, classwork.PaymentCancelled:
	default:
		return classwork.Enrollment{}, apperr.Validation("invalid payment status",
			map[string]string{"payment_status": "must be pending, completed or cancelled"})
	}
	e, err := s.store.SetEnrollmentStatus(ctx, id, status)
	if err != nil {
		return classwork.Enrollment{}, err
	}
	s.record(ctx, syncx.EnrollmentStatusChanged, id, map[string]string{
		"status": status, "user_id": e.UserID, "course_id": e.CourseID, "by": actorID,
	})
	return e, nil
}
