package wire

// Payload is a snake_case request body.
type Payload map[string]any

func Credentials(email, password string) Payload {
	return Payload{"email": email, "password": password}
}

func Registration(email, password, fullName string) Payload {
	return Payload{"email": email, "password": password, "full_name": fullName}
}

func Answers(answers map[string]string) Payload {
	cp := make(map[string]string, len(answers))
	for k, v := range answers {
		cp[k] = v
	}
	return Payload{"answers": cp}
}

func CertificateRequest(courseID string) Payload {
	return Payload{"course_id": courseID}
}

func CertificateStatus(status string) Payload {
	return Payload{"status": status}
}

func EnrollmentRequest(courseID string, method *string) Payload {
	p := Payload{"course_id": courseID}
	if method != nil {
		p["payment_method"] = *method
	}
	return p
}

func EnrollmentStatus(status string) Payload {
	return Payload{"payment_status": status}
}

func LessonGrant(userID string, lessonIDs []string) Payload {
	return Payload{"user_id": userID, "lesson_ids": append([]string{}, lessonIDs...)}
}
