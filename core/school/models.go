package school

import "github.com/pkg/errors"

var (
	// errors
	ErrNotFound = errors.New("record not found")
)

// DateFormat is the calendar-date layout used by attendance records.
const DateFormat = "2006-01-02"

type (
	Student struct {
		ID           string `json:"id"`
		Name         string `json:"name"`
		Email        string `json:"email"`
		Registration string `json:"registration"`
		ClassID      string `json:"class_id"` // empty when unassigned
		Phone        string `json:"phone"`
	}

	// Teacher is a profile-role record; Subjects is a view computed from
	// Subject.TeacherID, never stored.
	Teacher struct {
		ID       string   `json:"id"`
		Name     string   `json:"name"`
		Email    string   `json:"email"`
		Phone    string   `json:"phone"`
		Subjects []string `json:"subjects"` // subject ids
	}

	Subject struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		TeacherID string `json:"teacher_id"` // empty when unassigned
		Workload  int    `json:"workload"`   // hours per year
	}

	// Class scalar fields are stored; StudentIDs is a view computed from
	// Student.ClassID, never stored.
	Class struct {
		ID         string   `json:"id"`
		Name       string   `json:"name"`
		Year       int      `json:"year"`
		Period     string   `json:"period"`
		StudentIDs []string `json:"student_ids"`
	}

	// Attendance is unique per (StudentID, SubjectID, ClassID, Date).
	Attendance struct {
		ID        string `json:"id"`
		StudentID string `json:"student_id"`
		SubjectID string `json:"subject_id"`
		ClassID   string `json:"class_id"`
		Date      string `json:"date"` // YYYY-MM-DD
		Present   bool   `json:"present"`
	}

	// Grade is unique per (StudentID, SubjectID, Quarter).
	Grade struct {
		ID        string  `json:"id"`
		StudentID string  `json:"student_id"`
		SubjectID string  `json:"subject_id"`
		Quarter   int     `json:"quarter"` // 1..4
		Value     float64 `json:"value"`   // 0..10
	}
)

// NewStudent contains information needed to create a new Student.
type NewStudent struct {
	Name         string `json:"name" validate:"required"`
	Email        string `json:"email" validate:"required,email"`
	Registration string `json:"registration" validate:"required"`
	ClassID      string `json:"class_id"`
	Phone        string `json:"phone"`
}

// UpdateStudent defines what information may be provided to modify an existing
// Student. Zero-valued fields are kept as-is; ClassID is a pointer so an
// assignment can be cleared with an empty string.
type UpdateStudent struct {
	Name         string  `json:"name"`
	Email        string  `json:"email" validate:"omitempty,email"`
	Registration string  `json:"registration"`
	ClassID      *string `json:"class_id"`
	Phone        string  `json:"phone"`
}

// NewTeacher contains information needed to create a new Teacher. Listed
// Subjects are assigned to the new teacher on creation.
type NewTeacher struct {
	Name     string   `json:"name" validate:"required"`
	Email    string   `json:"email" validate:"required,email"`
	Phone    string   `json:"phone"`
	Subjects []string `json:"subjects"`
}

// UpdateTeacher modifies an existing Teacher. A non-nil Subjects replaces the
// teacher's whole subject set; nil keeps it.
type UpdateTeacher struct {
	Name     string   `json:"name"`
	Email    string   `json:"email" validate:"omitempty,email"`
	Phone    string   `json:"phone"`
	Subjects []string `json:"subjects"`
}

type NewSubject struct {
	Name      string `json:"name" validate:"required"`
	TeacherID string `json:"teacher_id"`
	Workload  int    `json:"workload" validate:"required,gt=0"`
}

type UpdateSubject struct {
	Name      string  `json:"name"`
	TeacherID *string `json:"teacher_id"`
	Workload  int     `json:"workload" validate:"omitempty,gt=0"`
}

type NewClass struct {
	Name       string   `json:"name" validate:"required"`
	Year       int      `json:"year" validate:"required,gte=1,lte=9999"`
	Period     string   `json:"period" validate:"required,period"`
	StudentIDs []string `json:"student_ids"`
}

// UpdateClass modifies an existing Class. A non-nil StudentIDs replaces the
// class's whole membership; nil keeps it.
type UpdateClass struct {
	Name       string   `json:"name"`
	Year       int      `json:"year" validate:"omitempty,gte=1,lte=9999"`
	Period     string   `json:"period" validate:"omitempty,period"`
	StudentIDs []string `json:"student_ids"`
}

// AttendanceEntry is an upsert payload: (student, subject, class, date) is the
// natural key, Present the mutable field.
type AttendanceEntry struct {
	StudentID string `json:"student_id" validate:"required"`
	SubjectID string `json:"subject_id" validate:"required"`
	ClassID   string `json:"class_id" validate:"required"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	Present   bool   `json:"present"`
}

// GradeEntry is an upsert payload: (student, subject, quarter) is the natural
// key, Value the mutable field.
type GradeEntry struct {
	StudentID string  `json:"student_id" validate:"required"`
	SubjectID string  `json:"subject_id" validate:"required"`
	Quarter   int     `json:"quarter" validate:"required,min=1,max=4"`
	Value     float64 `json:"value" validate:"min=0,max=10"`
}

// UpdateAttendance corrects an existing record by id, natural-key fields
// included. Zero-valued fields are kept as-is; Present is a pointer so a
// record can be flipped to absent.
type UpdateAttendance struct {
	StudentID string `json:"student_id"`
	SubjectID string `json:"subject_id"`
	ClassID   string `json:"class_id"`
	Date      string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Present   *bool  `json:"present"`
}

// UpdateGrade corrects an existing record by id. Zero-valued fields are kept
// as-is; Value is a pointer so a grade can be corrected down to zero.
type UpdateGrade struct {
	StudentID string   `json:"student_id"`
	SubjectID string   `json:"subject_id"`
	Quarter   int      `json:"quarter" validate:"omitempty,min=1,max=4"`
	Value     *float64 `json:"value" validate:"omitempty,min=0,max=10"`
}
