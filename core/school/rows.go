package school

import (
	"github.com/volatiletech/null/v8"

	"github.com/escolabr/escola/auth"
	"github.com/escolabr/escola/store"
)

// Row codecs: the remote store speaks snake_case columns with SQL/JSON nulls
// for unset foreign keys; the domain models speak camel-case fields with empty
// strings. All translation happens here.

// fkValue renders an optional foreign key: empty ids become nulls remotely.
func fkValue(id string) interface{} {
	return null.NewString(id, id != "").Ptr()
}

func studentFromRow(r store.Row) Student {
	return Student{
		ID:           r.String("id"),
		Name:         r.String("name"),
		Email:        r.String("email"),
		Registration: r.String("registration"),
		ClassID:      r.String("class_id"),
		Phone:        r.String("phone"),
	}
}

func (ns NewStudent) row() store.Row {
	return store.Row{
		"name":         ns.Name,
		"email":        ns.Email,
		"registration": ns.Registration,
		"class_id":     fkValue(ns.ClassID),
		"phone":        ns.Phone,
	}
}

func (us UpdateStudent) patch() store.Row {
	p := make(store.Row)
	if us.Name != "" {
		p["name"] = us.Name
	}
	if us.Email != "" {
		p["email"] = us.Email
	}
	if us.Registration != "" {
		p["registration"] = us.Registration
	}
	if us.Phone != "" {
		p["phone"] = us.Phone
	}
	if us.ClassID != nil {
		p["class_id"] = fkValue(*us.ClassID)
	}
	return p
}

func teacherFromRow(r store.Row) Teacher {
	return Teacher{
		ID:    r.String("id"),
		Name:  r.String("name"),
		Email: r.String("email"),
		Phone: r.String("phone"),
	}
}

func (nt NewTeacher) row(id string) store.Row {
	return store.Row{
		"id":    id, // identity-provider assigned
		"name":  nt.Name,
		"email": nt.Email,
		"phone": nt.Phone,
		"role":  auth.RoleTeacher,
	}
}

func (ut UpdateTeacher) patch() store.Row {
	p := make(store.Row)
	if ut.Name != "" {
		p["name"] = ut.Name
	}
	if ut.Email != "" {
		p["email"] = ut.Email
	}
	if ut.Phone != "" {
		p["phone"] = ut.Phone
	}
	return p
}

func subjectFromRow(r store.Row) Subject {
	return Subject{
		ID:        r.String("id"),
		Name:      r.String("name"),
		TeacherID: r.String("teacher_id"),
		Workload:  r.Int("workload"),
	}
}

func (ns NewSubject) row() store.Row {
	return store.Row{
		"name":       ns.Name,
		"teacher_id": fkValue(ns.TeacherID),
		"workload":   ns.Workload,
	}
}

func (us UpdateSubject) patch() store.Row {
	p := make(store.Row)
	if us.Name != "" {
		p["name"] = us.Name
	}
	if us.Workload > 0 {
		p["workload"] = us.Workload
	}
	if us.TeacherID != nil {
		p["teacher_id"] = fkValue(*us.TeacherID)
	}
	return p
}

func classFromRow(r store.Row) Class {
	return Class{
		ID:     r.String("id"),
		Name:   r.String("name"),
		Year:   r.Int("year"),
		Period: r.String("period"),
	}
}

func (nc NewClass) row() store.Row {
	// membership is never written to the class row
	return store.Row{
		"name":   nc.Name,
		"year":   nc.Year,
		"period": nc.Period,
	}
}

func (uc UpdateClass) patch() store.Row {
	p := make(store.Row)
	if uc.Name != "" {
		p["name"] = uc.Name
	}
	if uc.Year > 0 {
		p["year"] = uc.Year
	}
	if uc.Period != "" {
		p["period"] = uc.Period
	}
	return p
}

func attendanceFromRow(r store.Row) Attendance {
	att := Attendance{
		ID:        r.String("id"),
		StudentID: r.String("student_id"),
		SubjectID: r.String("subject_id"),
		ClassID:   r.String("class_id"),
		Date:      r.String("date"),
		Present:   r.Bool("present"),
	}
	// SQL drivers hand dates back as full timestamps
	if len(att.Date) > len(DateFormat) {
		att.Date = att.Date[:len(DateFormat)]
	}
	return att
}

func (ae AttendanceEntry) row() store.Row {
	return store.Row{
		"student_id": ae.StudentID,
		"subject_id": ae.SubjectID,
		"class_id":   ae.ClassID,
		"date":       ae.Date,
		"present":    ae.Present,
	}
}

func (ua UpdateAttendance) patch() store.Row {
	p := make(store.Row)
	if ua.StudentID != "" {
		p["student_id"] = ua.StudentID
	}
	if ua.SubjectID != "" {
		p["subject_id"] = ua.SubjectID
	}
	if ua.ClassID != "" {
		p["class_id"] = ua.ClassID
	}
	if ua.Date != "" {
		p["date"] = ua.Date
	}
	if ua.Present != nil {
		p["present"] = *ua.Present
	}
	return p
}

func gradeFromRow(r store.Row) Grade {
	return Grade{
		ID:        r.String("id"),
		StudentID: r.String("student_id"),
		SubjectID: r.String("subject_id"),
		Quarter:   r.Int("quarter"),
		Value:     r.Float("value"),
	}
}

func (ge GradeEntry) row() store.Row {
	return store.Row{
		"student_id": ge.StudentID,
		"subject_id": ge.SubjectID,
		"quarter":    ge.Quarter,
		"value":      ge.Value,
	}
}

func (ug UpdateGrade) patch() store.Row {
	p := make(store.Row)
	if ug.StudentID != "" {
		p["student_id"] = ug.StudentID
	}
	if ug.SubjectID != "" {
		p["subject_id"] = ug.SubjectID
	}
	if ug.Quarter > 0 {
		p["quarter"] = ug.Quarter
	}
	if ug.Value != nil {
		p["value"] = *ug.Value
	}
	return p
}
