package echoapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/escolabr/escola/core/school"
)

func Test_schoolApi_students(t *testing.T) {
	app := setup(t)

	// auth boundaries
	rec := app.request(t, http.MethodGet, "/v1/students", "", nil, nil)
	checkCode(t, rec, http.StatusUnauthorized)

	rec = app.request(t, http.MethodPost, "/v1/students", app.teacherToken,
		school.NewStudent{Name: "Ana Silva", Email: "ana@escola.br", Registration: "2024001"}, nil)
	checkCode(t, rec, http.StatusForbidden)

	// create
	var std school.Student
	rec = app.request(t, http.MethodPost, "/v1/students", app.adminToken,
		school.NewStudent{Name: "Ana Silva", Email: "ana@escola.br", Registration: "2024001"}, &std)
	checkCode(t, rec, http.StatusCreated)
	require.NotEmpty(t, std.ID)
	assert.Equal(t, "Ana Silva", std.Name)

	// missing required fields
	rec = app.request(t, http.MethodPost, "/v1/students", app.adminToken,
		school.NewStudent{Name: "No Email"}, nil)
	checkCode(t, rec, http.StatusBadRequest)

	// list; reads are open to teachers too
	var students []school.Student
	rec = app.request(t, http.MethodGet, "/v1/students", app.teacherToken, nil, &students)
	checkCode(t, rec, http.StatusOK)
	require.Len(t, students, 1)
	assert.Equal(t, std, students[0])

	// retrieve
	var got school.Student
	rec = app.request(t, http.MethodGet, "/v1/students/"+std.ID, app.adminToken, nil, &got)
	checkCode(t, rec, http.StatusOK)
	assert.Equal(t, std, got)

	rec = app.request(t, http.MethodGet, "/v1/students/nope", app.adminToken, nil, nil)
	checkCode(t, rec, http.StatusNotFound)

	// update
	rec = app.request(t, http.MethodPut, "/v1/students/"+std.ID, app.adminToken,
		school.UpdateStudent{Phone: "11 91234-5678"}, &got)
	checkCode(t, rec, http.StatusOK)
	assert.Equal(t, "11 91234-5678", got.Phone)
	assert.Equal(t, "Ana Silva", got.Name) // untouched fields are kept

	// destroy
	rec = app.request(t, http.MethodDelete, "/v1/students/"+std.ID, app.adminToken, nil, nil)
	checkCode(t, rec, http.StatusNoContent)
	rec = app.request(t, http.MethodGet, "/v1/students/"+std.ID, app.adminToken, nil, nil)
	checkCode(t, rec, http.StatusNotFound)
}

func Test_schoolApi_teachers(t *testing.T) {
	app := setup(t)

	var created NewTeacherResponse
	rec := app.request(t, http.MethodPost, "/v1/teachers", app.adminToken,
		school.NewTeacher{Name: "Maria Souza", Email: "maria@escola.br"}, &created)
	checkCode(t, rec, http.StatusCreated)
	require.NotEmpty(t, created.ID)
	assert.Len(t, created.TempPassword, 10)

	// duplicate identity
	rec = app.request(t, http.MethodPost, "/v1/teachers", app.adminToken,
		school.NewTeacher{Name: "Maria Souza", Email: "maria@escola.br"}, nil)
	checkCode(t, rec, http.StatusBadRequest)

	// assign a subject through the teacher side
	var sub school.Subject
	rec = app.request(t, http.MethodPost, "/v1/subjects", app.adminToken,
		school.NewSubject{Name: "Matemática", Workload: 80}, &sub)
	checkCode(t, rec, http.StatusCreated)

	var tch school.Teacher
	rec = app.request(t, http.MethodPut, "/v1/teachers/"+created.ID, app.adminToken,
		school.UpdateTeacher{Subjects: []string{sub.ID}}, &tch)
	checkCode(t, rec, http.StatusOK)
	assert.Equal(t, []string{sub.ID}, tch.Subjects)

	// the subject side reflects the assignment
	var gotSub school.Subject
	rec = app.request(t, http.MethodGet, "/v1/subjects/"+sub.ID, app.adminToken, nil, &gotSub)
	checkCode(t, rec, http.StatusOK)
	assert.Equal(t, created.ID, gotSub.TeacherID)

	// deleting the teacher orphans the subject
	rec = app.request(t, http.MethodDelete, "/v1/teachers/"+created.ID, app.adminToken, nil, nil)
	checkCode(t, rec, http.StatusNoContent)

	rec = app.request(t, http.MethodGet, "/v1/subjects/"+sub.ID, app.adminToken, nil, &gotSub)
	checkCode(t, rec, http.StatusOK)
	assert.Empty(t, gotSub.TeacherID)
}

func Test_schoolApi_classes(t *testing.T) {
	app := setup(t)

	var std school.Student
	rec := app.request(t, http.MethodPost, "/v1/students", app.adminToken,
		school.NewStudent{Name: "Bruno Costa", Email: "bruno@escola.br", Registration: "2024002"}, &std)
	checkCode(t, rec, http.StatusCreated)

	// invalid period
	rec = app.request(t, http.MethodPost, "/v1/classes", app.adminToken,
		school.NewClass{Name: "9A", Year: 2024, Period: "Madrugada"}, nil)
	checkCode(t, rec, http.StatusBadRequest)

	var cls school.Class
	rec = app.request(t, http.MethodPost, "/v1/classes", app.adminToken,
		school.NewClass{Name: "9A", Year: 2024, Period: "Manhã", StudentIDs: []string{std.ID}}, &cls)
	checkCode(t, rec, http.StatusCreated)
	assert.Equal(t, []string{std.ID}, cls.StudentIDs)

	// the student side reflects the enrollment
	var gotStd school.Student
	rec = app.request(t, http.MethodGet, "/v1/students/"+std.ID, app.adminToken, nil, &gotStd)
	checkCode(t, rec, http.StatusOK)
	assert.Equal(t, cls.ID, gotStd.ClassID)

	// clearing membership
	var gotCls school.Class
	rec = app.request(t, http.MethodPut, "/v1/classes/"+cls.ID, app.adminToken,
		school.UpdateClass{StudentIDs: []string{}}, &gotCls)
	checkCode(t, rec, http.StatusOK)
	assert.Empty(t, gotCls.StudentIDs)

	rec = app.request(t, http.MethodGet, "/v1/students/"+std.ID, app.adminToken, nil, &gotStd)
	checkCode(t, rec, http.StatusOK)
	assert.Empty(t, gotStd.ClassID)

	// deleting a class unassigns its remaining members
	rec = app.request(t, http.MethodPut, "/v1/classes/"+cls.ID, app.adminToken,
		school.UpdateClass{StudentIDs: []string{std.ID}}, &gotCls)
	checkCode(t, rec, http.StatusOK)

	rec = app.request(t, http.MethodDelete, "/v1/classes/"+cls.ID, app.adminToken, nil, nil)
	checkCode(t, rec, http.StatusNoContent)

	rec = app.request(t, http.MethodGet, "/v1/students/"+std.ID, app.adminToken, nil, &gotStd)
	checkCode(t, rec, http.StatusOK)
	assert.Empty(t, gotStd.ClassID)
}

func Test_schoolApi_attendances(t *testing.T) {
	app := setup(t)

	entry := school.AttendanceEntry{
		StudentID: "std1",
		SubjectID: "sub1",
		ClassID:   "cls1",
		Date:      "2024-03-15",
		Present:   true,
	}

	// bad date
	bad := entry
	bad.Date = "15/03/2024"
	rec := app.request(t, http.MethodPut, "/v1/attendances", app.teacherToken, bad, nil)
	checkCode(t, rec, http.StatusBadRequest)

	var att school.Attendance
	rec = app.request(t, http.MethodPut, "/v1/attendances", app.teacherToken, entry, &att)
	checkCode(t, rec, http.StatusOK)
	require.NotEmpty(t, att.ID)
	assert.True(t, att.Present)

	// same natural key upserts in place
	entry.Present = false
	var again school.Attendance
	rec = app.request(t, http.MethodPut, "/v1/attendances", app.teacherToken, entry, &again)
	checkCode(t, rec, http.StatusOK)
	assert.Equal(t, att.ID, again.ID)
	assert.False(t, again.Present)

	// a wrong date is corrected in place by id
	var fixed school.Attendance
	rec = app.request(t, http.MethodPut, "/v1/attendances/"+att.ID, app.teacherToken,
		school.UpdateAttendance{Date: "2024-03-14"}, &fixed)
	checkCode(t, rec, http.StatusOK)
	assert.Equal(t, att.ID, fixed.ID)
	assert.Equal(t, "2024-03-14", fixed.Date)

	rec = app.request(t, http.MethodPut, "/v1/attendances/missing", app.teacherToken,
		school.UpdateAttendance{Date: "2024-03-14"}, nil)
	checkCode(t, rec, http.StatusNotFound)

	var all []school.Attendance
	rec = app.request(t, http.MethodGet, "/v1/attendances", app.teacherToken, nil, &all)
	checkCode(t, rec, http.StatusOK)
	assert.Len(t, all, 1)

	rec = app.request(t, http.MethodDelete, "/v1/attendances/"+att.ID, app.teacherToken, nil, nil)
	checkCode(t, rec, http.StatusNoContent)
}

func Test_schoolApi_grades(t *testing.T) {
	app := setup(t)

	entry := school.GradeEntry{StudentID: "std1", SubjectID: "sub1", Quarter: 1, Value: 7.0}

	// out-of-range value
	bad := entry
	bad.Value = 10.5
	rec := app.request(t, http.MethodPut, "/v1/grades", app.teacherToken, bad, nil)
	checkCode(t, rec, http.StatusBadRequest)

	var grd school.Grade
	rec = app.request(t, http.MethodPut, "/v1/grades", app.teacherToken, entry, &grd)
	checkCode(t, rec, http.StatusOK)
	require.NotEmpty(t, grd.ID)
	assert.Equal(t, 7.0, grd.Value)

	// re-saving the same (student, subject, quarter) replaces the value
	entry.Value = 8.5
	var again school.Grade
	rec = app.request(t, http.MethodPut, "/v1/grades", app.teacherToken, entry, &again)
	checkCode(t, rec, http.StatusOK)
	assert.Equal(t, grd.ID, again.ID)
	assert.Equal(t, 8.5, again.Value)

	// a misentered value is corrected in place by id
	value := 6.0
	var fixed school.Grade
	rec = app.request(t, http.MethodPut, "/v1/grades/"+grd.ID, app.teacherToken,
		school.UpdateGrade{Value: &value}, &fixed)
	checkCode(t, rec, http.StatusOK)
	assert.Equal(t, grd.ID, fixed.ID)
	assert.Equal(t, 6.0, fixed.Value)

	var all []school.Grade
	rec = app.request(t, http.MethodGet, "/v1/grades", app.teacherToken, nil, &all)
	checkCode(t, rec, http.StatusOK)
	assert.Len(t, all, 1)
}
