package school

import (
	"context"
	"log"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/escolabr/escola/auth"
	dummyauth "github.com/escolabr/escola/auth/dummy"
	emailsvc "github.com/escolabr/escola/services/email"
	logsvc "github.com/escolabr/escola/services/logger"
	"github.com/escolabr/escola/store"
	dummystore "github.com/escolabr/escola/store/dummy"
)

var ctx = context.Background()

func setup(t *testing.T) (*Registry, *dummystore.Store, *dummyauth.Provider) {
	t.Helper()

	st := dummystore.Open()
	idp := dummyauth.Open()
	logger := logsvc.NewConsoleLogger(log.New(os.Stdout, "TEST : ", log.LstdFlags))
	reg := NewRegistry(st, idp, emailsvc.NewConsoleServiceMock(), logger)
	return reg, st, idp
}

func seedRow(t *testing.T, st *dummystore.Store, table string, row store.Row) store.Row {
	t.Helper()

	rows, err := st.Insert(ctx, table, []store.Row{row})
	require.NoError(t, err)
	return rows[0]
}

func Test_Registry_Load(t *testing.T) {
	reg, st, _ := setup(t)

	tchRow := seedRow(t, st, store.TableProfiles, store.Row{
		"name": "Maria Souza", "email": "maria@escola.br", "phone": "", "role": auth.RoleTeacher,
	})
	seedRow(t, st, store.TableProfiles, store.Row{
		"name": "Admin", "email": "admin@escola.br", "phone": "", "role": auth.RoleAdmin,
	})
	clsRow := seedRow(t, st, store.TableClasses, store.Row{
		"name": "9A", "year": 2024, "period": "Manhã",
	})
	stuRow := seedRow(t, st, store.TableStudents, store.Row{
		"name": "Ana Silva", "email": "ana@escola.br", "registration": "2024001",
		"class_id": clsRow.String("id"), "phone": "",
	})
	subRow := seedRow(t, st, store.TableSubjects, store.Row{
		"name": "Matemática", "teacher_id": tchRow.String("id"), "workload": 80,
	})
	seedRow(t, st, store.TableAttendances, store.Row{
		"student_id": stuRow.String("id"), "subject_id": subRow.String("id"),
		"class_id": clsRow.String("id"), "date": "2024-03-15", "present": true,
	})
	seedRow(t, st, store.TableGrades, store.Row{
		"student_id": stuRow.String("id"), "subject_id": subRow.String("id"),
		"quarter": 1, "value": 7.5,
	})

	actor := auth.Actor{ID: "a1", Name: "Admin", Email: "admin@escola.br", Role: auth.RoleAdmin}
	reg.Load(ctx, actor)

	assert.Equal(t, actor, reg.Actor())
	assert.Len(t, reg.Students(), 1)
	assert.Len(t, reg.Subjects(), 1)
	assert.Len(t, reg.Classes(), 1)
	assert.Len(t, reg.Attendances(), 1)
	assert.Len(t, reg.Grades(), 1)

	// only profile rows with the teacher role become teachers
	teachers := reg.Teachers()
	require.Len(t, teachers, 1)
	assert.Equal(t, "Maria Souza", teachers[0].Name)

	// reverse views are derived from the forward keys
	assert.Equal(t, []string{subRow.String("id")}, teachers[0].Subjects)
	classes := reg.Classes()
	require.Len(t, classes, 1)
	assert.Equal(t, []string{stuRow.String("id")}, classes[0].StudentIDs)
}

func Test_Registry_Load_partialFailure(t *testing.T) {
	reg, st, _ := setup(t)

	seedRow(t, st, store.TableStudents, store.Row{
		"name": "Ana Silva", "email": "ana@escola.br", "registration": "2024001", "class_id": nil, "phone": "",
	})
	seedRow(t, st, store.TableSubjects, store.Row{
		"name": "Matemática", "teacher_id": nil, "workload": 80,
	})

	// a failing collection is left empty, the rest still hydrate
	st.SetError(store.TableSubjects, errors.New("boom"))
	reg.Load(ctx, auth.Actor{ID: "a1", Role: auth.RoleAdmin})

	assert.Len(t, reg.Students(), 1)
	assert.Empty(t, reg.Subjects())

	// a later reload picks the collection back up
	st.SetError(store.TableSubjects, nil)
	reg.Load(ctx, auth.Actor{ID: "a1", Role: auth.RoleAdmin})
	assert.Len(t, reg.Subjects(), 1)
}

func Test_Registry_Watch(t *testing.T) {
	reg, st, idp := setup(t)

	seedRow(t, st, store.TableStudents, store.Row{
		"name": "Ana Silva", "email": "ana@escola.br", "registration": "2024001", "class_id": nil, "phone": "",
	})
	actor, err := idp.Seed(auth.Actor{Name: "Admin", Email: "admin@escola.br", Role: auth.RoleAdmin}, "secret")
	require.NoError(t, err)

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go reg.Watch(watchCtx)

	_, err = idp.SignIn(ctx, actor.Email, "secret")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return !reg.Actor().IsZero()
	}, time.Second, 10*time.Millisecond, "signing in should hydrate the registry")
	assert.Len(t, reg.Students(), 1)

	require.NoError(t, idp.SignOut(ctx))
	require.Eventually(t, func() bool {
		return reg.Actor().IsZero()
	}, time.Second, 10*time.Millisecond, "signing out should reset the registry")
	assert.Empty(t, reg.Students())
}

func Test_Registry_classMembership(t *testing.T) {
	reg, _, _ := setup(t)

	ana, err := reg.AddStudent(ctx, NewStudent{Name: "Ana Silva", Email: "ana@escola.br", Registration: "2024001"})
	require.NoError(t, err)
	bruno, err := reg.AddStudent(ctx, NewStudent{Name: "Bruno Costa", Email: "bruno@escola.br", Registration: "2024002"})
	require.NoError(t, err)

	// creating a class with members sets each student's forward key
	cls, err := reg.AddClass(ctx, NewClass{Name: "9A", Year: 2024, Period: "Manhã", StudentIDs: []string{ana.ID, bruno.ID}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{ana.ID, bruno.ID}, cls.StudentIDs)

	got, err := reg.GetStudent(ana.ID)
	require.NoError(t, err)
	assert.Equal(t, cls.ID, got.ClassID)

	// membership is ordered by student name
	gotCls, err := reg.GetClass(cls.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{ana.ID, bruno.ID}, gotCls.StudentIDs)

	// replacing the membership clears removed students
	gotCls, err = reg.UpdateClass(ctx, cls.ID, UpdateClass{StudentIDs: []string{bruno.ID}})
	require.NoError(t, err)
	assert.Equal(t, []string{bruno.ID}, gotCls.StudentIDs)

	got, err = reg.GetStudent(ana.ID)
	require.NoError(t, err)
	assert.Empty(t, got.ClassID)

	// moving a student from the student side updates the class view
	_, err = reg.UpdateStudent(ctx, ana.ID, UpdateStudent{ClassID: &cls.ID})
	require.NoError(t, err)
	gotCls, err = reg.GetClass(cls.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{ana.ID, bruno.ID}, gotCls.StudentIDs)

	// a nil StudentIDs keeps the membership as is
	gotCls, err = reg.UpdateClass(ctx, cls.ID, UpdateClass{Name: "9B"})
	require.NoError(t, err)
	assert.Equal(t, "9B", gotCls.Name)
	assert.Len(t, gotCls.StudentIDs, 2)

	// deleting a member shrinks the view
	require.NoError(t, reg.DeleteStudent(ctx, bruno.ID))
	gotCls, err = reg.GetClass(cls.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{ana.ID}, gotCls.StudentIDs)

	// deleting the class unassigns everyone
	require.NoError(t, reg.DeleteClass(ctx, cls.ID))
	got, err = reg.GetStudent(ana.ID)
	require.NoError(t, err)
	assert.Empty(t, got.ClassID)
	_, err = reg.GetClass(cls.ID)
	assert.Equal(t, ErrNotFound, err)
}

func Test_Registry_teacherSubjects(t *testing.T) {
	reg, _, _ := setup(t)

	math, err := reg.AddSubject(ctx, NewSubject{Name: "Matemática", Workload: 80})
	require.NoError(t, err)
	port, err := reg.AddSubject(ctx, NewSubject{Name: "Português", Workload: 60})
	require.NoError(t, err)

	// creating a teacher with listed subjects claims them
	tch, tempPwd, err := reg.AddTeacher(ctx, NewTeacher{Name: "Maria Souza", Email: "maria@escola.br", Subjects: []string{math.ID}})
	require.NoError(t, err)
	assert.Len(t, tempPwd, 10)
	assert.Equal(t, []string{math.ID}, tch.Subjects)

	gotSub, err := reg.GetSubject(math.ID)
	require.NoError(t, err)
	assert.Equal(t, tch.ID, gotSub.TeacherID)

	// replacing the set releases removed subjects and claims added ones
	gotTch, err := reg.UpdateTeacher(ctx, tch.ID, UpdateTeacher{Subjects: []string{port.ID}})
	require.NoError(t, err)
	assert.Equal(t, []string{port.ID}, gotTch.Subjects)

	gotSub, err = reg.GetSubject(math.ID)
	require.NoError(t, err)
	assert.Empty(t, gotSub.TeacherID)

	// assigning from the subject side updates the teacher view
	_, err = reg.UpdateSubject(ctx, math.ID, UpdateSubject{TeacherID: &tch.ID})
	require.NoError(t, err)
	gotTch, err = reg.GetTeacher(tch.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{math.ID, port.ID}, gotTch.Subjects) // ordered by subject name

	// a nil Subjects keeps the assignment as is
	gotTch, err = reg.UpdateTeacher(ctx, tch.ID, UpdateTeacher{Phone: "11 91234-5678"})
	require.NoError(t, err)
	assert.Len(t, gotTch.Subjects, 2)

	// deleting a subject shrinks the view
	require.NoError(t, reg.DeleteSubject(ctx, port.ID))
	gotTch, err = reg.GetTeacher(tch.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{math.ID}, gotTch.Subjects)

	// deleting the teacher orphans their subjects
	require.NoError(t, reg.DeleteTeacher(ctx, tch.ID))
	gotSub, err = reg.GetSubject(math.ID)
	require.NoError(t, err)
	assert.Empty(t, gotSub.TeacherID)
}

func Test_Registry_AddTeacher_sendsCredential(t *testing.T) {
	reg, _, idp := setup(t)

	before := len(emailsvc.SentMessages)
	tch, tempPwd, err := reg.AddTeacher(ctx, NewTeacher{Name: "Maria Souza", Email: "maria@escola.br"})
	require.NoError(t, err)

	require.Len(t, emailsvc.SentMessages, before+1)
	msg := emailsvc.SentMessages[before]
	assert.Equal(t, tch.Email, msg.To[0].Address)
	assert.True(t, strings.Contains(msg.BodyStr, tempPwd))

	// the credential actually signs in
	_, err = idp.SignIn(ctx, tch.Email, tempPwd)
	assert.NoError(t, err)

	// duplicate identities are rejected before any profile write
	_, _, err = reg.AddTeacher(ctx, NewTeacher{Name: "Maria Souza", Email: "maria@escola.br"})
	assert.Equal(t, auth.ErrEmailExists, errors.Cause(err))
	assert.Len(t, reg.Teachers(), 1)
}

func Test_Registry_attendanceUpsert(t *testing.T) {
	reg, _, _ := setup(t)

	entry := AttendanceEntry{StudentID: "std1", SubjectID: "sub1", ClassID: "cls1", Date: "2024-03-15", Present: true}

	att, err := reg.SaveAttendance(ctx, entry)
	require.NoError(t, err)
	assert.True(t, att.Present)

	// same natural key mutates in place
	entry.Present = false
	again, err := reg.SaveAttendance(ctx, entry)
	require.NoError(t, err)
	assert.Equal(t, att.ID, again.ID)
	assert.False(t, again.Present)
	assert.Len(t, reg.Attendances(), 1)

	// a different date is a new record
	entry.Date = "2024-03-16"
	other, err := reg.SaveAttendance(ctx, entry)
	require.NoError(t, err)
	assert.NotEqual(t, att.ID, other.ID)
	assert.Len(t, reg.Attendances(), 2)

	require.NoError(t, reg.DeleteAttendance(ctx, other.ID))
	assert.Len(t, reg.Attendances(), 1)
	assert.Equal(t, ErrNotFound, reg.DeleteAttendance(ctx, other.ID))
}

func Test_Registry_gradeUpsert(t *testing.T) {
	reg, _, _ := setup(t)

	entry := GradeEntry{StudentID: "std1", SubjectID: "sub1", Quarter: 1, Value: 7.0}

	grd, err := reg.SaveGrade(ctx, entry)
	require.NoError(t, err)
	assert.Equal(t, 7.0, grd.Value)

	// re-saving the same (student, subject, quarter) replaces the value
	entry.Value = 8.5
	again, err := reg.SaveGrade(ctx, entry)
	require.NoError(t, err)
	assert.Equal(t, grd.ID, again.ID)
	assert.Equal(t, 8.5, again.Value)
	assert.Len(t, reg.Grades(), 1)

	// another quarter is a new record
	entry.Quarter = 2
	other, err := reg.SaveGrade(ctx, entry)
	require.NoError(t, err)
	assert.NotEqual(t, grd.ID, other.ID)
	assert.Len(t, reg.Grades(), 2)
}

func Test_Registry_updateAttendance(t *testing.T) {
	reg, st, _ := setup(t)

	att, err := reg.SaveAttendance(ctx, AttendanceEntry{StudentID: "std1", SubjectID: "sub1", ClassID: "cls1", Date: "2024-03-15", Present: true})
	require.NoError(t, err)

	// correcting by id rewrites key fields without inserting a duplicate
	present := false
	fixed, err := reg.UpdateAttendance(ctx, att.ID, UpdateAttendance{Date: "2024-03-14", Present: &present})
	require.NoError(t, err)
	assert.Equal(t, att.ID, fixed.ID)
	assert.Equal(t, "2024-03-14", fixed.Date)
	assert.False(t, fixed.Present)
	assert.Equal(t, "std1", fixed.StudentID)
	assert.Len(t, reg.Attendances(), 1)

	_, err = reg.UpdateAttendance(ctx, "missing", UpdateAttendance{Date: "2024-03-14"})
	assert.Equal(t, ErrNotFound, err)

	// remote failure leaves the record as it was
	st.SetError(store.TableAttendances, errors.New("remote down"))
	_, err = reg.UpdateAttendance(ctx, att.ID, UpdateAttendance{Date: "2024-03-13"})
	require.Error(t, err)
	assert.Equal(t, "2024-03-14", reg.Attendances()[0].Date)
}

func Test_Registry_updateGrade(t *testing.T) {
	reg, st, _ := setup(t)

	grd, err := reg.SaveGrade(ctx, GradeEntry{StudentID: "std1", SubjectID: "sub1", Quarter: 1, Value: 7.0})
	require.NoError(t, err)

	// correcting by id can zero the value and move the quarter
	value := 0.0
	fixed, err := reg.UpdateGrade(ctx, grd.ID, UpdateGrade{Quarter: 2, Value: &value})
	require.NoError(t, err)
	assert.Equal(t, grd.ID, fixed.ID)
	assert.Equal(t, 2, fixed.Quarter)
	assert.Equal(t, 0.0, fixed.Value)
	assert.Len(t, reg.Grades(), 1)

	_, err = reg.UpdateGrade(ctx, "missing", UpdateGrade{Quarter: 3})
	assert.Equal(t, ErrNotFound, err)

	// remote failure leaves the record as it was
	st.SetError(store.TableGrades, errors.New("remote down"))
	_, err = reg.UpdateGrade(ctx, grd.ID, UpdateGrade{Quarter: 4})
	require.Error(t, err)
	assert.Equal(t, 2, reg.Grades()[0].Quarter)
}

func Test_Registry_deleteStudent_orphansRecords(t *testing.T) {
	reg, _, _ := setup(t)

	stu, err := reg.AddStudent(ctx, NewStudent{Name: "Ana Silva", Email: "ana@escola.br", Registration: "2024001"})
	require.NoError(t, err)

	_, err = reg.SaveAttendance(ctx, AttendanceEntry{StudentID: stu.ID, SubjectID: "sub1", ClassID: "cls1", Date: "2024-03-15", Present: true})
	require.NoError(t, err)
	_, err = reg.SaveGrade(ctx, GradeEntry{StudentID: stu.ID, SubjectID: "sub1", Quarter: 1, Value: 9.0})
	require.NoError(t, err)

	// attendance and grades survive the student; consumers tolerate the dangling id
	require.NoError(t, reg.DeleteStudent(ctx, stu.ID))
	assert.Len(t, reg.Attendances(), 1)
	assert.Len(t, reg.Grades(), 1)
}

func Test_Registry_remoteFailureKeepsCache(t *testing.T) {
	reg, st, _ := setup(t)

	stu, err := reg.AddStudent(ctx, NewStudent{Name: "Ana Silva", Email: "ana@escola.br", Registration: "2024001"})
	require.NoError(t, err)

	st.SetError(store.TableStudents, errors.New("remote down"))

	// failed mutations surface the error and leave the cache untouched
	_, err = reg.UpdateStudent(ctx, stu.ID, UpdateStudent{Name: "Renamed"})
	require.Error(t, err)
	got, err := reg.GetStudent(stu.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana Silva", got.Name)

	err = reg.DeleteStudent(ctx, stu.ID)
	require.Error(t, err)
	assert.Len(t, reg.Students(), 1)

	_, err = reg.AddStudent(ctx, NewStudent{Name: "Bruno Costa", Email: "bruno@escola.br", Registration: "2024002"})
	require.Error(t, err)
	assert.Len(t, reg.Students(), 1)
}

func Test_Registry_unknownIDs(t *testing.T) {
	reg, _, _ := setup(t)

	_, err := reg.GetStudent("nope")
	assert.Equal(t, ErrNotFound, err)
	_, err = reg.UpdateStudent(ctx, "nope", UpdateStudent{Name: "X"})
	assert.Equal(t, ErrNotFound, err)
	assert.Equal(t, ErrNotFound, reg.DeleteStudent(ctx, "nope"))
	_, err = reg.UpdateTeacher(ctx, "nope", UpdateTeacher{})
	assert.Equal(t, ErrNotFound, err)
	assert.Equal(t, ErrNotFound, reg.DeleteTeacher(ctx, "nope"))
	_, err = reg.UpdateSubject(ctx, "nope", UpdateSubject{})
	assert.Equal(t, ErrNotFound, err)
	assert.Equal(t, ErrNotFound, reg.DeleteSubject(ctx, "nope"))
	_, err = reg.UpdateClass(ctx, "nope", UpdateClass{})
	assert.Equal(t, ErrNotFound, err)
	assert.Equal(t, ErrNotFound, reg.DeleteClass(ctx, "nope"))
	assert.Equal(t, ErrNotFound, reg.DeleteAttendance(ctx, "nope"))
	assert.Equal(t, ErrNotFound, reg.DeleteGrade(ctx, "nope"))
}
