package school

import (
	"context"
	"fmt"
	"net/mail"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/escolabr/escola/auth"
	"github.com/escolabr/escola/core"
	"github.com/escolabr/escola/store"
)

// Registry mirrors the six remote collections into memory and owns the
// mutation protocol that keeps cross-references consistent.
//
// Reverse collections (Teacher.Subjects, Class.StudentIDs) are computed views
// over the forward keys (Subject.TeacherID, Student.ClassID); only forward
// keys are stored, locally and remotely.
//
// One mutex serializes everything, held across each operation's remote
// round-trip: at most one mutation is ever in flight against the cache, so
// cascades never interleave. Within an operation the remote write always
// completes before the local patch; on remote failure no local patch is
// applied and the error is both logged and returned.
type Registry struct {
	store store.Client
	idp   auth.IdentityProvider
	mail  core.EmailService
	log   core.Logger

	mu          sync.Mutex
	actor       auth.Actor
	students    map[string]Student
	teachers    map[string]Teacher
	subjects    map[string]Subject
	classes     map[string]Class
	attendances map[string]Attendance
	grades      map[string]Grade
}

func NewRegistry(st store.Client, idp auth.IdentityProvider, mailSvc core.EmailService, log core.Logger) *Registry {
	reg := &Registry{
		store: st,
		idp:   idp,
		mail:  mailSvc,
		log:   log,
	}
	reg.reset()
	return reg
}

// reset re-initializes the arenas; callers must hold reg.mu.
func (reg *Registry) reset() {
	reg.actor = auth.Actor{}
	reg.students = make(map[string]Student)
	reg.teachers = make(map[string]Teacher)
	reg.subjects = make(map[string]Subject)
	reg.classes = make(map[string]Class)
	reg.attendances = make(map[string]Attendance)
	reg.grades = make(map[string]Grade)
}

// fail logs an operation failure and returns the wrapped error.
func (reg *Registry) fail(op string, err error) error {
	err = errors.Wrap(err, op)
	reg.log.Error(op+" failed", err, reg.actor)
	return err
}

// Lifecycle

// Load hydrates all six collections for the given actor. Each collection is
// fetched independently: a failed fetch is logged and leaves that collection
// empty, it never aborts the session.
func (reg *Registry) Load(ctx context.Context, actor auth.Actor) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	reg.reset()
	reg.actor = actor

	if rows, err := reg.store.Select(ctx, store.TableStudents, store.Filter{}); err != nil {
		reg.log.Error("loading students failed", err, actor)
	} else {
		for _, row := range rows {
			stu := studentFromRow(row)
			reg.students[stu.ID] = stu
		}
	}

	if rows, err := reg.store.Select(ctx, store.TableProfiles, store.Eq("role", auth.RoleTeacher)); err != nil {
		reg.log.Error("loading teachers failed", err, actor)
	} else {
		for _, row := range rows {
			tch := teacherFromRow(row)
			reg.teachers[tch.ID] = tch
		}
	}

	if rows, err := reg.store.Select(ctx, store.TableSubjects, store.Filter{}); err != nil {
		reg.log.Error("loading subjects failed", err, actor)
	} else {
		for _, row := range rows {
			sub := subjectFromRow(row)
			reg.subjects[sub.ID] = sub
		}
	}

	if rows, err := reg.store.Select(ctx, store.TableClasses, store.Filter{}); err != nil {
		reg.log.Error("loading classes failed", err, actor)
	} else {
		for _, row := range rows {
			cls := classFromRow(row)
			reg.classes[cls.ID] = cls
		}
	}

	if rows, err := reg.store.Select(ctx, store.TableAttendances, store.Filter{}); err != nil {
		reg.log.Error("loading attendances failed", err, actor)
	} else {
		for _, row := range rows {
			att := attendanceFromRow(row)
			reg.attendances[att.ID] = att
		}
	}

	if rows, err := reg.store.Select(ctx, store.TableGrades, store.Filter{}); err != nil {
		reg.log.Error("loading grades failed", err, actor)
	} else {
		for _, row := range rows {
			grd := gradeFromRow(row)
			reg.grades[grd.ID] = grd
		}
	}
}

// Reset tears the session down, emptying every collection.
func (reg *Registry) Reset() {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.reset()
}

// Watch drives the registry lifecycle from identity-provider session events
// until ctx is done or the event channel closes. Run it on its own goroutine.
func (reg *Registry) Watch(ctx context.Context) {
	events := reg.idp.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			switch evt.Kind {
			case auth.SignedIn:
				reg.Load(ctx, evt.Actor)
			case auth.SignedOut:
				reg.Reset()
			}
		}
	}
}

// Actor returns the actor the registry was loaded for.
func (reg *Registry) Actor() auth.Actor {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return reg.actor
}

// Snapshots

// subjectIDsOf collects the subject ids taught by a teacher, ordered by
// subject name for determinism; callers must hold reg.mu.
func (reg *Registry) subjectIDsOf(teacherID string) []string {
	var subs []Subject
	for _, sub := range reg.subjects {
		if sub.TeacherID == teacherID {
			subs = append(subs, sub)
		}
	}
	sort.Slice(subs, func(i, j int) bool {
		if subs[i].Name != subs[j].Name {
			return subs[i].Name < subs[j].Name
		}
		return subs[i].ID < subs[j].ID
	})
	ids := make([]string, len(subs))
	for i, sub := range subs {
		ids[i] = sub.ID
	}
	return ids
}

// studentIDsOf collects the student ids enrolled in a class, ordered by
// student name for determinism; callers must hold reg.mu.
func (reg *Registry) studentIDsOf(classID string) []string {
	var studs []Student
	for _, stu := range reg.students {
		if stu.ClassID == classID {
			studs = append(studs, stu)
		}
	}
	sort.Slice(studs, func(i, j int) bool {
		if studs[i].Name != studs[j].Name {
			return studs[i].Name < studs[j].Name
		}
		return studs[i].ID < studs[j].ID
	})
	ids := make([]string, len(studs))
	for i, stu := range studs {
		ids[i] = stu.ID
	}
	return ids
}

func (reg *Registry) teacherView(tch Teacher) Teacher {
	tch.Subjects = reg.subjectIDsOf(tch.ID)
	return tch
}

func (reg *Registry) classView(cls Class) Class {
	cls.StudentIDs = reg.studentIDsOf(cls.ID)
	return cls
}

func (reg *Registry) Students() []Student {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	students := make([]Student, 0, len(reg.students))
	for _, stu := range reg.students {
		students = append(students, stu)
	}
	sort.Slice(students, func(i, j int) bool {
		if students[i].Name != students[j].Name {
			return students[i].Name < students[j].Name
		}
		return students[i].ID < students[j].ID
	})
	return students
}

func (reg *Registry) Teachers() []Teacher {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	teachers := make([]Teacher, 0, len(reg.teachers))
	for _, tch := range reg.teachers {
		teachers = append(teachers, reg.teacherView(tch))
	}
	sort.Slice(teachers, func(i, j int) bool {
		if teachers[i].Name != teachers[j].Name {
			return teachers[i].Name < teachers[j].Name
		}
		return teachers[i].ID < teachers[j].ID
	})
	return teachers
}

func (reg *Registry) Subjects() []Subject {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	subjects := make([]Subject, 0, len(reg.subjects))
	for _, sub := range reg.subjects {
		subjects = append(subjects, sub)
	}
	sort.Slice(subjects, func(i, j int) bool {
		if subjects[i].Name != subjects[j].Name {
			return subjects[i].Name < subjects[j].Name
		}
		return subjects[i].ID < subjects[j].ID
	})
	return subjects
}

func (reg *Registry) Classes() []Class {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	classes := make([]Class, 0, len(reg.classes))
	for _, cls := range reg.classes {
		classes = append(classes, reg.classView(cls))
	}
	sort.Slice(classes, func(i, j int) bool {
		if classes[i].Name != classes[j].Name {
			return classes[i].Name < classes[j].Name
		}
		return classes[i].ID < classes[j].ID
	})
	return classes
}

func (reg *Registry) Attendances() []Attendance {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	attendances := make([]Attendance, 0, len(reg.attendances))
	for _, att := range reg.attendances {
		attendances = append(attendances, att)
	}
	sort.Slice(attendances, func(i, j int) bool {
		if attendances[i].Date != attendances[j].Date {
			return attendances[i].Date < attendances[j].Date
		}
		return attendances[i].ID < attendances[j].ID
	})
	return attendances
}

func (reg *Registry) Grades() []Grade {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	grades := make([]Grade, 0, len(reg.grades))
	for _, grd := range reg.grades {
		grades = append(grades, grd)
	}
	sort.Slice(grades, func(i, j int) bool {
		if grades[i].Quarter != grades[j].Quarter {
			return grades[i].Quarter < grades[j].Quarter
		}
		return grades[i].ID < grades[j].ID
	})
	return grades
}

func (reg *Registry) GetStudent(id string) (Student, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	stu, ok := reg.students[id]
	if !ok {
		return Student{}, ErrNotFound
	}
	return stu, nil
}

func (reg *Registry) GetTeacher(id string) (Teacher, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	tch, ok := reg.teachers[id]
	if !ok {
		return Teacher{}, ErrNotFound
	}
	return reg.teacherView(tch), nil
}

func (reg *Registry) GetSubject(id string) (Subject, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	sub, ok := reg.subjects[id]
	if !ok {
		return Subject{}, ErrNotFound
	}
	return sub, nil
}

func (reg *Registry) GetClass(id string) (Class, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	cls, ok := reg.classes[id]
	if !ok {
		return Class{}, ErrNotFound
	}
	return reg.classView(cls), nil
}

// Student CRUD

func (reg *Registry) AddStudent(ctx context.Context, data NewStudent) (Student, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	rows, err := reg.store.Insert(ctx, store.TableStudents, []store.Row{data.row()})
	if err != nil {
		return Student{}, reg.fail("adding student", err)
	}
	stu := studentFromRow(rows[0])
	reg.students[stu.ID] = stu
	return stu, nil
}

func (reg *Registry) UpdateStudent(ctx context.Context, id string, data UpdateStudent) (Student, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	stu, ok := reg.students[id]
	if !ok {
		return Student{}, ErrNotFound
	}

	if patch := data.patch(); len(patch) > 0 {
		if err := reg.store.Update(ctx, store.TableStudents, patch, store.Eq("id", id)); err != nil {
			return Student{}, reg.fail("updating student", err)
		}
	}

	// shallow merge; class membership views pick the change up by construction
	if data.Name != "" {
		stu.Name = data.Name
	}
	if data.Email != "" {
		stu.Email = data.Email
	}
	if data.Registration != "" {
		stu.Registration = data.Registration
	}
	if data.Phone != "" {
		stu.Phone = data.Phone
	}
	if data.ClassID != nil {
		stu.ClassID = *data.ClassID
	}
	reg.students[id] = stu
	return stu, nil
}

// DeleteStudent removes the student only. Attendance and grade records
// referencing it are left orphaned on purpose; consumers must tolerate
// unresolvable student ids.
func (reg *Registry) DeleteStudent(ctx context.Context, id string) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if _, ok := reg.students[id]; !ok {
		return ErrNotFound
	}
	if err := reg.store.Delete(ctx, store.TableStudents, store.Eq("id", id)); err != nil {
		return reg.fail("deleting student", err)
	}
	delete(reg.students, id)
	return nil
}

// Teacher CRUD

// AddTeacher provisions a remote identity with a generated temporary
// credential, inserts the profile-role record, assigns any listed subjects and
// emails the credential to the teacher. The credential is also returned so the
// caller can display it exactly once.
func (reg *Registry) AddTeacher(ctx context.Context, data NewTeacher) (Teacher, string, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	tempPwd, err := GenerateTempPassword()
	if err != nil {
		return Teacher{}, "", reg.fail("adding teacher", err)
	}
	id, err := reg.idp.CreateIdentity(ctx, data.Email, tempPwd)
	if err != nil {
		return Teacher{}, "", reg.fail("adding teacher", err)
	}

	rows, err := reg.store.Insert(ctx, store.TableProfiles, []store.Row{data.row(id)})
	if err != nil {
		return Teacher{}, "", reg.fail("adding teacher", err)
	}
	tch := teacherFromRow(rows[0])

	// assign listed subjects so the forward keys actually reflect the set
	for _, subID := range data.Subjects {
		if err = reg.assignSubject(ctx, subID, tch.ID); err != nil {
			return Teacher{}, "", reg.fail("adding teacher", err)
		}
	}
	reg.teachers[tch.ID] = tch

	reg.mail.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: tch.Name, Address: tch.Email}},
		Subject: fmt.Sprintf("Welcome to %s", core.Conf.AppName),
		BodyStr: fmt.Sprintf(
			"Hello %s,\n\nYour teacher account has been created.\nTemporary password: %s\n\nPlease sign in and change it.",
			tch.Name, tempPwd,
		),
	})
	return reg.teacherView(tch), tempPwd, nil
}

func (reg *Registry) UpdateTeacher(ctx context.Context, id string, data UpdateTeacher) (Teacher, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	tch, ok := reg.teachers[id]
	if !ok {
		return Teacher{}, ErrNotFound
	}

	if patch := data.patch(); len(patch) > 0 {
		filter := store.Eq("id", id).AndEq("role", auth.RoleTeacher)
		if err := reg.store.Update(ctx, store.TableProfiles, patch, filter); err != nil {
			return Teacher{}, reg.fail("updating teacher", err)
		}
	}
	if data.Name != "" {
		tch.Name = data.Name
	}
	if data.Email != "" {
		tch.Email = data.Email
	}
	if data.Phone != "" {
		tch.Phone = data.Phone
	}
	reg.teachers[id] = tch

	if data.Subjects != nil {
		if err := reg.reconcileSubjects(ctx, id, data.Subjects); err != nil {
			return Teacher{}, reg.fail("updating teacher subjects", err)
		}
	}
	return reg.teacherView(tch), nil
}

// DeleteTeacher orphans the teacher's subjects remotely before deleting the
// profile, so the store never holds a dangling teacher_id.
func (reg *Registry) DeleteTeacher(ctx context.Context, id string) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if _, ok := reg.teachers[id]; !ok {
		return ErrNotFound
	}

	patch := store.Row{"teacher_id": fkValue("")}
	if err := reg.store.Update(ctx, store.TableSubjects, patch, store.Eq("teacher_id", id)); err != nil {
		return reg.fail("orphaning teacher subjects", err)
	}
	filter := store.Eq("id", id).AndEq("role", auth.RoleTeacher)
	if err := reg.store.Delete(ctx, store.TableProfiles, filter); err != nil {
		return reg.fail("deleting teacher", err)
	}

	for subID, sub := range reg.subjects {
		if sub.TeacherID == id {
			sub.TeacherID = ""
			reg.subjects[subID] = sub
		}
	}
	delete(reg.teachers, id)
	return nil
}

// reconcileSubjects diffs the teacher's current subject set (from the local
// snapshot) against want: removed subjects are cleared in one batched remote
// update, added ones assigned one remote call per id. Callers must hold reg.mu.
func (reg *Registry) reconcileSubjects(ctx context.Context, teacherID string, want []string) error {
	current := reg.subjectIDsOf(teacherID)

	wanted := make(map[string]struct{}, len(want))
	for _, subID := range want {
		wanted[subID] = struct{}{}
	}
	var removed []string
	for _, subID := range current {
		if _, keep := wanted[subID]; !keep {
			removed = append(removed, subID)
		}
	}
	has := make(map[string]struct{}, len(current))
	for _, subID := range current {
		has[subID] = struct{}{}
	}
	var added []string
	for _, subID := range want {
		if _, own := has[subID]; !own {
			added = append(added, subID)
		}
	}

	if len(removed) > 0 {
		patch := store.Row{"teacher_id": fkValue("")}
		if err := reg.store.Update(ctx, store.TableSubjects, patch, store.In("id", removed)); err != nil {
			return err
		}
		for _, subID := range removed {
			if sub, ok := reg.subjects[subID]; ok {
				sub.TeacherID = ""
				reg.subjects[subID] = sub
			}
		}
	}
	for _, subID := range added {
		if err := reg.assignSubject(ctx, subID, teacherID); err != nil {
			return err
		}
	}
	return nil
}

// assignSubject sets a subject's forward key remotely and locally; callers
// must hold reg.mu.
func (reg *Registry) assignSubject(ctx context.Context, subjectID, teacherID string) error {
	patch := store.Row{"teacher_id": fkValue(teacherID)}
	if err := reg.store.Update(ctx, store.TableSubjects, patch, store.Eq("id", subjectID)); err != nil {
		return err
	}
	if sub, ok := reg.subjects[subjectID]; ok {
		sub.TeacherID = teacherID
		reg.subjects[subjectID] = sub
	}
	return nil
}

// Subject CRUD

func (reg *Registry) AddSubject(ctx context.Context, data NewSubject) (Subject, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	rows, err := reg.store.Insert(ctx, store.TableSubjects, []store.Row{data.row()})
	if err != nil {
		return Subject{}, reg.fail("adding subject", err)
	}
	sub := subjectFromRow(rows[0])
	reg.subjects[sub.ID] = sub
	return sub, nil
}

func (reg *Registry) UpdateSubject(ctx context.Context, id string, data UpdateSubject) (Subject, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	sub, ok := reg.subjects[id]
	if !ok {
		return Subject{}, ErrNotFound
	}

	if patch := data.patch(); len(patch) > 0 {
		if err := reg.store.Update(ctx, store.TableSubjects, patch, store.Eq("id", id)); err != nil {
			return Subject{}, reg.fail("updating subject", err)
		}
	}
	if data.Name != "" {
		sub.Name = data.Name
	}
	if data.Workload > 0 {
		sub.Workload = data.Workload
	}
	if data.TeacherID != nil {
		sub.TeacherID = *data.TeacherID
	}
	reg.subjects[id] = sub
	return sub, nil
}

func (reg *Registry) DeleteSubject(ctx context.Context, id string) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if _, ok := reg.subjects[id]; !ok {
		return ErrNotFound
	}
	if err := reg.store.Delete(ctx, store.TableSubjects, store.Eq("id", id)); err != nil {
		return reg.fail("deleting subject", err)
	}
	delete(reg.subjects, id)
	return nil
}

// Class CRUD

func (reg *Registry) AddClass(ctx context.Context, data NewClass) (Class, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	rows, err := reg.store.Insert(ctx, store.TableClasses, []store.Row{data.row()})
	if err != nil {
		return Class{}, reg.fail("adding class", err)
	}
	cls := classFromRow(rows[0])

	for _, stuID := range data.StudentIDs {
		if err = reg.enrollStudent(ctx, stuID, cls.ID); err != nil {
			return Class{}, reg.fail("enrolling students", err)
		}
	}
	reg.classes[cls.ID] = cls
	return reg.classView(cls), nil
}

func (reg *Registry) UpdateClass(ctx context.Context, id string, data UpdateClass) (Class, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	cls, ok := reg.classes[id]
	if !ok {
		return Class{}, ErrNotFound
	}

	if patch := data.patch(); len(patch) > 0 {
		if err := reg.store.Update(ctx, store.TableClasses, patch, store.Eq("id", id)); err != nil {
			return Class{}, reg.fail("updating class", err)
		}
	}
	if data.Name != "" {
		cls.Name = data.Name
	}
	if data.Year > 0 {
		cls.Year = data.Year
	}
	if data.Period != "" {
		cls.Period = data.Period
	}
	reg.classes[id] = cls

	if data.StudentIDs != nil {
		if err := reg.reconcileMembership(ctx, id, data.StudentIDs); err != nil {
			return Class{}, reg.fail("updating class membership", err)
		}
	}
	return reg.classView(cls), nil
}

// DeleteClass unassigns every enrolled student with a single batched predicate
// update, then deletes the class row.
func (reg *Registry) DeleteClass(ctx context.Context, id string) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if _, ok := reg.classes[id]; !ok {
		return ErrNotFound
	}

	patch := store.Row{"class_id": fkValue("")}
	if err := reg.store.Update(ctx, store.TableStudents, patch, store.Eq("class_id", id)); err != nil {
		return reg.fail("unassigning class students", err)
	}
	if err := reg.store.Delete(ctx, store.TableClasses, store.Eq("id", id)); err != nil {
		return reg.fail("deleting class", err)
	}

	for stuID, stu := range reg.students {
		if stu.ClassID == id {
			stu.ClassID = ""
			reg.students[stuID] = stu
		}
	}
	delete(reg.classes, id)
	return nil
}

// reconcileMembership diffs the class's current derived membership against
// want: removed students are cleared in one batched remote update, added ones
// assigned one remote call per id. Callers must hold reg.mu.
func (reg *Registry) reconcileMembership(ctx context.Context, classID string, want []string) error {
	current := reg.studentIDsOf(classID)

	wanted := make(map[string]struct{}, len(want))
	for _, stuID := range want {
		wanted[stuID] = struct{}{}
	}
	var removed []string
	for _, stuID := range current {
		if _, keep := wanted[stuID]; !keep {
			removed = append(removed, stuID)
		}
	}
	has := make(map[string]struct{}, len(current))
	for _, stuID := range current {
		has[stuID] = struct{}{}
	}
	var added []string
	for _, stuID := range want {
		if _, in := has[stuID]; !in {
			added = append(added, stuID)
		}
	}

	if len(removed) > 0 {
		patch := store.Row{"class_id": fkValue("")}
		if err := reg.store.Update(ctx, store.TableStudents, patch, store.In("id", removed)); err != nil {
			return err
		}
		for _, stuID := range removed {
			if stu, ok := reg.students[stuID]; ok {
				stu.ClassID = ""
				reg.students[stuID] = stu
			}
		}
	}
	for _, stuID := range added {
		if err := reg.enrollStudent(ctx, stuID, classID); err != nil {
			return err
		}
	}
	return nil
}

// enrollStudent sets a student's forward key remotely and locally; callers
// must hold reg.mu.
func (reg *Registry) enrollStudent(ctx context.Context, studentID, classID string) error {
	patch := store.Row{"class_id": fkValue(classID)}
	if err := reg.store.Update(ctx, store.TableStudents, patch, store.Eq("id", studentID)); err != nil {
		return err
	}
	if stu, ok := reg.students[studentID]; ok {
		stu.ClassID = classID
		reg.students[studentID] = stu
	}
	return nil
}

// Attendance / Grade CRUD

// SaveAttendance upserts by natural key: a second save for the same
// (student, subject, class, date) updates the existing record's Present flag
// instead of inserting a duplicate.
func (reg *Registry) SaveAttendance(ctx context.Context, data AttendanceEntry) (Attendance, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	for id, att := range reg.attendances {
		if att.StudentID == data.StudentID && att.SubjectID == data.SubjectID &&
			att.ClassID == data.ClassID && att.Date == data.Date {
			patch := store.Row{"present": data.Present}
			if err := reg.store.Update(ctx, store.TableAttendances, patch, store.Eq("id", id)); err != nil {
				return Attendance{}, reg.fail("updating attendance", err)
			}
			att.Present = data.Present
			reg.attendances[id] = att
			return att, nil
		}
	}

	rows, err := reg.store.Insert(ctx, store.TableAttendances, []store.Row{data.row()})
	if err != nil {
		return Attendance{}, reg.fail("adding attendance", err)
	}
	att := attendanceFromRow(rows[0])
	reg.attendances[att.ID] = att
	return att, nil
}

// UpdateAttendance corrects an existing record in place by id, natural-key
// fields included. Unlike SaveAttendance it never inserts.
func (reg *Registry) UpdateAttendance(ctx context.Context, id string, data UpdateAttendance) (Attendance, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	att, ok := reg.attendances[id]
	if !ok {
		return Attendance{}, ErrNotFound
	}

	if patch := data.patch(); len(patch) > 0 {
		if err := reg.store.Update(ctx, store.TableAttendances, patch, store.Eq("id", id)); err != nil {
			return Attendance{}, reg.fail("updating attendance", err)
		}
	}

	if data.StudentID != "" {
		att.StudentID = data.StudentID
	}
	if data.SubjectID != "" {
		att.SubjectID = data.SubjectID
	}
	if data.ClassID != "" {
		att.ClassID = data.ClassID
	}
	if data.Date != "" {
		att.Date = data.Date
	}
	if data.Present != nil {
		att.Present = *data.Present
	}
	reg.attendances[id] = att
	return att, nil
}

func (reg *Registry) DeleteAttendance(ctx context.Context, id string) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if _, ok := reg.attendances[id]; !ok {
		return ErrNotFound
	}
	if err := reg.store.Delete(ctx, store.TableAttendances, store.Eq("id", id)); err != nil {
		return reg.fail("deleting attendance", err)
	}
	delete(reg.attendances, id)
	return nil
}

// SaveGrade upserts by natural key: a second save for the same
// (student, subject, quarter) updates the existing record's Value instead of
// inserting a duplicate.
func (reg *Registry) SaveGrade(ctx context.Context, data GradeEntry) (Grade, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	for id, grd := range reg.grades {
		if grd.StudentID == data.StudentID && grd.SubjectID == data.SubjectID && grd.Quarter == data.Quarter {
			patch := store.Row{"value": data.Value}
			if err := reg.store.Update(ctx, store.TableGrades, patch, store.Eq("id", id)); err != nil {
				return Grade{}, reg.fail("updating grade", err)
			}
			grd.Value = data.Value
			reg.grades[id] = grd
			return grd, nil
		}
	}

	rows, err := reg.store.Insert(ctx, store.TableGrades, []store.Row{data.row()})
	if err != nil {
		return Grade{}, reg.fail("adding grade", err)
	}
	grd := gradeFromRow(rows[0])
	reg.grades[grd.ID] = grd
	return grd, nil
}

// UpdateGrade corrects an existing record in place by id, natural-key fields
// included. Unlike SaveGrade it never inserts.
func (reg *Registry) UpdateGrade(ctx context.Context, id string, data UpdateGrade) (Grade, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	grd, ok := reg.grades[id]
	if !ok {
		return Grade{}, ErrNotFound
	}

	if patch := data.patch(); len(patch) > 0 {
		if err := reg.store.Update(ctx, store.TableGrades, patch, store.Eq("id", id)); err != nil {
			return Grade{}, reg.fail("updating grade", err)
		}
	}

	if data.StudentID != "" {
		grd.StudentID = data.StudentID
	}
	if data.SubjectID != "" {
		grd.SubjectID = data.SubjectID
	}
	if data.Quarter > 0 {
		grd.Quarter = data.Quarter
	}
	if data.Value != nil {
		grd.Value = *data.Value
	}
	reg.grades[id] = grd
	return grd, nil
}

func (reg *Registry) DeleteGrade(ctx context.Context, id string) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if _, ok := reg.grades[id]; !ok {
		return ErrNotFound
	}
	if err := reg.store.Delete(ctx, store.TableGrades, store.Eq("id", id)); err != nil {
		return reg.fail("deleting grade", err)
	}
	delete(reg.grades, id)
	return nil
}
