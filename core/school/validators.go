package school

import "github.com/escolabr/escola/core"

func (ns *NewStudent) Validate() error {
	ns.Name = core.CleanString(ns.Name)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	ns.Registration = core.CleanString(ns.Registration)
	return core.Validate.Struct(ns)
}

func (us *UpdateStudent) Validate() error {
	us.Name = core.CleanString(us.Name)
	us.Email = core.CleanString(us.Email, true)
	us.Registration = core.CleanString(us.Registration)
	return core.Validate.Struct(us)
}

func (nt *NewTeacher) Validate() error {
	nt.Name = core.CleanString(nt.Name)
	nt.Email = core.CleanString(nt.Email, true)
	return core.Validate.Struct(nt)
}

func (ut *UpdateTeacher) Validate() error {
	ut.Name = core.CleanString(ut.Name)
	ut.Email = core.CleanString(ut.Email, true)
	return core.Validate.Struct(ut)
}

func (ns *NewSubject) Validate() error {
	ns.Name = core.CleanString(ns.Name)
	return core.Validate.Struct(ns)
}

func (us *UpdateSubject) Validate() error {
	us.Name = core.CleanString(us.Name)
	return core.Validate.Struct(us)
}

func (nc *NewClass) Validate() error {
	nc.Name = core.CleanString(nc.Name)
	nc.Period = core.CleanString(nc.Period)
	return core.Validate.Struct(nc)
}

func (uc *UpdateClass) Validate() error {
	uc.Name = core.CleanString(uc.Name)
	uc.Period = core.CleanString(uc.Period)
	return core.Validate.Struct(uc)
}

func (ae *AttendanceEntry) Validate() error { return core.Validate.Struct(ae) }

func (ge *GradeEntry) Validate() error { return core.Validate.Struct(ge) }

func (ua *UpdateAttendance) Validate() error { return core.Validate.Struct(ua) }

func (ug *UpdateGrade) Validate() error { return core.Validate.Struct(ug) }
