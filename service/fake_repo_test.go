package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"tupilates/domain"
)

var (
	errFakeWrite     = errors.New("fake: write failed")
	errFakeDuplicate = errors.New("fake: duplicate occasional booking")
)

// fakeRepo is an in-memory ScheduleRepository. Reads return hydrated copies
// the way the gorm repository preloads associations; Transaction snapshots
// the state and restores it when fn fails.
type fakeRepo struct {
	nextID uint
	inTx   bool

	instructors map[uint]domain.Instructor
	persons     map[uint]domain.Person
	students    map[uint]domain.Student
	slots       map[uint]domain.Slot
	instances   map[uint]domain.ClassInstance
	packages    map[uint]domain.Package
	assignments map[uint]domain.PackageAssignment
	links       map[uint]domain.PackageSlotLink
	regular     map[uint]domain.RegularAttendance
	occasional  map[uint]domain.OccasionalAttendance
	payments    map[uint]domain.Payment
	runs        []domain.GenerationRun

	// failCreateInstanceOn makes CreateInstanceIfAbsent fail for that date.
	failCreateInstanceOn string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		instructors: map[uint]domain.Instructor{},
		persons:     map[uint]domain.Person{},
		students:    map[uint]domain.Student{},
		slots:       map[uint]domain.Slot{},
		instances:   map[uint]domain.ClassInstance{},
		packages:    map[uint]domain.Package{},
		assignments: map[uint]domain.PackageAssignment{},
		links:       map[uint]domain.PackageSlotLink{},
		regular:     map[uint]domain.RegularAttendance{},
		occasional:  map[uint]domain.OccasionalAttendance{},
		payments:    map[uint]domain.Payment{},
	}
}

func (r *fakeRepo) id() uint {
	r.nextID++
	return r.nextID
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

type fakeSnapshot struct {
	nextID      uint
	instructors map[uint]domain.Instructor
	persons     map[uint]domain.Person
	students    map[uint]domain.Student
	slots       map[uint]domain.Slot
	instances   map[uint]domain.ClassInstance
	packages    map[uint]domain.Package
	assignments map[uint]domain.PackageAssignment
	links       map[uint]domain.PackageSlotLink
	regular     map[uint]domain.RegularAttendance
	occasional  map[uint]domain.OccasionalAttendance
	payments    map[uint]domain.Payment
	runs        []domain.GenerationRun
}

func (r *fakeRepo) snapshot() fakeSnapshot {
	return fakeSnapshot{
		nextID:      r.nextID,
		instructors: copyMap(r.instructors),
		persons:     copyMap(r.persons),
		students:    copyMap(r.students),
		slots:       copyMap(r.slots),
		instances:   copyMap(r.instances),
		packages:    copyMap(r.packages),
		assignments: copyMap(r.assignments),
		links:       copyMap(r.links),
		regular:     copyMap(r.regular),
		occasional:  copyMap(r.occasional),
		payments:    copyMap(r.payments),
		runs:        append([]domain.GenerationRun(nil), r.runs...),
	}
}

func (r *fakeRepo) restore(s fakeSnapshot) {
	r.nextID = s.nextID
	r.instructors = s.instructors
	r.persons = s.persons
	r.students = s.students
	r.slots = s.slots
	r.instances = s.instances
	r.packages = s.packages
	r.assignments = s.assignments
	r.links = s.links
	r.regular = s.regular
	r.occasional = s.occasional
	r.payments = s.payments
	r.runs = s.runs
}

func (r *fakeRepo) Transaction(ctx context.Context, fn func(repo domain.ScheduleRepository) error) error {
	if r.inTx {
		return fn(r)
	}
	snap := r.snapshot()
	r.inTx = true
	defer func() { r.inTx = false }()

	if err := fn(r); err != nil {
		r.restore(snap)
		return err
	}
	return nil
}

// ---- hydration ----

func (r *fakeRepo) student(id uint) domain.Student {
	st := r.students[id]
	st.Person = r.persons[st.PersonID]
	return st
}

func (r *fakeRepo) instance(id uint) domain.ClassInstance {
	inst := r.instances[id]
	inst.Slot = r.slots[inst.SlotID]
	return inst
}

func (r *fakeRepo) assignment(id uint) domain.PackageAssignment {
	a := r.assignments[id]
	a.Package = r.packages[a.PackageID]
	a.Student = r.student(a.StudentID)
	return a
}

func (r *fakeRepo) regularRow(id uint) domain.RegularAttendance {
	row := r.regular[id]
	row.PackageAssignment = r.assignment(row.PackageAssignmentID)
	row.ClassInstance = r.instance(row.ClassInstanceID)
	return row
}

func (r *fakeRepo) occasionalRow(id uint) domain.OccasionalAttendance {
	row := r.occasional[id]
	row.Student = r.student(row.StudentID)
	row.ClassInstance = r.instance(row.ClassInstanceID)
	return row
}

func matchStatus(statuses []string, status string) bool {
	return len(statuses) == 0 || contains(statuses, status)
}

func sortedKeys[V any](m map[uint]V) []uint {
	keys := make([]uint, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// ---- Instructor ----

func (r *fakeRepo) GetInstructor(ctx context.Context, id uint) (*domain.Instructor, error) {
	inst, ok := r.instructors[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	inst.Person = r.persons[inst.PersonID]
	return &inst, nil
}

func (r *fakeRepo) CreateInstructor(ctx context.Context, instructor *domain.Instructor) error {
	if instructor.PersonID == 0 {
		if instructor.Person.ID == 0 {
			instructor.Person.ID = r.id()
		}
		r.persons[instructor.Person.ID] = instructor.Person
		instructor.PersonID = instructor.Person.ID
	}
	if instructor.ID == 0 {
		instructor.ID = r.id()
	}
	stored := *instructor
	stored.Person = domain.Person{}
	r.instructors[instructor.ID] = stored
	return nil
}

// ---- Slots ----

func (r *fakeRepo) ListSlots(ctx context.Context) ([]domain.Slot, error) {
	var out []domain.Slot
	for _, id := range sortedKeys(r.slots) {
		out = append(out, r.slots[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Weekday != out[j].Weekday {
			return out[i].Weekday < out[j].Weekday
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out, nil
}

func (r *fakeRepo) ListSlotsByWeekday(ctx context.Context, weekday time.Weekday) ([]domain.Slot, error) {
	all, _ := r.ListSlots(ctx)
	var out []domain.Slot
	for _, s := range all {
		if s.Weekday == weekday {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeRepo) FindSlot(ctx context.Context, weekday time.Weekday, startTime string) (*domain.Slot, error) {
	for _, id := range sortedKeys(r.slots) {
		s := r.slots[id]
		if s.Weekday == weekday && s.StartTime == startTime {
			return &s, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeRepo) CreateSlotIfAbsent(ctx context.Context, slot *domain.Slot) (bool, error) {
	if _, err := r.FindSlot(ctx, slot.Weekday, slot.StartTime); err == nil {
		return false, nil
	}
	slot.ID = r.id()
	if slot.State == "" {
		slot.State = domain.SlotFree
	}
	r.slots[slot.ID] = *slot
	return true, nil
}

func (r *fakeRepo) CountSlotActiveAssignments(ctx context.Context, slotID uint) (int, error) {
	seen := map[uint]bool{}
	for _, l := range r.links {
		if l.SlotID != slotID {
			continue
		}
		if r.assignments[l.PackageAssignmentID].Status == domain.AssignmentActive {
			seen[l.PackageAssignmentID] = true
		}
	}
	return len(seen), nil
}

func (r *fakeRepo) IncrementSlotOccupancy(ctx context.Context, slotID uint, capacity int) error {
	s := r.slots[slotID]
	s.OccupiedPlaces++
	s.State = domain.SlotFree
	if s.OccupiedPlaces >= capacity {
		s.State = domain.SlotFull
	}
	r.slots[slotID] = s
	return nil
}

func (r *fakeRepo) RebuildSlotOccupancy(ctx context.Context, capacity int) error {
	for id, s := range r.slots {
		n, _ := r.CountSlotActiveAssignments(ctx, id)
		s.OccupiedPlaces = n
		s.State = domain.SlotFree
		if n >= capacity {
			s.State = domain.SlotFull
		}
		r.slots[id] = s
	}
	return nil
}

// ---- Instances ----

func (r *fakeRepo) CreateInstanceIfAbsent(ctx context.Context, instance *domain.ClassInstance) (bool, error) {
	if r.failCreateInstanceOn != "" && instance.Date.Format("2006-01-02") == r.failCreateInstanceOn {
		return false, errFakeWrite
	}
	if _, err := r.FindInstance(ctx, instance.SlotID, instance.Date); err == nil {
		return false, nil
	}
	instance.ID = r.id()
	stored := *instance
	stored.Slot = domain.Slot{}
	r.instances[instance.ID] = stored
	return true, nil
}

func (r *fakeRepo) FindInstance(ctx context.Context, slotID uint, date time.Time) (*domain.ClassInstance, error) {
	for _, id := range sortedKeys(r.instances) {
		inst := r.instances[id]
		if inst.SlotID == slotID && inst.Date.Equal(date) {
			out := r.instance(id)
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeRepo) GetInstance(ctx context.Context, id uint) (*domain.ClassInstance, error) {
	if _, ok := r.instances[id]; !ok {
		return nil, domain.ErrNotFound
	}
	out := r.instance(id)
	return &out, nil
}

func (r *fakeRepo) ListInstancesBetween(ctx context.Context, from, to time.Time) ([]domain.ClassInstance, error) {
	var out []domain.ClassInstance
	for _, id := range sortedKeys(r.instances) {
		inst := r.instances[id]
		if inst.Date.Before(from) || inst.Date.After(to) {
			continue
		}
		out = append(out, r.instance(id))
	}
	return out, nil
}

func (r *fakeRepo) CountInstanceOccupancy(ctx context.Context, instanceID uint) (int, error) {
	n := 0
	for _, row := range r.regular {
		if row.ClassInstanceID == instanceID && contains(domain.RegularOccupying, row.Status) {
			n++
		}
	}
	for _, row := range r.occasional {
		if row.ClassInstanceID == instanceID && contains(domain.OccasionalOccupying, row.Status) {
			n++
		}
	}
	return n, nil
}

// ---- Packages ----

func (r *fakeRepo) FindPackageByClassCount(ctx context.Context, classCount int) (*domain.Package, error) {
	for _, id := range sortedKeys(r.packages) {
		p := r.packages[id]
		if p.ClassCount == classCount {
			return &p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeRepo) CreatePackageIfAbsent(ctx context.Context, pkg *domain.Package) (bool, error) {
	if _, err := r.FindPackageByClassCount(ctx, pkg.ClassCount); err == nil {
		return false, nil
	}
	pkg.ID = r.id()
	r.packages[pkg.ID] = *pkg
	return true, nil
}

// ---- People ----

func (r *fakeRepo) FindPersonsByPhone(ctx context.Context, phone string) ([]domain.Person, error) {
	var out []domain.Person
	for _, id := range sortedKeys(r.persons) {
		if p := r.persons[id]; p.Phone == phone {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakeRepo) SavePerson(ctx context.Context, person *domain.Person) error {
	if person.ID == 0 {
		person.ID = r.id()
	}
	r.persons[person.ID] = *person
	return nil
}

func (r *fakeRepo) FindStudentByPerson(ctx context.Context, personID uint) (*domain.Student, error) {
	for _, id := range sortedKeys(r.students) {
		if r.students[id].PersonID == personID {
			st := r.student(id)
			return &st, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeRepo) GetStudent(ctx context.Context, id uint) (*domain.Student, error) {
	if _, ok := r.students[id]; !ok {
		return nil, domain.ErrNotFound
	}
	st := r.student(id)
	return &st, nil
}

func (r *fakeRepo) SaveStudent(ctx context.Context, student *domain.Student) error {
	if student.ID == 0 {
		student.ID = r.id()
	}
	stored := *student
	stored.Person = domain.Person{}
	r.students[student.ID] = stored
	return nil
}

func (r *fakeRepo) CountStudentsByStatus(ctx context.Context) (map[string]int, error) {
	out := map[string]int{}
	for _, st := range r.students {
		out[st.Status]++
	}
	return out, nil
}

// ---- Assignments ----

func (r *fakeRepo) SaveAssignment(ctx context.Context, assignment *domain.PackageAssignment) error {
	if assignment.ID == 0 {
		assignment.ID = r.id()
	}
	stored := *assignment
	stored.Package = domain.Package{}
	stored.Student = domain.Student{}
	r.assignments[assignment.ID] = stored
	return nil
}

func (r *fakeRepo) GetAssignment(ctx context.Context, id uint) (*domain.PackageAssignment, error) {
	if _, ok := r.assignments[id]; !ok {
		return nil, domain.ErrNotFound
	}
	a := r.assignment(id)
	return &a, nil
}

func (r *fakeRepo) ListAssignmentsByStudent(ctx context.Context, studentID uint) ([]domain.PackageAssignment, error) {
	var out []domain.PackageAssignment
	for _, id := range sortedKeys(r.assignments) {
		if r.assignments[id].StudentID == studentID {
			out = append(out, r.assignment(id))
		}
	}
	return out, nil
}

func (r *fakeRepo) ListActiveAssignments(ctx context.Context) ([]domain.PackageAssignment, error) {
	var out []domain.PackageAssignment
	for _, id := range sortedKeys(r.assignments) {
		if r.assignments[id].Status == domain.AssignmentActive {
			out = append(out, r.assignment(id))
		}
	}
	return out, nil
}

func (r *fakeRepo) CreateSlotLink(ctx context.Context, link *domain.PackageSlotLink) error {
	link.ID = r.id()
	r.links[link.ID] = *link
	return nil
}

// ---- Regular attendance ----

func (r *fakeRepo) SaveRegularAttendance(ctx context.Context, row *domain.RegularAttendance) error {
	if row.ID == 0 {
		row.ID = r.id()
	}
	stored := *row
	stored.PackageAssignment = domain.PackageAssignment{}
	stored.ClassInstance = domain.ClassInstance{}
	r.regular[row.ID] = stored
	return nil
}

func (r *fakeRepo) FindRegular(ctx context.Context, studentID, instanceID uint, statuses []string) (*domain.RegularAttendance, error) {
	for _, id := range sortedKeys(r.regular) {
		row := r.regular[id]
		if row.ClassInstanceID != instanceID || !matchStatus(statuses, row.Status) {
			continue
		}
		if r.assignments[row.PackageAssignmentID].StudentID != studentID {
			continue
		}
		out := r.regularRow(id)
		return &out, nil
	}
	return nil, domain.ErrNotFound
}

func (r *fakeRepo) ListRegularByInstance(ctx context.Context, instanceID uint, statuses []string) ([]domain.RegularAttendance, error) {
	var out []domain.RegularAttendance
	for _, id := range sortedKeys(r.regular) {
		row := r.regular[id]
		if row.ClassInstanceID == instanceID && matchStatus(statuses, row.Status) {
			out = append(out, r.regularRow(id))
		}
	}
	return out, nil
}

func (r *fakeRepo) ListRegularByStudent(ctx context.Context, studentID uint, from *time.Time, statuses []string) ([]domain.RegularAttendance, error) {
	var out []domain.RegularAttendance
	for _, id := range sortedKeys(r.regular) {
		row := r.regularRow(id)
		if row.PackageAssignment.StudentID != studentID || !matchStatus(statuses, row.Status) {
			continue
		}
		if from != nil && row.ClassInstance.Date.Before(*from) {
			continue
		}
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ClassInstance.Date.Before(out[j].ClassInstance.Date) })
	return out, nil
}

func (r *fakeRepo) CountRegularByAssignment(ctx context.Context, assignmentID uint, statuses []string) (int, error) {
	n := 0
	for _, row := range r.regular {
		if row.PackageAssignmentID == assignmentID && matchStatus(statuses, row.Status) {
			n++
		}
	}
	return n, nil
}

// ---- Occasional attendance ----

func (r *fakeRepo) SaveOccasionalAttendance(ctx context.Context, row *domain.OccasionalAttendance) error {
	for id, other := range r.occasional {
		if id != row.ID && other.StudentID == row.StudentID && other.ClassInstanceID == row.ClassInstanceID {
			return errFakeDuplicate
		}
	}
	if row.ID == 0 {
		row.ID = r.id()
	}
	stored := *row
	stored.Student = domain.Student{}
	stored.ClassInstance = domain.ClassInstance{}
	r.occasional[row.ID] = stored
	return nil
}

func (r *fakeRepo) FindOccasional(ctx context.Context, studentID, instanceID uint) (*domain.OccasionalAttendance, error) {
	for _, id := range sortedKeys(r.occasional) {
		row := r.occasional[id]
		if row.StudentID == studentID && row.ClassInstanceID == instanceID {
			out := r.occasionalRow(id)
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeRepo) ListOccasionalByInstance(ctx context.Context, instanceID uint, statuses []string) ([]domain.OccasionalAttendance, error) {
	var out []domain.OccasionalAttendance
	for _, id := range sortedKeys(r.occasional) {
		row := r.occasional[id]
		if row.ClassInstanceID == instanceID && matchStatus(statuses, row.Status) {
			out = append(out, r.occasionalRow(id))
		}
	}
	return out, nil
}

func (r *fakeRepo) ListOccasionalByStudent(ctx context.Context, studentID uint, from *time.Time, statuses []string) ([]domain.OccasionalAttendance, error) {
	var out []domain.OccasionalAttendance
	for _, id := range sortedKeys(r.occasional) {
		row := r.occasionalRow(id)
		if row.StudentID != studentID || !matchStatus(statuses, row.Status) {
			continue
		}
		if from != nil && row.ClassInstance.Date.Before(*from) {
			continue
		}
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ClassInstance.Date.Before(out[j].ClassInstance.Date) })
	return out, nil
}

// ---- Payments ----

func (r *fakeRepo) CreatePayment(ctx context.Context, payment *domain.Payment) error {
	payment.ID = r.id()
	r.payments[payment.ID] = *payment
	return nil
}

func (r *fakeRepo) SumPayments(ctx context.Context, assignmentID uint) (float64, error) {
	total := 0.0
	for _, p := range r.payments {
		if p.PackageAssignmentID == assignmentID {
			total += p.Amount
		}
	}
	return total, nil
}

func (r *fakeRepo) CreateGenerationRun(ctx context.Context, run *domain.GenerationRun) error {
	run.ID = r.id()
	r.runs = append(r.runs, *run)
	return nil
}
