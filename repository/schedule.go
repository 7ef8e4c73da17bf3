package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tupilates/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type scheduleRepository struct {
	db *gorm.DB
	// locking is set on repositories bound to a transaction; slot and
	// instance reads then take row locks.
	locking bool
}

func NewScheduleRepository(db *gorm.DB) domain.ScheduleRepository {
	return &scheduleRepository{db: db}
}

func (r *scheduleRepository) conn(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx)
}

func (r *scheduleRepository) lock(q *gorm.DB) *gorm.DB {
	if r.locking {
		return q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}

// withStatuses filters on column when statuses is not empty.
func withStatuses(q *gorm.DB, column string, statuses []string) *gorm.DB {
	if len(statuses) == 0 {
		return q
	}
	return q.Where(column+" IN ?", statuses)
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return fmt.Errorf("failed to fetch %s: %w", what, err)
}

func (r *scheduleRepository) Transaction(ctx context.Context, fn func(repo domain.ScheduleRepository) error) error {
	if r.locking {
		return fn(r)
	}

	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&scheduleRepository{db: tx, locking: true}); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ---- Instructor ----

func (r *scheduleRepository) GetInstructor(ctx context.Context, id uint) (*domain.Instructor, error) {
	var instructor domain.Instructor
	if err := r.conn(ctx).Preload("Person").First(&instructor, id).Error; err != nil {
		return nil, notFound(err, "instructor")
	}
	return &instructor, nil
}

func (r *scheduleRepository) CreateInstructor(ctx context.Context, instructor *domain.Instructor) error {
	if err := r.conn(ctx).Create(instructor).Error; err != nil {
		return fmt.Errorf("failed to create instructor: %w", err)
	}
	return nil
}

// ---- Slots ----

func (r *scheduleRepository) ListSlots(ctx context.Context) ([]domain.Slot, error) {
	var slots []domain.Slot
	if err := r.conn(ctx).Order("weekday ASC, start_time ASC").Find(&slots).Error; err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}
	return slots, nil
}

func (r *scheduleRepository) ListSlotsByWeekday(ctx context.Context, weekday time.Weekday) ([]domain.Slot, error) {
	var slots []domain.Slot
	if err := r.conn(ctx).Where("weekday = ?", weekday).Order("start_time ASC").Find(&slots).Error; err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}
	return slots, nil
}

func (r *scheduleRepository) FindSlot(ctx context.Context, weekday time.Weekday, startTime string) (*domain.Slot, error) {
	var slot domain.Slot
	err := r.lock(r.conn(ctx)).
		Where("weekday = ? AND start_time = ?", weekday, startTime).
		First(&slot).Error
	if err != nil {
		return nil, notFound(err, "slot")
	}
	return &slot, nil
}

func (r *scheduleRepository) CreateSlotIfAbsent(ctx context.Context, slot *domain.Slot) (bool, error) {
	res := r.conn(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "weekday"}, {Name: "start_time"}},
			DoNothing: true,
		}).
		Create(slot)
	if res.Error != nil {
		return false, fmt.Errorf("failed to create slot: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *scheduleRepository) CountSlotActiveAssignments(ctx context.Context, slotID uint) (int, error) {
	var n int64
	err := r.conn(ctx).Model(&domain.PackageSlotLink{}).
		Joins("JOIN package_assignments ON package_assignments.id = package_slot_links.package_assignment_id").
		Where("package_slot_links.slot_id = ? AND package_assignments.status = ?", slotID, domain.AssignmentActive).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count slot assignments: %w", err)
	}
	return int(n), nil
}

func (r *scheduleRepository) IncrementSlotOccupancy(ctx context.Context, slotID uint, capacity int) error {
	err := r.conn(ctx).Model(&domain.Slot{}).
		Where("id = ?", slotID).
		Updates(map[string]interface{}{
			"occupied_places": gorm.Expr("occupied_places + 1"),
			"state":           gorm.Expr("CASE WHEN occupied_places + 1 >= ? THEN ? ELSE ? END", capacity, domain.SlotFull, domain.SlotFree),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update slot occupancy: %w", err)
	}
	return nil
}

const rebuildSlotOccupancySQL = `
UPDATE slots SET
	occupied_places = sub.n,
	state = CASE WHEN sub.n >= ? THEN ? ELSE ? END
FROM (
	SELECT s.id, COUNT(pa.id) AS n
	FROM slots s
	LEFT JOIN package_slot_links l ON l.slot_id = s.id
	LEFT JOIN package_assignments pa ON pa.id = l.package_assignment_id AND pa.status = ?
	GROUP BY s.id
) sub
WHERE slots.id = sub.id`

func (r *scheduleRepository) RebuildSlotOccupancy(ctx context.Context, capacity int) error {
	err := r.conn(ctx).Exec(rebuildSlotOccupancySQL, capacity, domain.SlotFull, domain.SlotFree, domain.AssignmentActive).Error
	if err != nil {
		return fmt.Errorf("failed to rebuild slot occupancy: %w", err)
	}
	return nil
}

// ---- Class instances ----

func (r *scheduleRepository) CreateInstanceIfAbsent(ctx context.Context, instance *domain.ClassInstance) (bool, error) {
	res := r.conn(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slot_id"}, {Name: "date"}},
			DoNothing: true,
		}).
		Create(instance)
	if res.Error != nil {
		return false, fmt.Errorf("failed to create class instance: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *scheduleRepository) FindInstance(ctx context.Context, slotID uint, date time.Time) (*domain.ClassInstance, error) {
	var instance domain.ClassInstance
	err := r.lock(r.conn(ctx)).
		Preload("Slot").
		Where("slot_id = ? AND date = ?", slotID, date).
		First(&instance).Error
	if err != nil {
		return nil, notFound(err, "class instance")
	}
	return &instance, nil
}

func (r *scheduleRepository) GetInstance(ctx context.Context, id uint) (*domain.ClassInstance, error) {
	var instance domain.ClassInstance
	if err := r.lock(r.conn(ctx)).Preload("Slot").First(&instance, id).Error; err != nil {
		return nil, notFound(err, "class instance")
	}
	return &instance, nil
}

func (r *scheduleRepository) ListInstancesBetween(ctx context.Context, from, to time.Time) ([]domain.ClassInstance, error) {
	var instances []domain.ClassInstance
	err := r.conn(ctx).
		Preload("Slot").
		Where("date BETWEEN ? AND ?", from, to).
		Order("date ASC, slot_id ASC").
		Find(&instances).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list class instances: %w", err)
	}
	return instances, nil
}

func (r *scheduleRepository) CountInstanceOccupancy(ctx context.Context, instanceID uint) (int, error) {
	var regular, occasional int64
	if err := r.conn(ctx).Model(&domain.RegularAttendance{}).
		Where("class_instance_id = ? AND status IN ?", instanceID, domain.RegularOccupying).
		Count(&regular).Error; err != nil {
		return 0, fmt.Errorf("failed to count regular attendance: %w", err)
	}
	if err := r.conn(ctx).Model(&domain.OccasionalAttendance{}).
		Where("class_instance_id = ? AND status IN ?", instanceID, domain.OccasionalOccupying).
		Count(&occasional).Error; err != nil {
		return 0, fmt.Errorf("failed to count occasional attendance: %w", err)
	}
	return int(regular + occasional), nil
}

// ---- Packages ----

func (r *scheduleRepository) FindPackageByClassCount(ctx context.Context, classCount int) (*domain.Package, error) {
	var pkg domain.Package
	if err := r.conn(ctx).Where("class_count = ?", classCount).First(&pkg).Error; err != nil {
		return nil, notFound(err, "package")
	}
	return &pkg, nil
}

func (r *scheduleRepository) CreatePackageIfAbsent(ctx context.Context, pkg *domain.Package) (bool, error) {
	res := r.conn(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "class_count"}}, DoNothing: true}).
		Create(pkg)
	if res.Error != nil {
		return false, fmt.Errorf("failed to create package: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// ---- People ----

func (r *scheduleRepository) FindPersonsByPhone(ctx context.Context, phone string) ([]domain.Person, error) {
	var persons []domain.Person
	if err := r.conn(ctx).Where("phone = ?", phone).Order("id ASC").Find(&persons).Error; err != nil {
		return nil, fmt.Errorf("failed to find persons: %w", err)
	}
	return persons, nil
}

func (r *scheduleRepository) SavePerson(ctx context.Context, person *domain.Person) error {
	if err := r.conn(ctx).Save(person).Error; err != nil {
		return fmt.Errorf("failed to save person: %w", err)
	}
	return nil
}

func (r *scheduleRepository) FindStudentByPerson(ctx context.Context, personID uint) (*domain.Student, error) {
	var student domain.Student
	if err := r.conn(ctx).Preload("Person").Where("person_id = ?", personID).First(&student).Error; err != nil {
		return nil, notFound(err, "student")
	}
	return &student, nil
}

func (r *scheduleRepository) GetStudent(ctx context.Context, id uint) (*domain.Student, error) {
	var student domain.Student
	if err := r.conn(ctx).Preload("Person").First(&student, id).Error; err != nil {
		return nil, notFound(err, "student")
	}
	return &student, nil
}

func (r *scheduleRepository) SaveStudent(ctx context.Context, student *domain.Student) error {
	if err := r.conn(ctx).Omit(clause.Associations).Save(student).Error; err != nil {
		return fmt.Errorf("failed to save student: %w", err)
	}
	return nil
}

func (r *scheduleRepository) CountStudentsByStatus(ctx context.Context) (map[string]int, error) {
	var rows []struct {
		Status string
		N      int
	}
	err := r.conn(ctx).Model(&domain.Student{}).
		Select("status, COUNT(*) AS n").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count students: %w", err)
	}
	out := make(map[string]int, len(rows))
	for _, row := range rows {
		out[row.Status] = row.N
	}
	return out, nil
}

// ---- Package assignments ----

func (r *scheduleRepository) SaveAssignment(ctx context.Context, assignment *domain.PackageAssignment) error {
	if err := r.conn(ctx).Omit(clause.Associations).Save(assignment).Error; err != nil {
		return fmt.Errorf("failed to save package assignment: %w", err)
	}
	return nil
}

func (r *scheduleRepository) GetAssignment(ctx context.Context, id uint) (*domain.PackageAssignment, error) {
	var assignment domain.PackageAssignment
	if err := r.lock(r.conn(ctx)).Preload("Package").First(&assignment, id).Error; err != nil {
		return nil, notFound(err, "package assignment")
	}
	return &assignment, nil
}

func (r *scheduleRepository) ListAssignmentsByStudent(ctx context.Context, studentID uint) ([]domain.PackageAssignment, error) {
	var assignments []domain.PackageAssignment
	err := r.conn(ctx).
		Preload("Package").
		Where("student_id = ?", studentID).
		Order("start_date DESC").
		Find(&assignments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list package assignments: %w", err)
	}
	return assignments, nil
}

func (r *scheduleRepository) ListActiveAssignments(ctx context.Context) ([]domain.PackageAssignment, error) {
	var assignments []domain.PackageAssignment
	err := r.conn(ctx).
		Preload("Package").
		Where("status = ?", domain.AssignmentActive).
		Order("id ASC").
		Find(&assignments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active assignments: %w", err)
	}
	return assignments, nil
}

func (r *scheduleRepository) CreateSlotLink(ctx context.Context, link *domain.PackageSlotLink) error {
	if err := r.conn(ctx).Omit(clause.Associations).Create(link).Error; err != nil {
		return fmt.Errorf("failed to link slot: %w", err)
	}
	return nil
}

// ---- Regular attendance ----

func (r *scheduleRepository) SaveRegularAttendance(ctx context.Context, row *domain.RegularAttendance) error {
	if err := r.conn(ctx).Omit(clause.Associations).Save(row).Error; err != nil {
		return fmt.Errorf("failed to save regular attendance: %w", err)
	}
	return nil
}

func (r *scheduleRepository) FindRegular(ctx context.Context, studentID, instanceID uint, statuses []string) (*domain.RegularAttendance, error) {
	var row domain.RegularAttendance
	q := r.conn(ctx).
		Joins("JOIN package_assignments ON package_assignments.id = regular_attendances.package_assignment_id").
		Where("package_assignments.student_id = ? AND regular_attendances.class_instance_id = ?", studentID, instanceID)
	err := withStatuses(q, "regular_attendances.status", statuses).
		Order("regular_attendances.id ASC").
		First(&row).Error
	if err != nil {
		return nil, notFound(err, "regular attendance")
	}
	return &row, nil
}

func (r *scheduleRepository) ListRegularByInstance(ctx context.Context, instanceID uint, statuses []string) ([]domain.RegularAttendance, error) {
	var rows []domain.RegularAttendance
	q := r.conn(ctx).
		Preload("PackageAssignment.Student.Person").
		Where("class_instance_id = ?", instanceID)
	err := withStatuses(q, "status", statuses).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list regular attendance: %w", err)
	}
	return rows, nil
}

func (r *scheduleRepository) ListRegularByStudent(ctx context.Context, studentID uint, from *time.Time, statuses []string) ([]domain.RegularAttendance, error) {
	q := r.conn(ctx).
		Preload("ClassInstance.Slot").
		Joins("JOIN package_assignments ON package_assignments.id = regular_attendances.package_assignment_id").
		Joins("JOIN class_instances ON class_instances.id = regular_attendances.class_instance_id").
		Where("package_assignments.student_id = ?", studentID)
	q = withStatuses(q, "regular_attendances.status", statuses)
	if from != nil {
		q = q.Where("class_instances.date >= ?", *from)
	}

	var rows []domain.RegularAttendance
	if err := q.Order("class_instances.date ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list student regular attendance: %w", err)
	}
	return rows, nil
}

func (r *scheduleRepository) CountRegularByAssignment(ctx context.Context, assignmentID uint, statuses []string) (int, error) {
	var n int64
	q := r.conn(ctx).Model(&domain.RegularAttendance{}).
		Where("package_assignment_id = ?", assignmentID)
	err := withStatuses(q, "status", statuses).Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count assignment attendance: %w", err)
	}
	return int(n), nil
}

// ---- Occasional attendance ----

func (r *scheduleRepository) SaveOccasionalAttendance(ctx context.Context, row *domain.OccasionalAttendance) error {
	if err := r.conn(ctx).Omit(clause.Associations).Save(row).Error; err != nil {
		return fmt.Errorf("failed to save occasional attendance: %w", err)
	}
	return nil
}

func (r *scheduleRepository) FindOccasional(ctx context.Context, studentID, instanceID uint) (*domain.OccasionalAttendance, error) {
	var row domain.OccasionalAttendance
	err := r.conn(ctx).
		Where("student_id = ? AND class_instance_id = ?", studentID, instanceID).
		First(&row).Error
	if err != nil {
		return nil, notFound(err, "occasional attendance")
	}
	return &row, nil
}

func (r *scheduleRepository) ListOccasionalByInstance(ctx context.Context, instanceID uint, statuses []string) ([]domain.OccasionalAttendance, error) {
	var rows []domain.OccasionalAttendance
	q := r.conn(ctx).
		Preload("Student.Person").
		Where("class_instance_id = ?", instanceID)
	err := withStatuses(q, "status", statuses).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list occasional attendance: %w", err)
	}
	return rows, nil
}

func (r *scheduleRepository) ListOccasionalByStudent(ctx context.Context, studentID uint, from *time.Time, statuses []string) ([]domain.OccasionalAttendance, error) {
	q := r.conn(ctx).
		Preload("ClassInstance.Slot").
		Joins("JOIN class_instances ON class_instances.id = occasional_attendances.class_instance_id").
		Where("occasional_attendances.student_id = ?", studentID)
	q = withStatuses(q, "occasional_attendances.status", statuses)
	if from != nil {
		q = q.Where("class_instances.date >= ?", *from)
	}

	var rows []domain.OccasionalAttendance
	if err := q.Order("class_instances.date ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list student occasional attendance: %w", err)
	}
	return rows, nil
}

// ---- Payments & audit ----

func (r *scheduleRepository) CreatePayment(ctx context.Context, payment *domain.Payment) error {
	if err := r.conn(ctx).Create(payment).Error; err != nil {
		return fmt.Errorf("failed to record payment: %w", err)
	}
	return nil
}

func (r *scheduleRepository) SumPayments(ctx context.Context, assignmentID uint) (float64, error) {
	var total float64
	err := r.conn(ctx).Model(&domain.Payment{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("package_assignment_id = ?", assignmentID).
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum payments: %w", err)
	}
	return total, nil
}

func (r *scheduleRepository) CreateGenerationRun(ctx context.Context, run *domain.GenerationRun) error {
	if err := r.conn(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("failed to record generation run: %w", err)
	}
	return nil
}
