package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"tupilates/domain"
	"tupilates/metrics"
	"tupilates/utils"

	"github.com/rs/zerolog/log"
)

type allocationUseCase struct {
	repo     domain.ScheduleRepository
	settings domain.StudioSettings
}

func NewAllocationUseCase(repo domain.ScheduleRepository, settings domain.StudioSettings) domain.AllocationUseCase {
	return &allocationUseCase{repo: repo, settings: settings}
}

// ClassesPerSlot splits a package over the chosen slots under the remainder policy.
func ClassesPerSlot(classCount, slots int, policy string) (int, error) {
	if slots <= 0 {
		return 0, fmt.Errorf("debe indicar al menos un turno")
	}
	perSlot := classCount / slots
	remainder := classCount % slots

	switch policy {
	case domain.RemainderRoundUp:
		if remainder != 0 {
			perSlot++
		}
	case domain.RemainderError:
		if remainder != 0 {
			return 0, fmt.Errorf("el paquete de %d clases no se puede repartir en %d turnos sin sobrantes", classCount, slots)
		}
	}

	if perSlot == 0 {
		return 0, fmt.Errorf("el paquete de %d clases no alcanza para %d turnos", classCount, slots)
	}
	return perSlot, nil
}

type chosenSlot struct {
	slot  *domain.Slot
	label string
}

type reservation struct {
	slot     chosenSlot
	instance *domain.ClassInstance
}

func (s *allocationUseCase) RegisterRegular(ctx context.Context, req domain.RegularRegistration) (*domain.RegularResult, error) {
	errs := &domain.ErrorList{}
	validateStudentData(req.StudentData, errs)
	if req.PackageSize <= 0 {
		errs.Add(domain.KindValidation, "la cantidad de clases del paquete debe ser mayor a cero")
	}
	if len(req.Slots) == 0 {
		errs.Add(domain.KindValidation, "debe indicar al menos un turno")
	}

	var result *domain.RegularResult
	err := s.repo.Transaction(ctx, func(tx domain.ScheduleRepository) error {
		slots, err := s.checkSlots(ctx, tx, req.Slots, errs)
		if err != nil {
			return err
		}

		var pkg *domain.Package
		if req.PackageSize > 0 {
			pkg, err = tx.FindPackageByClassCount(ctx, req.PackageSize)
			if isNotFound(err) {
				errs.Add(domain.KindNotFound, "no existe un paquete de %d clases", req.PackageSize)
			} else if err != nil {
				return err
			}
		}

		perSlot := 0
		if pkg != nil && len(req.Slots) > 0 {
			perSlot, err = ClassesPerSlot(pkg.ClassCount, len(req.Slots), s.settings.RemainderPolicy)
			if err != nil {
				errs.Add(domain.KindValidation, "%s", err.Error())
			}
		}

		var existing *domain.Student
		if !errs.Has() {
			existing, _, err = lookupStudent(ctx, tx, req.StudentData)
			if err != nil {
				return err
			}
		}

		reservations, err := s.checkInstances(ctx, tx, slots, perSlot, req.StartDate, existing, errs)
		if err != nil {
			return err
		}
		if errs.Has() {
			return errs
		}

		result, err = s.createRegular(ctx, tx, req, pkg, slots, reservations)
		return err
	})

	classes := 0
	if result != nil {
		classes = len(result.Dates)
	}
	metrics.RecordRegistration(domain.CategoryRegular, err == nil, classes)
	if err != nil {
		return nil, err
	}

	log.Info().Uint("student_id", result.StudentID).Int("classes", classes).Msg("regular student registered")
	return result, nil
}

// checkSlots parses and locks every requested slot, recording each problem.
func (s *allocationUseCase) checkSlots(ctx context.Context, tx domain.ScheduleRepository, labels []string, errs *domain.ErrorList) ([]chosenSlot, error) {
	seen := make(map[string]bool, len(labels))
	var slots []chosenSlot

	for _, raw := range labels {
		weekday, hhmm, err := utils.ParseSlotLabel(raw)
		if err != nil {
			errs.Add(domain.KindValidation, "%s", err.Error())
			continue
		}
		label := utils.SlotLabel(weekday, hhmm)
		if weekday == time.Sunday {
			errs.Add(domain.KindValidation, "los domingos no hay clases (%s)", label)
			continue
		}
		if seen[label] {
			errs.Add(domain.KindValidation, "el turno %s está repetido", label)
			continue
		}
		seen[label] = true

		slot, err := tx.FindSlot(ctx, weekday, hhmm)
		if isNotFound(err) {
			errs.Add(domain.KindNotFound, "no existe el turno %s", label)
			continue
		}
		if err != nil {
			return nil, err
		}

		occupied, err := tx.CountSlotActiveAssignments(ctx, slot.ID)
		if err != nil {
			return nil, err
		}
		if available(s.settings, occupied) <= 0 {
			errs.Add(domain.KindConflict, "el turno %s está completo", label)
			continue
		}
		slots = append(slots, chosenSlot{slot: slot, label: label})
	}
	return slots, nil
}

// checkInstances projects perSlot weekly dates for each slot and verifies the
// class of every date exists, has room and is not already booked by student.
func (s *allocationUseCase) checkInstances(
	ctx context.Context,
	tx domain.ScheduleRepository,
	slots []chosenSlot,
	perSlot int,
	startDate *time.Time,
	student *domain.Student,
	errs *domain.ErrorList,
) ([]reservation, error) {
	today := s.settings.Today()
	var out []reservation

	for _, c := range slots {
		search := utils.NextOccurrence(today, c.slot.Weekday)
		if startDate != nil {
			search = utils.DateOnly(*startDate)
		}
		first := utils.WalkToWeekday(search, c.slot.Weekday)

		for i := 0; i < perSlot; i++ {
			date := first.AddDate(0, 0, 7*i)
			day := utils.FormatDate(date)

			instance, err := tx.FindInstance(ctx, c.slot.ID, date)
			if isNotFound(err) {
				errs.Add(domain.KindNotFound, "no hay clase programada el %s para el turno %s", day, c.label)
				continue
			}
			if err != nil {
				return nil, err
			}

			occupied, err := tx.CountInstanceOccupancy(ctx, instance.ID)
			if err != nil {
				return nil, err
			}
			if available(s.settings, occupied) <= 0 {
				errs.Add(domain.KindConflict, "la clase del %s (%s) está completa", day, c.label)
				continue
			}

			if student != nil {
				booked, err := studentBookedOn(ctx, tx, student.ID, instance.ID)
				if err != nil {
					return nil, err
				}
				if booked {
					errs.Add(domain.KindConflict, "el alumno ya está anotado en la clase del %s (%s)", day, c.label)
					continue
				}
			}
			out = append(out, reservation{slot: c, instance: instance})
		}
	}
	return out, nil
}

func (s *allocationUseCase) createRegular(
	ctx context.Context,
	tx domain.ScheduleRepository,
	req domain.RegularRegistration,
	pkg *domain.Package,
	slots []chosenSlot,
	reservations []reservation,
) (*domain.RegularResult, error) {
	student, err := findOrCreateStudent(ctx, tx, req.StudentData, domain.StudentRegular)
	if err != nil {
		return nil, err
	}
	if student.Status != domain.StudentRegular {
		student.Status = domain.StudentRegular
		if err := tx.SaveStudent(ctx, student); err != nil {
			return nil, err
		}
	}

	sort.Slice(reservations, func(i, j int) bool {
		return reservations[i].instance.Date.Before(reservations[j].instance.Date)
	})

	startDate := s.settings.Today()
	if req.StartDate != nil {
		startDate = utils.DateOnly(*req.StartDate)
	} else if len(reservations) > 0 {
		startDate = reservations[0].instance.Date
	}

	assignment := &domain.PackageAssignment{
		StudentID:     student.ID,
		PackageID:     pkg.ID,
		Status:        domain.AssignmentActive,
		PaymentStatus: domain.PaymentPending,
		StartDate:     startDate,
	}
	if err := tx.SaveAssignment(ctx, assignment); err != nil {
		return nil, err
	}

	for _, c := range slots {
		if err := tx.CreateSlotLink(ctx, &domain.PackageSlotLink{PackageAssignmentID: assignment.ID, SlotID: c.slot.ID}); err != nil {
			return nil, err
		}
		if err := tx.IncrementSlotOccupancy(ctx, c.slot.ID, s.settings.Capacity); err != nil {
			return nil, err
		}
	}

	dates := make([]string, 0, len(reservations))
	for _, r := range reservations {
		row := &domain.RegularAttendance{
			PackageAssignmentID: assignment.ID,
			ClassInstanceID:     r.instance.ID,
			Status:              domain.StatusPending,
		}
		if err := tx.SaveRegularAttendance(ctx, row); err != nil {
			return nil, err
		}
		dates = append(dates, utils.FormatDate(r.instance.Date))
	}

	return &domain.RegularResult{
		Message: fmt.Sprintf("%s quedó registrado/a con el paquete de %d clases (%d clases reservadas)",
			utils.DisplayName(student.Person.Name, student.Person.Surname), pkg.ClassCount, len(dates)),
		StudentID:    student.ID,
		AssignmentID: assignment.ID,
		Dates:        dates,
	}, nil
}

func (s *allocationUseCase) RegisterOccasional(ctx context.Context, req domain.OccasionalRegistration) (*domain.OccasionalResult, error) {
	errs := &domain.ErrorList{}
	validateStudentData(req.StudentData, errs)

	hhmm, err := utils.NormalizeTime(req.Time)
	if err != nil {
		errs.Add(domain.KindValidation, "%s", err.Error())
	}

	today := s.settings.Today()
	var date time.Time
	switch {
	case req.Date != nil:
		date = utils.DateOnly(*req.Date)
		if req.Weekday != nil && *req.Weekday != date.Weekday() {
			errs.Add(domain.KindValidation, "la fecha %s no es %s", utils.FormatDate(date), utils.GetDayName(*req.Weekday))
		}
		if date.Before(today) {
			errs.Add(domain.KindValidation, "no se puede reservar una fecha pasada (%s)", utils.FormatDate(date))
		}
	case req.Weekday != nil:
		date = utils.NextOccurrence(today, *req.Weekday)
	default:
		errs.Add(domain.KindValidation, "debe indicar el día o la fecha de la clase")
	}
	if !date.IsZero() && date.Weekday() == time.Sunday {
		errs.Add(domain.KindValidation, "los domingos no hay clases")
	}
	if errs.Has() {
		metrics.RecordRegistration(domain.CategoryOccasional, false, 0)
		return nil, errs
	}

	label := utils.SlotLabel(date.Weekday(), hhmm)
	var result *domain.OccasionalResult
	err = s.repo.Transaction(ctx, func(tx domain.ScheduleRepository) error {
		slot, err := tx.FindSlot(ctx, date.Weekday(), hhmm)
		if isNotFound(err) {
			return domain.Fail(domain.KindNotFound, "no existe el turno %s", label)
		}
		if err != nil {
			return err
		}

		instance, err := tx.FindInstance(ctx, slot.ID, date)
		if isNotFound(err) {
			return domain.Fail(domain.KindNotFound, "no hay clase programada el %s para el turno %s", utils.FormatDate(date), label)
		}
		if err != nil {
			return err
		}

		existing, _, err := lookupStudent(ctx, tx, req.StudentData)
		if err != nil {
			return err
		}
		var previous *domain.OccasionalAttendance
		if existing != nil {
			if booked, err := studentBookedOn(ctx, tx, existing.ID, instance.ID); err != nil {
				return err
			} else if booked {
				return domain.Fail(domain.KindConflict, "el alumno ya tiene una reserva en la clase del %s (%s)", utils.FormatDate(date), label)
			}
			previous, err = tx.FindOccasional(ctx, existing.ID, instance.ID)
			if err != nil && !isNotFound(err) {
				return err
			}
		}

		occupied, err := tx.CountInstanceOccupancy(ctx, instance.ID)
		if err != nil {
			return err
		}
		if available(s.settings, occupied) <= 0 {
			return domain.Fail(domain.KindConflict, "la clase del %s (%s) está completa", utils.FormatDate(date), label)
		}

		student, err := findOrCreateStudent(ctx, tx, req.StudentData, domain.StudentOccasional)
		if err != nil {
			return err
		}

		row := previous
		if row == nil {
			row = &domain.OccasionalAttendance{StudentID: student.ID, ClassInstanceID: instance.ID}
		}
		row.Status = domain.StatusReserved
		row.RescheduledFromID = nil
		if err := tx.SaveOccasionalAttendance(ctx, row); err != nil {
			return err
		}

		result = &domain.OccasionalResult{
			Message: fmt.Sprintf("%s tiene reservada la clase del %s",
				utils.DisplayName(student.Person.Name, student.Person.Surname), utils.FormatDate(date)),
			StudentID: student.ID,
			Date:      utils.FormatDate(date),
			SlotLabel: label,
		}
		return nil
	})

	metrics.RecordRegistration(domain.CategoryOccasional, err == nil, 1)
	if err != nil {
		return nil, err
	}
	return result, nil
}
