package service

import (
	"context"
	"fmt"
	"time"

	"tupilates/domain"
	"tupilates/metrics"
	"tupilates/utils"
)

type bookingUseCase struct {
	repo     domain.ScheduleRepository
	settings domain.StudioSettings
}

func NewBookingUseCase(repo domain.ScheduleRepository, settings domain.StudioSettings) domain.BookingUseCase {
	return &bookingUseCase{repo: repo, settings: settings}
}

func (s *bookingUseCase) Reschedule(ctx context.Context, req domain.RescheduleRequest) (*domain.RescheduleResult, error) {
	errs := &domain.ErrorList{}
	hhmm, err := utils.NormalizeTime(req.Time)
	if err != nil {
		errs.Add(domain.KindValidation, "%s", err.Error())
	}
	date := utils.DateOnly(req.Date)
	if req.Weekday == time.Sunday {
		errs.Add(domain.KindValidation, "los domingos no hay clases")
	}
	if date.Weekday() != req.Weekday {
		errs.Add(domain.KindValidation, "la fecha %s no es %s", utils.FormatDate(date), utils.GetDayName(req.Weekday))
	}
	if date.Before(s.settings.Today()) {
		errs.Add(domain.KindValidation, "no se puede reprogramar a una fecha pasada (%s)", utils.FormatDate(date))
	}
	if errs.Has() {
		metrics.RecordReschedule("", false)
		return nil, errs
	}

	var result *domain.RescheduleResult
	err = s.repo.Transaction(ctx, func(tx domain.ScheduleRepository) error {
		student, err := tx.GetStudent(ctx, req.StudentID)
		if isNotFound(err) {
			return domain.Fail(domain.KindNotFound, "no existe el alumno %d", req.StudentID)
		}
		if err != nil {
			return err
		}

		origin, err := tx.GetInstance(ctx, req.OriginInstanceID)
		if isNotFound(err) {
			return domain.Fail(domain.KindNotFound, "no existe la clase %d", req.OriginInstanceID)
		}
		if err != nil {
			return err
		}

		regular, occasional, err := s.activeLink(ctx, tx, student.ID, origin.ID)
		if err != nil {
			return err
		}
		if regular == nil && occasional == nil {
			return domain.Fail(domain.KindNotFound, "el alumno no tiene una reserva activa en la clase del %s (%s)",
				utils.FormatDate(origin.Date), origin.Slot.StartTime)
		}

		label := utils.SlotLabel(req.Weekday, hhmm)
		slot, err := tx.FindSlot(ctx, req.Weekday, hhmm)
		if isNotFound(err) {
			return domain.Fail(domain.KindNotFound, "no existe el turno %s", label)
		}
		if err != nil {
			return err
		}

		dest, err := tx.FindInstance(ctx, slot.ID, date)
		if isNotFound(err) {
			return domain.Fail(domain.KindNotFound, "no hay clase programada el %s para el turno %s", utils.FormatDate(date), label)
		}
		if err != nil {
			return err
		}
		if dest.ID == origin.ID {
			return domain.Fail(domain.KindValidation, "la clase de destino es la misma que la de origen")
		}

		occupied, err := tx.CountInstanceOccupancy(ctx, dest.ID)
		if err != nil {
			return err
		}
		if available(s.settings, occupied) <= 0 {
			return domain.Fail(domain.KindConflict, "la clase del %s (%s) está completa", utils.FormatDate(date), label)
		}

		booked, err := studentBookedOn(ctx, tx, student.ID, dest.ID)
		if err != nil {
			return err
		}
		if booked {
			return domain.Fail(domain.KindConflict, "el alumno ya está anotado en la clase del %s (%s)", utils.FormatDate(date), label)
		}

		category := domain.CategoryRegular
		if regular != nil {
			err = s.moveRegular(ctx, tx, regular, dest)
		} else {
			category = domain.CategoryOccasional
			err = s.moveOccasional(ctx, tx, occasional, dest)
		}
		if err != nil {
			return err
		}

		result = &domain.RescheduleResult{
			Message: fmt.Sprintf("Clase reprogramada del %s %s al %s %s",
				utils.FormatDate(origin.Date), origin.Slot.StartTime, utils.FormatDate(date), hhmm),
			Category:    category,
			Origin:      domain.ClassRef{InstanceID: origin.ID, Date: utils.FormatDate(origin.Date), Time: origin.Slot.StartTime},
			Destination: domain.ClassRef{InstanceID: dest.ID, Date: utils.FormatDate(date), Time: hhmm},
		}
		return nil
	})

	if err != nil {
		metrics.RecordReschedule("", false)
		return nil, err
	}
	metrics.RecordReschedule(result.Category, true)
	return result, nil
}

// activeLink finds the student's booking on the instance, regular first.
func (s *bookingUseCase) activeLink(ctx context.Context, tx domain.ScheduleRepository, studentID, instanceID uint) (*domain.RegularAttendance, *domain.OccasionalAttendance, error) {
	regular, err := tx.FindRegular(ctx, studentID, instanceID, domain.RegularActive)
	if err == nil {
		return regular, nil, nil
	}
	if !isNotFound(err) {
		return nil, nil, err
	}

	occasional, err := tx.FindOccasional(ctx, studentID, instanceID)
	if isNotFound(err) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	if !contains(domain.OccasionalActive, occasional.Status) {
		return nil, nil, nil
	}
	return nil, occasional, nil
}

func (s *bookingUseCase) moveRegular(ctx context.Context, tx domain.ScheduleRepository, origin *domain.RegularAttendance, dest *domain.ClassInstance) error {
	origin.Status = domain.StatusRescheduled
	if err := tx.SaveRegularAttendance(ctx, origin); err != nil {
		return err
	}
	originID := origin.ID
	return tx.SaveRegularAttendance(ctx, &domain.RegularAttendance{
		PackageAssignmentID: origin.PackageAssignmentID,
		ClassInstanceID:     dest.ID,
		Status:              domain.StatusRecovered,
		RescheduledFromID:   &originID,
	})
}

func (s *bookingUseCase) moveOccasional(ctx context.Context, tx domain.ScheduleRepository, origin *domain.OccasionalAttendance, dest *domain.ClassInstance) error {
	origin.Status = domain.StatusCancelled
	if err := tx.SaveOccasionalAttendance(ctx, origin); err != nil {
		return err
	}

	// (student, instance) is unique: reuse a cancelled row on the destination
	row, err := tx.FindOccasional(ctx, origin.StudentID, dest.ID)
	if isNotFound(err) {
		row = &domain.OccasionalAttendance{StudentID: origin.StudentID, ClassInstanceID: dest.ID}
	} else if err != nil {
		return err
	}
	originID := origin.ID
	row.Status = domain.StatusReserved
	row.RescheduledFromID = &originID
	return tx.SaveOccasionalAttendance(ctx, row)
}

func (s *bookingUseCase) UpcomingBookings(ctx context.Context, studentID uint, from *time.Time) (*domain.UpcomingBookings, error) {
	student, err := s.repo.GetStudent(ctx, studentID)
	if isNotFound(err) {
		return nil, domain.Fail(domain.KindNotFound, "no existe el alumno %d", studentID)
	}
	if err != nil {
		return nil, err
	}

	out := &domain.UpcomingBookings{StudentID: studentID, Bookings: []domain.Booking{}}
	if student.Status == domain.StudentInactive {
		out.Inactive = true
		out.Message = fmt.Sprintf("%s está inactivo/a, no tiene clases próximas",
			utils.DisplayName(student.Person.Name, student.Person.Surname))
		return out, nil
	}

	minDate := s.settings.Today()
	if from != nil {
		minDate = utils.DateOnly(*from)
	}

	regular, err := s.repo.ListRegularByStudent(ctx, studentID, &minDate, domain.RegularActive)
	if err != nil {
		return nil, err
	}
	occasional, err := s.repo.ListOccasionalByStudent(ctx, studentID, &minDate, domain.OccasionalActive)
	if err != nil {
		return nil, err
	}

	for _, row := range regular {
		out.Bookings = append(out.Bookings, regularBooking(row))
	}
	for _, row := range occasional {
		out.Bookings = append(out.Bookings, occasionalBooking(row))
	}
	sortBookings(out.Bookings)
	return out, nil
}
