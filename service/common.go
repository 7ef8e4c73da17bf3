package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"tupilates/domain"
	"tupilates/utils"
)

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}

func available(settings domain.StudioSettings, occupied int) int {
	return settings.Capacity - occupied
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func validateStudentData(data domain.StudentData, errs *domain.ErrorList) {
	if strings.TrimSpace(data.Name) == "" {
		errs.Add(domain.KindValidation, "el nombre es obligatorio")
	}
	if strings.TrimSpace(data.Surname) == "" {
		errs.Add(domain.KindValidation, "el apellido es obligatorio")
	}
	if strings.TrimSpace(data.Phone) == "" {
		errs.Add(domain.KindValidation, "el teléfono es obligatorio")
	}
}

// lookupStudent finds the student sharing phone and accent-insensitive full
// name with data. It returns nil when there is none.
func lookupStudent(ctx context.Context, repo domain.ScheduleRepository, data domain.StudentData) (*domain.Student, *domain.Person, error) {
	persons, err := repo.FindPersonsByPhone(ctx, strings.TrimSpace(data.Phone))
	if err != nil {
		return nil, nil, err
	}
	key := utils.NameKey(data.Name, data.Surname)
	for i := range persons {
		if utils.NameKey(persons[i].Name, persons[i].Surname) != key {
			continue
		}
		student, err := repo.FindStudentByPerson(ctx, persons[i].ID)
		if isNotFound(err) {
			return nil, &persons[i], nil
		}
		if err != nil {
			return nil, nil, err
		}
		return student, &persons[i], nil
	}
	return nil, nil, nil
}

// findOrCreateStudent returns the existing student for data or creates the
// person and student with the given status.
func findOrCreateStudent(ctx context.Context, repo domain.ScheduleRepository, data domain.StudentData, status string) (*domain.Student, error) {
	student, person, err := lookupStudent(ctx, repo, data)
	if err != nil {
		return nil, err
	}
	if student != nil {
		if data.TaxID != nil && student.Person.TaxID == nil {
			student.Person.TaxID = data.TaxID
			if err := repo.SavePerson(ctx, &student.Person); err != nil {
				return nil, err
			}
		}
		return student, nil
	}

	if person == nil {
		person = &domain.Person{
			Name:    strings.TrimSpace(data.Name),
			Surname: strings.TrimSpace(data.Surname),
			Phone:   strings.TrimSpace(data.Phone),
			TaxID:   data.TaxID,
			Notes:   data.Notes,
		}
		if err := repo.SavePerson(ctx, person); err != nil {
			return nil, err
		}
	}

	student = &domain.Student{
		PersonID: person.ID,
		Person:   *person,
		Channel:  data.Channel,
		Status:   status,
	}
	if err := repo.SaveStudent(ctx, student); err != nil {
		return nil, err
	}
	return student, nil
}

// studentBookedOn reports whether the student holds a place on the instance.
func studentBookedOn(ctx context.Context, repo domain.ScheduleRepository, studentID, instanceID uint) (bool, error) {
	_, err := repo.FindRegular(ctx, studentID, instanceID, domain.RegularOccupying)
	if err == nil {
		return true, nil
	}
	if !isNotFound(err) {
		return false, err
	}

	occ, err := repo.FindOccasional(ctx, studentID, instanceID)
	if isNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return contains(domain.OccasionalOccupying, occ.Status), nil
}

func sortBookings(bookings []domain.Booking) {
	sort.SliceStable(bookings, func(i, j int) bool {
		if bookings[i].Date != bookings[j].Date {
			return bookings[i].Date < bookings[j].Date
		}
		return bookings[i].Time < bookings[j].Time
	})
}

func regularBooking(row domain.RegularAttendance) domain.Booking {
	inst := row.ClassInstance
	return domain.Booking{
		InstanceID: inst.ID,
		Date:       utils.FormatDate(inst.Date),
		Weekday:    utils.GetDayName(inst.Date.Weekday()),
		Time:       inst.Slot.StartTime,
		Category:   domain.CategoryRegular,
		Status:     row.Status,
	}
}

func occasionalBooking(row domain.OccasionalAttendance) domain.Booking {
	inst := row.ClassInstance
	return domain.Booking{
		InstanceID: inst.ID,
		Date:       utils.FormatDate(inst.Date),
		Weekday:    utils.GetDayName(inst.Date.Weekday()),
		Time:       inst.Slot.StartTime,
		Category:   domain.CategoryOccasional,
		Status:     row.Status,
	}
}
