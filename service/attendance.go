package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tupilates/domain"
	"tupilates/metrics"
	"tupilates/utils"
)

type rosterEntry struct {
	key        string
	student    *domain.Student
	regular    *domain.RegularAttendance
	occasional *domain.OccasionalAttendance
}

// buildRoster indexes the bookings of an instance by normalized full name.
// Names shared by more than one booking are left out as ambiguous.
func buildRoster(regular []domain.RegularAttendance, occasional []domain.OccasionalAttendance) map[string]*rosterEntry {
	roster := make(map[string]*rosterEntry)
	ambiguous := make(map[string]bool)

	add := func(e *rosterEntry) {
		if ambiguous[e.key] {
			return
		}
		if _, dup := roster[e.key]; dup {
			delete(roster, e.key)
			ambiguous[e.key] = true
			return
		}
		roster[e.key] = e
	}

	for i := range regular {
		st := &regular[i].PackageAssignment.Student
		add(&rosterEntry{
			key:     utils.NameKey(st.Person.Name, st.Person.Surname),
			student: st,
			regular: &regular[i],
		})
	}
	for i := range occasional {
		st := &occasional[i].Student
		add(&rosterEntry{
			key:        utils.NameKey(st.Person.Name, st.Person.Surname),
			student:    st,
			occasional: &occasional[i],
		})
	}
	return roster
}

func (s *bookingUseCase) TakeAttendance(ctx context.Context, req domain.AttendanceRequest) (*domain.AttendanceResult, error) {
	errs := &domain.ErrorList{}
	hhmm, err := utils.NormalizeTime(req.Time)
	if err != nil {
		errs.Add(domain.KindValidation, "%s", err.Error())
	}

	today := s.settings.Today()
	date := utils.PreviousOccurrence(today, req.Weekday)
	if req.Date != nil {
		date = utils.DateOnly(*req.Date)
		if date.Weekday() != req.Weekday {
			errs.Add(domain.KindValidation, "la fecha %s no es %s", utils.FormatDate(date), utils.GetDayName(req.Weekday))
		}
	}
	if date.After(today) {
		errs.Add(domain.KindValidation, "no se puede tomar asistencia de una fecha futura (%s)", utils.FormatDate(date))
	}
	if len(req.Attended)+len(req.Absent) == 0 {
		errs.Add(domain.KindValidation, "debe indicar al menos un nombre presente o ausente")
	}
	if errs.Has() {
		return nil, errs
	}

	label := utils.SlotLabel(req.Weekday, hhmm)
	result := &domain.AttendanceResult{
		Date:      utils.FormatDate(date),
		Matched:   []string{},
		Unmatched: []string{},
		Skipped:   []string{},
	}
	updated := map[string]int{}

	err = s.repo.Transaction(ctx, func(tx domain.ScheduleRepository) error {
		slot, err := tx.FindSlot(ctx, req.Weekday, hhmm)
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

		regular, err := tx.ListRegularByInstance(ctx, instance.ID, domain.RegularRoster)
		if err != nil {
			return err
		}
		occasional, err := tx.ListOccasionalByInstance(ctx, instance.ID, domain.OccasionalRoster)
		if err != nil {
			return err
		}
		roster := buildRoster(regular, occasional)
		processed := make(map[*rosterEntry]bool)

		apply := func(names []domain.PersonName, status string) error {
			for _, n := range names {
				input := strings.Join(strings.Fields(n.Name+" "+n.Surname), " ")
				entry, _, stage := utils.ResolveName(n.Name, n.Surname, roster, s.settings.FuzzyThreshold)
				if stage == utils.MatchNone {
					result.Unmatched = append(result.Unmatched, input)
					continue
				}
				if processed[entry] {
					result.Skipped = append(result.Skipped, input)
					continue
				}
				processed[entry] = true

				if err := s.mark(ctx, tx, entry, status, date); err != nil {
					return err
				}
				result.Matched = append(result.Matched, input)
				result.Updated++
				updated[status]++
			}
			return nil
		}

		// absent first: a name in both lists stays absent
		if err := apply(req.Absent, domain.StatusAbsent); err != nil {
			return err
		}
		return apply(req.Attended, domain.StatusAttended)
	})
	if err != nil {
		return nil, err
	}

	for status, n := range updated {
		metrics.RecordAttendance(status, n)
	}
	metrics.RecordUnmatched(len(result.Unmatched))
	return result, nil
}

func (s *bookingUseCase) mark(ctx context.Context, tx domain.ScheduleRepository, entry *rosterEntry, status string, date time.Time) error {
	if entry.regular != nil {
		entry.regular.Status = status
		if err := tx.SaveRegularAttendance(ctx, entry.regular); err != nil {
			return err
		}
	} else {
		entry.occasional.Status = status
		if err := tx.SaveOccasionalAttendance(ctx, entry.occasional); err != nil {
			return err
		}
	}

	if status != domain.StatusAttended {
		return nil
	}
	st := entry.student
	if st.LastAttendedAt != nil && !st.LastAttendedAt.Before(date) {
		return nil
	}
	d := date
	st.LastAttendedAt = &d
	if err := tx.SaveStudent(ctx, st); err != nil {
		return fmt.Errorf("failed to update last attendance: %w", err)
	}
	return nil
}
