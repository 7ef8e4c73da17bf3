package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	"tupilates/domain"
	"tupilates/utils"
)

type studentUseCase struct {
	repo     domain.ScheduleRepository
	settings domain.StudioSettings
}

func NewStudentUseCase(repo domain.ScheduleRepository, settings domain.StudioSettings) domain.StudentUseCase {
	return &studentUseCase{repo: repo, settings: settings}
}

// resolvePerson picks the person behind a phone number, using the name to
// disambiguate when the phone is shared.
func (s *studentUseCase) resolvePerson(ctx context.Context, repo domain.ScheduleRepository, lookup domain.StudentLookup) (*domain.Person, error) {
	phone := strings.TrimSpace(lookup.Phone)
	if phone == "" {
		return nil, domain.Fail(domain.KindValidation, "el teléfono es obligatorio")
	}

	persons, err := repo.FindPersonsByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	if len(persons) == 0 {
		return nil, domain.Fail(domain.KindNotFound, "no hay personas registradas con el teléfono %s", phone)
	}

	if strings.TrimSpace(lookup.Name) == "" {
		if len(persons) > 1 {
			return nil, domain.Fail(domain.KindAmbiguous,
				"hay %d personas con el teléfono %s, indique nombre y apellido", len(persons), phone)
		}
		return &persons[0], nil
	}

	byName := make(map[string]*domain.Person, len(persons))
	shared := make(map[string]bool)
	for i := range persons {
		key := utils.NameKey(persons[i].Name, persons[i].Surname)
		if _, dup := byName[key]; dup || shared[key] {
			delete(byName, key)
			shared[key] = true
			continue
		}
		byName[key] = &persons[i]
	}

	person, _, stage := utils.ResolveName(lookup.Name, lookup.Surname, byName, s.settings.FuzzyThreshold)
	if stage == utils.MatchNone {
		return nil, domain.Fail(domain.KindAmbiguous,
			"no se pudo identificar a %s entre las personas con el teléfono %s",
			strings.TrimSpace(lookup.Name+" "+lookup.Surname), phone)
	}
	return person, nil
}

func (s *studentUseCase) ResolveStudent(ctx context.Context, lookup domain.StudentLookup) (*domain.ResolvedStudent, error) {
	person, err := s.resolvePerson(ctx, s.repo, lookup)
	if err != nil {
		return nil, err
	}
	student, err := s.repo.FindStudentByPerson(ctx, person.ID)
	if isNotFound(err) {
		return nil, domain.Fail(domain.KindNotFound, "%s no está registrado/a como alumno/a", utils.DisplayName(person.Name, person.Surname))
	}
	if err != nil {
		return nil, err
	}
	return &domain.ResolvedStudent{
		StudentID: student.ID,
		Status:    student.Status,
		FullName:  utils.DisplayName(person.Name, person.Surname),
	}, nil
}

func (s *studentUseCase) UpdateTaxID(ctx context.Context, lookup domain.StudentLookup, taxID string) (string, error) {
	taxID = strings.TrimSpace(taxID)
	if taxID == "" {
		return "", domain.Fail(domain.KindValidation, "el RUC es obligatorio")
	}

	var message string
	err := s.repo.Transaction(ctx, func(tx domain.ScheduleRepository) error {
		person, err := s.resolvePerson(ctx, tx, lookup)
		if err != nil {
			return err
		}
		person.TaxID = &taxID
		if err := tx.SavePerson(ctx, person); err != nil {
			return err
		}
		message = fmt.Sprintf("RUC de %s actualizado a %s", utils.DisplayName(person.Name, person.Surname), taxID)
		return nil
	})
	if err != nil {
		return "", err
	}
	return message, nil
}

func (s *studentUseCase) StudentDetail(ctx context.Context, studentID uint) (*domain.StudentDetail, error) {
	student, err := s.repo.GetStudent(ctx, studentID)
	if isNotFound(err) {
		return nil, domain.Fail(domain.KindNotFound, "no existe el alumno %d", studentID)
	}
	if err != nil {
		return nil, err
	}

	assignments, err := s.repo.ListAssignmentsByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	detail := &domain.StudentDetail{
		Student:     *student,
		Assignments: []domain.AssignmentSummary{},
		History:     []domain.Booking{},
	}
	for _, a := range assignments {
		used, err := s.repo.CountRegularByAssignment(ctx, a.ID, []string{domain.StatusAttended, domain.StatusAbsent})
		if err != nil {
			return nil, err
		}
		pct := 0.0
		if a.Package.ClassCount > 0 {
			pct = math.Round(float64(used)/float64(a.Package.ClassCount)*1000) / 10
		}
		detail.Assignments = append(detail.Assignments, domain.AssignmentSummary{
			AssignmentID:  a.ID,
			ClassCount:    a.Package.ClassCount,
			Used:          used,
			UsagePercent:  pct,
			Status:        a.Status,
			PaymentStatus: a.PaymentStatus,
			StartDate:     utils.FormatDate(a.StartDate),
		})
	}

	regular, err := s.repo.ListRegularByStudent(ctx, studentID, nil, nil)
	if err != nil {
		return nil, err
	}
	occasional, err := s.repo.ListOccasionalByStudent(ctx, studentID, nil, nil)
	if err != nil {
		return nil, err
	}
	for _, row := range regular {
		detail.History = append(detail.History, regularBooking(row))
	}
	for _, row := range occasional {
		detail.History = append(detail.History, occasionalBooking(row))
	}
	sortBookings(detail.History)
	// most recent first
	for i, j := 0, len(detail.History)-1; i < j; i, j = i+1, j-1 {
		detail.History[i], detail.History[j] = detail.History[j], detail.History[i]
	}
	return detail, nil
}

var paymentMethods = []string{domain.MethodCash, domain.MethodTransfer, domain.MethodDebit, domain.MethodOther}

func (s *studentUseCase) RecordPayment(ctx context.Context, assignmentID uint, req domain.PaymentRequest) (*domain.PaymentResult, error) {
	errs := &domain.ErrorList{}
	if req.Amount <= 0 {
		errs.Add(domain.KindValidation, "el monto debe ser mayor a cero")
	}
	if !contains(paymentMethods, req.Method) {
		errs.Add(domain.KindValidation, "forma de pago inválida %q, use EF, TF, TD u OT", req.Method)
	}
	if errs.Has() {
		return nil, errs
	}

	paidAt := s.settings.Today()
	if req.PaidAt != nil {
		paidAt = utils.DateOnly(*req.PaidAt)
	}

	var result *domain.PaymentResult
	err := s.repo.Transaction(ctx, func(tx domain.ScheduleRepository) error {
		assignment, err := tx.GetAssignment(ctx, assignmentID)
		if isNotFound(err) {
			return domain.Fail(domain.KindNotFound, "no existe el paquete asignado %d", assignmentID)
		}
		if err != nil {
			return err
		}

		payment := &domain.Payment{
			PackageAssignmentID: assignment.ID,
			Amount:              req.Amount,
			Method:              req.Method,
			PaidAt:              paidAt,
		}
		if err := tx.CreatePayment(ctx, payment); err != nil {
			return err
		}

		total, err := tx.SumPayments(ctx, assignment.ID)
		if err != nil {
			return err
		}
		status := paymentStatus(total, assignment.Package.Price)
		if status != assignment.PaymentStatus {
			assignment.PaymentStatus = status
			if err := tx.SaveAssignment(ctx, assignment); err != nil {
				return err
			}
		}

		result = &domain.PaymentResult{PaymentID: payment.ID, TotalPaid: total, PaymentStatus: status}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func paymentStatus(total, price float64) string {
	switch {
	case total >= price:
		return domain.PaymentPaid
	case total > 0:
		return domain.PaymentPartial
	default:
		return domain.PaymentPending
	}
}
