package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"tupilates/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassesPerSlot(t *testing.T) {
	tests := []struct {
		name    string
		classes int
		slots   int
		policy  string
		want    int
		wantErr bool
	}{
		{"even split", 8, 2, domain.RemainderDrop, 4, false},
		{"drop remainder", 8, 3, domain.RemainderDrop, 2, false},
		{"round up remainder", 8, 3, domain.RemainderRoundUp, 3, false},
		{"error on remainder", 8, 3, domain.RemainderError, 0, true},
		{"error policy without remainder", 12, 3, domain.RemainderError, 4, false},
		{"more slots than classes", 4, 5, domain.RemainderDrop, 0, true},
		{"no slots", 4, 0, domain.RemainderDrop, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ClassesPerSlot(tt.classes, tt.slots, tt.policy)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRegisterRegular_ReservesWeeklyDates(t *testing.T) {
	repo, settings := newStudio(t)
	uc := NewAllocationUseCase(repo, settings)

	res := registerRegular(t, uc, "maría josé", "pérez", "111", 8, nil, "Lunes 18:00", "jueves 18:00")

	// today is Wednesday: thursday starts tomorrow, monday next week
	assert.Equal(t, []string{
		"2025-03-06", "2025-03-10", "2025-03-13", "2025-03-17",
		"2025-03-20", "2025-03-24", "2025-03-27", "2025-03-31",
	}, res.Dates)
	assert.Contains(t, res.Message, "María José Pérez")

	st, err := repo.GetStudent(context.Background(), res.StudentID)
	require.NoError(t, err)
	assert.Equal(t, domain.StudentRegular, st.Status)

	a, err := repo.GetAssignment(context.Background(), res.AssignmentID)
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentActive, a.Status)
	assert.Equal(t, domain.PaymentPending, a.PaymentStatus)
	assert.Equal(t, day(2025, 3, 6), a.StartDate)

	slot, err := repo.FindSlot(context.Background(), time.Monday, "18:00")
	require.NoError(t, err)
	assert.Equal(t, 1, slot.OccupiedPlaces)

	assert.Equal(t, 1, occupancy(t, repo, findInstance(t, repo, time.Thursday, "18:00", day(2025, 3, 6)).ID))
}

func TestRegisterRegular_StartDate(t *testing.T) {
	repo, settings := newStudio(t)
	uc := NewAllocationUseCase(repo, settings)

	res := registerRegular(t, uc, "Ana", "Gómez", "222", 4, ptr(day(2025, 3, 5)), "Miércoles 18:00")
	assert.Equal(t, []string{"2025-03-05", "2025-03-12", "2025-03-19", "2025-03-26"}, res.Dates)
}

func TestRegisterRegular_ReportsEveryProblem(t *testing.T) {
	repo, settings := newStudio(t)
	uc := NewAllocationUseCase(repo, settings)

	_, err := uc.RegisterRegular(context.Background(), domain.RegularRegistration{
		StudentData: domain.StudentData{Name: "Ana", Surname: "", Phone: "222"},
		PackageSize: 5,
		Slots:       []string{"Domingo 10:00", "Lunes 07:00", "Martes 18:00", "martes 18:00"},
	})
	list := requireKind(t, err, domain.KindNotFound)

	// surname, sunday, unknown slot, repeated slot, unknown package
	assert.Len(t, list.Problems, 5)
	assert.Empty(t, repo.students)
	assert.Empty(t, repo.assignments)
}

func TestRegisterRegular_FullSlot(t *testing.T) {
	repo, settings := newStudio(t)
	uc := NewAllocationUseCase(repo, settings)

	for i := 0; i < settings.Capacity; i++ {
		registerRegular(t, uc, fmt.Sprintf("Alumna%d", i), "Lopez", fmt.Sprintf("30%d", i), 4, nil, "Viernes 18:00")
	}

	_, err := uc.RegisterRegular(context.Background(), domain.RegularRegistration{
		StudentData: domain.StudentData{Name: "Tarde", Surname: "Llegada", Phone: "999"},
		PackageSize: 4,
		Slots:       []string{"Viernes 18:00"},
	})
	requireKind(t, err, domain.KindConflict)
}

func TestRegisterRegular_FullInstanceRollsBack(t *testing.T) {
	repo, settings := newStudio(t)
	uc := NewAllocationUseCase(repo, settings)

	// fill one thursday with drop-in students only
	for i := 0; i < settings.Capacity; i++ {
		registerOccasional(t, uc, fmt.Sprintf("Suelta%d", i), "Díaz", fmt.Sprintf("40%d", i), day(2025, 3, 13))
	}
	students := len(repo.students)

	_, err := uc.RegisterRegular(context.Background(), domain.RegularRegistration{
		StudentData: domain.StudentData{Name: "Ana", Surname: "Gómez", Phone: "222"},
		PackageSize: 4,
		Slots:       []string{"Jueves 18:00"},
	})
	list := requireKind(t, err, domain.KindConflict)
	assert.Contains(t, list.Error(), "2025-03-13")

	assert.Len(t, repo.students, students)
	assert.Empty(t, repo.assignments)
	assert.Empty(t, repo.regular)
}

func TestRegisterRegular_MissingInstance(t *testing.T) {
	repo, settings := newStudio(t)
	uc := NewAllocationUseCase(repo, settings)

	// the window ends on april 4th
	_, err := uc.RegisterRegular(context.Background(), domain.RegularRegistration{
		StudentData: domain.StudentData{Name: "Ana", Surname: "Gómez", Phone: "222"},
		PackageSize: 12,
		Slots:       []string{"Lunes 18:00"},
	})
	requireKind(t, err, domain.KindNotFound)
	assert.Empty(t, repo.regular)
}

func TestRegisterRegular_ExistingStudentAlreadyBooked(t *testing.T) {
	repo, settings := newStudio(t)
	uc := NewAllocationUseCase(repo, settings)

	registerOccasional(t, uc, "Ana", "Gómez", "222", day(2025, 3, 10))

	_, err := uc.RegisterRegular(context.Background(), domain.RegularRegistration{
		StudentData: domain.StudentData{Name: "ANA", Surname: "gomez", Phone: "222"},
		PackageSize: 4,
		Slots:       []string{"Lunes 18:00"},
	})
	requireKind(t, err, domain.KindConflict)
}

func TestRegisterRegular_ReusesStudentAndPromotes(t *testing.T) {
	repo, settings := newStudio(t)
	uc := NewAllocationUseCase(repo, settings)

	occ := registerOccasional(t, uc, "Ana", "Gómez", "222", day(2025, 3, 6))
	reg := registerRegular(t, uc, "ana", "gomez", "222", 4, nil, "Lunes 18:00")

	assert.Equal(t, occ.StudentID, reg.StudentID)
	assert.Len(t, repo.students, 1)
	st, err := repo.GetStudent(context.Background(), reg.StudentID)
	require.NoError(t, err)
	assert.Equal(t, domain.StudentRegular, st.Status)
}

func TestRegisterOccasional(t *testing.T) {
	repo, settings := newStudio(t)
	uc := NewAllocationUseCase(repo, settings)

	thursday := time.Thursday
	res, err := uc.RegisterOccasional(context.Background(), domain.OccasionalRegistration{
		StudentData: domain.StudentData{Name: "Lucía", Surname: "Fernández", Phone: "333"},
		Weekday:     &thursday,
		Time:        "18:00",
	})
	require.NoError(t, err)
	assert.Equal(t, "2025-03-06", res.Date)
	assert.Equal(t, "Jueves 18:00", res.SlotLabel)

	st, err := repo.GetStudent(context.Background(), res.StudentID)
	require.NoError(t, err)
	assert.Equal(t, domain.StudentOccasional, st.Status)

	_, err = uc.RegisterOccasional(context.Background(), domain.OccasionalRegistration{
		StudentData: domain.StudentData{Name: "lucia", Surname: "fernandez", Phone: "333"},
		Weekday:     &thursday,
		Time:        "18:00",
	})
	requireKind(t, err, domain.KindConflict)
	assert.Len(t, repo.occasional, 1)
}

func TestRegisterOccasional_Validation(t *testing.T) {
	repo, settings := newStudio(t)
	uc := NewAllocationUseCase(repo, settings)
	data := domain.StudentData{Name: "Lucía", Surname: "Fernández", Phone: "333"}
	friday := time.Friday

	tests := []struct {
		name string
		req  domain.OccasionalRegistration
		kind domain.ErrorKind
	}{
		{"past date", domain.OccasionalRegistration{StudentData: data, Time: "18:00", Date: ptr(day(2025, 3, 4))}, domain.KindValidation},
		{"sunday", domain.OccasionalRegistration{StudentData: data, Time: "18:00", Date: ptr(day(2025, 3, 9))}, domain.KindValidation},
		{"weekday mismatch", domain.OccasionalRegistration{StudentData: data, Weekday: &friday, Time: "18:00", Date: ptr(day(2025, 3, 6))}, domain.KindValidation},
		{"no day", domain.OccasionalRegistration{StudentData: data, Time: "18:00"}, domain.KindValidation},
		{"bad time", domain.OccasionalRegistration{StudentData: data, Weekday: &friday, Time: "6pm"}, domain.KindValidation},
		{"unknown slot", domain.OccasionalRegistration{StudentData: data, Weekday: &friday, Time: "07:00"}, domain.KindNotFound},
		{"no class that day", domain.OccasionalRegistration{StudentData: data, Time: "18:00", Date: ptr(day(2025, 5, 2))}, domain.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.RegisterOccasional(context.Background(), tt.req)
			requireKind(t, err, tt.kind)
		})
	}
	assert.Empty(t, repo.occasional)
}

func TestRegisterOccasional_FullClass(t *testing.T) {
	repo, settings := newStudio(t)
	uc := NewAllocationUseCase(repo, settings)
	saturday := day(2025, 3, 8)

	for i := 0; i < settings.Capacity; i++ {
		registerOccasional(t, uc, fmt.Sprintf("Suelta%d", i), "Díaz", fmt.Sprintf("40%d", i), saturday)
	}
	_, err := uc.RegisterOccasional(context.Background(), domain.OccasionalRegistration{
		StudentData: domain.StudentData{Name: "Quinta", Surname: "Persona", Phone: "500"},
		Time:        "18:00",
		Date:        &saturday,
	})
	requireKind(t, err, domain.KindConflict)
	assert.Equal(t, settings.Capacity, occupancy(t, repo, findInstance(t, repo, time.Saturday, "18:00", saturday).ID))
}

func TestRegisterOccasional_ReactivatesCancelledBooking(t *testing.T) {
	repo, settings := newStudio(t)
	uc := NewAllocationUseCase(repo, settings)
	friday := day(2025, 3, 7)

	res := registerOccasional(t, uc, "Lucía", "Fernández", "333", friday)
	inst := findInstance(t, repo, time.Friday, "18:00", friday)
	row, err := repo.FindOccasional(context.Background(), res.StudentID, inst.ID)
	require.NoError(t, err)
	row.Status = domain.StatusCancelled
	require.NoError(t, repo.SaveOccasionalAttendance(context.Background(), row))

	registerOccasional(t, uc, "Lucía", "Fernández", "333", friday)

	assert.Len(t, repo.occasional, 1)
	again, err := repo.FindOccasional(context.Background(), res.StudentID, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReserved, again.Status)
}
