package utils

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseWeekday(t *testing.T) {
	for in, want := range map[string]time.Weekday{
		"lunes":     time.Monday,
		"MIÉRCOLES": time.Wednesday,
		"miercoles": time.Wednesday,
		" Sábado ":  time.Saturday,
		"domingo":   time.Sunday,
	} {
		got, ok := ParseWeekday(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ParseWeekday("monday")
	assert.False(t, ok)
}

func TestNormalizeTime(t *testing.T) {
	got, err := NormalizeTime("9:00")
	require.NoError(t, err)
	assert.Equal(t, "09:00", got)

	got, err = NormalizeTime(" 18:30 ")
	require.NoError(t, err)
	assert.Equal(t, "18:30", got)

	for _, bad := range []string{"", "18", "25:00", "6pm"} {
		_, err := NormalizeTime(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseSlotLabel(t *testing.T) {
	wd, hhmm, err := ParseSlotLabel("miércoles 9:00")
	require.NoError(t, err)
	assert.Equal(t, time.Wednesday, wd)
	assert.Equal(t, "09:00", hhmm)
	assert.Equal(t, "Miércoles 09:00", SlotLabel(wd, hhmm))

	for _, bad := range []string{"Lunes", "Lunes 18:00 extra", "Funday 18:00", "Lunes 18"} {
		_, _, err := ParseSlotLabel(bad)
		assert.Error(t, err, bad)
	}
}

func TestDateWalking(t *testing.T) {
	wed := date(2025, 3, 5)

	assert.Equal(t, wed, WalkToWeekday(wed, time.Wednesday))
	assert.Equal(t, date(2025, 3, 10), WalkToWeekday(wed, time.Monday))
	assert.Equal(t, date(2025, 3, 12), NextOccurrence(wed, time.Wednesday))
	assert.Equal(t, date(2025, 3, 6), NextOccurrence(wed, time.Thursday))
	assert.Equal(t, wed, PreviousOccurrence(wed, time.Wednesday))
	assert.Equal(t, date(2025, 3, 3), PreviousOccurrence(wed, time.Monday))
	assert.Equal(t, date(2025, 3, 3), WeekStart(date(2025, 3, 9)))

	late := time.Date(2025, 3, 5, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, wed, DateOnly(late))
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate(" 2025-03-05 ")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-05", FormatDate(got))

	_, err = ParseDate("05/03/2025")
	assert.Error(t, err)
}

func TestTranslateDBError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"duplicate booking", &pgconn.PgError{Code: "23505", ConstraintName: "idx_occasional_student_instance"}, "El alumno ya tiene una reserva en esa clase"},
		{"other duplicate", &pgconn.PgError{Code: "23505", ConstraintName: "persons_pkey"}, "Registro duplicado"},
		{"wrapped foreign key", fmt.Errorf("save: %w", &pgconn.PgError{Code: "23503"}), "El registro está referenciado por otra tabla"},
		{"serialization", &pgconn.PgError{Code: "40001"}, "Conflicto de concurrencia, intente nuevamente"},
		{"not found", gorm.ErrRecordNotFound, "Registro no encontrado"},
		{"timeout", errors.New("context deadline exceeded"), "La solicitud excedió el tiempo límite"},
		{"unknown", errors.New("boom"), "Error interno"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TranslateDBError(tt.err))
		})
	}

	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsUniqueViolation(errors.New("23505")))
}
