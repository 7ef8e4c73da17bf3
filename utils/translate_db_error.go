package utils

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// IsUniqueViolation reports a Postgres unique constraint failure.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// TranslateDBError turns a database error into a message fit for the caller.
func TranslateDBError(err error) string {
	if err == nil {
		return ""
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			switch {
			case strings.Contains(pgErr.ConstraintName, "idx_occasional_student_instance"):
				return "El alumno ya tiene una reserva en esa clase"
			case strings.Contains(pgErr.ConstraintName, "idx_instance_slot_date"):
				return "La clase ya existe para ese turno y fecha"
			case strings.Contains(pgErr.ConstraintName, "idx_slot_weekday_time"):
				return "El turno ya existe"
			}
			return "Registro duplicado"
		case "23503":
			return "El registro está referenciado por otra tabla"
		case "23502":
			return "Faltan campos obligatorios"
		case "22P02", "22007", "22008":
			return "Formato de dato inválido"
		case "40001", "40P01":
			return "Conflicto de concurrencia, intente nuevamente"
		}
		return "Ocurrió un error en la base de datos"
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "Registro no encontrado"
	}

	lowerErr := strings.ToLower(err.Error())
	if strings.Contains(lowerErr, "context deadline exceeded") {
		return "La solicitud excedió el tiempo límite"
	}
	if strings.Contains(lowerErr, "context canceled") {
		return "La solicitud fue cancelada"
	}
	if strings.Contains(lowerErr, "connection") {
		return "No se pudo conectar a la base de datos"
	}
	return "Error interno"
}
