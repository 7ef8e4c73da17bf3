package config

import (
	"time"

	"tupilates/domain"
	"tupilates/utils"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Models lists every table the application owns, in migration order.
var Models = []interface{}{
	&domain.Person{},
	&domain.Student{},
	&domain.Instructor{},
	&domain.Slot{},
	&domain.ClassInstance{},
	&domain.Package{},
	&domain.PackageAssignment{},
	&domain.PackageSlotLink{},
	&domain.RegularAttendance{},
	&domain.OccasionalAttendance{},
	&domain.Payment{},
	&domain.GenerationRun{},
}

func BootDB(cfg *Config) (*gorm.DB, error) {
	// show all SQL in development
	gormLogger := logger.Default.LogMode(logger.Silent)
	if cfg.IsDevelopment() {
		gormLogger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(postgres.Open(cfg.DB.URL()), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to connect to " + utils.ColorText("database", utils.Red))
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(30 * time.Minute)

	if err := db.AutoMigrate(Models...); err != nil {
		log.Error().Err(err).Msg("failed to " + utils.ColorText("auto-migrate database schemas", utils.Red))
		return nil, err
	}

	log.Info().Msg("connected to " + utils.ColorText("database", utils.Green) + " successfully")
	return db, nil
}
