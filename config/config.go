package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"tupilates/domain"
	"tupilates/utils"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Conf holds every setting, read from the environment with defaults below.
var Conf *viper.Viper

func init() {
	Conf = viper.New()
	Conf.SetTypeByDefaultValue(true)

	Conf.SetDefault("APP_ENV", "development")
	Conf.SetDefault("APP_PORT", "8080")
	Conf.SetDefault("ALLOW_ORIGINS", "*")

	Conf.SetDefault("DB_HOST", "localhost")
	Conf.SetDefault("DB_PORT", "5432")
	Conf.SetDefault("DB_USER", "postgres")
	Conf.SetDefault("DB_PASSWORD", "")
	Conf.SetDefault("DB_NAME", "tupilates")
	Conf.SetDefault("DB_SSLMODE", "disable")

	Conf.SetDefault("REDIS_ADDR", "localhost:6379")
	Conf.SetDefault("REDIS_PASSWORD", "")
	Conf.SetDefault("REDIS_DB", 0)

	Conf.SetDefault("STUDIO_CAPACITY", domain.DefaultCapacity)
	Conf.SetDefault("STUDIO_INSTRUCTOR_ID", 1)
	Conf.SetDefault("STUDIO_INSTRUCTOR_NAME", "Instructora")
	Conf.SetDefault("STUDIO_INSTRUCTOR_SURNAME", "Principal")
	Conf.SetDefault("STUDIO_INSTRUCTOR_PHONE", "")
	Conf.SetDefault("STUDIO_TIMEZONE", "America/Argentina/Buenos_Aires")
	Conf.SetDefault("STUDIO_REMAINDER_POLICY", domain.RemainderDrop)
	Conf.SetDefault("STUDIO_FUZZY_THRESHOLD", utils.DefaultFuzzyThreshold)
	Conf.SetDefault("STUDIO_GENERATION_WINDOW_DAYS", 30)
	Conf.SetDefault("STUDIO_CRON", "0 3 * * *")
	Conf.SetDefault("STUDIO_PACKAGES", "4:20000,8:36000,12:48000")
	Conf.SetDefault("STUDIO_SLOTS", "Lunes 14:00-20:00,Martes 14:00-20:00,Miércoles 14:00-20:00,Jueves 14:00-20:00,Viernes 14:00-20:00,Sábado 09:00-10:00")

	Conf.SetDefault("CHAT_SESSION_TTL", 30*time.Minute)

	Conf.AutomaticEnv()
}

// LoadEnv reads a .env file if present; missing files are not an error.
func LoadEnv(paths ...string) {
	if err := godotenv.Load(paths...); err != nil {
		log.Warn().Msg(".env file not found, using system environment variables")
	}
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

func (c DBConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type Config struct {
	AppEnv       string
	AppPort      string
	AllowOrigins []string
	DB           DBConfig
	Redis        RedisConfig
	Studio       domain.StudioSettings
	Cron         string
	Instructor   domain.Person
	Packages     []domain.Package
	Slots        []domain.Slot
	ChatTTL      time.Duration
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// LoadConfig builds the runtime configuration from Conf and validates the
// studio settings.
func LoadConfig() (*Config, error) {
	loc, err := time.LoadLocation(Conf.GetString("STUDIO_TIMEZONE"))
	if err != nil {
		return nil, fmt.Errorf("STUDIO_TIMEZONE: %w", err)
	}

	policy := Conf.GetString("STUDIO_REMAINDER_POLICY")
	switch policy {
	case domain.RemainderDrop, domain.RemainderRoundUp, domain.RemainderError:
	default:
		return nil, fmt.Errorf("STUDIO_REMAINDER_POLICY: unknown policy %q", policy)
	}

	capacity := Conf.GetInt("STUDIO_CAPACITY")
	if capacity <= 0 {
		return nil, fmt.Errorf("STUDIO_CAPACITY must be positive, got %d", capacity)
	}
	threshold := Conf.GetFloat64("STUDIO_FUZZY_THRESHOLD")
	if threshold <= 0 || threshold > 1 {
		return nil, fmt.Errorf("STUDIO_FUZZY_THRESHOLD must be in (0, 1], got %v", threshold)
	}

	packages, err := ParsePackages(Conf.GetString("STUDIO_PACKAGES"))
	if err != nil {
		return nil, fmt.Errorf("STUDIO_PACKAGES: %w", err)
	}
	slots, err := ParseSlotCatalog(Conf.GetString("STUDIO_SLOTS"))
	if err != nil {
		return nil, fmt.Errorf("STUDIO_SLOTS: %w", err)
	}

	var origins []string
	for _, o := range strings.Split(Conf.GetString("ALLOW_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	return &Config{
		AppEnv:       Conf.GetString("APP_ENV"),
		AppPort:      Conf.GetString("APP_PORT"),
		AllowOrigins: origins,
		DB: DBConfig{
			Host:     Conf.GetString("DB_HOST"),
			Port:     Conf.GetString("DB_PORT"),
			User:     Conf.GetString("DB_USER"),
			Password: Conf.GetString("DB_PASSWORD"),
			Name:     Conf.GetString("DB_NAME"),
			SSLMode:  Conf.GetString("DB_SSLMODE"),
		},
		Redis: RedisConfig{
			Addr:     Conf.GetString("REDIS_ADDR"),
			Password: Conf.GetString("REDIS_PASSWORD"),
			DB:       Conf.GetInt("REDIS_DB"),
		},
		Studio: domain.StudioSettings{
			Capacity:             capacity,
			InstructorID:         uint(Conf.GetUint("STUDIO_INSTRUCTOR_ID")),
			Location:             loc,
			RemainderPolicy:      policy,
			FuzzyThreshold:       threshold,
			GenerationWindowDays: Conf.GetInt("STUDIO_GENERATION_WINDOW_DAYS"),
		},
		Cron: Conf.GetString("STUDIO_CRON"),
		Instructor: domain.Person{
			Name:    Conf.GetString("STUDIO_INSTRUCTOR_NAME"),
			Surname: Conf.GetString("STUDIO_INSTRUCTOR_SURNAME"),
			Phone:   Conf.GetString("STUDIO_INSTRUCTOR_PHONE"),
		},
		Packages: packages,
		Slots:    slots,
		ChatTTL:  Conf.GetDuration("CHAT_SESSION_TTL"),
	}, nil
}

// ParsePackages reads "classes:price" pairs separated by commas.
func ParsePackages(raw string) ([]domain.Package, error) {
	var out []domain.Package
	seen := map[int]bool{}
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		count, price, ok := strings.Cut(item, ":")
		if !ok {
			return nil, fmt.Errorf("%q is not classes:price", item)
		}
		n, err := strconv.Atoi(strings.TrimSpace(count))
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid class count in %q", item)
		}
		p, err := strconv.ParseFloat(strings.TrimSpace(price), 64)
		if err != nil || p < 0 {
			return nil, fmt.Errorf("invalid price in %q", item)
		}
		if seen[n] {
			return nil, fmt.Errorf("duplicate package of %d classes", n)
		}
		seen[n] = true
		out = append(out, domain.Package{ClassCount: n, Price: p})
	}
	return out, nil
}

// ParseSlotCatalog expands "Día HH:MM-HH:MM" ranges into hourly slots, both
// ends included. A single "Día HH:MM" is one slot.
func ParseSlotCatalog(raw string) ([]domain.Slot, error) {
	var out []domain.Slot
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		label, until, hasRange := strings.Cut(item, "-")
		wd, first, err := utils.ParseSlotLabel(label)
		if err != nil {
			return nil, err
		}
		if wd == time.Sunday {
			return nil, fmt.Errorf("no se dictan clases los domingos: %q", item)
		}
		last := first
		if hasRange {
			if last, err = utils.NormalizeTime(until); err != nil {
				return nil, err
			}
		}
		from, _ := time.Parse(utils.TimeLayout, first)
		to, _ := time.Parse(utils.TimeLayout, last)
		if to.Before(from) {
			return nil, fmt.Errorf("range %q ends before it starts", item)
		}
		for t := from; !t.After(to); t = t.Add(time.Hour) {
			out = append(out, domain.Slot{Weekday: wd, StartTime: t.Format(utils.TimeLayout), State: domain.SlotFree})
		}
	}
	return out, nil
}
