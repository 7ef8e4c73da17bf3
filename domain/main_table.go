package domain

import (
	"time"

	"gorm.io/datatypes"
)

const (
	StudentOccasional = "ocasional"
	StudentRegular    = "regular"
	StudentInactive   = "inactivo"

	AssignmentActive  = "activo"
	AssignmentExpired = "vencido"

	PaymentPending = "pendiente"
	PaymentPaid    = "pagado"
	PaymentPartial = "parcial"

	// RegularAttendance statuses
	StatusPending     = "pendiente"
	StatusAttended    = "asistió"
	StatusAbsent      = "faltó"
	StatusCancelled   = "cancelado"
	StatusRecovered   = "recuperado"
	StatusRescheduled = "reprogramado"

	// OccasionalAttendance only
	StatusReserved = "reservado"

	SlotFree = "Libre"
	SlotFull = "Ocupado"

	CategoryRegular    = "regular"
	CategoryOccasional = "ocasional"

	MethodCash     = "EF"
	MethodTransfer = "TF"
	MethodDebit    = "TD"
	MethodOther    = "OT"

	// DefaultCapacity is the number of reformers in the studio.
	DefaultCapacity = 4
)

var (
	// RegularOccupying are the regular statuses that hold a place in a class.
	RegularOccupying = []string{StatusPending, StatusAttended, StatusAbsent, StatusRecovered}
	// OccasionalOccupying are the occasional statuses that hold a place in a class.
	OccasionalOccupying = []string{StatusReserved, StatusAttended}

	// RegularActive are bookings that can still be attended or moved.
	RegularActive    = []string{StatusPending, StatusRecovered}
	OccasionalActive = []string{StatusReserved}

	// Roster statuses: rows that attendance-taking may touch.
	RegularRoster    = []string{StatusPending, StatusRecovered, StatusAttended, StatusAbsent}
	OccasionalRoster = []string{StatusReserved, StatusAttended, StatusAbsent}
)

type Person struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null;size:100" json:"name"`
	Surname   string    `gorm:"not null;size:100" json:"surname"`
	Phone     string    `gorm:"size:20;index" json:"phone"`
	TaxID     *string   `gorm:"size:20" json:"tax_id,omitempty"`
	Notes     *string   `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p Person) FullName() string {
	return p.Name + " " + p.Surname
}

type Student struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	PersonID       uint       `gorm:"not null;index" json:"person_id"`
	Person         Person     `gorm:"foreignKey:PersonID" json:"person"`
	Channel        *string    `gorm:"size:50" json:"channel,omitempty"`
	LastAttendedAt *time.Time `gorm:"type:date" json:"last_attended_at,omitempty"`
	Status         string     `gorm:"size:20;not null;default:'ocasional'" json:"status"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

type Instructor struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	PersonID uint   `gorm:"not null" json:"person_id"`
	Person   Person `gorm:"foreignKey:PersonID" json:"person"`
}

type Slot struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	Weekday   time.Weekday `gorm:"not null;uniqueIndex:idx_slot_weekday_time" json:"weekday"`
	StartTime string       `gorm:"size:5;not null;uniqueIndex:idx_slot_weekday_time" json:"start_time"` // HH:MM

	// Reporting projection only; live counts come from attendance rows.
	OccupiedPlaces int    `gorm:"not null;default:0" json:"occupied_places"`
	State          string `gorm:"size:10;not null;default:'Libre'" json:"state"`
}

type ClassInstance struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	SlotID       uint       `gorm:"not null;uniqueIndex:idx_instance_slot_date" json:"slot_id"`
	Slot         Slot       `gorm:"foreignKey:SlotID" json:"slot"`
	InstructorID uint       `gorm:"not null" json:"instructor_id"`
	Instructor   Instructor `gorm:"foreignKey:InstructorID" json:"-"`
	Date         time.Time  `gorm:"type:date;not null;uniqueIndex:idx_instance_slot_date" json:"date"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

type Package struct {
	ID         uint    `gorm:"primaryKey" json:"id"`
	ClassCount int     `gorm:"not null;uniqueIndex" json:"class_count"`
	Price      float64 `gorm:"not null" json:"price"`
}

type PackageAssignment struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	StudentID     uint      `gorm:"not null;index" json:"student_id"`
	Student       Student   `gorm:"foreignKey:StudentID" json:"-"`
	PackageID     uint      `gorm:"not null" json:"package_id"`
	Package       Package   `gorm:"foreignKey:PackageID" json:"package"`
	Status        string    `gorm:"size:10;not null;default:'activo'" json:"status"`
	PaymentStatus string    `gorm:"size:10;not null;default:'pendiente'" json:"payment_status"`
	StartDate     time.Time `gorm:"type:date;not null" json:"start_date"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type PackageSlotLink struct {
	ID                  uint `gorm:"primaryKey" json:"id"`
	PackageAssignmentID uint `gorm:"not null;index" json:"package_assignment_id"`
	SlotID              uint `gorm:"not null;index" json:"slot_id"`
	Slot                Slot `gorm:"foreignKey:SlotID" json:"slot"`
}

type RegularAttendance struct {
	ID                  uint              `gorm:"primaryKey" json:"id"`
	PackageAssignmentID uint              `gorm:"not null;index" json:"package_assignment_id"`
	PackageAssignment   PackageAssignment `gorm:"foreignKey:PackageAssignmentID" json:"-"`
	ClassInstanceID     uint              `gorm:"not null;index" json:"class_instance_id"`
	ClassInstance       ClassInstance     `gorm:"foreignKey:ClassInstanceID" json:"class_instance"`
	Status              string            `gorm:"size:20;not null;default:'pendiente'" json:"status"`
	RescheduledFromID   *uint             `json:"rescheduled_from_id,omitempty"`
	CreatedAt           time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

type OccasionalAttendance struct {
	ID                uint          `gorm:"primaryKey" json:"id"`
	StudentID         uint          `gorm:"not null;uniqueIndex:idx_occasional_student_instance" json:"student_id"`
	Student           Student       `gorm:"foreignKey:StudentID" json:"-"`
	ClassInstanceID   uint          `gorm:"not null;uniqueIndex:idx_occasional_student_instance" json:"class_instance_id"`
	ClassInstance     ClassInstance `gorm:"foreignKey:ClassInstanceID" json:"class_instance"`
	Status            string        `gorm:"size:20;not null;default:'reservado'" json:"status"`
	RescheduledFromID *uint         `json:"rescheduled_from_id,omitempty"`
	CreatedAt         time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

type Payment struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	PackageAssignmentID uint      `gorm:"not null;index" json:"package_assignment_id"`
	Amount              float64   `gorm:"not null" json:"amount"`
	Method              string    `gorm:"size:2;not null" json:"method"`
	PaidAt              time.Time `gorm:"type:date;not null" json:"paid_at"`
	CreatedAt           time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// GenerationRun keeps an audit trail of instance generation batches.
type GenerationRun struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	StartDate time.Time      `gorm:"type:date;not null" json:"start_date"`
	EndDate   time.Time      `gorm:"type:date;not null" json:"end_date"`
	Created   int            `gorm:"not null" json:"created"`
	Existing  int            `gorm:"not null" json:"existing"`
	Breakdown datatypes.JSON `json:"breakdown"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
}
