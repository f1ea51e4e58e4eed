package models

import (
	"time"
)

type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCancelled BookingStatus = "cancelled"
)

// Valid reports whether s is one of the three known statuses.
func (s BookingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

type BookingType string

const (
	BookingIndividual BookingType = "individual"
	BookingGroup      BookingType = "group"
)

type Booking struct {
	ID              uint64        `gorm:"primaryKey" json:"id"`
	FullName        string        `gorm:"size:100;not null" json:"fullName"`
	Email           string        `gorm:"size:255;not null;index" json:"email"`
	Phone           string        `gorm:"size:32;not null" json:"phone"`
	Age             int           `gorm:"not null" json:"age"`
	Country         string        `gorm:"size:100;not null" json:"country"`
	BookingType     BookingType   `gorm:"size:20;not null" json:"bookingType"`
	NumberOfPeople  int           `gorm:"not null;default:1" json:"numberOfPeople"`
	SelectedPackage string        `gorm:"size:255;not null" json:"selectedPackage"`
	Status          BookingStatus `gorm:"size:20;not null;default:pending;index" json:"status"`
	Notes           *string       `gorm:"type:text" json:"notes"`
	CreatedAt       time.Time     `gorm:"index" json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}
