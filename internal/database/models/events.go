package models

import (
	"time"

	"github.com/google/uuid"
)

// Consultation records a patient consultation event. Ownership is either
// a company or a partner; both may be unset for walk-in traffic.
type Consultation struct {
	Base
	CompanyID        *uuid.UUID `gorm:"type:uuid;index" json:"company_id,omitempty"`
	PartnerID        *uuid.UUID `gorm:"type:uuid;index" json:"partner_id,omitempty"`
	ConsultationCode string     `gorm:"uniqueIndex;not null" json:"consultation_code"`
	PatientName      string     `json:"patient_name,omitempty"`
	Age              *int       `json:"age,omitempty"`
	Sex              string     `json:"sex,omitempty"`
	ConsultationDate *time.Time `json:"consultation_date,omitempty"`
	ConsultationTime string     `json:"consultation_time,omitempty"` // HH:MM:SS
	DurationMinutes  *int       `json:"duration_minutes,omitempty"`
	Type             string     `gorm:"default:'OPC'" json:"type"`
	Status           string     `gorm:"default:'Pending'" json:"status"`
	Reason           string     `json:"reason,omitempty"`
	DoctorNotes      string     `json:"doctor_notes,omitempty"`
	IPAddress        string     `json:"ip_address,omitempty"`
	UserAgent        string     `json:"user_agent,omitempty"`
}

func (Consultation) TableName() string {
	return "consultations"
}

// DoctorReferral records a referral of a patient to an external doctor.
type DoctorReferral struct {
	Base
	CompanyID             *uuid.UUID `gorm:"type:uuid;index" json:"company_id,omitempty"`
	PartnerID             *uuid.UUID `gorm:"type:uuid;index" json:"partner_id,omitempty"`
	ReferralCode          string     `gorm:"uniqueIndex;not null" json:"referral_code"`
	ReferredToDoctorName  string     `gorm:"not null" json:"referred_to_doctor_name"`
	Platform              string     `gorm:"default:'General'" json:"platform"`
	Country               string     `json:"country,omitempty"`
	ReferralDate          *time.Time `json:"referral_date,omitempty"`
	ReferralTime          string     `json:"referral_time,omitempty"`
	Type                  string     `gorm:"default:'Standard'" json:"type"`
	Status                string     `gorm:"default:'Success'" json:"status"`
	Reason                string     `json:"reason,omitempty"`
	DoctorNotes           string     `json:"doctor_notes,omitempty"`
}

func (DoctorReferral) TableName() string {
	return "doctor_referrals"
}
