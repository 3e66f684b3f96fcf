package models

import "github.com/google/uuid"

// AdminAccount is a platform operator. Admin rows are never hard-deleted.
type AdminAccount struct {
	Base
	Credentials
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone,omitempty"`
}

func (AdminAccount) TableName() string {
	return "admin_accounts"
}

func (a *AdminAccount) AccountID() uuid.UUID { return a.ID }
func (a *AdminAccount) Creds() *Credentials  { return &a.Credentials }

func (a *AdminAccount) Profile() map[string]any {
	return map[string]any{
		"id":         a.ID.String(),
		"role":       "admin",
		"email":      a.Email,
		"first_name": a.FirstName,
		"last_name":  a.LastName,
	}
}

// Company is a tenant organization account.
type Company struct {
	Base
	Credentials
	CompanyName    string    `gorm:"not null" json:"company_name"`
	PersonName     string    `json:"person_name,omitempty"`
	Code           string    `json:"code,omitempty"`
	Phone          string    `json:"phone,omitempty"`
	ImageURL       string    `json:"image_url,omitempty"`
	EmployeesCount int       `gorm:"default:0" json:"employees_count"`
	Status         string    `gorm:"default:'Active'" json:"status"`
	CreatedBy      uuid.UUID `gorm:"type:uuid" json:"created_by,omitempty"`
}

func (Company) TableName() string {
	return "companies"
}

func (c *Company) AccountID() uuid.UUID { return c.ID }
func (c *Company) Creds() *Credentials  { return &c.Credentials }

func (c *Company) Profile() map[string]any {
	return map[string]any{
		"id":           c.ID.String(),
		"role":         "company",
		"email":        c.Email,
		"company_name": c.CompanyName,
		"person_name":  c.PersonName,
	}
}

// Partner is a referring platform account.
type Partner struct {
	Base
	Credentials
	PartnerName    string    `gorm:"not null" json:"partner_name"`
	PersonName     string    `json:"person_name,omitempty"`
	Phone          string    `json:"phone,omitempty"`
	ImageURL       string    `json:"image_url,omitempty"`
	BrandingConfig string    `json:"branding_config,omitempty"`
	Status         string    `gorm:"default:'Active'" json:"status"`
	CreatedBy      uuid.UUID `gorm:"type:uuid" json:"created_by,omitempty"`
}

func (Partner) TableName() string {
	return "partners"
}

func (p *Partner) AccountID() uuid.UUID { return p.ID }
func (p *Partner) Creds() *Credentials  { return &p.Credentials }

func (p *Partner) Profile() map[string]any {
	return map[string]any{
		"id":           p.ID.String(),
		"role":         "partner",
		"email":        p.Email,
		"partner_name": p.PartnerName,
		"person_name":  p.PersonName,
	}
}

// Employee belongs to a company. Email uniqueness is enforced within
// the employees table only; other role tables may reuse the address.
type Employee struct {
	Base
	Credentials
	EmployeeName string    `gorm:"not null" json:"employee_name"`
	CompanyID    uuid.UUID `gorm:"type:uuid;index" json:"company_id"`
	ImageURL     string    `json:"image_url,omitempty"`
	Status       string    `gorm:"default:'Active'" json:"status"`

	Company *Company `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
}

func (Employee) TableName() string {
	return "employees"
}

func (e *Employee) AccountID() uuid.UUID { return e.ID }
func (e *Employee) Creds() *Credentials  { return &e.Credentials }

func (e *Employee) Profile() map[string]any {
	return map[string]any{
		"id":            e.ID.String(),
		"role":          "employee",
		"email":         e.Email,
		"employee_name": e.EmployeeName,
		"company_id":    e.CompanyID.String(),
	}
}
