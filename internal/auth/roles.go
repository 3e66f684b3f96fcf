package auth

import (
	"strings"

	"github.com/cira/cira-backend/internal/database/models"
	"github.com/google/uuid"
)

// Role identifies which account table a request operates on.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleCompany  Role = "company"
	RolePartner  Role = "partner"
	RoleEmployee Role = "employee"
)

// Account is the shape every role table shares: a primary key, the
// credential lifecycle columns, and a public projection that never
// exposes secrets.
type Account interface {
	AccountID() uuid.UUID
	Creds() *models.Credentials
	Profile() map[string]any
}

// roleConfig describes how one role maps onto its table. The auth
// service is written once against this registry instead of once per
// table.
type roleConfig struct {
	role  Role
	table string
	// newAccount returns an empty row for lookups.
	newAccount func() Account
	// build constructs a fresh row from registration input.
	build func(in RegisterInput, passwordHash string) Account
}

var roleRegistry = map[Role]roleConfig{
	RoleAdmin: {
		role:       RoleAdmin,
		table:      "admin_accounts",
		newAccount: func() Account { return &models.AdminAccount{} },
		build: func(in RegisterInput, hash string) Account {
			return &models.AdminAccount{
				Credentials: models.Credentials{Email: in.Email, PasswordHash: hash},
				FirstName:   in.FirstName,
				LastName:    in.LastName,
				Phone:       in.Phone,
			}
		},
	},
	RoleCompany: {
		role:       RoleCompany,
		table:      "companies",
		newAccount: func() Account { return &models.Company{} },
		build: func(in RegisterInput, hash string) Account {
			return &models.Company{
				Credentials: models.Credentials{Email: in.Email, PasswordHash: hash},
				CompanyName: in.Name,
				PersonName:  in.PersonName,
				Phone:       in.Phone,
			}
		},
	},
	RolePartner: {
		role:       RolePartner,
		table:      "partners",
		newAccount: func() Account { return &models.Partner{} },
		build: func(in RegisterInput, hash string) Account {
			return &models.Partner{
				Credentials: models.Credentials{Email: in.Email, PasswordHash: hash},
				PartnerName: in.Name,
				PersonName:  in.PersonName,
				Phone:       in.Phone,
			}
		},
	},
	RoleEmployee: {
		role:       RoleEmployee,
		table:      "employees",
		newAccount: func() Account { return &models.Employee{} },
		build: func(in RegisterInput, hash string) Account {
			return &models.Employee{
				Credentials:  models.Credentials{Email: in.Email, PasswordHash: hash},
				EmployeeName: in.Name,
				CompanyID:    in.CompanyID,
			}
		},
	},
}

// ParseRole normalizes a role string from a request body.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	_, ok := roleRegistry[r]
	return r, ok
}

// NormalizeEmail applies the comparison form used everywhere: trimmed,
// lowercased.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
