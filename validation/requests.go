package validation

import (
	"strings"
	"time"

	"github.com/MrEthical07/caseguard"
	"github.com/MrEthical07/caseguard/permission"
)

// ProfileInput is the optional profile sub-document of create and update requests.
type ProfileInput struct {
	Phone          string `json:"phone,omitempty" validate:"omitempty,phone_br"`
	CPF            string `json:"cpf,omitempty" validate:"omitempty,len=11,numeric"`
	CRO            string `json:"cro,omitempty" validate:"omitempty,max=30"`
	Specialization string `json:"specialization,omitempty" validate:"omitempty,max=100"`
	Address        string `json:"address,omitempty" validate:"omitempty,max=200"`
}

// Profile converts the input into the stored form.
func (p *ProfileInput) Profile() caseguard.Profile {
	if p == nil {
		return caseguard.Profile{}
	}
	return caseguard.Profile{
		Phone:          strings.TrimSpace(p.Phone),
		CPF:            p.CPF,
		CRO:            strings.TrimSpace(p.CRO),
		Specialization: strings.TrimSpace(p.Specialization),
		Address:        strings.TrimSpace(p.Address),
	}
}

// CreateUserRequest is the body of POST /api/users/create.
type CreateUserRequest struct {
	Name     string        `json:"name" validate:"required,min=2,max=50"`
	Email    string        `json:"email" validate:"required,email"`
	Password string        `json:"password" validate:"required,min=6"`
	Role     string        `json:"role,omitempty" validate:"omitempty,oneof=admin perito assistente"`
	Profile  *ProfileInput `json:"profile,omitempty"`
}

// Normalize trims the name before validation.
func (r *CreateUserRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

// Engine converts the request. An empty role is left for the engine to default.
func (r *CreateUserRequest) Engine() caseguard.CreateUserRequest {
	role, _ := permission.ParseRole(r.Role)
	return caseguard.CreateUserRequest{
		Name:     r.Name,
		Email:    r.Email,
		Password: r.Password,
		Role:     role,
		Profile:  r.Profile.Profile(),
	}
}

// ToggleStatusRequest is the body of PATCH /api/users/{id}/toggle-status.
type ToggleStatusRequest struct {
	IsActive *bool `json:"isActive" validate:"required"`
}

// UpdatePermissionsRequest is the body of PATCH /api/users/{id}/permissions.
type UpdatePermissionsRequest struct {
	Permissions permission.Partial `json:"permissions" validate:"required,permissions"`
}

// UpdateRoleRequest is the body of PUT /api/users/{id}/role.
type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=admin perito assistente"`
}

// UpdateProfileRequest is the body of PUT /api/users/me/profile.
type UpdateProfileRequest struct {
	Name    string        `json:"name,omitempty" validate:"omitempty,min=2,max=50"`
	Profile *ProfileInput `json:"profile,omitempty"`
}

// Normalize trims the name before validation.
func (r *UpdateProfileRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
}

// ChangePasswordRequest is the body of PUT /api/users/me/password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=NewPassword"`
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Normalize lower-cases the email.
func (r *LoginRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

// IDParam is the {id} path parameter of user and case routes.
type IDParam struct {
	ID string `json:"id" validate:"required,objectid"`
}

// CreateCaseRequest is the body of POST /api/cases.
type CreateCaseRequest struct {
	Title       string    `json:"title" validate:"required,min=3"`
	Description string    `json:"description" validate:"required,min=10"`
	Type        string    `json:"type" validate:"required,oneof=acidente identificacao criminal"`
	Status      string    `json:"status,omitempty" validate:"oneof=em_andamento finalizado arquivado"`
	Date        time.Time `json:"data" validate:"required"`
	History     string    `json:"historico,omitempty"`
	Analyses    string    `json:"analises,omitempty"`
}

// Normalize trims the text fields and applies the default status.
func (r *CreateCaseRequest) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	if r.Status == "" {
		r.Status = "em_andamento"
	}
}

// Normalizer is implemented by requests that clean themselves up before
// validation.
type Normalizer interface {
	Normalize()
}
