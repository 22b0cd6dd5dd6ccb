package server

import (
	"encoding/json"

	"launchpad/internal/domain"
)

// Envelope wraps every successful response.
type Envelope[T any] struct {
	StatusCode int    `json:"statusCode" example:"200"`
	Success    bool   `json:"success" example:"true"`
	Message    string `json:"message" example:"Login Successfully"`
	Data       T      `json:"data"`
}

func respond[T any](status int, message string, data T) Envelope[T] {
	return Envelope[T]{StatusCode: status, Success: true, Message: message, Data: data}
}

// Request payloads

type RegisterRequest struct {
	FirstName string      `json:"firstName"`
	LastName  string      `json:"lastName"`
	Email     string      `json:"email" format:"email"`
	Phone     string      `json:"phone"`
	Password  string      `json:"password"`
	Role      domain.Role `json:"role" enum:"investor,entrepreneur,mentor"`
}

func (r RegisterRequest) registration() domain.Registration {
	return domain.Registration{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		Phone:     r.Phone,
		Password:  r.Password,
		Role:      r.Role,
	}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SendOTPRequest struct {
	Email string `json:"email"`
}

type VerifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp" example:"123456"`
}

// Response payloads

type LoginData struct {
	AccessToken string      `json:"accessToken"`
	User        domain.User `json:"user"`
}

type HealthData struct {
	Status string `json:"status" example:"ok"`
}

// profileList is the data of a get-all response. Items are the stored
// documents of one role.
type profileList = []json.RawMessage
