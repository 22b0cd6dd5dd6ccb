package forms

import (
	"launchpad/internal/domain"
	"launchpad/internal/schema"
)

func roleOptions() []string {
	out := make([]string, 0, len(domain.Roles))
	for _, r := range domain.Roles {
		out = append(out, string(r))
	}
	return out
}

var RegisterSchema = schema.MustNew("register", "Register", []schema.Field{
	{Path: "firstName", Label: "First Name", Kind: schema.KindText, Required: true, MinLen: 2, Message: "First name is required"},
	{Path: "lastName", Label: "Last Name", Kind: schema.KindText, Required: true, MinLen: 2, Message: "Last name is required"},
	{Path: "email", Label: "Email", Kind: schema.KindText, Required: true, Format: schema.FormatEmail, Message: "Invalid email address"},
	{Path: "phone", Label: "Phone", Kind: schema.KindText, Required: true, MinLen: 10, Message: "Phone number is too short"},
	{Path: "password", Label: "Password", Kind: schema.KindSecret, Required: true, MinLen: 6, Message: "Password must be at least 6 characters"},
	{Path: "confirmPassword", Label: "Confirm Password", Kind: schema.KindSecret, Required: true, MinLen: 6, Message: "Confirm password is required"},
	{Path: "role", Label: "Role", Kind: schema.KindEnum, Required: true, Options: roleOptions(), Message: "Role is required"},
}, schema.Rule{Field: "confirmPassword", Expr: "confirmPassword == password", Message: "Passwords don't match"})

var LoginSchema = schema.MustNew("login", "Login", []schema.Field{
	{Path: "email", Label: "Email", Kind: schema.KindText, Required: true, Format: schema.FormatEmail, Message: "Invalid email address"},
	{Path: "password", Label: "Password", Kind: schema.KindSecret, Required: true, MinLen: 6, Message: "Password must be at least 6 characters"},
})

var VerifySchema = schema.MustNew("verify", "Verify your email", []schema.Field{
	{Path: "pin", Label: "One-Time Password", Kind: schema.KindText, Required: true, MinLen: 6, MaxLen: 6, Format: schema.FormatDigits, Message: "Your one-time password must be 6 digits."},
})

// RegistrationFrom maps a validated register value set.
func RegistrationFrom(vals schema.Values) domain.Registration {
	return domain.Registration{
		FirstName: vals.String("firstName"),
		LastName:  vals.String("lastName"),
		Email:     vals.String("email"),
		Phone:     vals.String("phone"),
		Password:  vals.String("password"),
		Role:      domain.Role(vals.String("role")),
	}
}

func CredentialsFrom(vals schema.Values) domain.Credentials {
	return domain.Credentials{Email: vals.String("email"), Password: vals.String("password")}
}
