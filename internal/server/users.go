package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"launchpad/internal/domain"
	"launchpad/internal/engine"
)

func registerAuth(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "register",
		Method:        http.MethodPost,
		Path:          "/user/register",
		Summary:       "Register an account",
		Tags:          []string{"auth"},
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusConflict, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body RegisterRequest `json:"body"`
	}) (*struct {
		Body Envelope[domain.User] `json:"body"`
	}, error) {
		u, err := e.Register(ctx, input.Body.registration())
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body Envelope[domain.User] `json:"body"`
		}{Body: respond(http.StatusCreated, fmt.Sprintf("%s created successfully", u.Role), u)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/auth/login",
		Summary:     "Exchange credentials for an access token",
		Tags:        []string{"auth"},
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Body LoginRequest `json:"body"`
	}) (*struct {
		Body Envelope[LoginData] `json:"body"`
	}, error) {
		if strings.TrimSpace(input.Body.Email) == "" || input.Body.Password == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "email and password are required", nil)
		}
		res, err := e.Login(ctx, domain.Credentials{Email: input.Body.Email, Password: input.Body.Password})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body Envelope[LoginData] `json:"body"`
		}{Body: respond(http.StatusOK, "Login Successfully", LoginData{AccessToken: res.AccessToken, User: res.User})}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "logout",
		Method:      http.MethodPost,
		Path:        "/auth/logout",
		Summary:     "Revoke the current access token",
		Tags:        []string{"auth"},
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body Envelope[struct{}] `json:"body"`
	}, error) {
		p, authErr := principalFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.Logout(ctx, p.Claims); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body Envelope[struct{}] `json:"body"`
		}{Body: respond(http.StatusOK, "Logged out successfully", struct{}{})}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "send-otp",
		Method:      http.MethodPost,
		Path:        "/otp/send",
		Summary:     "Send a one-time password to an unverified account",
		Tags:        []string{"otp"},
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusTooManyRequests},
	}, func(ctx context.Context, input *struct {
		Body SendOTPRequest `json:"body"`
	}) (*struct {
		Body Envelope[struct{}] `json:"body"`
	}, error) {
		if err := e.SendOTP(ctx, input.Body.Email); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body Envelope[struct{}] `json:"body"`
		}{Body: respond(http.StatusOK, "OTP sent successfully", struct{}{})}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "verify-otp",
		Method:      http.MethodPost,
		Path:        "/otp/verify",
		Summary:     "Verify an account with its one-time password",
		Tags:        []string{"otp"},
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusTooManyRequests},
	}, func(ctx context.Context, input *struct {
		Body VerifyOTPRequest `json:"body"`
	}) (*struct {
		Body Envelope[struct{}] `json:"body"`
	}, error) {
		if err := e.VerifyOTP(ctx, input.Body.Email, input.Body.OTP); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body Envelope[struct{}] `json:"body"`
		}{Body: respond(http.StatusOK, "OTP verified successfully", struct{}{})}, nil
	})
}

func registerUsers(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "user-info",
		Method:      http.MethodGet,
		Path:        "/user/me",
		Summary:     "Current user with attached profiles",
		Tags:        []string{"user"},
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body Envelope[domain.User] `json:"body"`
	}, error) {
		p, authErr := principalFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		u, err := e.UserInfo(ctx, p.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body Envelope[domain.User] `json:"body"`
		}{Body: respond(http.StatusOK, "User retrieved successfully", u)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "user-company-info",
		Method:      http.MethodGet,
		Path:        "/user/company-profile",
		Summary:     "Profiles owned by the current user",
		Tags:        []string{"user"},
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body Envelope[domain.CompanyInfo] `json:"body"`
	}, error) {
		p, authErr := principalFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		info, err := e.CompanyInfo(ctx, p.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body Envelope[domain.CompanyInfo] `json:"body"`
		}{Body: respond(http.StatusOK, "Company profile retrieved successfully", info)}, nil
	})
}
