package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"launchpad/internal/contract"
	"launchpad/internal/domain"
	"launchpad/internal/engine"
)

const defaultPageSize = 20

// reserved query parameters of get-all; every other parameter is a match.
var listParams = map[string]bool{"filter": true, "limit": true, "page": true}

type listProfilesInput struct {
	Filter string `query:"filter" doc:"Boolean expression over the profile document"`
	Limit  int    `query:"limit" minimum:"0" maximum:"200" default:"20"`
	Page   int    `query:"page" minimum:"1" default:"1"`
}

func registerProfiles(api huma.API, e engine.Engine, role domain.Role) {
	prefix := fmt.Sprintf("/%s-profile", role)
	title := strings.ToUpper(string(role[:1])) + string(role[1:])
	tags := []string{string(role)}

	huma.Register(api, huma.Operation{
		OperationID:   fmt.Sprintf("create-%s-profile", role),
		Method:        http.MethodPost,
		Path:          prefix + "/create",
		Summary:       fmt.Sprintf("Create the %s profile of the current user", role),
		Tags:          tags,
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		RawBody []byte `contentType:"application/json"`
	}) (*struct {
		Body Envelope[json.RawMessage] `json:"body"`
	}, error) {
		p, authErr := principalFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		created, err := e.CreateProfile(ctx, p.UserID, role, input.RawBody)
		if err != nil {
			return nil, handleError(err)
		}
		data, err := json.Marshal(created)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body Envelope[json.RawMessage] `json:"body"`
		}{Body: respond(http.StatusCreated, title+" profile created successfully", json.RawMessage(data))}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: fmt.Sprintf("list-%s-profiles", role),
		Method:      http.MethodGet,
		Path:        prefix + "/get-all",
		Summary:     fmt.Sprintf("List %s profiles", role),
		Description: "Query parameters other than filter, limit and page match document paths, e.g. `stage=idea` or `company.industry=Finance`.",
		Tags:        tags,
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *listProfilesInput) (*struct {
		Body Envelope[profileList] `json:"body"`
	}, error) {
		if _, authErr := principalFromRequest(ctx); authErr != nil {
			return nil, authErr
		}
		limit := input.Limit
		if limit <= 0 {
			limit = defaultPageSize
		}
		page := input.Page
		if page < 1 {
			page = 1
		}
		q := engine.ProfileQuery{
			Role:   role,
			Match:  matchParams(ctx),
			Filter: input.Filter,
			Limit:  limit,
			Offset: (page - 1) * limit,
		}
		profiles, err := e.ListProfiles(ctx, q)
		if err != nil {
			return nil, handleError(err)
		}
		items := make(profileList, 0, len(profiles))
		for _, p := range profiles {
			data, err := json.Marshal(p)
			if err != nil {
				return nil, handleError(err)
			}
			items = append(items, data)
		}
		return &struct {
			Body Envelope[profileList] `json:"body"`
		}{Body: respond(http.StatusOK, title+" profiles retrieved successfully", items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: fmt.Sprintf("get-%s-profile", role),
		Method:      http.MethodGet,
		Path:        prefix + "/single-profile",
		Summary:     fmt.Sprintf("Get the %s profile of a user", role),
		Tags:        tags,
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		UserID string `query:"userId" required:"true"`
	}) (*struct {
		Body Envelope[json.RawMessage] `json:"body"`
	}, error) {
		if _, authErr := principalFromRequest(ctx); authErr != nil {
			return nil, authErr
		}
		if strings.TrimSpace(input.UserID) == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "userId is required", nil)
		}
		p, err := e.SingleProfile(ctx, input.UserID, role)
		if err != nil {
			return nil, handleError(err)
		}
		data, err := json.Marshal(p)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body Envelope[json.RawMessage] `json:"body"`
		}{Body: respond(http.StatusOK, title+" profile retrieved successfully", json.RawMessage(data))}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: fmt.Sprintf("%s-profile-schema", role),
		Method:      http.MethodGet,
		Path:        prefix + "/schema",
		Summary:     fmt.Sprintf("JSON Schema accepted by the %s create endpoint", role),
		Tags:        tags,
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body Envelope[json.RawMessage] `json:"body"`
	}, error) {
		raw, err := contract.Schema(role)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body Envelope[json.RawMessage] `json:"body"`
		}{Body: respond(http.StatusOK, title+" profile schema", json.RawMessage(raw))}, nil
	})
}

func matchParams(ctx context.Context) map[string]string {
	req := requestFromContext(ctx)
	if req == nil {
		return nil
	}
	out := map[string]string{}
	for key, vals := range req.URL.Query() {
		if listParams[key] || len(vals) == 0 || strings.TrimSpace(vals[0]) == "" {
			continue
		}
		out[key] = vals[0]
	}
	return out
}
