package forms

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launchpad/internal/domain"
	"launchpad/internal/schema"
)

func validEntrepreneur() schema.Values {
	vals := EntrepreneurSchema.Defaults()
	vals["founders.names"] = []string{"Ada Lovelace"}
	vals["founders.technicalFounder"] = "Charles Babbage"
	vals["company.name"] = "Analytical"
	vals["company.shortDescription"] = "Engines for everyone"
	vals["company.product"] = "Engine"
	vals["company.location"] = "London"
	vals["industry"] = "Hardware"
	vals["funding.amountSeeking"] = float64(250000)
	vals["funding.equityOffered"] = "12.5"
	return vals
}

func validInvestor() schema.Values {
	vals := InvestorSchema.Defaults()
	vals["investmentExperience"] = "Ten years of seed investing"
	vals["linkedIn"] = "https://linkedin.com/in/someone"
	vals["twitter"] = "@someone"
	vals["portfolioSize"] = "2500000"
	vals["investmentStage"] = "Seed"
	vals["industryFocus"] = []string{"Technology", "Energy"}
	return vals
}

func validMentor() schema.Values {
	vals := MentorSchema.Defaults()
	vals["name"] = "Grace Hopper"
	vals["email"] = "grace@navy.mil"
	vals["industryExpertise"] = []string{"Compilers"}
	vals["education.degree"] = []string{"PhD"}
	vals["education.institution"] = []string{"Yale"}
	vals["education.year"] = []string{"1934"}
	vals["areasOfExpertise"] = []string{"Programming"}
	return vals
}

func validFor(role domain.Role) schema.Values {
	switch role {
	case domain.RoleEntrepreneur:
		return validEntrepreneur()
	case domain.RoleInvestor:
		return validInvestor()
	default:
		return validMentor()
	}
}

func TestCompleteDraftsValidate(t *testing.T) {
	for _, v := range All() {
		t.Run(string(v.Role()), func(t *testing.T) {
			p, errs, err := Build(v, validFor(v.Role()), "user-1")
			require.NoError(t, err)
			require.Empty(t, errs)
			require.NotNil(t, p)
			assert.Equal(t, v.Role(), p.Role())
		})
	}
}

func blank(f schema.Field) any {
	switch {
	case f.Kind.IsList():
		return []string{}
	default:
		return ""
	}
}

func TestSingleOmissionYieldsOneError(t *testing.T) {
	for _, v := range All() {
		for _, f := range v.Schema().Fields {
			if !f.Required {
				continue
			}
			t.Run(string(v.Role())+"/"+f.Path, func(t *testing.T) {
				vals := validFor(v.Role())
				if f.Kind == schema.KindGroupList {
					for _, sub := range f.Sub {
						vals[f.SubKey(sub)] = []string{}
					}
				} else {
					vals[f.Path] = blank(f)
				}
				errs := v.Schema().Validate(vals)
				require.Len(t, errs, 1, "errors: %v", errs)
				assert.Contains(t, errs, f.Path)
			})
		}
	}
}

func TestInvestorLinkedInMessage(t *testing.T) {
	vals := validInvestor()
	vals["linkedIn"] = "not-a-url"
	errs := InvestorSchema.Validate(vals)
	assert.Equal(t, domain.FieldErrors{"linkedIn": "Enter a valid LinkedIn URL."}, errs)
}

func TestInvestorRejectsUnknownIndustry(t *testing.T) {
	vals := validInvestor()
	vals["industryFocus"] = []string{"Technology", "Crypto"}
	errs := InvestorSchema.Validate(vals)
	assert.Contains(t, errs, "industryFocus[1]")
}

func TestEquityBounds(t *testing.T) {
	vals := validEntrepreneur()
	vals["funding.equityOffered"] = float64(150)
	errs := EntrepreneurSchema.Validate(vals)
	assert.Contains(t, errs, "funding.equityOffered")

	vals["funding.equityOffered"] = float64(50)
	assert.Empty(t, EntrepreneurSchema.Validate(vals))
}

func TestFundingRejectsNonFiniteNumbers(t *testing.T) {
	for _, path := range []string{"funding.amountSeeking", "funding.equityOffered"} {
		for _, raw := range []string{"NaN", "+Inf", "-Inf"} {
			vals := validEntrepreneur()
			vals[path] = raw
			errs := EntrepreneurSchema.Validate(vals)
			assert.Equal(t, []string{path}, errs.Paths(), "%s=%s", path, raw)
		}
	}
}

func TestCoFounderNamesExcludedWhenHidden(t *testing.T) {
	vals := validEntrepreneur()
	vals["founders.coFounderNames"] = []string{"x"}
	v, err := ForRole(domain.RoleEntrepreneur)
	require.NoError(t, err)

	p, errs, err := Build(v, vals, "u1")
	require.NoError(t, err)
	require.Empty(t, errs, "hidden co-founder names must not be validated")

	raw, err := json.Marshal(p)
	require.NoError(t, err)
	var decoded struct {
		Founders map[string]any `json:"founders"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.NotContains(t, decoded.Founders, "coFounderNames")

	vals["founders.coFounders"] = true
	_, errs, err = Build(v, vals, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.FieldErrors{"founders.coFounderNames[0]": "Name must be at least 2 characters"}, errs)

	vals["founders.coFounderNames"] = []string{"Joan Clarke"}
	p, errs, err = Build(v, vals, "u1")
	require.NoError(t, err)
	require.Empty(t, errs)
	assert.Equal(t, []string{"Joan Clarke"}, p.(domain.EntrepreneurProfile).Founders.CoFounderNames)
}

func TestEntrepreneurPayload(t *testing.T) {
	v, err := ForRole(domain.RoleEntrepreneur)
	require.NoError(t, err)

	p, _, err := Build(v, validEntrepreneur(), "u1")
	require.NoError(t, err)
	ep := p.(domain.EntrepreneurProfile)
	assert.Equal(t, "u1", ep.UserID)
	assert.Equal(t, "idea", ep.Stage)
	assert.Equal(t, "USD", ep.Funding.Currency)
	assert.Equal(t, 12.5, ep.Funding.EquityOffered)
	assert.Nil(t, ep.Traction)

	vals := validEntrepreneur()
	vals["traction.revenue"] = "1000"
	p, _, err = Build(v, vals, "u1")
	require.NoError(t, err)
	require.NotNil(t, p.(domain.EntrepreneurProfile).Traction)
	assert.Equal(t, float64(1000), p.(domain.EntrepreneurProfile).Traction.Revenue)
}

func TestMentorEducationErrorsAndPayload(t *testing.T) {
	vals := validMentor()
	vals["education.degree"] = []string{"PhD", "B"}
	vals["education.institution"] = []string{"Yale", "Vassar"}
	errs := MentorSchema.Validate(vals)
	assert.Equal(t, domain.FieldErrors{"education[1].degree": "Must be at least 2 characters"}, errs)

	vals["education.degree"] = []string{"PhD", "BA"}
	v, err := ForRole(domain.RoleMentor)
	require.NoError(t, err)
	p, errs, err := Build(v, vals, "")
	require.NoError(t, err)
	require.Empty(t, errs)
	mp := p.(domain.MentorProfile)
	require.Len(t, mp.Education, 2)
	assert.Equal(t, domain.Education{Degree: "BA", Institution: "Vassar"}, mp.Education[1])
	assert.Nil(t, mp.PreferredRegions)
	assert.Equal(t, "/my-company-profile", v.Destination())
}

func TestRegisterPasswordConfirmation(t *testing.T) {
	vals := schema.Values{
		"firstName":       "Ada",
		"lastName":        "Lovelace",
		"email":           "ada@example.com",
		"phone":           "0123456789",
		"password":        "secret1",
		"confirmPassword": "secret2",
		"role":            "mentor",
	}
	assert.Equal(t, domain.FieldErrors{"confirmPassword": "Passwords don't match"}, RegisterSchema.Validate(vals))

	vals["confirmPassword"] = "secret1"
	require.Empty(t, RegisterSchema.Validate(vals))
	reg := RegistrationFrom(vals)
	assert.Equal(t, domain.RoleMentor, reg.Role)
}

func TestVerifyPin(t *testing.T) {
	const msg = "Your one-time password must be 6 digits."
	for pin, want := range map[string]string{
		"123456":  "",
		"12345":   msg,
		"1234567": msg,
		"12a456":  msg,
		"":        msg,
	} {
		errs := VerifySchema.Validate(schema.Values{"pin": pin})
		assert.Equal(t, want, errs["pin"], "pin %q", pin)
	}
}

func TestForRoleUnknown(t *testing.T) {
	_, err := ForRole("admin")
	require.Error(t, err)
}
