package domain

import "strings"

type Role string

const (
	RoleEntrepreneur Role = "entrepreneur"
	RoleInvestor     Role = "investor"
	RoleMentor       Role = "mentor"
)

// Roles lists the selectable roles in registration order.
var Roles = []Role{RoleInvestor, RoleEntrepreneur, RoleMentor}

func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Roles {
		if r == known {
			return r, true
		}
	}
	return "", false
}

// RoleProfile is the validated, submission-ready payload of one role.
type RoleProfile interface {
	Role() Role
	sealed()
}

type Founders struct {
	Names            []string `json:"names"`
	TechnicalFounder string   `json:"technicalFounder"`
	CoFounders       bool     `json:"coFounders"`
	CoFounderNames   []string `json:"coFounderNames,omitempty"`
}

type Company struct {
	Name             string `json:"name"`
	ShortDescription string `json:"shortDescription"`
	LinkedIn         string `json:"linkedIn,omitempty"`
	Twitter          string `json:"twitter,omitempty"`
	Website          string `json:"website,omitempty"`
	Product          string `json:"product"`
	Location         string `json:"location"`
}

type Funding struct {
	AmountSeeking float64 `json:"amountSeeking"`
	Currency      string  `json:"currency"`
	EquityOffered float64 `json:"equityOffered"`
}

type Traction struct {
	UsersCount float64 `json:"usersCount"`
	Revenue    float64 `json:"revenue"`
	GrowthRate string  `json:"growthRate,omitempty"`
}

type EntrepreneurProfile struct {
	UserID   string    `json:"userId,omitempty"`
	Founders Founders  `json:"founders"`
	Company  Company   `json:"company"`
	Stage    string    `json:"stage" enum:"idea,prototype,launched,scaling"`
	Industry string    `json:"industry"`
	Funding  Funding   `json:"funding"`
	Traction *Traction `json:"traction,omitempty"`
}

func (EntrepreneurProfile) Role() Role { return RoleEntrepreneur }
func (EntrepreneurProfile) sealed()    {}

type InvestorProfile struct {
	InvestmentExperience string   `json:"investmentExperience"`
	LinkedIn             string   `json:"linkedIn"`
	Twitter              string   `json:"twitter"`
	PortfolioSize        float64  `json:"portfolioSize"`
	InvestmentStage      string   `json:"investmentStage"`
	IndustryFocus        []string `json:"industryFocus"`
}

func (InvestorProfile) Role() Role { return RoleInvestor }
func (InvestorProfile) sealed()    {}

type SocialLinks struct {
	LinkedIn string `json:"linkedIn,omitempty"`
	Website  string `json:"website,omitempty"`
	Twitter  string `json:"twitter,omitempty"`
}

type Education struct {
	Degree      string `json:"degree"`
	Institution string `json:"institution"`
	Year        string `json:"year,omitempty"`
}

type MentorProfile struct {
	Name                      string      `json:"name"`
	Email                     string      `json:"email"`
	Phone                     string      `json:"phone,omitempty"`
	ProfilePicture            string      `json:"profilePicture,omitempty"`
	Location                  string      `json:"location,omitempty"`
	SocialLinks               SocialLinks `json:"socialLinks"`
	Organization              string      `json:"organization,omitempty"`
	IndustryExpertise         []string    `json:"industryExpertise"`
	YearsOfExperience         string      `json:"yearsOfExperience,omitempty"`
	Education                 []Education `json:"education"`
	AreasOfExpertise          []string    `json:"areasOfExpertise"`
	PreferredStartupStages    []string    `json:"preferredStartupStages,omitempty"`
	AvailabilityPerMonthHours string      `json:"availabilityPerMonthHours,omitempty"`
	Bio                       string      `json:"bio,omitempty"`
	Motivation                string      `json:"motivation,omitempty"`
	CompensationType          string      `json:"compensationType,omitempty" enum:"free,equity,paid"`
	PreferredRegions          []string    `json:"preferredRegions,omitempty"`
}

func (MentorProfile) Role() Role { return RoleMentor }
func (MentorProfile) sealed()    {}

// User mirrors the gateway's user document.
type User struct {
	ID                  string               `json:"_id"`
	FirstName           string               `json:"firstName"`
	LastName            string               `json:"lastName"`
	Email               string               `json:"email"`
	Phone               string               `json:"phone,omitempty"`
	Role                Role                 `json:"role"`
	IsVerified          bool                 `json:"isVerified"`
	IsActive            string               `json:"isActive,omitempty" enum:"ACTIVE,INACTIVE"`
	CreatedAt           string               `json:"createdAt,omitempty" format:"date-time"`
	UpdatedAt           string               `json:"updatedAt,omitempty" format:"date-time"`
	InvestorProfile     *InvestorProfile     `json:"investor_profile,omitempty"`
	EntrepreneurProfile *EntrepreneurProfile `json:"entrepreneur_profile,omitempty"`
	MentorProfile       *MentorProfile       `json:"mentor_profile,omitempty"`
}

// HasProfile reports whether any role profile is attached to the user.
func (u User) HasProfile() bool {
	return u.InvestorProfile != nil || u.EntrepreneurProfile != nil || u.MentorProfile != nil
}

// CompanyInfo is the session-scoped set of profiles returned by the company-profile endpoint.
type CompanyInfo struct {
	InvestorProfile     *InvestorProfile     `json:"investor_profile,omitempty"`
	EntrepreneurProfile *EntrepreneurProfile `json:"entrepreneur_profile,omitempty"`
	MentorProfile       *MentorProfile       `json:"mentor_profile,omitempty"`
}

// Tab picks the profile to display first, in the order investor, entrepreneur, mentor.
func (c CompanyInfo) Tab() string {
	switch {
	case c.InvestorProfile != nil:
		return "investor_profile"
	case c.EntrepreneurProfile != nil:
		return "entrepreneur_profile"
	case c.MentorProfile != nil:
		return "mentor_profile"
	default:
		return "investor_profile"
	}
}

type Registration struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Password  string `json:"password"`
	Role      Role   `json:"role" enum:"investor,entrepreneur,mentor"`
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

// Draft is a saved, not yet submitted profile form.
type Draft struct {
	Owner     string         `json:"owner,omitempty"`
	Role      Role           `json:"role"`
	Values    map[string]any `json:"values"`
	UpdatedAt string         `json:"updated_at" format:"date-time"`
}
