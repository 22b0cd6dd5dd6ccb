package forms

import (
	"fmt"

	"launchpad/internal/domain"
	"launchpad/internal/schema"
)

var CompensationTypes = []string{"free", "equity", "paid"}

var MentorSchema = schema.MustNew("mentor", "Mentor Profile", []schema.Field{
	{Path: "name", Label: "Name", Kind: schema.KindText, Required: true, MinLen: 2},
	{Path: "email", Label: "Email", Kind: schema.KindText, Required: true, Format: schema.FormatEmail},
	{Path: "phone", Label: "Phone", Kind: schema.KindText},
	{Path: "profilePicture", Label: "Profile Picture URL", Kind: schema.KindText, Format: schema.FormatURL},
	{Path: "location", Label: "Location", Kind: schema.KindText},
	{Path: "socialLinks.linkedIn", Label: "LinkedIn", Kind: schema.KindText, Format: schema.FormatURL},
	{Path: "socialLinks.website", Label: "Website", Kind: schema.KindText, Format: schema.FormatURL},
	{Path: "socialLinks.twitter", Label: "Twitter", Kind: schema.KindText, Format: schema.FormatURL},
	{Path: "organization", Label: "Organization", Kind: schema.KindText},
	{Path: "industryExpertise", Label: "Industry Expertise", Kind: schema.KindList, Required: true, Placeholder: "One industry per line"},
	{Path: "yearsOfExperience", Label: "Years of Experience", Kind: schema.KindNumber, Min: schema.Bound(0)},
	{Path: "education", Label: "Education", Kind: schema.KindGroupList, Required: true, Default: 1, Sub: []schema.Field{
		{Path: "degree", Label: "Degree", Kind: schema.KindText, Required: true, MinLen: 2},
		{Path: "institution", Label: "Institution", Kind: schema.KindText, Required: true, MinLen: 2},
		{Path: "year", Label: "Year", Kind: schema.KindText},
	}},
	{Path: "areasOfExpertise", Label: "Areas of Expertise", Kind: schema.KindList, Required: true, Placeholder: "One area per line"},
	{Path: "preferredStartupStages", Label: "Preferred Startup Stages", Kind: schema.KindList},
	{Path: "availabilityPerMonthHours", Label: "Availability (hours per month)", Kind: schema.KindText},
	{Path: "bio", Label: "Bio", Kind: schema.KindLongText},
	{Path: "motivation", Label: "Motivation", Kind: schema.KindLongText},
	{Path: "compensationType", Label: "Compensation Type", Kind: schema.KindEnum, Options: CompensationTypes},
	{Path: "preferredRegions", Label: "Preferred Regions", Kind: schema.KindList},
})

type mentorVariant struct{}

func (mentorVariant) Role() domain.Role      { return domain.RoleMentor }
func (mentorVariant) Schema() *schema.Schema { return MentorSchema }
func (mentorVariant) Destination() string    { return "/my-company-profile" }
func (mentorVariant) SuccessMessage() string { return "Mentor Profile Created Successfully!" }
func (mentorVariant) FailureMessage() string { return "Failed to create Mentor Profile" }

func (mentorVariant) Payload(vals schema.Values, _ string) (domain.RoleProfile, error) {
	edu, err := education(vals)
	if err != nil {
		return nil, err
	}
	return domain.MentorProfile{
		Name:           vals.String("name"),
		Email:          vals.String("email"),
		Phone:          vals.String("phone"),
		ProfilePicture: vals.String("profilePicture"),
		Location:       vals.String("location"),
		SocialLinks: domain.SocialLinks{
			LinkedIn: vals.String("socialLinks.linkedIn"),
			Website:  vals.String("socialLinks.website"),
			Twitter:  vals.String("socialLinks.twitter"),
		},
		Organization:              vals.String("organization"),
		IndustryExpertise:         compact(vals.List("industryExpertise")),
		YearsOfExperience:         vals.String("yearsOfExperience"),
		Education:                 edu,
		AreasOfExpertise:          compact(vals.List("areasOfExpertise")),
		PreferredStartupStages:    optionalList(vals.List("preferredStartupStages")),
		AvailabilityPerMonthHours: vals.String("availabilityPerMonthHours"),
		Bio:                       vals.String("bio"),
		Motivation:                vals.String("motivation"),
		CompensationType:          vals.String("compensationType"),
		PreferredRegions:          optionalList(vals.List("preferredRegions")),
	}, nil
}

func education(vals schema.Values) ([]domain.Education, error) {
	g, ok := MentorSchema.Field("education")
	if !ok {
		return nil, fmt.Errorf("education group missing")
	}
	degrees := vals.List("education.degree")
	institutions := vals.List("education.institution")
	years := vals.List("education.year")
	n := schema.GroupLen(g, vals)
	out := make([]domain.Education, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, domain.Education{
			Degree:      at(degrees, i),
			Institution: at(institutions, i),
			Year:        at(years, i),
		})
	}
	return out, nil
}

func at(l []string, i int) string {
	if i < len(l) {
		return l[i]
	}
	return ""
}

func optionalList(l []string) []string {
	l = compact(l)
	if len(l) == 0 {
		return nil
	}
	return l
}
