package forms

import (
	"launchpad/internal/domain"
	"launchpad/internal/schema"
)

var Industries = []string{
	"Technology",
	"Healthcare",
	"Finance",
	"Education",
	"Real Estate",
	"Energy",
	"Consumer Goods",
	"Entertainment",
	"Transportation",
	"Agriculture",
}

var InvestorSchema = schema.MustNew("investor", "Complete Your Investment Profile", []schema.Field{
	{Path: "investmentExperience", Label: "Investment Experience", Kind: schema.KindLongText, Required: true, MinLen: 5, Message: "Experience is required.", Placeholder: "Describe your experience..."},
	{Path: "linkedIn", Label: "LinkedIn", Kind: schema.KindText, Required: true, Format: schema.FormatURL, Message: "Enter a valid LinkedIn URL.", Placeholder: "https://linkedin.com/in/..."},
	{Path: "twitter", Label: "Twitter", Kind: schema.KindText, Required: true, MinLen: 3, Message: "Enter your Twitter handle.", Placeholder: "@twitterhandle"},
	{Path: "portfolioSize", Label: "Portfolio Size", Kind: schema.KindNumber, Required: true, Min: schema.Bound(0), Message: "Portfolio size must be positive.", Default: float64(0), Placeholder: "2500000"},
	{Path: "investmentStage", Label: "Investment Stage", Kind: schema.KindText, Required: true, MinLen: 1, Message: "Investment stage is required.", Placeholder: "Seed, Series A..."},
	{Path: "industryFocus", Label: "Industry Focus", Kind: schema.KindMultiSelect, Required: true, Options: Industries, Message: "Select at least one industry."},
})

type investorVariant struct{}

func (investorVariant) Role() domain.Role      { return domain.RoleInvestor }
func (investorVariant) Schema() *schema.Schema { return InvestorSchema }
func (investorVariant) Destination() string    { return "/" }
func (investorVariant) SuccessMessage() string { return "Profile created successfully!" }
func (investorVariant) FailureMessage() string { return "Something went wrong" }

func (investorVariant) Payload(vals schema.Values, _ string) (domain.RoleProfile, error) {
	return domain.InvestorProfile{
		InvestmentExperience: vals.String("investmentExperience"),
		LinkedIn:             vals.String("linkedIn"),
		Twitter:              vals.String("twitter"),
		PortfolioSize:        number(vals, "portfolioSize"),
		InvestmentStage:      vals.String("investmentStage"),
		IndustryFocus:        append([]string{}, vals.List("industryFocus")...),
	}, nil
}
