package forms

import (
	"launchpad/internal/domain"
	"launchpad/internal/schema"
)

var Stages = []string{"idea", "prototype", "launched", "scaling"}

const nameMessage = "Name must be at least 2 characters"

var EntrepreneurSchema = schema.MustNew("entrepreneur", "Entrepreneur Profile", []schema.Field{
	{Path: "founders.names", Label: "Founder Names", Kind: schema.KindList, Required: true, MinLen: 2, Message: nameMessage, Default: []string{""}, Placeholder: "One founder per line"},
	{Path: "founders.technicalFounder", Label: "Technical Founder", Kind: schema.KindText, Required: true, MinLen: 2, Message: "Required", Placeholder: "Technical Founder Name"},
	{Path: "founders.coFounders", Label: "Has Co-Founders?", Kind: schema.KindBool},
	{Path: "founders.coFounderNames", Label: "Co-Founder Names", Kind: schema.KindList, MinLen: 2, Message: nameMessage, Default: []string{""}, VisibleWhen: "founders.coFounders", Placeholder: "One co-founder per line"},
	{Path: "company.name", Label: "Name", Kind: schema.KindText, Required: true, MinLen: 2},
	{Path: "company.shortDescription", Label: "Short Description", Kind: schema.KindLongText, Required: true, MinLen: 5},
	{Path: "company.product", Label: "Product", Kind: schema.KindText, Required: true, MinLen: 2},
	{Path: "company.location", Label: "Location", Kind: schema.KindText, Required: true, MinLen: 2},
	{Path: "company.linkedIn", Label: "LinkedIn", Kind: schema.KindText, Format: schema.FormatURL, Placeholder: "https://linkedin.com/company/..."},
	{Path: "company.twitter", Label: "Twitter", Kind: schema.KindText, Format: schema.FormatURL, Placeholder: "https://x.com/..."},
	{Path: "company.website", Label: "Website", Kind: schema.KindText, Format: schema.FormatURL, Placeholder: "https://..."},
	{Path: "stage", Label: "Stage", Kind: schema.KindEnum, Required: true, Options: Stages, Default: "idea"},
	{Path: "industry", Label: "Industry", Kind: schema.KindText, Required: true, MinLen: 2},
	{Path: "funding.amountSeeking", Label: "Amount Seeking", Kind: schema.KindNumber, Required: true, Min: schema.Bound(0), Default: float64(0)},
	{Path: "funding.currency", Label: "Currency", Kind: schema.KindText, Required: true, MinLen: 1, Default: "USD"},
	{Path: "funding.equityOffered", Label: "Equity Offered (%)", Kind: schema.KindNumber, Required: true, Min: schema.Bound(0), Max: schema.Bound(100), Default: float64(0)},
	{Path: "traction.usersCount", Label: "Users Count", Kind: schema.KindNumber, Min: schema.Bound(0)},
	{Path: "traction.revenue", Label: "Revenue", Kind: schema.KindNumber, Min: schema.Bound(0)},
	{Path: "traction.growthRate", Label: "Growth Rate", Kind: schema.KindText, Placeholder: "e.g. 20% MoM"},
}).WithDescription("Fill out the details of founders, company, funding, and traction.")

type entrepreneurVariant struct{}

func (entrepreneurVariant) Role() domain.Role      { return domain.RoleEntrepreneur }
func (entrepreneurVariant) Schema() *schema.Schema { return EntrepreneurSchema }
func (entrepreneurVariant) Destination() string    { return "/" }
func (entrepreneurVariant) SuccessMessage() string { return "Profile created." }
func (entrepreneurVariant) FailureMessage() string { return "Profile creation failed" }

func (entrepreneurVariant) Payload(vals schema.Values, userID string) (domain.RoleProfile, error) {
	p := domain.EntrepreneurProfile{
		UserID: userID,
		Founders: domain.Founders{
			Names:            compact(vals.List("founders.names")),
			TechnicalFounder: vals.String("founders.technicalFounder"),
			CoFounders:       vals.Bool("founders.coFounders"),
		},
		Company: domain.Company{
			Name:             vals.String("company.name"),
			ShortDescription: vals.String("company.shortDescription"),
			LinkedIn:         vals.String("company.linkedIn"),
			Twitter:          vals.String("company.twitter"),
			Website:          vals.String("company.website"),
			Product:          vals.String("company.product"),
			Location:         vals.String("company.location"),
		},
		Stage:    vals.String("stage"),
		Industry: vals.String("industry"),
		Funding: domain.Funding{
			AmountSeeking: number(vals, "funding.amountSeeking"),
			Currency:      vals.String("funding.currency"),
			EquityOffered: number(vals, "funding.equityOffered"),
		},
	}
	if p.Founders.CoFounders {
		p.Founders.CoFounderNames = compact(vals.List("founders.coFounderNames"))
	}
	if present(vals, "traction.usersCount", "traction.revenue", "traction.growthRate") {
		p.Traction = &domain.Traction{
			UsersCount: number(vals, "traction.usersCount"),
			Revenue:    number(vals, "traction.revenue"),
			GrowthRate: vals.String("traction.growthRate"),
		}
	}
	return p, nil
}
