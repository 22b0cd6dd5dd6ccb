package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"launchpad/internal/app"
	"launchpad/internal/contract"
	"launchpad/internal/domain"
	"launchpad/internal/forms"
	"launchpad/internal/submit"
)

func profileCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "profile", Short: "Create and browse role profiles"}
	cmd.AddCommand(profileCreateCmd())
	cmd.AddCommand(profileShowCmd())
	cmd.AddCommand(profileListCmd())
	cmd.AddCommand(profileGetCmd())
	return cmd
}

func profileCreateCmd() *cobra.Command {
	var roleFlag string
	var sets, removals []string
	var fresh bool
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Fill in and submit the profile of your role",
		Long: `Fill in the profile form of a role and submit it.
Values come from --set path=value flags and, unless --no-interactive is given,
from the interactive form. Repeat --set for each item of a list; multi-select
values may also be comma separated. Group entries use paths like
education[1].degree and --remove education[1] drops an entry (or list item).
The form is saved as a draft until the profile is accepted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				sess, err := a.Session(ctx)
				if err != nil {
					return err
				}
				role, err := parseRole(roleFlag, sess.User.Role)
				if err != nil {
					return err
				}
				v, err := forms.ForRole(role)
				if err != nil {
					return err
				}
				ds := a.DraftsFor(sess)
				if fresh {
					if err := ds.Discard(ctx, role); err != nil {
						return err
					}
				}
				f, err := ds.LoadOrNew(ctx, role)
				if err != nil {
					return err
				}
				if err := f.RemoveElements(removals...); err != nil {
					return err
				}
				kv, err := parseSets(sets)
				if err != nil {
					return err
				}
				if err := applySets(f, kv); err != nil {
					return err
				}

				o := submit.New(a.Gateway, v, submit.WithDrafts(ds), submit.WithLogger(a.Log))
				for {
					if interactive() {
						err := renderRun(ctx, f)
						if errors.Is(err, huh.ErrUserAborted) || errors.Is(err, context.Canceled) {
							if serr := ds.Save(context.WithoutCancel(ctx), role, f); serr != nil {
								return serr
							}
							fmt.Println("Draft saved; resume with: lp profile create --role", role)
							return err
						}
						if err != nil {
							return err
						}
					}
					if err := ds.Save(ctx, role, f); err != nil {
						return err
					}
					res, err := o.Submit(ctx, sess, f)
					if err != nil {
						return err
					}
					switch res.Outcome {
					case submit.OutcomeSuccess:
						return printMessage(res.Message, map[string]string{"destination": res.Destination})
					case submit.OutcomeValidationFailure:
						printFieldErrors(res.FieldErrors)
						if interactive() {
							continue
						}
						return fmt.Errorf("%d invalid fields; fix them with --set (draft saved)", len(res.FieldErrors))
					default:
						if res.Destination != "" {
							return fmt.Errorf("%s (see %s)", res.Message, hintFor(res.Destination))
						}
						return errors.New(res.Message)
					}
				}
			})
		},
	}
	cmd.Flags().StringVar(&roleFlag, "role", "", "profile role (defaults to the session user's role)")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "field value as path=value (repeatable)")
	cmd.Flags().StringArrayVar(&removals, "remove", nil, "drop a group entry or list item, e.g. education[1] (repeatable)")
	cmd.Flags().BoolVar(&fresh, "fresh", false, "discard any saved draft first")
	return cmd
}

func hintFor(destination string) string {
	switch destination {
	case "/login":
		return "lp login"
	case "/verify":
		return "lp verify"
	default:
		return destination
	}
}

func profileShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show your user record and submitted profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				sess, err := a.RequireSession(ctx)
				if err != nil {
					return err
				}
				var (
					user domain.User
					info domain.CompanyInfo
				)
				g, gctx := errgroup.WithContext(ctx)
				g.Go(func() error {
					u, err := a.Gateway.UserInfo(gctx, sess.Token)
					user = u
					return err
				})
				g.Go(func() error {
					ci, err := a.Gateway.CompanyInfo(gctx, sess.Token)
					info = ci
					return err
				})
				if err := g.Wait(); err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"user": user, "profiles": info, "tab": info.Tab()})
				}
				fmt.Printf("%s %s <%s> %s\n", user.FirstName, user.LastName, user.Email, user.Role)
				if info.InvestorProfile == nil && info.EntrepreneurProfile == nil && info.MentorProfile == nil {
					fmt.Printf("No profile yet; create it with: lp profile create --role %s\n", user.Role)
					return nil
				}
				var p any
				switch info.Tab() {
				case "investor_profile":
					p = info.InvestorProfile
				case "entrepreneur_profile":
					p = info.EntrepreneurProfile
				default:
					p = info.MentorProfile
				}
				fmt.Println(strings.ReplaceAll(info.Tab(), "_", " ") + ":")
				return printJSONOrTable(p)
			})
		},
	}
}

// listColumns are the document paths shown per role in list output.
var listColumns = map[domain.Role][]string{
	domain.RoleInvestor:     {"investmentStage", "portfolioSize", "industryFocus", "linkedIn"},
	domain.RoleEntrepreneur: {"userId", "company.name", "stage", "industry", "funding.amountSeeking"},
	domain.RoleMentor:       {"name", "email", "areasOfExpertise", "industryExpertise"},
}

func profileListCmd() *cobra.Command {
	var roleFlag, filter string
	var limit, page int
	var where []string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the profiles of a role",
		Example: `  lp profile list --role investor --where investmentStage=Seed
  lp profile list --role entrepreneur --filter 'funding.equityOffered <= 20 && stage == "idea"'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				sess, err := a.RequireSession(ctx)
				if err != nil {
					return err
				}
				role, err := parseRole(roleFlag, "")
				if err != nil {
					return err
				}
				kv, err := parseSets(where)
				if err != nil {
					return err
				}
				q := url.Values{}
				for k, v := range kv {
					q.Set(k, v)
				}
				if filter != "" {
					q.Set("filter", filter)
				}
				if limit > 0 {
					q.Set("limit", strconv.Itoa(limit))
				}
				if page > 0 {
					q.Set("page", strconv.Itoa(page))
				}
				items, err := a.Gateway.ListProfiles(ctx, sess.Token, role, q)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				cols := listColumns[role]
				header := table.Row{}
				for _, c := range cols {
					header = append(header, c)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(header)
				for _, raw := range items {
					doc := map[string]any{}
					if err := json.Unmarshal(raw, &doc); err != nil {
						return err
					}
					row := table.Row{}
					for _, c := range cols {
						row = append(row, cell(lookupPath(doc, c)))
					}
					tw.AppendRow(row)
				}
				tw.AppendFooter(table.Row{fmt.Sprintf("%d profiles", len(items))})
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&roleFlag, "role", "", "investor, entrepreneur or mentor")
	cmd.Flags().StringVar(&filter, "filter", "", "boolean expression over the profile document")
	cmd.Flags().StringArrayVar(&where, "where", nil, "document path match as path=value (repeatable)")
	cmd.Flags().IntVar(&limit, "limit", 0, "page size")
	cmd.Flags().IntVar(&page, "page", 0, "page number starting at 1")
	return cmd
}

func profileGetCmd() *cobra.Command {
	var roleFlag, userID string
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Get the profile of one user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				sess, err := a.RequireSession(ctx)
				if err != nil {
					return err
				}
				role, err := parseRole(roleFlag, sess.User.Role)
				if err != nil {
					return err
				}
				if userID == "" {
					userID = sess.UserID()
				}
				raw, err := a.Gateway.Profile(ctx, sess.Token, role, userID)
				if err != nil {
					return err
				}
				return printJSON(raw)
			})
		},
	}
	cmd.Flags().StringVar(&roleFlag, "role", "", "profile role (defaults to the session user's role)")
	cmd.Flags().StringVar(&userID, "user-id", "", "user id (defaults to the session user)")
	return cmd
}

func schemaCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "schema", Short: "Inspect role profile schemas"}
	cmd.AddCommand(schemaShowCmd())
	return cmd
}

func schemaShowCmd() *cobra.Command {
	var roleFlag string
	var contractOnly bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the profile fields of a role",
		RunE: func(cmd *cobra.Command, args []string) error {
			role, err := parseRole(roleFlag, "")
			if err != nil {
				return err
			}
			if contractOnly {
				raw, err := contract.Schema(role)
				if err != nil {
					return err
				}
				_, err = os.Stdout.Write(raw)
				return err
			}
			v, err := forms.ForRole(role)
			if err != nil {
				return err
			}
			s := v.Schema()
			if viper.GetBool("json") {
				return printJSON(s.Fields)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.SetTitle(s.Title)
			tw.AppendHeader(table.Row{"Path", "Label", "Kind", "Required", "Options"})
			for _, fd := range s.Fields {
				tw.AppendRow(table.Row{fd.Path, fd.Label, fd.Kind, fd.Required, strings.Join(fd.Options, ", ")})
				for _, sub := range fd.Sub {
					tw.AppendRow(table.Row{fd.Path + "[n]." + sub.Path, sub.Label, sub.Kind, sub.Required, strings.Join(sub.Options, ", ")})
				}
			}
			tw.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&roleFlag, "role", "", "investor, entrepreneur or mentor")
	cmd.Flags().BoolVar(&contractOnly, "contract", false, "print the JSON Schema the gateway enforces")
	return cmd
}

func draftCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "draft", Short: "Manage saved profile drafts"}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List saved drafts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				ds, err := a.UserDrafts(ctx)
				if err != nil {
					return err
				}
				items, err := ds.List(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Role", "Updated", "Filled"})
				for _, d := range items {
					tw.AppendRow(table.Row{d.Role, d.UpdatedAt, filled(d.Values)})
				}
				tw.Render()
				return nil
			})
		},
	})

	var showRole string
	show := &cobra.Command{
		Use:   "show",
		Short: "Show the saved values of a draft",
		RunE: func(cmd *cobra.Command, args []string) error {
			role, err := parseRole(showRole, "")
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				ds, err := a.UserDrafts(ctx)
				if err != nil {
					return err
				}
				f, ok, err := ds.Load(ctx, role)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("no %s draft", role)
				}
				return printJSONOrTable(f.Snapshot())
			})
		},
	}
	show.Flags().StringVar(&showRole, "role", "", "draft role")
	cmd.AddCommand(show)

	var discardRole string
	discard := &cobra.Command{
		Use:   "discard",
		Short: "Delete a saved draft",
		RunE: func(cmd *cobra.Command, args []string) error {
			role, err := parseRole(discardRole, "")
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				ds, err := a.UserDrafts(ctx)
				if err != nil {
					return err
				}
				if err := ds.Discard(ctx, role); err != nil {
					return err
				}
				return printMessage(fmt.Sprintf("%s draft discarded", role), nil)
			})
		},
	}
	discard.Flags().StringVar(&discardRole, "role", "", "draft role")
	cmd.AddCommand(discard)
	return cmd
}

func lookupPath(doc map[string]any, path string) any {
	var cur any = doc
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[part]
	}
	return cur
}

func cell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case []any:
		parts := make([]string, 0, len(x))
		for _, it := range x {
			parts = append(parts, cell(it))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(x)
	}
}

// filled counts the values of a draft that are not empty.
func filled(vals map[string]any) int {
	n := 0
	for _, v := range vals {
		switch x := v.(type) {
		case string:
			if x != "" {
				n++
			}
		case []any:
			for _, it := range x {
				if s, _ := it.(string); s != "" {
					n++
					break
				}
			}
		case bool:
			if x {
				n++
			}
		case nil:
		default:
			n++
		}
	}
	return n
}
