package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"launchpad/internal/app"
	"launchpad/internal/domain"
	"launchpad/internal/form"
	"launchpad/internal/forms"
	"launchpad/internal/otp"
	"launchpad/internal/render"
	"launchpad/internal/schema"
)

func registerCmd() *cobra.Command {
	var first, last, email, phone, password, role string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				f := form.New(forms.RegisterSchema)
				sets := map[string]string{
					"firstName": first, "lastName": last, "email": email,
					"phone": phone, "password": password, "confirmPassword": password, "role": role,
				}
				errs, err := completeForm(ctx, f, nonEmpty(sets))
				if err != nil {
					return err
				}
				if len(errs) > 0 {
					printFieldErrors(errs)
					return errs
				}
				reg := forms.RegistrationFrom(f.Snapshot())
				u, msg, err := a.Gateway.Register(ctx, reg)
				if err != nil {
					return err
				}
				if err := printMessage(msg, u); err != nil {
					return err
				}
				if !interactive() {
					fmt.Printf("Verify your email with: lp verify --email %s --send\n", reg.Email)
					return nil
				}
				return runVerify(ctx, a, reg.Email)
			})
		},
	}
	cmd.Flags().StringVar(&first, "first-name", "", "first name")
	cmd.Flags().StringVar(&last, "last-name", "", "last name")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&password, "password", "", "password (min 6 characters)")
	cmd.Flags().StringVar(&role, "role", "", "investor, entrepreneur or mentor")
	return cmd
}

func loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session in the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				f := form.New(forms.LoginSchema)
				errs, err := completeForm(ctx, f, nonEmpty(map[string]string{"email": email, "password": password}))
				if err != nil {
					return err
				}
				if len(errs) > 0 {
					printFieldErrors(errs)
					return errs
				}
				creds := forms.CredentialsFrom(f.Snapshot())
				sess, msg, err := a.Gateway.Login(ctx, creds)
				var se *domain.SessionError
				if errors.As(err, &se) && se.Reason == domain.SessionUnverified && interactive() {
					fmt.Println(se.Message)
					if err := runVerify(ctx, a, creds.Email); err != nil {
						return err
					}
					sess, msg, err = a.Gateway.Login(ctx, creds)
				}
				if err != nil {
					return err
				}
				if err := a.Sessions().SaveSession(ctx, sess); err != nil {
					return err
				}
				if err := printMessage(msg, sess.User); err != nil {
					return err
				}
				if !sess.User.HasProfile() && !viper.GetBool("json") {
					fmt.Printf("Complete your profile with: lp profile create --role %s\n", sess.User.Role)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the session token and forget it",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				sess, err := a.Session(ctx)
				if err != nil {
					return err
				}
				msg := "Not logged in"
				if sess.Authenticated() {
					m, err := a.Gateway.Logout(ctx, sess.Token)
					var se *domain.SessionError
					if err != nil && !errors.As(err, &se) {
						a.Log.Sugar().Warnw("logout request failed", "error", err)
					}
					msg = "Logged out"
					if m != "" {
						msg = m
					}
				}
				if err := a.Sessions().ClearSession(ctx); err != nil {
					return err
				}
				return printMessage(msg, nil)
			})
		},
	}
}

func verifyCmd() *cobra.Command {
	var email, code string
	var send bool
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify your email with a one-time password",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if strings.TrimSpace(email) == "" {
					sess, err := a.Session(ctx)
					if err != nil {
						return err
					}
					email = sess.User.Email
				}
				if strings.TrimSpace(email) == "" {
					return errors.New("--email is required")
				}
				if interactive() && code == "" && !send {
					return runVerify(ctx, a, email)
				}
				if send {
					msg, err := a.Gateway.SendOTP(ctx, email)
					if err != nil {
						return err
					}
					if err := printMessage(msg, nil); err != nil {
						return err
					}
				}
				if code == "" {
					return nil
				}
				if msg := forms.VerifySchema.ValidateField("pin", code); msg != "" {
					return domain.FieldErrors{"pin": msg}
				}
				msg, err := a.Gateway.VerifyOTP(ctx, email, code)
				if err != nil {
					return err
				}
				return printMessage(msg, nil)
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address (defaults to the session user)")
	cmd.Flags().StringVar(&code, "code", "", "6-digit one-time password")
	cmd.Flags().BoolVar(&send, "send", false, "request a new code")
	return cmd
}

// runVerify sends a code and prompts until it is accepted. Typing "resend"
// requests a new code once the cooldown is over.
func runVerify(ctx context.Context, a *app.App, email string) error {
	flow := otp.NewFlow(a.Gateway, email, otp.Options{
		Cooldown: a.Config.OTPCooldown(),
		MaxSends: a.Config.OTP.MaxSends,
		Logger:   a.Log,
	})
	msg, err := flow.Send(ctx)
	if err != nil {
		return err
	}
	fmt.Println(msg)

	for flow.State() != otp.StateVerified {
		var pin string
		input := huh.NewInput().
			Title("One-Time Password").
			Description(fmt.Sprintf("Enter the 6-digit code sent to %s, or type resend.", email)).
			Value(&pin)
		if err := huh.NewForm(huh.NewGroup(input)).WithAccessible(viper.GetBool("accessible")).RunWithContext(ctx); err != nil {
			return err
		}
		pin = strings.TrimSpace(pin)
		if strings.EqualFold(pin, "resend") {
			if flow.Remaining() > 0 {
				for left := range flow.Countdown(ctx) {
					fmt.Fprintf(os.Stderr, "\rYou can request a new code in %2ds", left)
				}
				fmt.Fprintln(os.Stderr)
			}
			msg, err := flow.Send(ctx)
			if errors.Is(err, otp.ErrResendLimit) {
				return err
			}
			if err != nil {
				fmt.Println(describe(err))
				continue
			}
			fmt.Println(msg)
			continue
		}
		msg, err := flow.Verify(ctx, pin)
		var fe domain.FieldErrors
		switch {
		case errors.As(err, &fe):
			fmt.Println(fe["pin"])
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Println(describe(err))
		default:
			fmt.Println(msg)
		}
	}
	return nil
}

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				sess, err := a.Session(ctx)
				if err != nil {
					return err
				}
				if !sess.Authenticated() {
					return errors.New("not logged in; run `lp login`")
				}
				u, err := a.Gateway.UserInfo(ctx, sess.Token)
				if err != nil {
					return err
				}
				sess.User = u
				if err := a.Sessions().SaveSession(ctx, sess); err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(u)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendRows([]table.Row{
					{"ID", u.ID},
					{"Name", strings.TrimSpace(u.FirstName + " " + u.LastName)},
					{"Email", u.Email},
					{"Role", u.Role},
					{"Verified", u.IsVerified},
					{"Profile", u.HasProfile()},
				})
				tw.Render()
				return nil
			})
		},
	}
}

// completeForm applies path=value sets to f, then prompts until the form is
// valid when interactive. The remaining field errors are returned.
func completeForm(ctx context.Context, f *form.Form, sets map[string]string) (domain.FieldErrors, error) {
	if err := applySets(f, sets); err != nil {
		return nil, err
	}
	for {
		if interactive() {
			if err := renderRun(ctx, f); err != nil {
				return nil, err
			}
		}
		errs := f.Validate()
		if len(errs) == 0 || !interactive() {
			return errs, nil
		}
		printFieldErrors(errs)
	}
}

// renderRun shows the form again after entries were added or removed so the
// new entry fields can be filled in.
func renderRun(ctx context.Context, f *form.Form) error {
	for {
		plan := render.Render(f, renderOptions())
		if err := plan.Run(ctx); err != nil {
			return err
		}
		if !plan.Restructured() {
			return nil
		}
	}
}


// applySets parses raw flag text the same way the interactive controls do.
func applySets(f *form.Form, sets map[string]string) error {
	if len(sets) == 0 {
		return nil
	}
	for path := range sets {
		if err := growGroup(f, path); err != nil {
			return err
		}
	}
	plan := render.Render(f, render.Options{})
	for _, path := range sortedKeys(sets) {
		b, ok := plan.Binding(path)
		if !ok {
			return fmt.Errorf("unknown field %q", path)
		}
		if err := b.Input(sets[path]); err != nil {
			return err
		}
	}
	return plan.Commit()
}

// growGroup appends group entries until an entry path such as
// "education[2].degree" exists.
func growGroup(f *form.Form, path string) error {
	ref, ok := schema.ParseElement(path)
	if !ok || ref.Sub == "" {
		return nil
	}
	g, ok := f.Schema().Group(ref.Key())
	if !ok {
		return nil
	}
	for schema.GroupLen(g, f.Snapshot()) <= ref.Index {
		if err := f.AppendListItem(g.Path, nil); err != nil {
			return err
		}
	}
	return nil
}

func nonEmpty(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		if v != "" {
			out[k] = v
		}
	}
	return out
}
