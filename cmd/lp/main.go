package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"launchpad/internal/app"
	"launchpad/internal/db"
	"launchpad/internal/domain"
	"launchpad/internal/gateway"
	"launchpad/internal/render"
)

var rootCmd = &cobra.Command{
	Use:   "lp",
	Short: "Launchpad CLI",
	Long: `Launchpad onboards founders, investors and mentors onto the startup portal.
Core concepts:
- Workspace: the .launchpad directory holding the local database (session, drafts, server state) next to launchpad.yml.
- Gateway: the portal API every client command talks to; run your own with 'lp serve'.
- Roles: investor, entrepreneur or mentor, chosen at registration. Each role fills in one profile.
- Verification: a 6-digit one-time password sent by email; login is refused until it is verified.
- Drafts: profile forms are saved locally while you fill them in and discarded once submitted.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_, err := db.EnsureWorkspace(viper.GetString("workspace"))
		return err
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", describe(err))
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("LAUNCHPAD")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	pf := rootCmd.PersistentFlags()
	pf.StringP("workspace", "w", ".", "workspace directory")
	pf.Bool("json", false, "output JSON")
	pf.String("gateway", "", "gateway base URL (overrides launchpad.yml)")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.Bool("no-interactive", false, "never prompt; take every value from flags")
	pf.Bool("accessible", false, "plain prompts for screen readers")
	for _, name := range []string{"workspace", "json", "gateway", "log-level", "no-interactive", "accessible"} {
		_ = viper.BindPFlag(name, pf.Lookup(name))
	}
}

func registerCommands() {
	rootCmd.AddCommand(registerCmd())
	rootCmd.AddCommand(loginCmd())
	rootCmd.AddCommand(logoutCmd())
	rootCmd.AddCommand(verifyCmd())
	rootCmd.AddCommand(whoamiCmd())
	rootCmd.AddCommand(profileCmd())
	rootCmd.AddCommand(schemaCmd())
	rootCmd.AddCommand(draftCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(logCmd())
}

// --- helpers ---

func withApp(ctx context.Context, fn func(context.Context, *app.App) error) error {
	a, err := app.Open(ctx, app.Options{
		Workspace:  viper.GetString("workspace"),
		GatewayURL: viper.GetString("gateway"),
		LogLevel:   viper.GetString("log-level"),
	})
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func interactive() bool { return !viper.GetBool("no-interactive") }

func renderOptions() render.Options {
	return render.Options{Accessible: viper.GetBool("accessible")}
}

func parseRole(raw string, fallback domain.Role) (domain.Role, error) {
	if strings.TrimSpace(raw) == "" {
		if fallback == "" {
			return "", errors.New("--role is required (investor, entrepreneur or mentor)")
		}
		return fallback, nil
	}
	role, ok := domain.ParseRole(raw)
	if !ok {
		return "", fmt.Errorf("unknown role %q (investor, entrepreneur or mentor)", raw)
	}
	return role, nil
}

// describe prefers the server message over the wrapped transport error.
func describe(err error) string {
	if msg := gateway.Message(err); msg != "" {
		return msg
	}
	return err.Error()
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printMessage(msg string, data any) error {
	if viper.GetBool("json") {
		return printJSON(map[string]any{"message": msg, "data": data})
	}
	fmt.Println(msg)
	return nil
}

func printFieldErrors(errs domain.FieldErrors) {
	if viper.GetBool("json") {
		_ = printJSON(map[string]any{"errors": errs})
		return
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Field", "Problem"})
	for _, p := range errs.Paths() {
		tw.AppendRow(table.Row{p, errs[p]})
	}
	tw.Render()
}

// parseSets splits path=value flags. Repeating a path collects one line per
// value, which list fields read as one item each.
func parseSets(sets []string) (map[string]string, error) {
	out := make(map[string]string, len(sets))
	for _, s := range sets {
		k, v, ok := strings.Cut(s, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --set %q; expected path=value", s)
		}
		if prev, seen := out[k]; seen {
			v = prev + "\n" + v
		}
		out[k] = v
	}
	return out, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
