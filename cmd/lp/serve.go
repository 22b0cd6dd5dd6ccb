package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"launchpad/internal/app"
	"launchpad/internal/config"
	"launchpad/internal/engine"
	"launchpad/internal/events"
	"launchpad/internal/repo"
	"launchpad/internal/server"
)

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the portal API against the workspace database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if cmd.Flags().Changed("addr") {
					a.Config.Server.Addr = addr
				}
				if cmd.Flags().Changed("base-path") {
					a.Config.Server.BasePath = basePath
				}
				if a.Config.Auth.JWTSecret == config.Default().Auth.JWTSecret {
					a.Log.Warn("auth.jwt_secret is the built-in development secret; set it in launchpad.yml")
				}
				e := engine.New(a.DB, a.Config, a.Log)
				handler, err := server.New(server.Config{
					Engine:   e,
					BasePath: a.Config.Server.BasePath,
					Auth:     server.AuthConfig{Logger: a.Log},
				})
				if err != nil {
					return err
				}
				srv := &http.Server{Addr: a.Config.Server.Addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
				dispatcher := server.NewDispatcher(e, a.Config.Webhooks, a.Log)

				g, gctx := errgroup.WithContext(ctx)
				g.Go(func() error {
					a.Log.Info("serving", zap.String("addr", srv.Addr), zap.String("base_path", a.Config.Server.BasePath))
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						return err
					}
					return nil
				})
				g.Go(func() error {
					<-gctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					return srv.Shutdown(shutdownCtx)
				})
				g.Go(func() error { return dispatcher.Run(gctx) })
				g.Go(func() error {
					ticker := time.NewTicker(time.Hour)
					defer ticker.Stop()
					for {
						select {
						case <-gctx.Done():
							return nil
						case <-ticker.C:
							n, err := e.Repo.PruneRevokedTokens(gctx, time.Now().UTC().Format(time.RFC3339))
							if err != nil {
								a.Log.Warn("prune revoked tokens", zap.Error(err))
								continue
							}
							a.Log.Debug("pruned revoked tokens", zap.Int64("count", n))
						}
					}
				})
				fmt.Printf("Serving Launchpad API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at %s/docs)\n",
					srv.Addr, a.Config.Server.BasePath, a.Config.Server.BasePath, a.Config.Server.BasePath)
				return g.Wait()
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:5000", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/api/v1", "API base path")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Manage launchpad.yml"}
	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default launchpad.yml into the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o600); err != nil {
				return err
			}
			return printMessage("Wrote "+path, nil)
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cmd.AddCommand(initCmd)
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				cfg := *a.Config
				cfg.Auth.JWTSecret = "********"
				if viper.GetBool("json") {
					return printJSON(cfg)
				}
				out, err := yaml.Marshal(cfg)
				if err != nil {
					return err
				}
				_, err = os.Stdout.Write(out)
				return err
			})
		},
	})
	return cmd
}

func logCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "log", Short: "Inspect the server event log"}
	cmd.AddCommand(logTailCmd())
	return cmd
}

func logTailCmd() *cobra.Command {
	var filter repo.EventFilter
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Show the latest events recorded by lp serve",
		RunE: func(cmd *cobra.Command, args []string) error {
			if filter.Type != "" && !events.Known(filter.Type) {
				return fmt.Errorf("unknown event type %q (one of %s)", filter.Type, strings.Join(events.Types(), ", "))
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				latest, err := a.Repo.LatestEvents(ctx, filter)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(latest)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Time", "Type", "Entity", "Actor", "Payload"})
				for _, evt := range latest {
					tw.AppendRow(table.Row{evt.ID, evt.TS, evt.Type, evt.EntityKind + ":" + evt.EntityID, evt.ActorID, evt.Payload})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&filter.Limit, "n", 20, "number of events")
	cmd.Flags().StringVar(&filter.Type, "type", "", "event type filter")
	cmd.Flags().StringVar(&filter.TypePrefix, "prefix", "", "event type prefix, e.g. user.")
	cmd.Flags().StringVar(&filter.EntityKind, "entity-kind", "", "entity kind")
	cmd.Flags().StringVar(&filter.EntityID, "entity-id", "", "entity id")
	return cmd
}
