package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/keyresolver/internal/config"
	httpserver "github.com/dropDatabas3/keyresolver/internal/http"
	"github.com/dropDatabas3/keyresolver/internal/metrics"
	"github.com/dropDatabas3/keyresolver/internal/observability/logger"
	"github.com/dropDatabas3/keyresolver/internal/openid"
	"github.com/dropDatabas3/keyresolver/internal/rate"
)

var version = "dev"

type globalFlags struct {
	configPath   string
	envFile      string
	discoveryURL string
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:          "keyresolver",
		Short:        "Resuelve claves de firma (kid -> PEM) desde un discovery OpenID",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&g.configPath, "config", os.Getenv("KEYRESOLVER_CONFIG"), "ruta a config.yaml (vacío = solo env)")
	root.PersistentFlags().StringVar(&g.envFile, "env-file", ".env", "ruta a .env (se ignora si no existe)")
	root.PersistentFlags().StringVar(&g.discoveryURL, "discovery-url", "", "override de openid.discovery_url")

	root.AddCommand(newServeCmd(g), newResolveCmd(g), newIssuerCmd(g), newRefreshCmd(g))
	return root
}

// setup carga .env + config, inicializa el logger y construye el resolver.
func setup(g *globalFlags) (*config.Config, *openid.Resolver, error) {
	if g.envFile != "" {
		_ = godotenv.Load(g.envFile)
	}
	if g.discoveryURL != "" {
		_ = os.Setenv("OPENID_DISCOVERY_URL", g.discoveryURL)
	}
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, nil, err
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.Log.Level,
		ServiceName: cfg.App.Name,
		Version:     buildVersion(cfg),
	})

	res, err := openid.New(openid.Config{
		DiscoveryURL: cfg.OpenID.DiscoveryURL,
		Timeout:      cfg.Timeout(),
		Freshness:    cfg.Freshness(),
		Logger:       logger.Named("openid"),
	})
	if err != nil {
		return nil, nil, err
	}
	return cfg, res, nil
}

// buildVersion: la versión inyectada por ldflags gana; app.version solo
// aplica a builds sin ldflags.
func buildVersion(cfg *config.Config) string {
	if version == "dev" && cfg.App.Version != "" {
		return cfg.App.Version
	}
	return version
}

func newServeCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Levanta la API HTTP (/v1/keys, /v1/issuer, /metrics)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, res, err := setup(g)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			if cfg.Metrics.Enabled {
				if err := metrics.RegisterOpenID(nil); err != nil {
					return fmt.Errorf("metrics: %w", err)
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if cfg.OpenID.WarmUp {
				// una falla acá no impide arrancar: los lookups reintentan
				if err := res.Refresh(ctx); err != nil {
					logger.L().Warn("warm-up refresh failed", logger.Err(err))
				}
			}

			deps := httpserver.RouterDeps{
				Resolver:   res,
				Logger:     logger.Named("http"),
				Metrics:    cfg.Metrics.Enabled,
				TrustProxy: cfg.Server.TrustProxy,
			}
			if cfg.RateLimit.RefreshMax > 0 {
				deps.RefreshLimiter = rate.NewMemoryLimiter("refresh:", cfg.RateLimit.RefreshMax, cfg.RefreshWindow())
			}
			router := httpserver.NewRouter(deps)
			return httpserver.Start(ctx, cfg.Server.Addr, router, cfg.ShutdownTimeout())
		},
	}
}

func newResolveCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <kid>",
		Short: "Resuelve un kid y imprime PEM + endorsements en JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, res, err := setup(g)
			if err != nil {
				return err
			}
			rk, ok := res.ResolveKey(cmd.Context(), args[0])
			if !ok {
				return fmt.Errorf("kid %q not found (unknown or not RSA)", args[0])
			}
			return printJSON(cmd, rk)
		},
	}
}

func newIssuerCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "issuer <tenant-id>",
		Short: "Imprime el issuer del tenant (hace refresh previo si hace falta)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, res, err := setup(g)
			if err != nil {
				return err
			}
			// Precondición de IssuerTemplate: al menos un discovery exitoso.
			if err := res.Refresh(cmd.Context()); err != nil && !errors.Is(err, openid.ErrJWKSFetch) {
				return err
			}
			iss, err := res.IssuerTemplate(strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), iss)
			return nil
		},
	}
}

func newRefreshCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Ejecuta discovery + JWKS y muestra el estado resultante",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, res, err := setup(g)
			if err != nil {
				return err
			}
			if err := res.Refresh(cmd.Context()); err != nil {
				return err
			}
			return printJSON(cmd, map[string]any{
				"stats": res.Stats(),
				"keys":  res.Keys(),
			})
		},
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
