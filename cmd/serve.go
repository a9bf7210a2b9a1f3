package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/raushankrgupta/fitly-tryon/api"
	"github.com/raushankrgupta/fitly-tryon/auth"
	"github.com/raushankrgupta/fitly-tryon/clientstate"
	"github.com/raushankrgupta/fitly-tryon/config"
	"github.com/raushankrgupta/fitly-tryon/inference"
	"github.com/raushankrgupta/fitly-tryon/notify"
	"github.com/raushankrgupta/fitly-tryon/scrapers"
	"github.com/raushankrgupta/fitly-tryon/storage"
	"github.com/raushankrgupta/fitly-tryon/tryon"
	"github.com/raushankrgupta/fitly-tryon/utils"
	"github.com/raushankrgupta/fitly-tryon/wardrobe"
)

func newServeCmd() *cobra.Command {
	var (
		port      string
		migrateDB bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the try-on web server",
		Example: `  # Start on the configured PORT
  fitly serve

  # Start on a custom port and prepare the schema first
  fitly serve --port 3000 --migrate`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if port == "" {
				port = config.Port
			}
			secret := config.JWTSecret
			if secret == "" {
				if config.Env == "production" {
					return errors.New("JWT_SECRET must be set in production")
				}
				utils.Log.Warn("JWT_SECRET not set, using an insecure development secret")
				secret = "fitly-dev-secret"
			}

			db, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer db.Close(context.Background())
			if migrateDB {
				if err := migrate(ctx, db); err != nil {
					return err
				}
			}

			objects, local, err := openObjects(ctx)
			if err != nil {
				return err
			}

			kv, err := openClientState(ctx)
			if err != nil {
				return err
			}
			defer kv.Close()
			prefs := clientstate.NewPrefs(kv)

			publisher, closeEvents := openEvents()
			defer closeEvents()

			hub := notify.NewHub()
			go hub.Run(ctx)

			authSvc := &auth.Service{
				Users:    db,
				Prefs:    prefs,
				Objects:  objects,
				Notifier: hub,
				Events:   publisher,
				Secret:   secret,
			}
			if config.SendGridAPIKey != "" {
				authSvc.Mailer = utils.NewSendGridMailer(config.SendGridAPIKey)
			}
			if g := auth.NewGoogleProvider(config.GoogleClientID, config.GoogleClientSecret, config.GoogleRedirectURL); g != nil {
				authSvc.Google = g
			}

			gateway := &wardrobe.Gateway{Outfits: db, Objects: objects, Prefs: prefs, Events: publisher}
			finder := scrapers.NewFinder(config.ScraperBrowsers, config.ChromeDriverPath)
			client := inference.NewClient()
			utils.AllowPrivateImageHosts(config.AllowPrivateImageHosts)

			controller := &tryon.Controller{
				Prefs:         prefs,
				Profiles:      authSvc,
				Objects:       objects,
				Loader:        &storage.Resolver{Store: objects, AssetsDir: config.AssetsDir},
				Inference:     client,
				Recommender:   &inference.Recommender{Client: client, Gemini: inference.GeminiAdvisor(config.GeminiAPIKey)},
				Catalog:       inference.DefaultCatalog(),
				Garments:      finder,
				Wardrobe:      gateway,
				DefaultAPIURL: config.InferenceURL,
			}

			handler := &api.Handler{
				Auth:          authSvc,
				TryOn:         controller,
				Wardrobe:      gateway,
				Garments:      finder,
				Hub:           hub,
				AssetsDir:     config.AssetsDir,
				Ping:          db.Ping,
				SecureCookies: config.Env == "production",
			}
			if local != nil {
				handler.Storage = local.Handler()
			}

			addr := ":" + port
			server := &http.Server{
				Addr:              addr,
				Handler:           api.NewRouter(handler),
				ReadHeaderTimeout: 10 * time.Second,
			}

			serverErr := make(chan error, 1)
			go func() {
				utils.Log.Info("Server starting", zap.String("addr", addr), zap.String("url", config.BaseURL))
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			select {
			case <-ctx.Done():
				utils.Log.Info("Shutting down server...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					utils.Log.Error("Server shutdown failed", zap.Error(err))
					return err
				}
				utils.Log.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on (defaults to PORT)")
	cmd.Flags().BoolVar(&migrateDB, "migrate", false, "Create tables and indexes before serving")

	return cmd
}
