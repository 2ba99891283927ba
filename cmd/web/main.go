package main

import (
	"context"
	"net/http"

	"github.com/booklend/booklend/pkg/config"
	"github.com/booklend/booklend/pkg/keycloak"
	"github.com/booklend/booklend/pkg/version"
	"github.com/booklend/booklend/pkg/web"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/robinjoseph08/golib/signals"
)

func main() {
	ctx := context.Background()
	log := logger.New()

	log.Info("starting lending frontend", logger.Data{"version": version.Version})

	cfg, err := config.New()
	if err != nil {
		log.Err(err).Fatal("config error")
	}

	authenticator, err := web.NewAuthenticator(ctx, cfg)
	if err != nil {
		log.Err(err).Fatal("identity provider error")
	}
	log.Info("identity provider discovered", logger.Data{"issuer": cfg.OIDCIssuerURL})

	apiClient := web.NewClient(cfg.BackendBaseURL)
	adminClient := keycloak.New(cfg)

	srv, err := web.NewServer(cfg, authenticator, apiClient, adminClient)
	if err != nil {
		log.Err(err).Fatal("server error")
	}

	graceful := signals.Setup()

	go func() {
		log.Info("server started", logger.Data{"addr": srv.Addr})
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Err(err).Fatal("server stopped")
		}
		log.Info("server stopped")
	}()

	<-graceful
	log.Info("starting graceful shutdown")

	err = srv.Shutdown(ctx)
	if err != nil {
		log.Err(err).Error("server shutdown error")
	}
	log.Info("server shutdown")
}
