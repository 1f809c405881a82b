package providers

import (
	"context"
	"errors"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/feedbackapp/feedback-server/internal/api"
	"github.com/feedbackapp/feedback-server/internal/auth"
	"github.com/feedbackapp/feedback-server/internal/config"
	"github.com/feedbackapp/feedback-server/internal/logger"
	"github.com/feedbackapp/feedback-server/internal/service"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
	api *api.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := h.Server.Shutdown(ctx)
	h.api.Close()
	return err
}

// ProvideHTTPServer provides the HTTP server and starts listening.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	identity := do.MustInvoke[auth.Identity](i)
	log := do.MustInvoke[*logger.Logger](i)

	services := &api.Services{
		Surveys:     do.MustInvoke[*service.SurveyService](i),
		Invitations: do.MustInvoke[*service.InvitationService](i),
		Sessions:    do.MustInvoke[*service.SessionService](i),
		Analytics:   do.MustInvoke[*service.AnalyticsService](i),
		Export:      do.MustInvoke[*service.ExportService](i),
		Auth:        do.MustInvoke[*service.AuthService](i),
	}

	var counter api.DocumentCounter
	if indexHandle.SearchIndex != nil {
		counter = indexHandle.SearchIndex
	}

	handler := api.NewServer(storeHandle.Store, counter, services, identity, api.Options{
		Version:     Version,
		CORSOrigins: cfg.Server.CORSOrigins,
		PublicRPS:   cfg.Server.PublicRPS,
		PublicBurst: cfg.Server.PublicBurst,
	}, log.Logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	return &HTTPServerHandle{Server: srv, api: handler}, nil
}
