package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/mzilka/tripbooker/api"
	"github.com/mzilka/tripbooker/config"
)

// Handlers bundles everything the HTTP server exposes.
type Handlers struct {
	Trips     *api.TripHandler
	Purchases *api.PurchaseHandler
	Upsell    *api.UpsellHandler
}

// Run starts the HTTP server and blocks until the context is canceled or the
// server fails.
func Run(ctx context.Context, cfg *config.Config, h Handlers) error {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(cors.Default())

	h.Trips.Register(engine.Group("/trips"))
	h.Purchases.Register(engine.Group("/purchases"))
	h.Upsell.Register(engine.Group("/upsell"))

	if cfg.HTTP.SwaggerDir != "" {
		engine.StaticFS("/swagger", http.Dir(cfg.HTTP.SwaggerDir))
		engine.GET("/docs/*any", gin.WrapH(httpSwagger.Handler(
			httpSwagger.URL("/swagger/tripbooker.swagger.json"),
		)))
	}

	srv := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: engine,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}
