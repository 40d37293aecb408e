package observability

import (
	"context"
	"net"
	"net/http"
	"sync"

	"github.com/lexicone42/setbreak-sub000/internal/conf"
	"github.com/lexicone42/setbreak-sub000/internal/errors"
	"github.com/lexicone42/setbreak-sub000/internal/logger"
	metricspkg "github.com/lexicone42/setbreak-sub000/internal/observability/metrics"
)

// Endpoint serves /metrics while a long run is in progress.
type Endpoint struct {
	server        *http.Server
	listenAddress string
	metrics       *Metrics
	wg            sync.WaitGroup
}

// NewEndpoint returns an endpoint for the configured address. It fails when
// metrics are disabled in settings.
func NewEndpoint(settings *conf.MetricsSettings, metrics *Metrics) (*Endpoint, error) {
	if !settings.Enabled {
		return nil, errors.Newf("metrics endpoint not enabled in settings").
			Component("observability").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return &Endpoint{
		listenAddress: settings.Listen,
		metrics:       metrics,
	}, nil
}

// Start binds the listener and serves in the background. Binding errors
// are returned directly.
func (e *Endpoint) Start() error {
	mux := http.NewServeMux()
	e.metrics.RegisterHandlers(mux)

	ln, err := net.Listen("tcp", e.listenAddress)
	if err != nil {
		return errors.New(err).
			Component("observability").
			Category(errors.CategoryNetwork).
			Context("address", e.listenAddress).
			Build()
	}
	e.listenAddress = ln.Addr().String()
	e.server = &http.Server{Handler: mux, ReadHeaderTimeout: metricspkg.ShutdownTimeout}

	e.wg.Go(func() {
		getLogger().Info("metrics endpoint starting", logger.String("address", e.listenAddress))
		if err := e.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			getLogger().Error("metrics HTTP server error", logger.Error(err))
		}
	})
	return nil
}

// Addr is the bound address, useful when listening on port 0.
func (e *Endpoint) Addr() string {
	return e.listenAddress
}

// Stop shuts the server down and waits for it to exit.
func (e *Endpoint) Stop() {
	if e.server == nil {
		return
	}
	getLogger().Info("stopping metrics endpoint")
	ctx, cancel := context.WithTimeout(context.Background(), metricspkg.ShutdownTimeout)
	defer cancel()
	if err := e.server.Shutdown(ctx); err != nil {
		getLogger().Error("metrics server shutdown error", logger.Error(err))
	}
	e.wg.Wait()
}
