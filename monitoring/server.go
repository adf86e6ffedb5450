package monitoring

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

// OpsServer is the sidecar http server for operational endpoints. It runs
// next to the main app so scrapers and probes never touch the public API.
type OpsServer struct {
	echo  *echo.Echo
	srv   *http.Server
	redis *redis.Client
}

func NewOpsServer(redisClient *redis.Client, port int) *OpsServer {
	e := echo.New()

	s := &OpsServer{
		echo:  e,
		srv:   &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: e},
		redis: redisClient,
	}

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/health", s.health)

	return s
}

func (s *OpsServer) health(c echo.Context) error {
	status := map[string]string{"status": "ok"}

	if s.redis != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := s.redis.Ping(ctx).Err(); err != nil {
			status["status"] = "degraded"
			status["redis"] = err.Error()
			return c.JSON(http.StatusServiceUnavailable, status)
		}
		status["redis"] = "ok"
	}

	return c.JSON(http.StatusOK, status)
}

// Start blocks serving the ops endpoints.
func (s *OpsServer) Start() error {
	log.Printf("ops server listening on %s", s.srv.Addr)
	return s.srv.ListenAndServe()
}

func (s *OpsServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
