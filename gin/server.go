package gin

import (
	"context"
	"errors"
	"github.com/gin-gonic/gin"
	"github.com/lukasz-zimnoch/dexly/spot"
	"net/http"
	"sync"
	"time"
)

const shutdownTimeout = 5 * time.Second

type StatusProvider interface {
	Status() *spot.TraderStatus
}

// ControlServer exposes the health, the last round status and a stop
// trigger of the trader over HTTP.
type ControlServer struct {
	logger   spot.Logger
	server   *http.Server
	router   *gin.Engine
	status   StatusProvider
	stop     func()
	stopOnce sync.Once
}

func NewControlServer(
	logger spot.Logger,
	address string,
	status StatusProvider,
	stop func(),
) *ControlServer {
	gin.SetMode(gin.ReleaseMode)

	cs := &ControlServer{
		logger: logger.WithField("component", "control"),
		router: gin.New(),
		status: status,
		stop:   stop,
	}

	cs.router.Use(gin.Recovery())
	cs.router.GET("/health", cs.health)
	cs.router.GET("/status", cs.traderStatus)
	cs.router.POST("/stop", cs.requestStop)

	cs.server = &http.Server{
		Addr:    address,
		Handler: cs.router,
	}

	return cs
}

// Run serves requests until the context is done.
func (cs *ControlServer) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		cs.logger.Infof("control server listening on [%v]", cs.server.Addr)

		err := cs.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
			return
		}

		errChan <- nil
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := cs.server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	return <-errChan
}

func (cs *ControlServer) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (cs *ControlServer) traderStatus(c *gin.Context) {
	status := cs.status.Status()

	response := gin.H{
		"cash":              status.Cash,
		"openPositions":     status.OpenPositions,
		"openCost":          status.OpenCost,
		"totalCommission":   status.TotalCommission,
		"transactionsCount": status.TransactionsCount,
	}

	if round := status.LastRound; round != nil {
		response["lastRound"] = gin.H{
			"id":           round.ID,
			"number":       round.Number,
			"startedAt":    round.StartedAt,
			"duration":     round.Duration.String(),
			"processed":    round.Processed,
			"skipped":      round.Skipped,
			"rejected":     round.Rejected,
			"failed":       round.Failed,
			"transactions": round.Transactions,
		}
	}

	c.JSON(http.StatusOK, response)
}

func (cs *ControlServer) requestStop(c *gin.Context) {
	cs.stopOnce.Do(func() {
		cs.logger.Infof("stop requested by [%v]", c.ClientIP())
		cs.stop()
	})

	c.JSON(http.StatusAccepted, gin.H{"status": "stopping"})
}
