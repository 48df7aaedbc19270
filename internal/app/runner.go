package app

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/dig"

	"service-dispatch/internal/logx"
)

// MustRun starts the HTTP server using the provided DI container
func MustRun(container *dig.Container) {
	if err := run(container); err != nil {
		switch {
		case errors.Is(err, context.Canceled):
			log.Println("shutdown requested, exiting")
			return
		case errors.Is(err, context.DeadlineExceeded):
			log.Println("startup aborted: startup timeout exceeded")
			return
		default:
			log.Fatalf("run error: %v", err)
		}
	}
}

type runIn struct {
	dig.In
	Ctx    context.Context
	Server *http.Server
	Pprof  *http.Server `name:"pprof_server" optional:"true"`
	Pool   *pgxpool.Pool
	Logger logx.Logger
}

func run(container *dig.Container) error {
	return container.Invoke(func(in runIn) error {
		startServer(in.Server, "service-dispatch", in.Logger)
		if in.Pprof != nil {
			startServer(in.Pprof, "pprof", in.Logger)
		}

		<-in.Ctx.Done()
		in.Logger.Info("shutting down service-dispatch")

		gracefulShutdown(in.Server, in.Logger, 15*time.Second)
		if in.Pprof != nil {
			gracefulShutdown(in.Pprof, in.Logger, time.Second)
		}
		closeResources(in.Pool, in.Server, in.Logger)
		return nil
	})
}

func startServer(server *http.Server, name string, logger logx.Logger) {
	go func() {
		logger.Info(name+" listening", logx.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("%s listen error: %v", name, err)
		}
	}()
}

func gracefulShutdown(srv *http.Server, logger logx.Logger, timeout time.Duration) {
	shCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shCtx); err != nil {
		logger.Error("graceful shutdown error", logx.Any("err", err))
	}
}

func closeResources(pool *pgxpool.Pool, server *http.Server, logger logx.Logger) {
	if err := server.Close(); err != nil {
		logger.Error("server close error", logx.Any("err", err))
	}
	pool.Close()
}
