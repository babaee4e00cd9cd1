package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mppt_sweep/internal/handlers"
	"mppt_sweep/internal/instrument"
	"mppt_sweep/internal/logger"
	"mppt_sweep/internal/repository"
	"mppt_sweep/internal/repository/db"
	"mppt_sweep/internal/server"
	"mppt_sweep/internal/service"

	"github.com/spf13/viper"
)

func main() {
	// load config.yml first so the log level comes from it
	if err := loadConfig(); err != nil {
		logger.Get(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}
	log := logger.Get(viper.GetString("log.level"))

	// open DB
	conn, err := openDB(log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	// wire dependencies
	repos := repository.NewRepository(conn)
	link := &instrument.TCPLink{Timeout: viper.GetDuration("instrument.timeout")}
	services := service.NewService(service.Deps{
		Repos:             repos,
		Link:              link,
		InstrumentAddress: viper.GetString("instrument.address"),
		Simulation:        viper.GetBool("instrument.simulation"),
		Log:               log,
	})

	// live output fanout for websocket clients
	stream := service.NewBroadcaster()
	if sweeper, ok := services.Sweeper.(*service.SweepService); ok {
		sweeper.AddSink(stream)
	}

	apiHandler := handlers.NewHandler(services, stream, log)

	// start HTTP server
	srv := &server.Server{}
	runHTTPServer(srv, viper.GetString("port"), apiHandler, log)

	// graceful shutdown: abort a running sweep so the instrument output is
	// switched off before the process exits
	waitForShutdown(services, srv, log)
}

func loadConfig() error {
	viper.AddConfigPath("configs") // configs/config.yml
	viper.SetConfigName("config")
	return viper.ReadInConfig()
}

// openDB initializes the SQLite database using configuration.
func openDB(log *logger.Logger) (*sql.DB, error) {
	dbPath := viper.GetString("db.path")
	if dbPath == "" {
		log.Infow("db.path not set in config; using default file", "default", "sweeps.db")
		dbPath = "sweeps.db"
	}
	return db.InitDB(dbPath)
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if port == "" {
			port = "8080"
		}
		if err := srv.Run(port, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(services *service.Service, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// a running sweep aborts cooperatively and releases the instrument
	if err := services.Sweeper.Abort(); err == nil {
		deadline := time.Now().Add(10 * time.Second)
		for services.Sweeper.Status().State != service.StateIdle && time.Now().Before(deadline) {
			time.Sleep(100 * time.Millisecond)
		}
	}

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalw("server forced to shutdown", "err", err)
	}
}
