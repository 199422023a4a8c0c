package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"smartcity-dashboard/internal/config"
	"smartcity-dashboard/internal/db"
	"smartcity-dashboard/internal/db/migrate"
	"smartcity-dashboard/internal/httpapi"
	"smartcity-dashboard/internal/modules/sensors"
	"smartcity-dashboard/internal/modules/sensors/feed"
	"smartcity-dashboard/internal/modules/sensors/geocode"
	"smartcity-dashboard/internal/modules/sensors/history"
	"smartcity-dashboard/internal/modules/sensors/live"
	"smartcity-dashboard/internal/modules/sensors/repository"
	"smartcity-dashboard/internal/modules/sensors/service"
	"smartcity-dashboard/internal/modules/sensors/views"
	"smartcity-dashboard/internal/mqtt"
)

func Run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	logger.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"sensorFeedURL", cfg.SensorFeedURL,
		"pollInterval", cfg.PollInterval.String(),
		"geocoderURL", cfg.GeocoderURL,
		"sqliteDriver", cfg.SQLiteDriver,
		"sqlitePath", cfg.SQLitePath,
		"sqliteMaxOpenConns", cfg.SQLiteMaxOpenConns,
		"sqliteLogSQL", cfg.SQLiteLogSQL,
		"mqttBroker", cfg.MQTTBroker,
		"mqttPort", cfg.MQTTPort,
		"mqttTopic", cfg.MQTTTopic,
	)

	dbConn, err := db.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(dbConn); closeErr != nil {
			logger.Error("db close", "error", closeErr)
		}
	}()

	if err := migrate.Run(ctx, dbConn, logger); err != nil {
		return err
	}
	logger.Info("database ready")

	if err := views.LoadTemplates(); err != nil {
		return err
	}

	prefs := repository.NewRepository(dbConn)
	dashboard := service.NewDashboard(history.NewStore())
	hub := live.NewHub(logger, cfg.CORSOrigins)
	hub.SetSnapshot(func() any {
		return service.Update{Type: "state", State: dashboard.State()}
	})

	geocoder := geocode.NewCached(geocode.NewNominatim(cfg.GeocoderURL, cfg.GeocoderUserAgent, cfg.FetchTimeout))
	poller := service.NewPoller(dashboard, feed.NewClient(cfg.SensorFeedURL, cfg.FetchTimeout), geocoder, cfg.PollInterval, logger)
	poller.SetBroadcaster(hub)

	var publisher *mqtt.Publisher
	var brokerState httpapi.ConnectionState
	if cfg.MQTTEnabled() {
		publisher = mqtt.NewPublisher(cfg, logger)
		brokerState = publisher
		poller.SetPublisher(publisher)

		// A short initial connect so a missing broker does not block startup;
		// the client keeps retrying in the background.
		connectCtx, connectCancel := context.WithTimeout(ctx, 5*time.Second)
		err = publisher.Connect(connectCtx)
		connectCancel()
		if err != nil {
			logger.Warn("mqtt connection failed (continuing, will retry)", "error", err)
		}
	} else {
		logger.Info("mqtt disabled (MQTT_BROKER not set)")
	}

	mux := httpapi.NewMux(prefs, brokerState)
	sensors.RegisterFeature(mux, sensors.Deps{
		Repository: prefs,
		Dashboard:  dashboard,
		Hub:        hub,
	})
	srv := httpapi.NewServer(cfg, mux, logger)

	pollCtx, stopPolling := context.WithCancel(ctx)
	defer stopPolling()
	var wg sync.WaitGroup
	wg.Go(func() {
		poller.Run(pollCtx)
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		stopPolling()
		wg.Wait()
		if publisher != nil {
			publisher.Disconnect()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("poller stopping")
	stopPolling()
	wg.Wait()

	if publisher != nil {
		logger.Info("mqtt disconnecting")
		publisher.Disconnect()
	}

	logger.Info("http shutting down")
	hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}
