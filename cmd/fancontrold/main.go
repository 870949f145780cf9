package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/desingh-rajan/msi-fan-control/cmd/app"
	httpctrl "github.com/desingh-rajan/msi-fan-control/internal/controllers/http"
	modbusctrl "github.com/desingh-rajan/msi-fan-control/internal/controllers/modbus"
	mqttctrl "github.com/desingh-rajan/msi-fan-control/internal/controllers/mqtt"
	"github.com/desingh-rajan/msi-fan-control/internal/supervisor"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "path to config file (.yaml/.yml/.json)")
	flag.Parse()

	cfg, err := app.LoadConfig(configPath)
	if err != nil {
		log.Fatal(err)
	}

	sup := supervisor.New(supervisor.PkexecLauncher{
		SidecarPath: cfg.Sidecar.Path,
		MockEC:      cfg.Sidecar.MockEC,
	}, supervisor.Config{
		HandshakeTimeout: cfg.Sidecar.HandshakeTimeout,
		RequestTimeout:   cfg.Sidecar.RequestTimeout,
		LockTimeout:      cfg.Sidecar.LockTimeout,
	})
	defer sup.Disconnect()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	if cfg.Controllers.HTTP.Enabled {
		srv := httpctrl.New(sup, cfg.Controllers.HTTP.Addr, cfg.DeviceID)
		log.Printf("http listening on %s", cfg.Controllers.HTTP.Addr)
		g.Go(func() error { return srv.Run(ctx) })
	}

	if cfg.Controllers.MQTT.Enabled {
		mc, err := mqttctrl.New(sup, mqttctrl.Config{
			DeviceID:        cfg.DeviceID,
			BrokerURL:       cfg.Controllers.MQTT.BrokerURL,
			ClientID:        cfg.Controllers.MQTT.ClientID,
			BaseTopic:       cfg.Controllers.MQTT.BaseTopic,
			QoS:             cfg.Controllers.MQTT.QoS,
			RetainStatus:    cfg.Controllers.MQTT.RetainStatus,
			PublishInterval: cfg.Controllers.MQTT.PublishInterval,
			Username:        cfg.Controllers.MQTT.Username,
			Password:        cfg.Controllers.MQTT.Password,
		})
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("mqtt publishing to %s", cfg.Controllers.MQTT.BrokerURL)
		g.Go(func() error { return mc.Run(ctx) })
	}

	if cfg.Controllers.Modbus.Enabled {
		mb, err := modbusctrl.New(sup, modbusctrl.Config{
			DeviceID: cfg.DeviceID,
			Addr:     cfg.Controllers.Modbus.Addr,
			UnitID:   cfg.Controllers.Modbus.UnitID,
		})
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("modbus listening on %s", cfg.Controllers.Modbus.Addr)
		g.Go(func() error { return mb.Run(ctx) })
	}

	if err := g.Wait(); err != nil && err != context.Canceled {
		log.Printf("controller exited: %v", err)
	}
}
