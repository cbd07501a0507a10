package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/redis/go-redis/v9"

	"cupline/config"
	"cupline/livestate"
	"cupline/messaging"
	"cupline/monitor"
	"cupline/notify"
	"cupline/plc"
	"cupline/shiftclock"
	"cupline/store"
	"cupline/www"
)

var Version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "cupline.yaml", "path to config file")
	flag.Parse()

	if *showVersion {
		fmt.Println("cupline", Version)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Database
	db, err := store.Open(&cfg.Database)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()
	log.Printf("cupline: database open (%s)", cfg.Database.Driver)

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	redisOK := redisClient.Ping(ctx).Err() == nil
	cancel()
	if redisOK {
		log.Printf("cupline: redis connected (%s)", cfg.Redis.Address)
	} else {
		log.Printf("cupline: redis not available, running without cache")
	}
	defer redisClient.Close()

	// Live snapshot manager
	liveMgr := livestate.NewManager(db, livestate.NewRedisStore(redisClient))
	if redisOK {
		liveMgr.SyncRedisFromSQL()
	}

	// Email notifier and deduplicator
	notifier := notify.NewEmailNotifier(cfg.SMTP, db)
	defer notifier.Close()
	var locks notify.LockStore
	if redisOK {
		locks = notify.NewRedisLockStore(redisClient)
	} else {
		locks = notify.NewMemoryLockStore()
	}
	dedup := notify.NewDeduplicator(locks, cfg.Dedup.Window.Std())

	// MQTT counter source
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTT.Broker).
		SetClientID(cfg.MQTT.ClientID).
		SetUsername(cfg.MQTT.Username).
		SetPassword(cfg.MQTT.Password).
		SetAutoReconnect(true).
		SetConnectRetry(true)
	mqttClient := mqtt.NewClient(opts)
	if token := mqttClient.Connect(); !token.WaitTimeout(10*time.Second) || token.Error() != nil {
		log.Printf("cupline: mqtt connect pending (%v), retrying in background", token.Error())
	} else {
		log.Printf("cupline: mqtt connected (%s)", cfg.MQTT.Broker)
	}
	defer mqttClient.Disconnect(1000)

	// Machine poll loops
	clock := shiftclock.New(cfg.ShiftClock.CutoverHour, cfg.ShiftClock.GraceSeconds,
		cfg.ShiftClock.DayStartHour, cfg.ShiftClock.DayEndHour)
	supervisor := monitor.NewSupervisor()
	for _, mc := range cfg.Machines {
		source, err := plc.NewMQTTSource(mqttClient, cfg.MQTT.TopicPrefix, mc.Name, cfg.MQTT.StaleAfter.Std())
		if err != nil {
			log.Printf("cupline: [%s] source setup failed: %v", mc.Name, err)
			continue
		}
		machine := monitor.NewMachine(mc, db, liveMgr, source, notifier, dedup, clock)
		supervisor.Start(machine)
	}
	defer supervisor.StopAll(10 * time.Second)

	// Outbox drainer (outbound to ERP sync stream)
	if cfg.Kafka.Enabled {
		publisher := messaging.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer publisher.Close()
		drainer := messaging.NewDrainer(db, publisher, cfg.Kafka.DrainInterval.Std())
		drainer.Start()
		defer drainer.Stop()
		log.Printf("cupline: kafka drainer enabled (%s)", cfg.Kafka.Topic)
	}

	// Web server
	handler := www.NewRouter(cfg, db, liveMgr, notifier, Version)
	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}
	go func() {
		log.Printf("cupline: web server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("web server: %v", err)
		}
	}()

	log.Printf("cupline: ready, %d machines", len(cfg.Machines))

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Printf("cupline: shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)

	log.Printf("cupline: stopped")
}
