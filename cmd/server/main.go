package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/softee/managed/alert"
	"github.com/softee/managed/monitor"
	"github.com/softee/managed/objectname"
	"github.com/softee/managed/registry"
	"github.com/softee/managed/sink"
)

func main() {
	name, err := objectname.New("org.softee", "Messaging", "demo")
	if err != nil {
		log.Fatal(err)
	}

	reg := registry.NewRegistry()
	mon := monitor.NewMessagingMonitor(name, nil)
	if err := mon.Start(reg); err != nil {
		log.Fatal(err)
	}

	prometheus.MustRegister(registry.NewCollector(reg))

	sinks := setupSinks()
	defer func() {
		for _, s := range sinks {
			if err := s.Close(); err != nil {
				log.Printf("failed to close %s sink: %v", s.Name(), err)
			}
		}
	}()

	if len(sinks) > 0 {
		exporter := sink.NewExporter(reg, sinks, 10*time.Second)
		go exporter.Start()
		defer exporter.Stop()
	}

	if notifier := setupNotifier(mon); notifier != nil {
		go watchFailures(notifier)
	}

	pipeline := newPipeline(mon)
	go pipeline.Start()
	defer pipeline.Stop()

	mux := http.NewServeMux()
	mux.Handle("/api/", registry.MetricsMiddleware(registry.NewAPI(reg)))
	mux.Handle("/metrics", promhttp.Handler())

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server := &http.Server{Addr: ":" + port, Handler: mux}
	go func() {
		log.Printf("Management server starting on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down")
	if err := server.Close(); err != nil {
		log.Printf("failed to close server: %v", err)
	}
	if err := mon.Stop(); err != nil {
		log.Printf("failed to stop monitor: %v", err)
	}
}

func setupSinks() []sink.Sink {
	var sinks []sink.Sink

	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		redisSink, err := sink.NewRedisSink(redisAddr)
		if err != nil {
			log.Fatal(err)
		}
		sinks = append(sinks, redisSink)
		log.Printf("Exporting snapshots to Redis at %s", redisAddr)
	}

	if postgresDSN := os.Getenv("POSTGRES_DSN"); postgresDSN != "" {
		postgresSink, err := sink.NewPostgresSink(postgresDSN)
		if err != nil {
			log.Fatal(err)
		}
		sinks = append(sinks, postgresSink)
		log.Println("Exporting snapshots to PostgreSQL")
	}

	return sinks
}

func setupNotifier(mon *monitor.MessagingMonitor) *alert.Notifier {
	to := os.Getenv("ALERT_EMAIL")
	if to == "" {
		return nil
	}

	threshold := int64(10)
	if raw := os.Getenv("ALERT_THRESHOLD"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			log.Fatalf("invalid ALERT_THRESHOLD %q: %v", raw, err)
		}
		threshold = parsed
	}

	sender := alert.NewSendGridSender(
		os.Getenv("EMAIL_API_KEY"),
		os.Getenv("FROM_NAME"),
		os.Getenv("FROM_ADDRESS"),
		to,
	)

	log.Printf("Alerting %s when failures reach %d", to, threshold)
	return alert.NewNotifier(mon.Stats(), "Messaging monitor failure alert", threshold, sender)
}

func watchFailures(notifier *alert.Notifier) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		if err := notifier.Check(); err != nil {
			log.Printf("Failed to send alert: %v", err)
		}
	}
}
