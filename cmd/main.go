package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"marketwatch-backend/config"
	"marketwatch-backend/internal/ai"
	"marketwatch-backend/internal/alert"
	"marketwatch-backend/internal/database"
	"marketwatch-backend/internal/email"
	"marketwatch-backend/internal/metrics"
	"marketwatch-backend/internal/notify"
	"marketwatch-backend/internal/quote"
	"marketwatch-backend/internal/telegram"
	"marketwatch-backend/internal/whatsapp"

	"github.com/leonelquinteros/gotext"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	log "github.com/sirupsen/logrus"
)

func init() {
	config.InitConfig()
	setupLogging()
}

func main() {
	gotext.Configure("locales", strings.ToLower(config.GetString("lang")), "default")

	err := database.InitDB(config.GetString("db_path"))
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.CloseDB()

	loadMetricsFromDB()

	bot, err := telegram.NewBot(telegram.BotConfig{
		Token: config.GetString("telegram_bot_token"),
		Debug: config.GetBool("debug"),
	})
	if err != nil {
		log.Fatalf("Failed to create telegram bot: %v", err)
	}

	dispatcher := notify.NewDispatcher(
		ai.NewClient(config.GetString("anthropic_api_key")),
		bot,
		whatsapp.NewClient(
			config.GetString("whatsapp_access_token"),
			config.GetString("whatsapp_phone_number_id"),
		),
		email.NewClient(
			config.GetString("resend_api_key"),
			config.GetString("email_from"),
			config.GetString("frontend_url"),
		),
	)

	engine := alert.NewEngine(
		database.AlertStore{},
		quote.NewClient(config.GetString("fmp_api_key")),
		dispatcher,
		time.Duration(config.GetInt("poll_interval_seconds"))*time.Second,
	)

	ctx, cancel := context.WithCancel(context.Background())
	engineDone := make(chan struct{})
	go func() {
		engine.Run(ctx)
		close(engineDone)
	}()

	go func() {
		for {
			time.Sleep(5 * time.Minute)
			saveMetricsToDB()
		}
	}()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		cancel()
		<-engineDone
		saveMetricsToDB()
		log.Println("Metrics saved, shutting down...")
		os.Exit(0)
	}()

	if err := launchMetricsAndHealthServer(config.GetInt("metrics_port")); err != nil {
		log.Fatalf("Failed to start metrics and health server: %v", err)
	}
}

func setupLogging() {
	log.SetLevel(log.InfoLevel)
	if config.GetBool("debug") {
		log.SetLevel(log.DebugLevel)
	}
	log.Debug("Starting alert engine...")
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func launchMetricsAndHealthServer(port int) error {
	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/health", healthCheckHandler)

	log.Infof("Launching metrics and health endpoint on :%d", port)
	return http.ListenAndServe(fmt.Sprintf(":%d", port), http.DefaultServeMux)
}

func loadMetricsFromDB() {
	cycles, _ := database.GetMetric("cycles_total")
	cycleErrors, _ := database.GetMetric("cycle_errors_total")
	evaluated, _ := database.GetMetric("alerts_evaluated_total")

	metrics.CyclesTotal.Add(cycles)
	metrics.CycleErrors.Add(cycleErrors)
	metrics.AlertsEvaluated.Add(evaluated)

	loadLabeledMetric("alerts_triggered_total", metrics.AlertsTriggered)
	loadLabeledMetric("notifications_sent_total", metrics.NotificationsSent)
	loadLabeledMetric("notifications_failed_total", metrics.NotificationsFailed)

	log.Println("Metrics loaded from database.")
}

func loadLabeledMetric(name string, vec *prometheus.CounterVec) {
	values, err := database.GetMetricsWithLabels(name)
	if err != nil {
		log.Printf("Failed to load metric %s: %v", name, err)
		return
	}
	for labelValue, value := range values {
		vec.WithLabelValues(labelValue).Add(value)
	}
}

func saveMetricsToDB() {
	database.SaveMetric("cycles_total", "", "", getMetricValue(metrics.CyclesTotal))
	database.SaveMetric("cycle_errors_total", "", "", getMetricValue(metrics.CycleErrors))
	database.SaveMetric("alerts_evaluated_total", "", "", getMetricValue(metrics.AlertsEvaluated))

	saveLabeledMetric("alerts_triggered_total", "kind", metrics.AlertsTriggered)
	saveLabeledMetric("notifications_sent_total", "channel", metrics.NotificationsSent)
	saveLabeledMetric("notifications_failed_total", "channel", metrics.NotificationsFailed)

	log.Println("Metrics saved to database.")
}

func saveLabeledMetric(name, labelKey string, vec *prometheus.CounterVec) {
	metricChan := make(chan prometheus.Metric)
	go func() {
		vec.Collect(metricChan)
		close(metricChan)
	}()

	for metric := range metricChan {
		metricProto := &dto.Metric{}
		if err := metric.Write(metricProto); err != nil {
			log.Printf("Failed to read metric %s: %v", name, err)
			continue
		}
		var labelValue string
		for _, label := range metricProto.Label {
			if label.GetName() == labelKey {
				labelValue = label.GetValue()
			}
		}
		database.SaveMetric(name, labelKey, labelValue, metricProto.Counter.GetValue())
	}
}

func getMetricValue(metric prometheus.Collector) float64 {
	var metricValue float64
	metricChan := make(chan prometheus.Metric, 1)
	metric.Collect(metricChan)
	close(metricChan)

	metricProto := &dto.Metric{}
	if err := (<-metricChan).Write(metricProto); err != nil {
		log.Printf("Failed to read metric value: %v", err)
		return 0
	}

	if metricProto.Counter != nil {
		metricValue = metricProto.Counter.GetValue()
	} else if metricProto.Gauge != nil {
		metricValue = metricProto.Gauge.GetValue()
	}
	return metricValue
}
