package transcription

import (
	"time"

	"github.com/HarshitVashisht11/Transly/internal/app/transcription/api"
	"github.com/HarshitVashisht11/Transly/internal/pkg/auth"
	"github.com/HarshitVashisht11/Transly/internal/pkg/cmdapp"
	"github.com/HarshitVashisht11/Transly/internal/pkg/engine"
	"github.com/HarshitVashisht11/Transly/internal/pkg/metrics"
	"github.com/HarshitVashisht11/Transly/internal/pkg/mongo"
	"github.com/HarshitVashisht11/Transly/internal/pkg/saver"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/heptiolabs/healthcheck"
)

var rootCmd = &cobra.Command{
	Use:   "transcriptionService",
	Short: "Transly Transcription Service",
	Long:  `HTTP server to submit media files for transcription and track the jobs`,
	Run:   run,
}

func init() {
	cmdapp.InitApplication(rootCmd)
	rootCmd.PersistentFlags().Int32P("port", "", 8000, "Default service port")
	cmdapp.Config.BindPFlag("port", rootCmd.PersistentFlags().Lookup("port"))
	cmdapp.Config.SetDefault("port", 8000)
	cmdapp.Config.SetDefault("fileStorage.path", "/data/uploads/")
}

// Execute starts the server
func Execute() {
	cmdapp.Execute(rootCmd)
}

// fileStorage adapts the local saver to the FileStorage interface
type fileStorage struct {
	*saver.LocalFileSaver
}

func (fs fileStorage) Load(name string) (api.File, error) {
	return fs.LocalFileSaver.Load(name)
}

func run(cmd *cobra.Command, args []string) {
	cmdapp.Log.Info("Starting transcriptionService")
	var data ServiceData
	var err error
	data.health = healthcheck.NewHandler()

	fs, err := saver.NewLocalFileSaver(cmdapp.Config.GetString("fileStorage.path"))
	cmdapp.CheckOrPanic(err, "Can't init file storage")
	data.health.AddLivenessCheck("fs", fs.HealthyFunc())

	mongoSessionProvider, err := mongo.NewSessionProvider()
	cmdapp.CheckOrPanic(err, "Can't init mongo")
	defer mongoSessionProvider.Close()
	data.health.AddLivenessCheck("mongo", healthcheck.Async(mongoSessionProvider.Healthy, 10*time.Second))

	jobStore, err := mongo.NewJobStore(mongoSessionProvider)
	cmdapp.CheckOrPanic(err, "Can't init job store")

	engineClient, err := engine.NewClient()
	cmdapp.CheckOrPanic(err, "Can't init engine client")
	data.health.AddReadinessCheck("engine", healthcheck.Async(engineClient.Healthy, 10*time.Second))

	data.Orchestrator, err = NewOrchestrator(jobStore, fileStorage{fs}, engineClient)
	cmdapp.CheckOrPanic(err, "Can't init orchestrator")

	data.Verifier, err = auth.NewStaticVerifier(cmdapp.Config.GetStringMapString("auth.tokens"))
	cmdapp.CheckOrPanic(err, "Can't init token verifier")

	data.Port = cmdapp.Config.GetInt("port")
	err = initMetrics(&data)
	cmdapp.CheckOrPanic(err, "Can't init metrics")

	err = StartWebServer(&data)
	cmdapp.CheckOrPanic(err, "Can't start web server")
}

func initMetrics(data *ServiceData) error {
	namespace := "transcription_service"
	data.metrics.submitResponseDur = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "submit_request_durations_seconds",
			Help:      "Submit request latency distributions.",
		}, nil)
	err := metrics.Register(data.metrics.submitResponseDur)
	if err != nil {
		return err
	}
	data.metrics.submitRequestSize = prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Namespace: namespace,
			Name:      "submit_request_size_bytes",
			Help:      "Submit request size in bytes.",
		}, nil)
	err = metrics.Register(data.metrics.submitRequestSize)
	if err != nil {
		return err
	}
	data.metrics.jobResponseDur = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_request_durations_seconds",
			Help:      "Job status request latency distributions.",
		}, nil)
	return metrics.Register(data.metrics.jobResponseDur)
}
