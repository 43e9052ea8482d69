package transcription

import (
	"encoding/json"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/HarshitVashisht11/Transly/internal/app/transcription/api"
	"github.com/HarshitVashisht11/Transly/internal/pkg/auth"
	"github.com/HarshitVashisht11/Transly/internal/pkg/cmdapp"
	errs "github.com/HarshitVashisht11/Transly/internal/pkg/err"
	"github.com/facebookgo/grace/gracehttp"
	"github.com/gorilla/mux"
	"github.com/heptiolabs/healthcheck"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxMediaSize caps inbound media, oversize is rejected before processing
const maxMediaSize = 100 << 20

type serviceMetric struct {
	submitResponseDur prometheus.ObserverVec
	submitRequestSize prometheus.ObserverVec

	jobResponseDur prometheus.ObserverVec
}

// ServiceData keeps data required for service work
type ServiceData struct {
	Orchestrator *Orchestrator
	Verifier     auth.Verifier

	Port    int
	maxSize int64
	health  healthcheck.Handler
	metrics serviceMetric
}

func (data *ServiceData) mediaLimit() int64 {
	if data.maxSize > 0 {
		return data.maxSize
	}
	return maxMediaSize
}

// StartWebServer starts the HTTP service and listens for the requests
func StartWebServer(data *ServiceData) error {
	cmdapp.Log.Infof("Starting HTTP service at %d", data.Port)
	r := NewRouter(data)

	portStr := strconv.Itoa(data.Port)
	srv := http.Server{
		Addr: ":" + portStr,
		// submit blocks for the whole transcription, no write deadline
		WriteTimeout:      0,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       180 * time.Second,
		Handler:           r,
	}

	w := cmdapp.Log.Writer()
	defer w.Close()
	l := log.New(w, "", 0)
	gracehttp.SetLogger(l)

	return gracehttp.Serve(&srv)
}

// NewRouter creates the router for HTTP service
func NewRouter(data *ServiceData) *mux.Router {
	router := mux.NewRouter().StrictSlash(true)
	a := func(h http.Handler) http.Handler {
		return auth.Handler(h, data.Verifier)
	}
	sh := promhttp.InstrumentHandlerDuration(data.metrics.submitResponseDur,
		promhttp.InstrumentHandlerRequestSize(data.metrics.submitRequestSize, submitHandler{data: data}))
	jh := promhttp.InstrumentHandlerDuration(data.metrics.jobResponseDur, jobHandler{data: data})
	router.Methods("POST").Path("/transcriptions").Handler(a(sh))
	router.Methods("GET").Path("/transcriptions").Handler(a(listHandler{data: data}))
	router.Methods("GET").Path("/transcriptions/{id}").Handler(a(jh))
	router.Methods("DELETE").Path("/transcriptions/{id}").Handler(a(deleteHandler{data: data}))
	router.Methods("GET").Path("/transcriptions/{id}/result").Handler(a(resultHandler{data: data}))
	router.Methods("GET").Path("/metrics").Handler(promhttp.Handler())
	if data.health != nil {
		router.Methods("GET").Path("/live").HandlerFunc(data.health.LiveEndpoint)
		router.Methods("GET").Path("/ready").HandlerFunc(data.health.ReadyEndpoint)
	}
	return router
}

type submitHandler struct {
	data *ServiceData
}

func (h submitHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cmdapp.Log.Infof("Saving file from %s", r.Host)

	r.Body = http.MaxBytesReader(w, r.Body, h.data.mediaLimit())
	err := r.ParseMultipartForm(32 << 20)
	if err != nil {
		writeError(w, errs.Wrap(err, errs.InvalidInputCode, "Can't parse MultipartForm"))
		return
	}
	defer cleanFiles(r.MultipartForm)
	err = validateFormParams(r)
	if err != nil {
		writeError(w, errs.Wrap(err, errs.InvalidInputCode, "Wrong input form"))
		return
	}
	params, err := takeParams(r)
	if err != nil {
		writeError(w, err)
		return
	}

	file, handler, err := r.FormFile("file")
	if err != nil {
		writeError(w, errs.Wrap(err, errs.InvalidInputCode, "No file uploaded"))
		return
	}
	defer file.Close()

	job, err := h.data.Orchestrator.Submit(auth.OwnerID(r), handler.Filename, file, params)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, api.SubmitResult{ID: job.ID, Status: job.Status,
		Transcript: job.Transcript, ProcessingTimeMs: job.ProcessingTimeMs})
}

type listHandler struct {
	data *ServiceData
}

func (h listHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cmdapp.Log.Infof("Jobs list request from %s", r.Host)

	jobs, err := h.data.Orchestrator.List(auth.OwnerID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, jobs)
}

type jobHandler struct {
	data *ServiceData
}

func (h jobHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cmdapp.Log.Infof("Job request from %s", r.Host)

	id := mux.Vars(r)["id"]
	if id == "" {
		writeError(w, errs.New(errs.InvalidInputCode, "No ID"))
		return
	}
	job, err := h.data.Orchestrator.Get(auth.OwnerID(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, job)
}

type deleteHandler struct {
	data *ServiceData
}

func (h deleteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cmdapp.Log.Infof("Delete request from %s", r.Host)

	id := mux.Vars(r)["id"]
	if id == "" {
		writeError(w, errs.New(errs.InvalidInputCode, "No ID"))
		return
	}
	err := h.data.Orchestrator.Delete(auth.OwnerID(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, api.DeleteResult{Message: "Transcription job deleted successfully"})
}

type resultHandler struct {
	data *ServiceData
}

func (h resultHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cmdapp.Log.Infof("Result request from %s", r.Host)

	id := mux.Vars(r)["id"]
	if id == "" {
		writeError(w, errs.New(errs.InvalidInputCode, "No ID"))
		return
	}
	file, err := h.data.Orchestrator.Result(auth.OwnerID(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	defer file.Close()
	fileInfo, err := file.Stat()
	if err != nil {
		writeError(w, errs.Wrap(err, errs.NotFoundCode, "Cannot get file for ID: "+id))
		return
	}
	w.Header().Set("Content-Disposition", "attachment; filename="+fileInfo.Name())
	http.ServeContent(w, r, fileInfo.Name(), fileInfo.ModTime(), file)
}

func cleanFiles(f *multipart.Form) {
	if f != nil {
		f.RemoveAll()
	}
}

func validateFormParams(r *http.Request) error {
	allowed := map[string]bool{"model": true, "language": true, "translate": true}
	for k := range r.Form {
		if !allowed[k] {
			return errors.Errorf("Unknown parameter '%s'", k)
		}
	}
	return nil
}

func takeParams(r *http.Request) (api.Parameters, error) {
	res := api.DefaultParameters()
	if v := r.FormValue("model"); v != "" {
		if !api.ValidModel(v) {
			return res, errs.New(errs.InvalidInputCode, "Unknown model: "+v)
		}
		res.Model = v
	}
	if v := r.FormValue("language"); v != "" {
		res.Language = v
	}
	if v := r.FormValue("translate"); v != "" {
		t, err := strconv.ParseBool(v)
		if err != nil {
			return res, errs.Wrap(err, errs.InvalidInputCode, "Wrong translate value: "+v)
		}
		res.Translate = t
	}
	return res, nil
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	encoder := json.NewEncoder(w)
	err := encoder.Encode(data)
	if err != nil {
		http.Error(w, "Can not prepare result", http.StatusInternalServerError)
		cmdapp.Log.Error(err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	cmdapp.Log.Error(err)
	msg := "Service error"
	var se *errs.Error
	if errors.As(err, &se) {
		msg = se.Message()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(errs.HTTPStatus(err))
	encErr := json.NewEncoder(w).Encode(api.ErrorResult{Message: msg,
		Code: errs.Code(err), JobID: errs.JobID(err)})
	cmdapp.LogIf(encErr)
}
