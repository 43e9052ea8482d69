package engine

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/HarshitVashisht11/Transly/internal/app/transcription/api"
	"github.com/HarshitVashisht11/Transly/internal/pkg/cmdapp"
	errs "github.com/HarshitVashisht11/Transly/internal/pkg/err"
	"github.com/HarshitVashisht11/Transly/internal/pkg/utils"
	"github.com/pkg/errors"
)

// Result keeps a successful engine response
type Result struct {
	Transcript       string
	ProcessingTimeMs int64
}

// Client communicates with the transcription engine service
type Client struct {
	// no overall timeout - the call blocks for the whole transcription
	httpclient    *http.Client
	transcribeURL string
	healthURL     string
}

// NewClient creates an engine client from config
func NewClient() (*Client, error) {
	res := Client{}
	url, err := utils.GetURLFromConfig("engine.url")
	if err != nil {
		return nil, err
	}
	res.transcribeURL = utils.URLJoin(url, "transcribe")
	res.healthURL = utils.URLJoin(url, "health")
	res.httpclient = &http.Client{}
	return &res, nil
}

type engineResponse struct {
	Transcript       string  `json:"transcript"`
	ProcessingTimeMs float64 `json:"processing_time"`
	Error            string  `json:"error"`
}

// Transcribe sends media with parameters to the engine and waits for the transcript.
// The call is all-or-nothing, no retry, no partial result.
func (c *Client) Transcribe(fileName string, file io.Reader, params api.Parameters) (*Result, error) {
	cmdapp.Log.Infof("Sending media to: %s", c.transcribeURL)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return nil, errors.Wrap(err, "Can't add file to request")
	}
	_, err = io.Copy(part, file)
	if err != nil {
		return nil, errors.Wrap(err, "Can't add file to request")
	}
	writer.WriteField("model", params.Model)
	writer.WriteField("language", params.Language)
	writer.WriteField("translate", strconv.FormatBool(params.Translate))
	writer.Close()

	req, err := http.NewRequest(http.MethodPost, c.transcribeURL, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	start := time.Now()
	resp, err := c.httpclient.Do(req)
	if err != nil {
		return nil, errs.Wrap(err, errs.EngineFailureCode, "Can't call engine")
	}
	defer resp.Body.Close()

	var respData engineResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&respData)

	if !(resp.StatusCode >= 200 && resp.StatusCode <= 299) {
		return nil, classifyFailure(resp.StatusCode, respData.Error)
	}
	if decodeErr != nil {
		return nil, errs.Wrap(decodeErr, errs.EngineFailureCode, "Can't decode engine response")
	}
	res := &Result{Transcript: respData.Transcript, ProcessingTimeMs: int64(respData.ProcessingTimeMs)}
	if res.ProcessingTimeMs == 0 {
		res.ProcessingTimeMs = time.Since(start).Milliseconds()
	}
	cmdapp.Log.Infof("Engine done in %d ms", res.ProcessingTimeMs)
	return res, nil
}

// Healthy probes the engine health endpoint
func (c *Client) Healthy() error {
	resp, err := c.httpclient.Get(c.healthURL)
	if err != nil {
		return errors.Wrap(err, "Can't call engine")
	}
	defer resp.Body.Close()
	return utils.ValidateResponse(resp)
}

func classifyFailure(code int, msg string) error {
	if strings.Contains(msg, "download") {
		return errs.New(errs.EnginePreparingCode,
			"Model download in progress. Please try again in a few minutes: "+msg)
	}
	if msg == "" {
		msg = "Engine responded with code " + strconv.Itoa(code)
	}
	return errs.New(errs.EngineFailureCode, msg)
}
