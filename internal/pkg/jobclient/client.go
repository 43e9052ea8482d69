package jobclient

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/HarshitVashisht11/Transly/internal/app/transcription/api"
	"github.com/HarshitVashisht11/Transly/internal/pkg/cmdapp"
	errs "github.com/HarshitVashisht11/Transly/internal/pkg/err"
	"github.com/HarshitVashisht11/Transly/internal/pkg/utils"
	"github.com/pkg/errors"

	"github.com/hashicorp/go-retryablehttp"
)

// Client communicates with the transcription service API
type Client struct {
	httpclient *retryablehttp.Client
	jobsURL    string
	token      string
}

// NewClient creates a service API client from config
func NewClient() (*Client, error) {
	url, err := utils.GetURLFromConfig("service.url")
	if err != nil {
		return nil, err
	}
	token := cmdapp.Config.GetString("service.token")
	if token == "" {
		return nil, errors.New("No service.token setting provided")
	}
	return newClient(url, token), nil
}

func newClient(url, token string) *Client {
	res := Client{}
	res.jobsURL = utils.URLJoin(url, "transcriptions")
	res.token = token
	res.httpclient = retryablehttp.NewClient()
	res.httpclient.RetryMax = 3
	res.httpclient.Logger = nil
	return &res
}

// GetJob retrieves one job by ID
func (c *Client) GetJob(id string) (*api.Job, error) {
	urlStr := utils.URLJoin(c.jobsURL, id)
	cmdapp.Log.Debugf("Get job: %s", urlStr)
	req, err := retryablehttp.NewRequest(http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, err
	}
	var res api.Job
	err = c.invoke(req, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// ListJobs retrieves all caller's jobs, newest first
func (c *Client) ListJobs() ([]api.Job, error) {
	req, err := retryablehttp.NewRequest(http.MethodGet, c.jobsURL, nil)
	if err != nil {
		return nil, err
	}
	res := make([]api.Job, 0)
	err = c.invoke(req, &res)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Delete removes job with its files
func (c *Client) Delete(id string) error {
	req, err := retryablehttp.NewRequest(http.MethodDelete, utils.URLJoin(c.jobsURL, id), nil)
	if err != nil {
		return err
	}
	var res api.DeleteResult
	return c.invoke(req, &res)
}

// Submit sends media for transcription and waits for the terminal answer.
// The call is not idempotent so it bypasses the retry wrapper
func (c *Client) Submit(fileName string, file io.Reader, params api.Parameters) (*api.SubmitResult, error) {
	cmdapp.Log.Infof("Sending media to: %s", c.jobsURL)

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

	req, err := http.NewRequest(http.MethodPost, c.jobsURL, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpclient.HTTPClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "Can't call service")
	}
	defer resp.Body.Close()

	var res api.SubmitResult
	err = decodeResponse(resp, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) invoke(req *retryablehttp.Request, res interface{}) error {
	req.Header.Set("Authorization", "Bearer "+c.token)
	resp, err := c.httpclient.Do(req)
	if err != nil {
		return errors.Wrap(err, "Can't call service")
	}
	defer resp.Body.Close()
	return decodeResponse(resp, res)
}

func decodeResponse(resp *http.Response, res interface{}) error {
	if !(resp.StatusCode >= 200 && resp.StatusCode <= 299) {
		var errRes api.ErrorResult
		if decErr := json.NewDecoder(resp.Body).Decode(&errRes); decErr == nil && errRes.Message != "" {
			if errRes.Code == "" {
				errRes.Code = errs.DefaultCode
			}
			return errs.New(errRes.Code, errRes.Message).WithJob(errRes.JobID)
		}
		return errors.Errorf("Wrong response code from server. Code: %d", resp.StatusCode)
	}
	err := json.NewDecoder(resp.Body).Decode(res)
	if err != nil {
		return errors.Wrap(err, "Can't decode response")
	}
	return nil
}
