package jobclient

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/HarshitVashisht11/Transly/internal/app/transcription/api"
	errs "github.com/HarshitVashisht11/Transly/internal/pkg/err"
	"github.com/stretchr/testify/assert"
)

type testResp struct {
	code int
	resp string
}

type testReq struct {
	body   string
	URL    string
	method string
	auth   string
}

func newTestR(code int, resp string) testResp {
	return testResp{code: code, resp: resp}
}

func newTestReq(req *http.Request) testReq {
	b, _ := io.ReadAll(req.Body)
	return testReq{URL: req.URL.String(), body: string(b), method: req.Method,
		auth: req.Header.Get("Authorization")}
}

func initTestServer(t *testing.T, rData map[string]testResp) (*Client, *httptest.Server, *[]testReq) {
	t.Helper()
	resRequest := make([]testReq, 0)
	rLock := &sync.Mutex{}
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		rLock.Lock()
		defer rLock.Unlock()
		resRequest = append(resRequest, newTestReq(req))
		resp, f := rData[req.URL.String()]
		if f {
			rw.WriteHeader(resp.code)
			rw.Write([]byte(resp.resp))
		}
	}))
	cl := newClient(server.URL, "testToken")
	cl.httpclient.HTTPClient = server.Client()
	cl.httpclient.RetryMax = 0
	return cl, server, &resRequest
}

func TestGetJob(t *testing.T) {
	var job api.Job
	job.ID = "id10"
	job.Status = "COMPLETED"
	job.Transcript = "hello world"
	rb, _ := json.Marshal(job)
	cl, server, tReq := initTestServer(t, map[string]testResp{"/transcriptions/id10": newTestR(200, string(rb))})
	defer server.Close()

	r, err := cl.GetJob("id10")

	assert.Nil(t, err)
	assert.Equal(t, "id10", r.ID)
	assert.Equal(t, "COMPLETED", r.Status)
	assert.Equal(t, "hello world", r.Transcript)
	assert.Equal(t, "Bearer testToken", (*tReq)[0].auth)
}

func TestGetJob_NotFound(t *testing.T) {
	cl, server, _ := initTestServer(t, map[string]testResp{
		"/transcriptions/id10": newTestR(404, `{"message":"Unknown ID: id10","code":"NOT_FOUND"}`)})
	defer server.Close()

	r, err := cl.GetJob("id10")

	assert.Nil(t, r)
	assert.NotNil(t, err)
	assert.Equal(t, errs.NotFoundCode, errs.Code(err))
}

func TestGetJob_WrongJSON_Fails(t *testing.T) {
	cl, server, _ := initTestServer(t, map[string]testResp{"/transcriptions/id10": newTestR(200, "olia")})
	defer server.Close()

	r, err := cl.GetJob("id10")

	assert.Nil(t, r)
	assert.NotNil(t, err)
}

func TestListJobs(t *testing.T) {
	jobs := []api.Job{{ID: "id2"}, {ID: "id1"}}
	rb, _ := json.Marshal(jobs)
	cl, server, _ := initTestServer(t, map[string]testResp{"/transcriptions": newTestR(200, string(rb))})
	defer server.Close()

	r, err := cl.ListJobs()

	assert.Nil(t, err)
	assert.Equal(t, 2, len(r))
	assert.Equal(t, "id2", r[0].ID)
}

func TestDelete(t *testing.T) {
	cl, server, tReq := initTestServer(t, map[string]testResp{
		"/transcriptions/id10": newTestR(200, `{"message":"ok"}`)})
	defer server.Close()

	err := cl.Delete("id10")

	assert.Nil(t, err)
	assert.Equal(t, "DELETE", (*tReq)[0].method)
}

func TestDelete_Fails(t *testing.T) {
	cl, server, _ := initTestServer(t, map[string]testResp{
		"/transcriptions/id10": newTestR(404, `{"message":"Unknown ID: id10","code":"NOT_FOUND"}`)})
	defer server.Close()

	err := cl.Delete("id10")

	assert.NotNil(t, err)
	assert.Equal(t, errs.NotFoundCode, errs.Code(err))
}

func TestSubmit(t *testing.T) {
	cl, server, tReq := initTestServer(t, map[string]testResp{
		"/transcriptions": newTestR(200, `{"id":"id10","status":"COMPLETED","transcript":"hello world","processingTime":850}`)})
	defer server.Close()

	r, err := cl.Submit("test.wav", strings.NewReader("audio"),
		api.Parameters{Model: "tiny", Language: "auto"})

	assert.Nil(t, err)
	assert.Equal(t, "id10", r.ID)
	assert.Equal(t, "hello world", r.Transcript)
	assert.Equal(t, int64(850), r.ProcessingTimeMs)
	body := (*tReq)[0].body
	assert.Contains(t, body, "test.wav")
	assert.Contains(t, body, "tiny")
	assert.Equal(t, "Bearer testToken", (*tReq)[0].auth)
}

func TestSubmit_WarmingUp(t *testing.T) {
	cl, server, _ := initTestServer(t, map[string]testResp{
		"/transcriptions": newTestR(503, `{"message":"Model download in progress","code":"ENGINE_PREPARING","jobId":"id10"}`)})
	defer server.Close()

	r, err := cl.Submit("test.wav", strings.NewReader("audio"), api.DefaultParameters())

	assert.Nil(t, r)
	assert.NotNil(t, err)
	assert.Equal(t, errs.EnginePreparingCode, errs.Code(err))
	assert.Equal(t, "id10", errs.JobID(err))
}

func TestSubmit_Fails(t *testing.T) {
	cl, server, _ := initTestServer(t, map[string]testResp{
		"/transcriptions": newTestR(500, "")})
	defer server.Close()

	r, err := cl.Submit("test.wav", strings.NewReader("audio"), api.DefaultParameters())

	assert.Nil(t, r)
	assert.NotNil(t, err)
}
