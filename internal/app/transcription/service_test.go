package transcription

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/heptiolabs/healthcheck"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/HarshitVashisht11/Transly/internal/app/transcription/api"
	"github.com/HarshitVashisht11/Transly/internal/pkg/auth"
	errs "github.com/HarshitVashisht11/Transly/internal/pkg/err"
	"github.com/HarshitVashisht11/Transly/internal/pkg/status"
)

type testService struct {
	data  *ServiceData
	store *fakeStore
	files *fakeFiles
	tr    *fakeTranscriber
}

func initTestService(t *testing.T) *testService {
	t.Helper()
	o, store, files, tr := newTestOrchestrator(t)
	verifier, err := auth.NewStaticVerifier(map[string]string{
		"testToken": "user1", "token2": "user2"})
	assert.Nil(t, err)
	data := &ServiceData{Orchestrator: o, Verifier: verifier}
	data.health = healthcheck.NewHandler()
	assert.Nil(t, initMetrics(data))
	return &testService{data: data, store: store, files: files, tr: tr}
}

func (s *testService) invoke(req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	NewRouter(s.data).ServeHTTP(resp, req)
	return resp
}

func testReq(method, path string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Authorization", "Bearer testToken")
	return req
}

func newSubmitReq(fileName string, content []byte, fields map[string]string) *http.Request {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if fileName != "" {
		part, _ := writer.CreateFormFile("file", fileName)
		_, _ = part.Write(content)
	}
	for k, v := range fields {
		_ = writer.WriteField(k, v)
	}
	writer.Close()
	req := testReq("POST", "/transcriptions", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestWrongPath(t *testing.T) {
	resp := initTestService(t).invoke(testReq("GET", "/olia", nil))
	assert.Equal(t, 404, resp.Code)
}

func TestWrongMethod(t *testing.T) {
	resp := initTestService(t).invoke(testReq("PUT", "/transcriptions", nil))
	assert.Equal(t, 405, resp.Code)
}

func TestNoToken(t *testing.T) {
	s := initTestService(t)
	req := httptest.NewRequest("GET", "/transcriptions", nil)
	resp := s.invoke(req)
	assert.Equal(t, 401, resp.Code)
}

func TestWrongToken(t *testing.T) {
	s := initTestService(t)
	req := httptest.NewRequest("GET", "/transcriptions", nil)
	req.Header.Set("Authorization", "Bearer olia")
	resp := s.invoke(req)
	assert.Equal(t, 401, resp.Code)
}

func TestSubmit_Service(t *testing.T) {
	s := initTestService(t)
	resp := s.invoke(newSubmitReq("olia.wav", wavData(), nil))
	assert.Equal(t, 200, resp.Code)
	var res api.SubmitResult
	assert.Nil(t, json.Unmarshal(resp.Body.Bytes(), &res))
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, status.Completed.Name(), res.Status)
	assert.Equal(t, "the text", res.Transcript)
	assert.Equal(t, int64(1500), res.ProcessingTimeMs)
}

func TestSubmit_NoFile_Fails(t *testing.T) {
	s := initTestService(t)
	resp := s.invoke(newSubmitReq("", nil, map[string]string{"model": "base"}))
	assert.Equal(t, 400, resp.Code)
	assert.Equal(t, errs.InvalidInputCode, errCode(t, resp))
}

func TestSubmit_UnknownField_Fails(t *testing.T) {
	s := initTestService(t)
	resp := s.invoke(newSubmitReq("olia.wav", wavData(), map[string]string{"olia": "olia"}))
	assert.Equal(t, 400, resp.Code)
}

func TestSubmit_WrongModel_Fails(t *testing.T) {
	s := initTestService(t)
	resp := s.invoke(newSubmitReq("olia.wav", wavData(), map[string]string{"model": "olia"}))
	assert.Equal(t, 400, resp.Code)
	assert.Equal(t, errs.InvalidInputCode, errCode(t, resp))
}

func TestSubmit_WrongTranslate_Fails(t *testing.T) {
	s := initTestService(t)
	resp := s.invoke(newSubmitReq("olia.wav", wavData(), map[string]string{"translate": "olia"}))
	assert.Equal(t, 400, resp.Code)
}

func TestSubmit_TooLarge_Fails(t *testing.T) {
	s := initTestService(t)
	s.data.maxSize = 1000
	data := append(wavData(), bytes.Repeat([]byte{1}, 2000)...)
	resp := s.invoke(newSubmitReq("olia.wav", data, nil))
	assert.Equal(t, 400, resp.Code)
	assert.Equal(t, errs.InvalidInputCode, errCode(t, resp))
	assert.Empty(t, s.store.jobs)
	assert.Empty(t, s.files.saved)
}

func TestSubmit_WrongFileType_Fails(t *testing.T) {
	s := initTestService(t)
	resp := s.invoke(newSubmitReq("olia.pdf", []byte("%PDF-1.4 olia"), nil))
	assert.Equal(t, 400, resp.Code)
	var res api.ErrorResult
	assert.Nil(t, json.Unmarshal(resp.Body.Bytes(), &res))
	assert.Equal(t, "Invalid file type. Only audio and video files are allowed.", res.Message)
}

func TestSubmit_EngineWarmingUp_Service(t *testing.T) {
	s := initTestService(t)
	s.tr.err = errs.New(errs.EnginePreparingCode,
		"Model download in progress. Please try again in a few minutes")
	resp := s.invoke(newSubmitReq("olia.wav", wavData(), nil))
	assert.Equal(t, 503, resp.Code)
	assert.Equal(t, errs.EnginePreparingCode, errCode(t, resp))
}

func TestSubmit_EngineFails_Service(t *testing.T) {
	s := initTestService(t)
	s.tr.err = errors.New("olia")
	resp := s.invoke(newSubmitReq("olia.wav", wavData(), nil))
	assert.Equal(t, 500, resp.Code)
	assert.Equal(t, errs.EngineFailureCode, errCode(t, resp))
}

func TestList_Service(t *testing.T) {
	s := initTestService(t)
	s.store.Insert(&api.Job{ID: "id1", OwnerID: "user1", Status: status.Completed.Name()})
	s.store.Insert(&api.Job{ID: "id2", OwnerID: "user2", Status: status.Completed.Name()})
	resp := s.invoke(testReq("GET", "/transcriptions", nil))
	assert.Equal(t, 200, resp.Code)
	var jobs []api.Job
	assert.Nil(t, json.Unmarshal(resp.Body.Bytes(), &jobs))
	assert.Len(t, jobs, 1)
	assert.Equal(t, "id1", jobs[0].ID)
}

func TestGetJob_Service(t *testing.T) {
	s := initTestService(t)
	s.store.Insert(&api.Job{ID: "id1", OwnerID: "user1", Status: status.Processing.Name()})
	resp := s.invoke(testReq("GET", "/transcriptions/id1", nil))
	assert.Equal(t, 200, resp.Code)
	var job api.Job
	assert.Nil(t, json.Unmarshal(resp.Body.Bytes(), &job))
	assert.Equal(t, "id1", job.ID)
	assert.Equal(t, status.Processing.Name(), job.Status)
}

func TestGetJob_NotFound(t *testing.T) {
	s := initTestService(t)
	resp := s.invoke(testReq("GET", "/transcriptions/id1", nil))
	assert.Equal(t, 404, resp.Code)
	assert.Equal(t, errs.NotFoundCode, errCode(t, resp))
}

func TestGetJob_Forbidden(t *testing.T) {
	s := initTestService(t)
	s.store.Insert(&api.Job{ID: "id1", OwnerID: "user2"})
	resp := s.invoke(testReq("GET", "/transcriptions/id1", nil))
	assert.Equal(t, 403, resp.Code)
	assert.Equal(t, errs.ForbiddenCode, errCode(t, resp))
}

func TestDelete_Service(t *testing.T) {
	s := initTestService(t)
	s.store.Insert(&api.Job{ID: "id1", OwnerID: "user1"})
	resp := s.invoke(testReq("DELETE", "/transcriptions/id1", nil))
	assert.Equal(t, 200, resp.Code)
	var res api.DeleteResult
	assert.Nil(t, json.Unmarshal(resp.Body.Bytes(), &res))
	assert.Equal(t, "Transcription job deleted successfully", res.Message)
}

func TestDelete_Repeated(t *testing.T) {
	s := initTestService(t)
	s.store.Insert(&api.Job{ID: "id1", OwnerID: "user1"})
	resp := s.invoke(testReq("DELETE", "/transcriptions/id1", nil))
	assert.Equal(t, 200, resp.Code)
	resp = s.invoke(testReq("DELETE", "/transcriptions/id1", nil))
	assert.Equal(t, 404, resp.Code)
}

func TestResult_Service(t *testing.T) {
	s := initTestService(t)
	resp := s.invoke(newSubmitReq("olia.wav", wavData(), nil))
	assert.Equal(t, 200, resp.Code)
	var res api.SubmitResult
	assert.Nil(t, json.Unmarshal(resp.Body.Bytes(), &res))

	resp = s.invoke(testReq("GET", "/transcriptions/"+res.ID+"/result", nil))
	assert.Equal(t, 200, resp.Code)
	assert.Equal(t, "the text", resp.Body.String())
	assert.Contains(t, resp.Header().Get("Content-Disposition"), res.ID+"-transcript.txt")
}

func TestResult_NoTranscript(t *testing.T) {
	s := initTestService(t)
	s.store.Insert(&api.Job{ID: "id1", OwnerID: "user1", Status: status.Processing.Name()})
	resp := s.invoke(testReq("GET", "/transcriptions/id1/result", nil))
	assert.Equal(t, 404, resp.Code)
}

func TestLive(t *testing.T) {
	resp := initTestService(t).invoke(httptest.NewRequest("GET", "/live", nil))
	assert.Equal(t, 200, resp.Code)
}

func TestLive503(t *testing.T) {
	s := initTestService(t)
	s.data.health.AddLivenessCheck("test", func() error { return errors.New("test") })
	resp := s.invoke(httptest.NewRequest("GET", "/live", nil))
	assert.Equal(t, 503, resp.Code)
}

func TestReady(t *testing.T) {
	resp := initTestService(t).invoke(httptest.NewRequest("GET", "/ready", nil))
	assert.Equal(t, 200, resp.Code)
}

func TestMetrics(t *testing.T) {
	resp := initTestService(t).invoke(httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 200, resp.Code)
}

func TestSubmit_AddsMetric(t *testing.T) {
	s := initTestService(t)
	s.invoke(newSubmitReq("olia.wav", wavData(), nil))
	assert.Equal(t, 1, testutil.CollectAndCount(s.data.metrics.submitResponseDur))
}

func errCode(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	var res api.ErrorResult
	assert.Nil(t, json.Unmarshal(resp.Body.Bytes(), &res))
	return res.Code
}
