package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mailjudge/go-verifier/types"
	"github.com/mailjudge/go-verifier/worker"
	"go.uber.org/zap/zaptest"
)

// mockWorker is a mock implementation of the worker.Worker interface
type mockWorker struct {
	// The result to send back when Submit is called
	Result    types.Result
	Err       error
	RespErr   error
	Submitted []*types.Submission
	worker.Worker
}

func (m *mockWorker) Submit(_ context.Context, s *types.Submission) (<-chan worker.Response, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.Submitted = append(m.Submitted, s)
	rtCh := make(chan worker.Response, 1)
	rtCh <- worker.Response{Submission: s, Result: m.Result, Err: m.RespErr}
	return rtCh, nil
}

func (m *mockWorker) Pending() int { return 3 }

func newRouter(t *testing.T, w worker.Worker) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewJudgeHandle(w, zaptest.NewLogger(t)).Register(r)
	return r
}

// requestToReader converts a Request to an io.Reader
func requestToReader(req Request) io.Reader {
	data, err := json.Marshal(req)
	if err != nil {
		return nil
	}
	return bytes.NewReader(data)
}

func TestHandleJudge(t *testing.T) {
	w := &mockWorker{Result: types.Result{Status: types.StatusWrongAnswer, FailedTest: 2}}
	r := newRouter(t, w)

	req := httptest.NewRequest(http.MethodPost, "/judge", requestToReader(Request{
		ID: 9, Task: "sum", Language: "C++", Files: []string{"/s/a.cpp"},
	}))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.ID != 9 || resp.Status != types.StatusWrongAnswer || resp.Code != 3 || resp.FailedTest != 2 {
		t.Errorf("unexpected response %+v", resp)
	}
	if !strings.Contains(resp.Message, "Failed test: 2") {
		t.Errorf("unexpected message %q", resp.Message)
	}
	if len(w.Submitted) != 1 || w.Submitted[0].Status != types.StatusWaiting {
		t.Errorf("unexpected submissions %+v", w.Submitted)
	}
}

func TestHandleJudge_PlainText(t *testing.T) {
	w := &mockWorker{Result: types.Result{Status: types.StatusAccepted, FailedTest: types.NoFailedTest}}
	r := newRouter(t, w)

	req := httptest.NewRequest(http.MethodPost, "/judge", requestToReader(Request{
		ID: 1, Task: "sum", Language: "C", SolutionDir: "/solutions/1",
	}))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/plain")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	want := "Task: sum\nLanguage: C\nSolution Id: 1\n>>> Result: Accepted <<<\n"
	if rec.Code != http.StatusOK || rec.Body.String() != want {
		t.Errorf("got %d %q", rec.Code, rec.Body.String())
	}
}

func TestHandleJudge_Invalid(t *testing.T) {
	w := &mockWorker{Result: types.Result{Status: types.StatusInvalidSolutionFormatError, FailedTest: types.NoFailedTest}}
	r := newRouter(t, w)
	req := httptest.NewRequest(http.MethodPost, "/judge", requestToReader(Request{
		ID: 2, Task: "-", Language: "-", Invalid: true,
	}))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if len(w.Submitted) != 1 || w.Submitted[0].Status != types.StatusInvalidSolutionFormatWaiting {
		t.Errorf("unexpected submissions %+v", w.Submitted)
	}
}

func TestHandleJudge_BadRequest(t *testing.T) {
	r := newRouter(t, &mockWorker{})
	for _, body := range []string{`{`, `{"task":"sum"}`, `{"task":"sum","language":"C"}`} {
		req := httptest.NewRequest(http.MethodPost, "/judge", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected status 400, got %d", body, rec.Code)
		}
	}
}

func TestHandleJudge_Shutdown(t *testing.T) {
	r := newRouter(t, &mockWorker{Err: worker.ErrShutdown})
	req := httptest.NewRequest(http.MethodPost, "/judge", requestToReader(Request{
		Task: "sum", Language: "C", Files: []string{"/s/a.c"},
	}))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", rec.Code)
	}
}

func TestHandleQueue(t *testing.T) {
	r := newRouter(t, &mockWorker{})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/queue", nil))
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != `{"pending":3}` {
		t.Errorf("got %d %s", rec.Code, rec.Body.String())
	}
}

func TestHandleJudge_ShutdownWhileQueued(t *testing.T) {
	w := &mockWorker{
		Result:  types.Result{Status: types.StatusInternalError, FailedTest: types.NoFailedTest},
		RespErr: worker.ErrShutdown,
	}
	r := newRouter(t, w)
	req := httptest.NewRequest(http.MethodPost, "/judge", requestToReader(Request{
		ID: 4, Task: "sum", Language: "C", Files: []string{"/s/a.c"},
	}))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d: %s", rec.Code, rec.Body.String())
	}
}
