// Package rest exposes the submission queue over HTTP.
package rest

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mailjudge/go-verifier/report"
	"github.com/mailjudge/go-verifier/types"
	"github.com/mailjudge/go-verifier/worker"
	"go.uber.org/zap"
)

// Request defines a submission received over HTTP
type Request struct {
	ID          int64    `json:"id"`
	Submitter   string   `json:"submitter"`
	Task        string   `json:"task" binding:"required"`
	Language    string   `json:"language" binding:"required"`
	Files       []string `json:"files"`
	SolutionDir string   `json:"solutionDir"`
	// Invalid marks a submission the intake could not parse
	Invalid bool `json:"invalid"`
}

// Response defines the verdict returned over HTTP
type Response struct {
	ID             int64         `json:"id"`
	Status         types.Status  `json:"status"`
	Code           int           `json:"code"`
	FailedTest     int           `json:"failedTest"`
	CompilerOutput string        `json:"compilerOutput,omitempty"`
	Time           time.Duration `json:"time"`
	Memory         uint64        `json:"memory"`
	Message        string        `json:"message"`
}

type judgeHandle struct {
	worker worker.Worker
	logger *zap.Logger
}

// NewJudgeHandle creates a new judge handle
func NewJudgeHandle(w worker.Worker, logger *zap.Logger) Register {
	return &judgeHandle{
		worker: w,
		logger: logger,
	}
}

func (h *judgeHandle) Register(r *gin.Engine) {
	r.POST("/judge", h.handleJudge)
	r.GET("/queue", h.handleQueue)
}

func (h *judgeHandle) handleJudge(ctx *gin.Context) {
	var req Request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.Error(err)
		ctx.AbortWithStatusJSON(http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Files) == 0 && req.SolutionDir == "" && !req.Invalid {
		ctx.AbortWithStatusJSON(http.StatusBadRequest, "no files or solutionDir provided")
		return
	}
	s := convertRequest(&req)
	h.logger.Sugar().Debugf("request: %+v", s)

	rtCh, err := h.worker.Submit(ctx.Request.Context(), s)
	if err != nil {
		ctx.Error(err)
		code := http.StatusInternalServerError
		if errors.Is(err, worker.ErrShutdown) {
			code = http.StatusServiceUnavailable
		}
		ctx.AbortWithStatusJSON(code, err.Error())
		return
	}

	var rt worker.Response
	select {
	case rt = <-rtCh:
	case <-ctx.Request.Context().Done():
		ctx.AbortWithStatus(http.StatusRequestTimeout)
		return
	}
	if rt.Err != nil {
		ctx.Error(rt.Err)
		ctx.AbortWithStatusJSON(http.StatusServiceUnavailable, rt.Err.Error())
		return
	}
	h.logger.Sugar().Debugf("response: %+v", rt.Result)

	msg := report.Message(s, rt.Result)
	if ctx.NegotiateFormat(gin.MIMEJSON, gin.MIMEPlain) == gin.MIMEPlain {
		ctx.String(http.StatusOK, msg)
		return
	}
	ctx.JSON(http.StatusOK, Response{
		ID:             s.ID,
		Status:         rt.Result.Status,
		Code:           int(rt.Result.Status),
		FailedTest:     rt.Result.FailedTest,
		CompilerOutput: rt.Result.CompilerOutput,
		Time:           rt.Result.Time,
		Memory:         rt.Result.Memory,
		Message:        msg,
	})
}

func (h *judgeHandle) handleQueue(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"pending": h.worker.Pending()})
}

func convertRequest(req *Request) *types.Submission {
	status := types.StatusWaiting
	if req.Invalid {
		status = types.StatusInvalidSolutionFormatWaiting
	}
	return &types.Submission{
		ID:          req.ID,
		Time:        time.Now(),
		Submitter:   req.Submitter,
		Task:        req.Task,
		Language:    req.Language,
		Files:       req.Files,
		SolutionDir: req.SolutionDir,
		Status:      status,
	}
}
