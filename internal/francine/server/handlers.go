package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/tansive/francine/internal/common/httpx"
	"github.com/tansive/francine/internal/francine/scheduler"
	"github.com/tansive/francine/pkg/api"
)

func (s *Server) ask(r *http.Request) (*httpx.Response, error) {
	var req api.AskRequest
	if err := httpx.GetRequestData(r, &req); err != nil {
		return nil, err
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, ErrBadRequest.Msg("prompt is empty")
	}
	res := s.opts.Agent.Handle(r.Context(), prompt)
	log.Ctx(r.Context()).Info().
		Str("session_id", res.SessionID).
		Str("terminal", string(res.Terminal)).
		Int("attempts", res.Attempts).
		Msg("prompt answered")
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response: api.AskResponse{
			Text:      res.Text,
			Terminal:  string(res.Terminal),
			Attempts:  res.Attempts,
			SessionID: res.SessionID,
		},
	}, nil
}

func (s *Server) listTools(r *http.Request) (*httpx.Response, error) {
	registry := s.opts.Tools.Registry()
	list := make([]api.Tool, 0, len(registry.Names()))
	for _, name := range registry.Names() {
		tool, ok := registry.Lookup(name)
		if !ok {
			continue
		}
		list = append(list, api.Tool{
			Name:        tool.Spec.Name,
			Description: tool.Spec.Description,
			Parameters:  tool.Spec.Parameters,
			Family:      string(tool.Family),
			Blocking:    tool.Blocking,
		})
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: list}, nil
}

func (s *Server) listClarifications(r *http.Request) (*httpx.Response, error) {
	return &httpx.Response{StatusCode: http.StatusOK, Response: s.opts.Broker.Pending()}, nil
}

func (s *Server) answerClarification(r *http.Request) (*httpx.Response, error) {
	id := chi.URLParam(r, "id")
	var req api.ClarificationAnswer
	if err := httpx.GetRequestData(r, &req); err != nil {
		return nil, err
	}
	if err := s.opts.Broker.Answer(id, req.Answer); err != nil {
		return nil, err
	}
	log.Ctx(r.Context()).Info().Str("clarification_id", id).Msg("clarification answered")
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   map[string]string{"status": "answered"},
	}, nil
}

func (s *Server) scheduleJob(r *http.Request) (*httpx.Response, error) {
	if s.opts.Scheduler == nil {
		return nil, ErrSchedulerUnavailable
	}
	var req api.ScheduleRequest
	if err := httpx.GetRequestData(r, &req); err != nil {
		return nil, err
	}
	id, err := s.opts.Scheduler.ScheduleDaily(strings.TrimSpace(req.TimeOfDay), strings.TrimSpace(req.Command))
	if err != nil {
		return nil, err
	}
	for _, job := range s.opts.Scheduler.Jobs() {
		if job.ID == id {
			return &httpx.Response{
				StatusCode: http.StatusCreated,
				Location:   "/schedule/" + string(id),
				Response:   toAPIJob(job),
			}, nil
		}
	}
	return nil, ErrServerError.Msg("scheduled job " + string(id) + " disappeared")
}

func (s *Server) listJobs(r *http.Request) (*httpx.Response, error) {
	if s.opts.Scheduler == nil {
		return nil, ErrSchedulerUnavailable
	}
	jobs := s.opts.Scheduler.Jobs()
	list := make([]api.Job, len(jobs))
	for i, job := range jobs {
		list[i] = toAPIJob(job)
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: list}, nil
}

func toAPIJob(job scheduler.Job) api.Job {
	out := api.Job{
		ID:        string(job.ID),
		TimeOfDay: job.TimeOfDay,
		Command:   job.Command,
		NextRun:   job.NextRun,
		LastError: job.LastError,
		Runs:      job.Runs,
	}
	if !job.LastRun.IsZero() {
		last := job.LastRun
		out.LastRun = &last
	}
	return out
}
