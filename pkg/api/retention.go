package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/afelipfo/alpr-dashboard/pkg/events"
	"github.com/afelipfo/alpr-dashboard/pkg/retention"

	"github.com/julienschmidt/httprouter"
)

const publishTimeout = 5 * time.Second

func (a *API) registerRetention() {
	a.handle(http.MethodGet, "/api/retention/config", a.getRetentionConfig)
	a.handle(http.MethodPut, "/api/retention/config", a.putRetentionConfig)
	a.handle(http.MethodGet, "/api/retention/stats", a.getRetentionStats)
	a.handle(http.MethodPost, "/api/retention/cleanup", a.postRetentionCleanup)
}

// UpdatePolicyRequest is the body of PUT /api/retention/config.
type UpdatePolicyRequest struct {
	RetentionDays *int  `json:"retentionDays"`
	Enabled       *bool `json:"enabled"`
}

func (a *API) getRetentionConfig(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, a.policies.Get(r.Context()))
}

func (a *API) putRetentionConfig(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req UpdatePolicyRequest
	if status, err := decodeBody(w, r, a.maxBody, &req); err != nil {
		writeDecodeError(w, status, err)
		return
	}

	var missing []string
	if req.RetentionDays == nil {
		missing = append(missing, "retentionDays is required")
	}
	if req.Enabled == nil {
		missing = append(missing, "enabled is required")
	}
	if len(missing) > 0 {
		writeError(w, http.StatusBadRequest, codeInvalidPolicy, "invalid retention policy", missing...)
		return
	}

	policy, err := a.policies.Update(r.Context(), *req.RetentionDays, *req.Enabled)
	if err != nil {
		var policyErr *retention.PolicyError
		switch {
		case errors.As(err, &policyErr):
			writeError(w, http.StatusBadRequest, codeInvalidPolicy, policyErr.Error())
		case errors.Is(err, retention.ErrStoreUnavailable):
			a.logger.Error("failed to save retention policy", "error", err)
			writeError(w, http.StatusServiceUnavailable, codeUnavailable, "could not save configuration")
		default:
			a.logger.Error("failed to save retention policy", "error", err)
			writeError(w, http.StatusInternalServerError, codeInternal, "could not save configuration")
		}
		return
	}

	a.metrics.SetPolicy(policy.RetentionDays, policy.Enabled)

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), publishTimeout)
	defer cancel()
	if err := a.publisher.Publish(pubCtx, events.SubjectPolicyUpdate, policy); err != nil {
		a.logger.Warn("failed to publish policy update", "error", err)
	}

	writeJSON(w, http.StatusOK, policy)
}

func (a *API) getRetentionStats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, a.reporter.GetStats(r.Context()))
}

// postRetentionCleanup runs a cleanup synchronously. The response body is
// the run result in both the success and failure cases.
func (a *API) postRetentionCleanup(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	result := a.engine.RunCleanup(r.Context(), retention.TriggerManual)
	status := http.StatusOK
	if result.Failed() {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, result)
}
