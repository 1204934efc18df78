package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-formbridge/core"
	"github.com/goliatone/go-formbridge/inbound"
	glog "github.com/goliatone/go-logger/glog"
)

const (
	PathWebhook  = "/webhook/jotform"
	PathResync   = "/resync"
	PathWebhooks = "/webhooks"
	PathHealth   = "/healthz"
	PathMetrics  = "/metrics"
)

// Dependencies wires the handlers. Nil collaborators make their routes
// answer 503, except the webhook route which always acknowledges.
type Dependencies struct {
	Receiver     *inbound.Receiver
	Sweeper      core.Sweeper
	Auditor      core.Auditor
	Metrics      http.Handler
	MaxBodyBytes int64
	Logger       core.Logger
}

type handlers struct {
	deps   Dependencies
	logger core.Logger
}

func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	h := &handlers{deps: deps, logger: glog.Ensure(deps.Logger)}
	router.Use(gin.Recovery(), requestLogger(h.logger))

	router.POST(PathWebhook, h.receiveSubmission)
	router.GET(PathResync, h.resync)
	router.GET(PathWebhooks, h.listWebhooks)
	router.GET(PathHealth, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if deps.Metrics != nil {
		router.GET(PathMetrics, gin.WrapH(deps.Metrics))
	}
	return router
}

func (h *handlers) receiveSubmission(c *gin.Context) {
	delivery, err := inbound.ReadDelivery(c.Request, h.deps.MaxBodyBytes)
	if err != nil {
		h.logger.Warn("submission body could not be read",
			"error", err.Error(),
			"content_type", c.ContentType(),
		)
	}
	if h.deps.Receiver == nil {
		h.logger.Warn("submission dropped, receiver not configured")
	} else {
		deliveryID := h.deps.Receiver.SubmitDelivery(c.Request.Context(), delivery)
		c.Header("X-Delivery-ID", deliveryID)
	}
	c.JSON(http.StatusOK, gin.H{"status": "received"})
}

func (h *handlers) resync(c *gin.Context) {
	if h.deps.Sweeper == nil {
		writeError(c, core.NotConfiguredError("sweeper", "forms.api_key", "reconcile.canonical_url"))
		return
	}
	req, err := sweepRequestFromQuery(c)
	if err != nil {
		writeError(c, err)
		return
	}
	report, err := h.deps.Sweeper.Sweep(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewSweepSummary(report))
}

func (h *handlers) listWebhooks(c *gin.Context) {
	if h.deps.Auditor == nil {
		writeError(c, core.NotConfiguredError("auditor", "forms.api_key", "reconcile.canonical_url"))
		return
	}
	report, err := h.deps.Auditor.Audit(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func sweepRequestFromQuery(c *gin.Context) (core.SweepRequest, error) {
	req := core.SweepRequest{Trigger: core.SweepTriggerManual}
	if raw := strings.TrimSpace(c.Query("policy")); raw != "" {
		policy, err := core.ParsePolicy(raw)
		if err != nil {
			return req, err
		}
		req.Policy = policy
	}
	var err error
	if req.DryRun, err = queryBool(c, "dry_run"); err != nil {
		return req, err
	}
	if req.Force, err = queryBool(c, "force"); err != nil {
		return req, err
	}
	return req, nil
}

func queryBool(c *gin.Context, key string) (bool, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return false, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, core.NewError("httpapi: invalid boolean query parameter", goerrors.CategoryBadInput, map[string]any{
			"parameter": key,
			"value":     raw,
		})
	}
	return value, nil
}

func writeError(c *gin.Context, err error) {
	mapped := core.MapError(err)
	c.AbortWithStatusJSON(mapped.Code, mapped.ToErrorResponse(false, nil))
}

func requestLogger(logger core.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startedAt := time.Now()
		c.Next()
		status := c.Writer.Status()
		args := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"duration_ms", time.Since(startedAt).Milliseconds(),
		}
		if status >= http.StatusInternalServerError {
			logger.Warn("http request", args...)
			return
		}
		logger.Debug("http request", args...)
	}
}
