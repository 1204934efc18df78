// Package formbridge assembles the form-to-CRM bridge from configuration.
package formbridge

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-formbridge/adapters/gologger"
	"github.com/goliatone/go-formbridge/command"
	"github.com/goliatone/go-formbridge/core"
	"github.com/goliatone/go-formbridge/forward"
	"github.com/goliatone/go-formbridge/httpapi"
	"github.com/goliatone/go-formbridge/inbound"
	"github.com/goliatone/go-formbridge/jotform"
	"github.com/goliatone/go-formbridge/metrics"
	"github.com/goliatone/go-formbridge/normalize"
	"github.com/goliatone/go-formbridge/query"
	"github.com/goliatone/go-formbridge/reconcile"
	"github.com/goliatone/go-formbridge/schedule"
)

type Commands struct {
	SweepWebhooks *command.SweepWebhooksCommand
}

type Queries struct {
	AuditWebhooks *query.AuditWebhooksQuery
}

type Option func(*bridgeOptions)

type bridgeOptions struct {
	logger         core.Logger
	loggerProvider core.LoggerProvider
	forms          core.FormsService
	forwarder      core.Forwarder
	recorder       *metrics.Recorder
	httpClient     *http.Client
}

func WithLogger(logger core.Logger) Option {
	return func(o *bridgeOptions) { o.logger = logger }
}

func WithLoggerProvider(provider core.LoggerProvider) Option {
	return func(o *bridgeOptions) { o.loggerProvider = provider }
}

// WithFormsService replaces the Jotform API client.
func WithFormsService(forms core.FormsService) Option {
	return func(o *bridgeOptions) { o.forms = forms }
}

// WithForwarder replaces the HTTP CRM forwarder.
func WithForwarder(forwarder core.Forwarder) Option {
	return func(o *bridgeOptions) { o.forwarder = forwarder }
}

func WithMetricsRecorder(recorder *metrics.Recorder) Option {
	return func(o *bridgeOptions) { o.recorder = recorder }
}

// WithHTTPClient is used by the Jotform client and the CRM forwarder.
func WithHTTPClient(client *http.Client) Option {
	return func(o *bridgeOptions) { o.httpClient = client }
}

// Bridge owns every long-lived component of the process.
type Bridge struct {
	cfg      Config
	provider core.LoggerProvider
	logger   core.Logger
	recorder *metrics.Recorder

	forms      core.FormsService
	forwarder  core.Forwarder
	reconciler *reconcile.Reconciler
	receiver   *inbound.Receiver
	scheduler  *schedule.Scheduler
	router     *gin.Engine

	commands Commands
	queries  Queries
}

func New(cfg Config, opts ...Option) (*Bridge, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	options := bridgeOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	b := &Bridge{cfg: cfg}
	if options.loggerProvider == nil && options.logger == nil {
		options.loggerProvider = gologger.New(cfg.Log, nil)
	}
	b.provider, b.logger = gologger.Resolve(cfg.ServiceName, options.loggerProvider, options.logger)
	b.recorder = options.recorder
	if b.recorder == nil {
		b.recorder = metrics.NewRecorder(metrics.WithRuntimeCollectors())
	}

	if err := b.buildForms(options); err != nil {
		return nil, err
	}
	if err := b.buildForwarder(options); err != nil {
		return nil, err
	}
	if err := b.buildReconciler(); err != nil {
		return nil, err
	}
	b.buildReceiver()

	var sweeper core.Sweeper
	var auditor core.Auditor
	if b.reconciler != nil {
		sweeper, auditor = b.reconciler, b.reconciler
	}
	b.commands = Commands{SweepWebhooks: command.NewSweepWebhooksCommand(sweeper)}
	b.queries = Queries{AuditWebhooks: query.NewAuditWebhooksQuery(auditor)}

	b.router = httpapi.NewRouter(httpapi.Dependencies{
		Receiver:     b.receiver,
		Sweeper:      sweeper,
		Auditor:      auditor,
		Metrics:      b.recorder.Handler(),
		MaxBodyBytes: cfg.Inbound.MaxBodyBytes,
		Logger:       b.provider.GetLogger("httpapi"),
	})
	return b, nil
}

func (b *Bridge) buildForms(options bridgeOptions) error {
	if options.forms != nil {
		b.forms = options.forms
		return nil
	}
	if b.cfg.Forms.APIKey == "" {
		b.logger.Warn("forms api key not set, webhook reconciliation disabled")
		return nil
	}
	clientOpts := []jotform.Option{
		jotform.WithBaseURL(b.cfg.Forms.BaseURL),
		jotform.WithTimeout(b.cfg.Forms.Timeout),
		jotform.WithRateLimit(b.cfg.Forms.RateLimit),
		jotform.WithPageSize(b.cfg.Forms.PageSize),
		jotform.WithLogger(b.provider.GetLogger("jotform")),
		jotform.WithMetricsRecorder(b.recorder),
	}
	if options.httpClient != nil {
		clientOpts = append(clientOpts, jotform.WithHTTPClient(options.httpClient))
	}
	client, err := jotform.NewClient(b.cfg.Forms.APIKey, clientOpts...)
	if err != nil {
		return err
	}
	b.forms = client
	return nil
}

func (b *Bridge) buildForwarder(options bridgeOptions) error {
	if options.forwarder != nil {
		b.forwarder = options.forwarder
		return nil
	}
	if b.cfg.Forward.RouterURL == "" {
		b.logger.Warn("crm router url not set, submissions will not be forwarded")
		return nil
	}
	forwardOpts := []forward.Option{forward.WithTimeout(b.cfg.Forward.Timeout)}
	if options.httpClient != nil {
		forwardOpts = append(forwardOpts, forward.WithHTTPClient(options.httpClient))
	}
	forwarder, err := forward.New(b.cfg.Forward.RouterURL, forwardOpts...)
	if err != nil {
		return err
	}
	b.forwarder = forwarder
	return nil
}

func (b *Bridge) buildReconciler() error {
	if b.forms == nil {
		return nil
	}
	if b.cfg.Reconcile.CanonicalURL == "" {
		b.logger.Warn("canonical webhook url not set, webhook reconciliation disabled")
		return nil
	}
	reconciler, err := reconcile.NewReconciler(b.forms, b.cfg.Reconcile.CanonicalURL,
		reconcile.WithConcurrency(b.cfg.Reconcile.Concurrency),
		reconcile.WithDefaultPolicy(b.cfg.ReconcilePolicy()),
		reconcile.WithLogger(b.provider.GetLogger("reconcile")),
		reconcile.WithMetricsRecorder(b.recorder),
	)
	if err != nil {
		return err
	}
	b.reconciler = reconciler

	scheduler, err := schedule.New(reconciler, b.cfg.Reconcile.Schedule,
		schedule.WithLogger(b.provider.GetLogger("schedule")),
		schedule.WithMetricsRecorder(b.recorder),
	)
	if err != nil {
		return err
	}
	b.scheduler = scheduler
	return nil
}

func (b *Bridge) buildReceiver() {
	logger := b.provider.GetLogger("inbound")
	processor := inbound.NewProcessor(b.forwarder,
		inbound.WithUnwrapper(normalize.NewUnwrapper(
			normalize.WithCarrierKey(b.cfg.Inbound.CarrierKey),
			normalize.WithUnwrapLogger(logger),
		)),
		inbound.WithBuilder(normalize.NewBuilder(
			normalize.WithDefaultFormTitle(b.cfg.Inbound.DefaultFormTitle),
		)),
		inbound.WithRequireEmail(b.cfg.Forward.RequireEmail),
		inbound.WithObserver(core.NewObserver(b.cfg.ServiceName, logger, b.recorder)),
	)
	b.receiver = inbound.NewReceiver(processor,
		inbound.WithProcessTimeout(b.cfg.Inbound.ProcessTimeout),
		inbound.WithMaxConcurrency(b.cfg.Inbound.MaxConcurrency),
	)
}

func (b *Bridge) Config() Config { return b.cfg }

func (b *Bridge) Logger() core.Logger { return b.logger }

func (b *Bridge) Handler() http.Handler { return b.router }

func (b *Bridge) Commands() Commands { return b.commands }

func (b *Bridge) Queries() Queries { return b.queries }

func (b *Bridge) Receiver() *inbound.Receiver { return b.receiver }

func (b *Bridge) Scheduler() *schedule.Scheduler { return b.scheduler }

// Reconciler is nil when the forms service or canonical url is missing.
func (b *Bridge) Reconciler() *reconcile.Reconciler { return b.reconciler }

// Sweep runs one sweep through the sweep command.
func (b *Bridge) Sweep(ctx context.Context, req SweepRequest) (SweepReport, error) {
	if b.reconciler == nil {
		return SweepReport{}, core.NotConfiguredError("sweeper", "forms.api_key", "reconcile.canonical_url")
	}
	collector := gocmd.NewResult[core.SweepReport]()
	err := b.commands.SweepWebhooks.Execute(gocmd.ContextWithResult(ctx, collector), command.SweepWebhooksMessage{
		Policy:  req.Policy,
		Trigger: req.Trigger,
		DryRun:  req.DryRun,
		Force:   req.Force,
	})
	if err != nil {
		return SweepReport{}, err
	}
	report, _ := collector.Load()
	return report, nil
}

func (b *Bridge) Audit(ctx context.Context, msg query.AuditWebhooksMessage) (AuditReport, error) {
	if b.reconciler == nil {
		return AuditReport{}, core.NotConfiguredError("auditor", "forms.api_key", "reconcile.canonical_url")
	}
	return b.queries.AuditWebhooks.Query(ctx, msg)
}

// Run serves HTTP on listener and runs the sweep scheduler until ctx ends,
// then drains in-flight work within the shutdown timeout.
func (b *Bridge) Run(ctx context.Context, listener net.Listener) error {
	server := &http.Server{
		Handler:           b.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if b.scheduler != nil {
		b.scheduler.Start()
		if b.cfg.Reconcile.RunOnStart {
			go func() {
				_, _ = b.scheduler.RunOnStart(ctx)
			}()
		}
	}

	serveErr := make(chan error, 1)
	go func() {
		b.logger.Info("http server listening", "addr", listener.Addr().String())
		serveErr <- server.Serve(listener)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = err
		}
	}
	return errors.Join(runErr, b.shutdown(server))
}

// ListenAndRun listens on the configured port.
func (b *Bridge) ListenAndRun(ctx context.Context) error {
	listener, err := net.Listen("tcp", b.cfg.ListenAddr())
	if err != nil {
		return err
	}
	return b.Run(ctx, listener)
}

func (b *Bridge) shutdown(server *http.Server) error {
	timeout := b.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	b.logger.Info("shutting down")
	var errs []error
	if err := server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		errs = append(errs, err)
	}
	if b.scheduler != nil {
		if err := b.scheduler.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := b.receiver.Drain(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
