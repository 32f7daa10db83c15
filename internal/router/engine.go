package router

import (
	"net/http"
	"strconv"
	"time"

	"github.com/DjordjeVuckovic/news-digest/internal/apperr"
	"github.com/DjordjeVuckovic/news-digest/internal/config"
	"github.com/DjordjeVuckovic/news-digest/internal/domain/record"
	"github.com/DjordjeVuckovic/news-digest/internal/dto"
	"github.com/DjordjeVuckovic/news-digest/internal/extraction"
	"github.com/DjordjeVuckovic/news-digest/internal/ingest"
	"github.com/DjordjeVuckovic/news-digest/internal/selection"
	"github.com/DjordjeVuckovic/news-digest/internal/storage"
	"github.com/DjordjeVuckovic/news-digest/internal/summary"
	"github.com/labstack/echo/v4"
)

// EngineRouter exposes ingestion, extraction and selection over HTTP.
type EngineRouter struct {
	e            *echo.Echo
	store        storage.RecordStore
	deduplicator *ingest.Deduplicator
	controller   *extraction.Controller
	selector     *selection.Selector
	summarizer   summary.Summarizer
	defaults     config.RunDefaults
	now          func() time.Time
}

type EngineRouterOption func(*EngineRouter)

func WithSummarizer(s summary.Summarizer) EngineRouterOption {
	return func(r *EngineRouter) {
		r.summarizer = s
	}
}

func WithClock(now func() time.Time) EngineRouterOption {
	return func(r *EngineRouter) {
		r.now = now
	}
}

func NewEngineRouter(
	e *echo.Echo,
	store storage.RecordStore,
	deduplicator *ingest.Deduplicator,
	controller *extraction.Controller,
	selector *selection.Selector,
	defaults config.RunDefaults,
	opts ...EngineRouterOption,
) *EngineRouter {
	r := &EngineRouter{
		e:            e,
		store:        store,
		deduplicator: deduplicator,
		controller:   controller,
		selector:     selector,
		defaults:     defaults,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *EngineRouter) Bind() {
	r.e.POST("/records/ingest", r.ingestHandler)
	r.e.GET("/records/:id", r.getRecordHandler)
	r.e.GET("/records/:id/summary", r.summaryHandler)
	r.e.POST("/extraction/passes", r.extractionHandler)
	r.e.GET("/extraction/status", r.statusHandler)
	r.e.POST("/extraction/reset", r.resetHandler)
	r.e.POST("/selections", r.selectionHandler)
	r.e.POST("/retention/sweep", r.sweepHandler)
}

// ingestHandler godoc
// @Summary Ingest a batch of raw records
// @Description Upserts records by URL. Duplicate URLs in the batch collapse to the first occurrence.
// @Tags records
// @Accept json
// @Produce json
// @Param request body dto.IngestRequest true "Raw records"
// @Success 200 {object} dto.IngestResponse
// @Failure 400 {object} map[string]string
// @Router /records/ingest [post]
func (r *EngineRouter) ingestHandler(c echo.Context) error {
	var req dto.IngestRequest
	if err := c.Bind(&req); err != nil {
		return apperr.NewValidationWrap("invalid ingest request", err)
	}
	if len(req.Records) == 0 {
		return apperr.NewValidation("records must not be empty")
	}

	ids, err := r.deduplicator.Ingest(c.Request().Context(), req.Records)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto.IngestResponse{IDs: ids})
}

// getRecordHandler godoc
// @Summary Get a record
// @Tags records
// @Produce json
// @Param id path int true "Record ID"
// @Param content query bool false "Include extracted content"
// @Success 200 {object} dto.Record
// @Failure 404 {object} map[string]string
// @Router /records/{id} [get]
func (r *EngineRouter) getRecordHandler(c echo.Context) error {
	rec, err := r.loadRecord(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto.FromRecord(*rec, c.QueryParam("content") == "true"))
}

// summaryHandler godoc
// @Summary Summarize an extracted record
// @Tags records
// @Produce json
// @Param id path int true "Record ID"
// @Success 200 {object} summary.Summary
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /records/{id}/summary [get]
func (r *EngineRouter) summaryHandler(c echo.Context) error {
	if r.summarizer == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "summarization is not configured")
	}

	rec, err := r.loadRecord(c)
	if err != nil {
		return err
	}
	text, ok := rec.ContentText()
	if !ok {
		return apperr.NewValidation("record has no extracted content")
	}

	sum, err := r.summarizer.Summarize(c.Request().Context(), rec.Title, text)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "summarization failed: "+err.Error())
	}
	return c.JSON(http.StatusOK, sum)
}

// extractionHandler godoc
// @Summary Run an extraction pass
// @Description Attempts content retrieval for due records. With drain set, passes repeat until nothing is due.
// @Tags extraction
// @Accept json
// @Produce json
// @Param request body dto.ExtractionRequest false "Pass parameters"
// @Success 200 {object} extraction.DrainResult
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /extraction/passes [post]
func (r *EngineRouter) extractionHandler(c echo.Context) error {
	var req dto.ExtractionRequest
	if err := bindOptional(c, &req); err != nil {
		return err
	}

	drainReq, err := req.ToDrainRequest(r.defaults)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	if !req.Drain {
		res, err := r.controller.RunPass(ctx, drainReq.PassRequest)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, extraction.DrainResult{Passes: 1, Total: res})
	}

	res, err := r.controller.RunUntilDrained(ctx, drainReq)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// statusHandler godoc
// @Summary Count records per extraction status
// @Tags extraction
// @Produce json
// @Param windowHours query int false "Look-back window in hours"
// @Success 200 {object} dto.StatusResponse
// @Router /extraction/status [get]
func (r *EngineRouter) statusHandler(c echo.Context) error {
	hours, err := intQuery(c, "windowHours")
	if err != nil {
		return err
	}
	window, err := dto.WindowOr(hours, r.defaults.Window)
	if err != nil {
		return err
	}

	counts, err := r.store.CountByState(c.Request().Context(), r.now().Add(-window))
	if err != nil {
		return err
	}
	if counts == nil {
		counts = map[record.Status]int{}
	}
	return c.JSON(http.StatusOK, dto.StatusResponse{WindowHours: int(window.Hours()), Counts: counts})
}

// resetHandler godoc
// @Summary Reset permanently failed records
// @Description Moves failed_permanent records in the window back to pending with zero attempts.
// @Tags extraction
// @Accept json
// @Produce json
// @Param request body dto.WindowRequest false "Window"
// @Success 200 {object} dto.ResetResponse
// @Router /extraction/reset [post]
func (r *EngineRouter) resetHandler(c echo.Context) error {
	var req dto.WindowRequest
	if err := bindOptional(c, &req); err != nil {
		return err
	}
	window, err := dto.WindowOr(req.WindowHours, r.defaults.Window)
	if err != nil {
		return err
	}

	n, err := r.store.ResetFailed(c.Request().Context(), r.now().Add(-window))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto.ResetResponse{Reset: n})
}

// selectionHandler godoc
// @Summary Select the digest candidates
// @Description Scores extracted records, caps each source, drops near-duplicate titles and writes ranks back.
// @Tags selection
// @Accept json
// @Produce json
// @Param request body dto.SelectionRequest false "Selection parameters"
// @Success 200 {object} dto.SelectionResponse
// @Failure 400 {object} map[string]string
// @Router /selections [post]
func (r *EngineRouter) selectionHandler(c echo.Context) error {
	var req dto.SelectionRequest
	if err := bindOptional(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	res, err := r.selector.Run(ctx, req.ToRequest(r.defaults))
	if err != nil {
		return err
	}

	recs, err := r.store.GetMany(ctx, res.IDs())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto.SelectionResponse{
		RunID:      res.RunID,
		Candidates: res.Candidates,
		Records:    dto.FromRecords(storage.OrderByIDs(recs, res.IDs())),
	})
}

// sweepHandler godoc
// @Summary Delete old records
// @Tags retention
// @Accept json
// @Produce json
// @Param request body dto.SweepRequest false "Retention"
// @Success 200 {object} dto.SweepResponse
// @Router /retention/sweep [post]
func (r *EngineRouter) sweepHandler(c echo.Context) error {
	var req dto.SweepRequest
	if err := bindOptional(c, &req); err != nil {
		return err
	}
	retention, err := dto.WindowOr(req.OlderThanHours, r.defaults.Retention)
	if err != nil {
		return err
	}

	n, err := r.store.DeleteDiscoveredBefore(c.Request().Context(), r.now().Add(-retention))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto.SweepResponse{Deleted: n})
}

func (r *EngineRouter) loadRecord(c echo.Context) (*record.Record, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return nil, apperr.NewValidation("id must be a positive integer")
	}
	return r.store.Get(c.Request().Context(), record.ID(id))
}

// bindOptional binds a JSON body when one is present.
func bindOptional(c echo.Context, dst any) error {
	if c.Request().ContentLength == 0 {
		return nil
	}
	if err := c.Bind(dst); err != nil {
		return apperr.NewValidationWrap("invalid request body", err)
	}
	return nil
}

func intQuery(c echo.Context, name string) (int, error) {
	v := c.QueryParam(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperr.NewValidation(name + " must be an integer")
	}
	return n, nil
}
