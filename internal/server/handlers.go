package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/KaramelBytes/ineqdash/internal/ai"
	"github.com/KaramelBytes/ineqdash/internal/analysis"
	"github.com/KaramelBytes/ineqdash/internal/catalog"
	"github.com/KaramelBytes/ineqdash/internal/dataset"
	"github.com/KaramelBytes/ineqdash/internal/derive"
	"github.com/KaramelBytes/ineqdash/internal/metrics"
	"github.com/KaramelBytes/ineqdash/internal/query"
	"github.com/labstack/echo/v4"
	"github.com/samber/lo"
)

var errNotQuintile = errors.New("not a quintile dataset")

type errorBody struct {
	Error   string `json:"error"`
	Dataset string `json:"dataset,omitempty"`
	Column  string `json:"column,omitempty"`
}

// fail maps domain errors onto HTTP statuses.
func fail(c echo.Context, err error) error {
	var (
		ue *catalog.UnknownDatasetError
		ce *dataset.ConfigError
	)
	switch {
	case errors.As(err, &ue):
		return c.JSON(http.StatusNotFound, errorBody{Error: err.Error(), Dataset: ue.Name})
	case errors.As(err, &ce):
		return c.JSON(http.StatusInternalServerError, errorBody{Error: err.Error(), Dataset: ce.Dataset, Column: ce.Column})
	case errors.Is(err, query.ErrInvalidRange), errors.Is(err, errNotQuintile):
		return c.JSON(http.StatusBadRequest, errorBody{Error: err.Error()})
	}
	return c.JSON(http.StatusInternalServerError, errorBody{Error: err.Error()})
}

func badRequest(c echo.Context, format string, args ...any) error {
	return c.JSON(http.StatusBadRequest, errorBody{Error: fmt.Sprintf(format, args...)})
}

func intParam(c echo.Context, name string, def int) (int, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("query parameter %s: %q is not an integer", name, raw)
	}
	return v, nil
}

func floatParam(c echo.Context, name string, def float64) (float64, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("query parameter %s: %q is not a number", name, raw)
	}
	return v, nil
}

// selection reads repeated ?entity= parameters. Without any, the dataset's
// default selection applies; "?entity=" alone selects nothing.
func selection(c echo.Context, defaults []string) []string {
	vals, ok := c.QueryParams()["entity"]
	if !ok {
		return defaults
	}
	return lo.Compact(vals)
}

// rangeSpec builds a filter spec whose bounds default to the records' years.
func rangeSpec(c echo.Context, recs []dataset.Record, entities []string) (query.Spec, error) {
	first, last, _ := query.YearBounds(recs)
	from, err := intParam(c, "from", first)
	if err != nil {
		return query.Spec{}, err
	}
	to, err := intParam(c, "to", last)
	if err != nil {
		return query.Spec{}, err
	}
	return query.Spec{Entities: entities, YearMin: from, YearMax: to}, nil
}

// seriesRecords narrows an entry to ?series= when given.
func seriesRecords(c echo.Context, e *catalog.Entry) []dataset.Record {
	if s := strings.TrimSpace(c.QueryParam("series")); s != "" {
		return query.Series(e.Table.Records, s)
	}
	return e.Table.Records
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type datasetSummary struct {
	catalog.Definition
	Loaded    bool   `json:"loaded"`
	Error     string `json:"error,omitempty"`
	Records   int    `json:"records"`
	FirstYear int    `json:"first_year,omitempty"`
	LastYear  int    `json:"last_year,omitempty"`
	Entities  int    `json:"entities"`
	Series    int    `json:"series"`
}

func (s *Server) handleDatasets(c echo.Context) error {
	defs := s.store.Catalog().Datasets
	out := make([]datasetSummary, 0, len(defs))
	for _, d := range defs {
		sum := datasetSummary{Definition: d}
		e, err := s.store.Load(d.Name)
		if err != nil {
			sum.Error = err.Error()
			out = append(out, sum)
			continue
		}
		sum.Loaded = true
		sum.Records = len(e.Table.Records)
		sum.FirstYear, sum.LastYear, _ = query.YearBounds(e.Table.Records)
		sum.Entities = len(query.Entities(e.Table.Records))
		sum.Series = len(query.SeriesNames(e.Table.Records))
		out = append(out, sum)
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleSeries(c echo.Context) error {
	e, err := s.store.Load(c.Param("name"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"dataset": e.Def.Name,
		"series":  query.SeriesNames(e.Table.Records),
	})
}

type recordsResponse struct {
	Dataset string           `json:"dataset"`
	Filter  query.Spec       `json:"filter"`
	Count   int              `json:"count"`
	Records []dataset.Record `json:"records"`
	Empty   bool             `json:"empty"`
	Message string           `json:"message,omitempty"`
}

func (s *Server) handleRecords(c echo.Context) error {
	e, err := s.store.Load(c.Param("name"))
	if err != nil {
		return fail(c, err)
	}
	recs := seriesRecords(c, e)
	spec, err := rangeSpec(c, recs, selection(c, e.Def.DefaultEntities))
	if err != nil {
		return badRequest(c, "%v", err)
	}
	if err := spec.Validate(); err != nil {
		return fail(c, err)
	}
	out := query.Apply(recs, spec)
	if c.QueryParam("present") == "true" {
		out = query.Present(out)
	}
	resp := recordsResponse{Dataset: e.Def.Name, Filter: spec, Count: len(out), Records: out}
	if len(out) == 0 {
		resp.Empty = true
		resp.Message = spec.EmptyMessage()
		metrics.FilterEmptyResults.WithLabelValues(e.Def.Name).Inc()
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleAudit(c echo.Context) error {
	e, err := s.store.Load(c.Param("name"))
	if err != nil {
		return fail(c, err)
	}
	if c.QueryParam("format") == "markdown" {
		return c.String(http.StatusOK, analysis.Analyze(e.Table, analysis.DefaultOptions()).Markdown())
	}
	var f analysis.Frame = e.Table
	if c.QueryParam("source") == "raw" {
		f = e.Raw
	}
	return c.JSON(http.StatusOK, map[string]any{
		"dataset":      e.Def.Name,
		"completeness": analysis.NullAudit(f),
	})
}

type deltaCard struct {
	derive.MetricDelta
	FirstDisplay string `json:"first_display"`
	LastDisplay  string `json:"last_display"`
	DeltaDisplay string `json:"delta_display"`
}

func (s *Server) handleDeltas(c echo.Context) error {
	e, err := s.store.Load(c.Param("name"))
	if err != nil {
		return fail(c, err)
	}
	pol, err := derive.ParsePolarity(e.Def.Polarity)
	if err != nil {
		return fail(c, &dataset.ConfigError{Dataset: e.Def.Name, Reason: err.Error()})
	}
	recs := seriesRecords(c, e)
	spec, err := rangeSpec(c, recs, selection(c, e.Def.DefaultEntities))
	if err != nil {
		return badRequest(c, "%v", err)
	}
	calc := derive.DeltaCalculator{Polarity: pol}
	deltas := calc.Deltas(recs, spec.Entities, spec.YearMin, spec.YearMax)
	cards := make([]deltaCard, len(deltas))
	for i, d := range deltas {
		cards[i] = deltaCard{
			MetricDelta:  d,
			FirstDisplay: derive.FormatValue(d.First),
			LastDisplay:  derive.FormatValue(d.Last),
			DeltaDisplay: derive.FormatDelta(d.Delta),
		}
	}
	return c.JSON(http.StatusOK, map[string]any{
		"dataset":    e.Def.Name,
		"polarity":   pol,
		"first_year": spec.YearMin,
		"last_year":  spec.YearMax,
		"cards":      cards,
	})
}

func (s *Server) handleMap(c echo.Context) error {
	e, err := s.store.Load(c.Param("name"))
	if err != nil {
		return fail(c, err)
	}
	recs := seriesRecords(c, e)
	_, latest, _ := query.YearBounds(recs)
	year, err := intParam(c, "year", latest)
	if err != nil {
		return badRequest(c, "%v", err)
	}
	selected := query.Apply(recs, query.Spec{Entities: selection(c, e.Def.DefaultEntities), YearMin: year, YearMax: year})
	cells := derive.JoinForMap(e.Universe, derive.YearSlice(selected, year))
	withData := lo.CountBy(cells, func(m derive.MapCell) bool { return m.HasData })
	return c.JSON(http.StatusOK, map[string]any{
		"dataset":   e.Def.Name,
		"year":      year,
		"cells":     cells,
		"with_data": withData,
	})
}

func (s *Server) quintileEntry(c echo.Context) (*catalog.Entry, error) {
	name := c.QueryParam("dataset")
	if name == "" {
		name = "quintiles"
	}
	e, err := s.store.Load(name)
	if err != nil {
		return nil, err
	}
	if e.Def.Kind != catalog.KindQuintile {
		return nil, fmt.Errorf("%s: %w", name, errNotQuintile)
	}
	return e, nil
}

func (s *Server) handleRatios(c echo.Context) error {
	e, err := s.quintileEntry(c)
	if err != nil {
		return fail(c, err)
	}
	recs := derive.DeriveRatios(e.Quintiles)
	if r := c.QueryParam("ratio"); r != "" {
		if !lo.Contains(derive.RatioNames, r) {
			return badRequest(c, "unknown ratio %q", r)
		}
		recs = query.Series(recs, r)
	}
	if _, ok := c.QueryParams()["entity"]; ok || c.QueryParam("from") != "" || c.QueryParam("to") != "" {
		entities := selection(c, query.Entities(recs))
		spec, err := rangeSpec(c, recs, entities)
		if err != nil {
			return badRequest(c, "%v", err)
		}
		if err := spec.Validate(); err != nil {
			return fail(c, err)
		}
		recs = query.Apply(recs, spec)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"dataset": e.Def.Name,
		"count":   len(recs),
		"records": recs,
		"empty":   len(recs) == 0,
	})
}

func (s *Server) handleReconcile(c echo.Context) error {
	e, err := s.quintileEntry(c)
	if err != nil {
		return fail(c, err)
	}
	metric := c.QueryParam("metric")
	if metric == "" {
		metric = derive.Palma
	}
	if metric != derive.Palma && metric != derive.TopBottomRatio {
		return badRequest(c, "metric must be %s or %s", derive.Palma, derive.TopBottomRatio)
	}
	tol, err := floatParam(c, "tolerance", 0.01)
	if err != nil || tol < 0 {
		return badRequest(c, "tolerance must be a non-negative number")
	}
	out := derive.Reconcile(e.Quintiles, metric, tol)
	return c.JSON(http.StatusOK, map[string]any{
		"dataset":       e.Def.Name,
		"metric":        metric,
		"tolerance":     tol,
		"discrepancies": out,
	})
}

type chatRequest struct {
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message"`
	// Dataset seeds a new conversation with that dataset's report.
	Dataset string `json:"dataset"`
}

type chatResponse struct {
	ConversationID string       `json:"conversation_id"`
	Reply          string       `json:"reply"`
	Messages       []ai.Message `json:"messages"`
}

func (s *Server) conversation(req chatRequest) (*ai.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if req.ConversationID != "" {
		if conv, ok := s.convs[req.ConversationID]; ok {
			return conv, nil
		}
		return nil, echo.NewHTTPError(http.StatusNotFound, "unknown conversation")
	}
	opts := s.opts.ChatOptions
	if req.Dataset != "" {
		e, err := s.store.Load(req.Dataset)
		if err != nil {
			return nil, err
		}
		opts.Context = analysis.Analyze(e.Table, analysis.DefaultOptions()).Markdown()
	}
	conv := ai.NewConversation(s.opts.Chat, opts)
	s.convs[conv.ID] = conv
	return conv, nil
}

func (s *Server) handleChat(c echo.Context) error {
	if s.opts.Chat == nil {
		return c.JSON(http.StatusServiceUnavailable, errorBody{Error: "assistant is disabled"})
	}
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid chat request")
	}
	if strings.TrimSpace(req.Message) == "" {
		return badRequest(c, "message is required")
	}
	conv, err := s.conversation(req)
	if err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return c.JSON(he.Code, errorBody{Error: fmt.Sprint(he.Message)})
		}
		return fail(c, err)
	}
	resp, err := conv.Ask(c.Request().Context(), req.Message)
	if err != nil {
		return c.JSON(chatStatus(err), errorBody{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, chatResponse{ConversationID: conv.ID, Reply: resp.Content, Messages: conv.Messages()})
}

func chatStatus(err error) int {
	var (
		mk *ai.MissingKeyError
		rl *ai.RateLimitError
	)
	switch {
	case errors.As(err, &mk):
		return http.StatusServiceUnavailable
	case errors.As(err, &rl):
		return http.StatusTooManyRequests
	}
	return http.StatusBadGateway
}
