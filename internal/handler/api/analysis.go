package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"TrendPulse/internal/domain/models"
	drepo "TrendPulse/internal/domain/repository"
	icache "TrendPulse/internal/service/cache"
	"TrendPulse/internal/service/ratelimit"
	"TrendPulse/internal/usecase"
	xhttp "TrendPulse/pkg/http"
	xlogger "TrendPulse/pkg/logger"
	"TrendPulse/pkg/util"

	"github.com/labstack/echo/v4"
)

const signalResponseTTL = 15 * time.Second

// AnalysisHandler exposes the analysis pipeline over HTTP. Scores are
// rounded at this boundary only; internals keep full precision so the
// factor sum invariant holds exactly.
type AnalysisHandler struct {
	log       *xlogger.Logger
	analysis  *usecase.AnalysisUseCase
	signals   *usecase.SignalUseCase
	respCache icache.BytesCache
	rl        *ratelimit.Limiter
}

func NewAnalysisHandler(log *xlogger.Logger, analysis *usecase.AnalysisUseCase, signals *usecase.SignalUseCase) *AnalysisHandler {
	return &AnalysisHandler{
		log:      log,
		analysis: analysis,
		signals:  signals,
		rl:       ratelimit.New(),
	}
}

// SetResponseCache injects an optional shared cache for rendered
// signal responses.
func (h *AnalysisHandler) SetResponseCache(c icache.BytesCache) { h.respCache = c }

func (h *AnalysisHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api")
	g.GET("/signal", h.Signal)
	g.GET("/bias", h.Bias)
	g.GET("/indicators", h.Indicators)
	g.GET("/pivots", h.Pivots)
	g.GET("/quote", h.Quote)
}

func (h *AnalysisHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

func (h *AnalysisHandler) Signal(c echo.Context) error {
	req := &models.SignalRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.rl.Allow(c.RealIP()+":signal", 5, 2) {
		return xhttp.TooManyRequestsResponse(c)
	}

	ctx := c.Request().Context()
	cacheKey := "resp:signal:" + req.Symbol
	if h.respCache != nil {
		if b, ok, err := h.respCache.GetBytes(ctx, cacheKey); err != nil {
			h.log.Warn("response cache get failed", xlogger.Error(err))
		} else if ok {
			return c.JSONBlob(http.StatusOK, markReplayed(b))
		}
	}

	sig, meta, err := h.signals.GetSignal(ctx, req.Symbol)
	if err != nil {
		h.log.Error("signal usecase error", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, mapDomainError(err))
	}

	envelope := xhttp.APIResponse{
		Status:  http.StatusOK,
		Message: http.StatusText(http.StatusOK),
		Data:    roundSignal(sig),
		Meta:    toMeta(meta),
	}
	if h.respCache != nil {
		if b, err := json.Marshal(envelope); err == nil {
			if err := h.respCache.SetBytes(ctx, cacheKey, b, signalResponseTTL); err != nil {
				h.log.Warn("response cache set failed", xlogger.Error(err))
			}
		}
	}
	return c.JSON(http.StatusOK, envelope)
}

func (h *AnalysisHandler) Bias(c echo.Context) error {
	req := &models.BiasRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	tf := drepo.NormalizeTimeframe(req.TF)

	tb, meta, err := h.analysis.TimeframeBias(c.Request().Context(), req.Symbol, tf)
	if err != nil {
		h.log.Error("bias usecase error", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, mapDomainError(err))
	}
	tb.Score = util.Round2(tb.Score)
	tb.Strength = util.Round2(tb.Strength)
	return xhttp.SuccessMetaResponse(c, tb, *toMeta(meta))
}

func (h *AnalysisHandler) Indicators(c echo.Context) error {
	req := &models.IndicatorsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	tf := drepo.NormalizeTimeframe(req.TF)

	set, meta, err := h.analysis.Indicators(c.Request().Context(), req.Symbol, tf, req.Lookback)
	if err != nil {
		h.log.Error("indicators usecase error", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, mapDomainError(err))
	}
	return xhttp.SuccessMetaResponse(c, set, *toMeta(meta))
}

func (h *AnalysisHandler) Pivots(c echo.Context) error {
	req := &models.PivotsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	pv, meta, err := h.analysis.Pivots(c.Request().Context(), req.Symbol)
	if err != nil {
		h.log.Error("pivots usecase error", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, mapDomainError(err))
	}
	return xhttp.SuccessMetaResponse(c, pv, *toMeta(meta))
}

func (h *AnalysisHandler) Quote(c echo.Context) error {
	req := &models.QuoteRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	q, meta, err := h.analysis.Quote(c.Request().Context(), req.Symbol)
	if err != nil {
		h.log.Error("quote usecase error", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, mapDomainError(err))
	}
	return xhttp.SuccessMetaResponse(c, q, *toMeta(meta))
}

// markReplayed flips meta.cached on a stored envelope: the original
// bytes were rendered on a cache miss, but the consumer receiving the
// replay is looking at a cached answer. On decode failure the bytes
// are served unchanged.
func markReplayed(b []byte) []byte {
	var env struct {
		Status  int                 `json:"status"`
		Message string              `json:"message"`
		Data    json.RawMessage     `json:"data,omitempty"`
		Meta    *xhttp.ResponseMeta `json:"meta,omitempty"`
	}
	if err := json.Unmarshal(b, &env); err != nil || env.Meta == nil {
		return b
	}
	env.Meta.Cached = true
	out, err := json.Marshal(env)
	if err != nil {
		return b
	}
	return out
}

func toMeta(m icache.Meta) *xhttp.ResponseMeta {
	return &xhttp.ResponseMeta{Cached: m.Cached, Stale: m.Stale, LastUpdated: m.ComputedAt}
}

func mapDomainError(err error) error {
	switch {
	case errors.Is(err, models.ErrEmptySeries):
		return xhttp.NotFoundError("no market data for symbol").WithError(err)
	case errors.Is(err, models.ErrInsufficientData):
		return xhttp.BadRequestError("not enough bars for requested analysis").WithError(err)
	case errors.Is(err, models.ErrPartialTimeframe), errors.Is(err, models.ErrUpstreamFetch):
		return xhttp.UpstreamError("market data providers unavailable").WithError(err)
	default:
		return xhttp.InternalError("analysis failed").WithError(err)
	}
}

// roundSignal rounds presentation fields on a copy of the signal.
// Alignment keeps one decimal, scores two.
func roundSignal(sig models.AggregateSignal) models.AggregateSignal {
	sig.Score = util.Round2(sig.Score)
	sig.AlignmentPct = util.Round1(sig.AlignmentPct)
	factors := make([]models.Factor, len(sig.Factors))
	copy(factors, sig.Factors)
	for i := range factors {
		factors[i].Score = util.Round2(factors[i].Score)
	}
	sig.Factors = factors

	frames := make([]models.TimeframeBias, len(sig.Timeframes))
	copy(frames, sig.Timeframes)
	for i := range frames {
		frames[i].Score = util.Round2(frames[i].Score)
		frames[i].Strength = util.Round2(frames[i].Strength)
	}
	sig.Timeframes = frames
	return sig
}
