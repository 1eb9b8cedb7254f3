package api

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/grepto/dash-macrodata/internal/chart"
	"github.com/grepto/dash-macrodata/internal/dashboard"
	"github.com/grepto/dash-macrodata/internal/metrics"
	"github.com/grepto/dash-macrodata/internal/models"
	"github.com/grepto/dash-macrodata/internal/state"
)

// SelectionRequest replaces parts of the selection. Omitted fields stay
// as they are; an empty countries list clears the selection.
type SelectionRequest struct {
	Countries []string          `json:"countries" validate:"omitempty,dive,required"`
	Indicator *string           `json:"indicator" validate:"omitempty,min=1"`
	Years     *YearRangeRequest `json:"years" validate:"omitempty"`
}

type YearRangeRequest struct {
	From int `json:"from" validate:"required"`
	To   int `json:"to" validate:"required"`
}

func (r SelectionRequest) update() state.Update {
	u := state.Update{Countries: r.Countries, Indicator: r.Indicator}
	if r.Years != nil {
		u.Years = &models.YearRange{From: r.Years.From, To: r.Years.To}
	}
	return u
}

// InteractionRequest is one pointer event on the time-series chart.
type InteractionRequest struct {
	Kind      string `json:"kind" validate:"required,oneof=none hover click brush"`
	Year      int    `json:"year" validate:"omitempty,gt=0"`
	FirstYear int    `json:"first_year" validate:"omitempty,gt=0"`
	LastYear  int    `json:"last_year" validate:"omitempty,gt=0"`
}

func (r InteractionRequest) interaction() models.Interaction {
	return models.Interaction{
		Kind:      models.InteractionKind(r.Kind),
		Year:      r.Year,
		FirstYear: r.FirstYear,
		LastYear:  r.LastYear,
	}
}

type Handler struct {
	svc      *dashboard.Service
	metrics  *metrics.Metrics
	logger   *slog.Logger
	validate *requestValidator
	upgrader websocket.Upgrader

	// ctx ends every WebSocket session when the server shuts down.
	ctx    context.Context
	cancel context.CancelFunc
}

func NewHandler(svc *dashboard.Service, m *metrics.Metrics, allowedOrigins []string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Handler{
		svc:      svc,
		metrics:  m,
		logger:   logger.With("component", "api"),
		validate: newRequestValidator(),
		ctx:      ctx,
		cancel:   cancel,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// Close ends open WebSocket sessions. Hijacked connections are not
// tracked by http.Server.Shutdown.
func (h *Handler) Close() { h.cancel() }

func (h *Handler) RegisterRoutes(e *echo.Echo, mw ...echo.MiddlewareFunc) {
	api := e.Group("/api", mw...)
	api.GET("/health", h.GetHealth)
	api.GET("/options", h.GetOptions)
	api.GET("/selection", h.GetSelection)
	api.PUT("/selection", h.PutSelection)
	api.POST("/interaction", h.PostInteraction)
	api.GET("/dashboard", h.GetDashboard)
	api.GET("/charts/:chart", h.GetChart)
	api.GET("/charts/:chart/image", h.GetChartImage)

	e.GET("/ws", h.ServeWS)
	if h.metrics != nil {
		e.GET("/metrics", echo.WrapHandler(h.metrics.Handler()))
	}
}

// --- HANDLERS ---

// getFrameParam reads ?frame=N; a missing or negative value means the
// last frame.
func getFrameParam(c echo.Context) (int, error) {
	raw := c.QueryParam("frame")
	if raw == "" {
		return -1, nil
	}
	frame, err := strconv.Atoi(raw)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "frame must be an integer")
	}
	if frame < 0 {
		frame = -1
	}
	return frame, nil
}

func (h *Handler) GetHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status": "ok",
		"rows":   h.svc.Rows(),
	})
}

func (h *Handler) GetOptions(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Options())
}

func (h *Handler) GetSelection(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Snapshot())
}

func (h *Handler) PutSelection(c echo.Context) error {
	var req SelectionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	data, err := h.svc.UpdateSelection(c.Request().Context(), req.update())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, data)
}

func (h *Handler) PostInteraction(c echo.Context) error {
	var req InteractionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	data, err := h.svc.Interact(c.Request().Context(), req.interaction())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, data)
}

func (h *Handler) GetDashboard(c echo.Context) error {
	data, err := h.svc.Current(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, data)
}

func (h *Handler) GetChart(c echo.Context) error {
	cfg, err := h.svc.Chart(c.Request().Context(), c.Param("chart"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cfg)
}

// GetChartImage renders a chart of the current snapshot. Empty charts
// answer 204.
func (h *Handler) GetChartImage(c echo.Context) error {
	format, err := chart.ParseFormat(c.QueryParam("format"))
	if err != nil {
		return err
	}
	frame, err := getFrameParam(c)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	err = h.svc.RenderImage(c.Request().Context(), c.Param("chart"), format, frame, &buf)
	if errors.Is(err, chart.ErrEmptyChart) {
		return c.NoContent(http.StatusNoContent)
	}
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, format.ContentType(), buf.Bytes())
}
