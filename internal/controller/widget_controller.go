package controller

import (
	"apim-analytics-backend/internal/auth"
	"apim-analytics-backend/internal/dto"
	"apim-analytics-backend/internal/model"
	"apim-analytics-backend/internal/service"
	"apim-analytics-backend/internal/store"
	"apim-analytics-backend/internal/util"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type WidgetController struct {
	widgetService service.WidgetService
}

func NewWidgetController(widgetService service.WidgetService) *WidgetController {
	return &WidgetController{
		widgetService: widgetService,
	}
}

func RegisterWidgetRoutes(router *gin.Engine, controller *WidgetController, authenticator auth.Authenticator) {
	v1 := router.Group("/api/v1", authenticator.Middleware())
	{
		v1.POST("/widgets", controller.MountWidget)
		v1.GET("/widgets/:id", controller.GetWidget)
		v1.DELETE("/widgets/:id", controller.UnmountWidget)
		v1.PUT("/widgets/:id/created-by", controller.ChangeCreatedBy)
		v1.PUT("/widgets/:id/api", controller.ChangeAPI)
		v1.PUT("/widgets/:id/version", controller.ChangeVersion)
		v1.PUT("/widgets/:id/limit", controller.ChangeLimit)
		v1.POST("/widgets/:id/time-range", controller.SetWidgetTimeRange)
		v1.GET("/widgets/:id/stream", controller.StreamWidget)
		v1.POST("/time-range", controller.PublishTimeRange)
		v1.GET("/global-state/:key", controller.GetGlobalState)
	}
}

// MountWidget godoc
// @Summary      Mount a widget instance
// @Description  Creates a Top Platforms widget instance for the current user. The returned view is the initial state; filters and results follow asynchronously.
// @Tags         widgets
// @Accept       json
// @Produce      json
// @Param        request  body      dto.MountWidgetRequest  true  "Widget to mount"
// @Success      201      {object}  dto.WidgetState
// @Failure      400      {object}  model.Response "Invalid request body"
// @Failure      401      {object}  model.Response "Missing or invalid token"
// @Failure      500      {object}  model.Response "Internal server error"
// @Security     Bearer
// @Router       /api/v1/widgets [post]
func (c *WidgetController) MountWidget(ctx *gin.Context) {
	var req dto.MountWidgetRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, model.NewResponse("Invalid request body: "+err.Error(), nil))
		return
	}
	view, err := c.widgetService.Mount(ctx.Request.Context(), auth.Username(ctx), req)
	if err != nil {
		respondError(ctx, err, "Failed to mount widget")
		return
	}
	ctx.JSON(http.StatusCreated, view)
}

// GetWidget godoc
// @Summary      Get widget view
// @Description  Returns the filter controls, option lists and platform metrics of a widget instance.
// @Tags         widgets
// @Produce      json
// @Param        id   path      string  true  "Widget instance ID"
// @Success      200  {object}  dto.WidgetState
// @Failure      404  {object}  model.Response "Widget instance not found"
// @Security     Bearer
// @Router       /api/v1/widgets/{id} [get]
func (c *WidgetController) GetWidget(ctx *gin.Context) {
	view, err := c.widgetService.View(ctx.Param("id"))
	if err != nil {
		respondError(ctx, err, "Failed to get widget")
		return
	}
	ctx.JSON(http.StatusOK, view)
}

// UnmountWidget godoc
// @Summary      Unmount a widget instance
// @Tags         widgets
// @Produce      json
// @Param        id   path      string  true  "Widget instance ID"
// @Success      200  {object}  model.Response
// @Failure      404  {object}  model.Response "Widget instance not found"
// @Security     Bearer
// @Router       /api/v1/widgets/{id} [delete]
func (c *WidgetController) UnmountWidget(ctx *gin.Context) {
	if err := c.widgetService.Unmount(ctx.Request.Context(), ctx.Param("id")); err != nil {
		respondError(ctx, err, "Failed to unmount widget")
		return
	}
	ctx.JSON(http.StatusOK, model.NewResponse("Widget unmounted", nil))
}

// ChangeCreatedBy godoc
// @Summary      Change the "created by" filter
// @Description  Selects All or Me, resets the API and version filters and re-enumerates APIs.
// @Tags         widgets
// @Accept       json
// @Produce      json
// @Param        id       path      string                   true  "Widget instance ID"
// @Param        request  body      dto.FilterChangeRequest  true  "All or Me"
// @Success      202      {object}  model.Response
// @Failure      400      {object}  model.Response "Invalid filter value"
// @Failure      404      {object}  model.Response "Widget instance not found"
// @Security     Bearer
// @Router       /api/v1/widgets/{id}/created-by [put]
func (c *WidgetController) ChangeCreatedBy(ctx *gin.Context) {
	c.changeFilter(ctx, c.widgetService.ChangeCreatedBy)
}

// ChangeAPI godoc
// @Summary      Change the API filter
// @Description  Selects an API (or All), resets the version filter and re-enumerates APIs.
// @Tags         widgets
// @Accept       json
// @Produce      json
// @Param        id       path      string                   true  "Widget instance ID"
// @Param        request  body      dto.FilterChangeRequest  true  "API name"
// @Success      202      {object}  model.Response
// @Failure      400      {object}  model.Response "Invalid filter value"
// @Failure      404      {object}  model.Response "Widget instance not found"
// @Security     Bearer
// @Router       /api/v1/widgets/{id}/api [put]
func (c *WidgetController) ChangeAPI(ctx *gin.Context) {
	c.changeFilter(ctx, c.widgetService.ChangeAPI)
}

// ChangeVersion godoc
// @Summary      Change the version filter
// @Description  Selects a version of the selected API (or All) and re-runs the platform aggregation.
// @Tags         widgets
// @Accept       json
// @Produce      json
// @Param        id       path      string                   true  "Widget instance ID"
// @Param        request  body      dto.FilterChangeRequest  true  "API version"
// @Success      202      {object}  model.Response
// @Failure      400      {object}  model.Response "Invalid filter value"
// @Failure      404      {object}  model.Response "Widget instance not found"
// @Security     Bearer
// @Router       /api/v1/widgets/{id}/version [put]
func (c *WidgetController) ChangeVersion(ctx *gin.Context) {
	c.changeFilter(ctx, c.widgetService.ChangeVersion)
}

// ChangeLimit godoc
// @Summary      Change the platform limit
// @Description  Sends the raw text of the limit field. Empty text leaves the limit pending without a query.
// @Tags         widgets
// @Accept       json
// @Produce      json
// @Param        id       path      string                   true  "Widget instance ID"
// @Param        request  body      dto.FilterChangeRequest  true  "Limit text"
// @Success      202      {object}  model.Response
// @Failure      404      {object}  model.Response "Widget instance not found"
// @Security     Bearer
// @Router       /api/v1/widgets/{id}/limit [put]
func (c *WidgetController) ChangeLimit(ctx *gin.Context) {
	c.changeFilter(ctx, c.widgetService.ChangeLimit)
}

func (c *WidgetController) changeFilter(ctx *gin.Context, change func(instanceID, value string) error) {
	var req dto.FilterChangeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, model.NewResponse("Invalid request body: "+err.Error(), nil))
		return
	}
	if err := change(ctx.Param("id"), req.Value); err != nil {
		respondError(ctx, err, "Failed to change filter")
		return
	}
	ctx.JSON(http.StatusAccepted, model.NewResponse("Filter change queued", nil))
}

// SetWidgetTimeRange godoc
// @Summary      Set the time range of one widget
// @Tags         time-range
// @Accept       json
// @Produce      json
// @Param        id       path      string                true  "Widget instance ID"
// @Param        request  body      dto.TimeRangeRequest  true  "Time range"
// @Success      202      {object}  model.Response
// @Failure      400      {object}  model.Response "Invalid time range"
// @Failure      404      {object}  model.Response "Widget instance not found"
// @Security     Bearer
// @Router       /api/v1/widgets/{id}/time-range [post]
func (c *WidgetController) SetWidgetTimeRange(ctx *gin.Context) {
	tw, ok := bindTimeWindow(ctx)
	if !ok {
		return
	}
	if err := c.widgetService.SetTimeRange(ctx.Param("id"), tw); err != nil {
		respondError(ctx, err, "Failed to set time range")
		return
	}
	ctx.JSON(http.StatusAccepted, model.NewResponse("Time range queued", nil))
}

// PublishTimeRange godoc
// @Summary      Publish a time range to every widget
// @Description  Acts as the dashboard date-time range picker. Widgets mounted later receive the last published range.
// @Tags         time-range
// @Accept       json
// @Produce      json
// @Param        request  body      dto.TimeRangeRequest  true  "Time range"
// @Success      202      {object}  model.Response
// @Failure      400      {object}  model.Response "Invalid time range"
// @Security     Bearer
// @Router       /api/v1/time-range [post]
func (c *WidgetController) PublishTimeRange(ctx *gin.Context) {
	tw, ok := bindTimeWindow(ctx)
	if !ok {
		return
	}
	c.widgetService.PublishTimeRange(tw)
	ctx.JSON(http.StatusAccepted, model.NewResponse("Time range published", nil))
}

// GetGlobalState godoc
// @Summary      Read a global state entry
// @Description  Returns the raw JSON stored under key, e.g. the "platforms" query parameters.
// @Tags         global-state
// @Produce      json
// @Param        key  path      string  true  "State key"
// @Success      200  {object}  dto.GlobalStateResponse
// @Failure      404  {object}  model.Response "Key not found"
// @Security     Bearer
// @Router       /api/v1/global-state/{key} [get]
func (c *WidgetController) GetGlobalState(ctx *gin.Context) {
	key := ctx.Param("key")
	value, err := c.widgetService.GlobalState(ctx.Request.Context(), key)
	if err != nil {
		respondError(ctx, err, "Failed to read global state")
		return
	}
	ctx.JSON(http.StatusOK, dto.GlobalStateResponse{Key: key, Value: value})
}

func bindTimeWindow(ctx *gin.Context) (model.TimeWindow, bool) {
	var req dto.TimeRangeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, model.NewResponse("Invalid request body: "+err.Error(), nil))
		return model.TimeWindow{}, false
	}
	tw, err := parseTimeWindow(req)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, model.NewResponse(err.Error(), nil))
		return model.TimeWindow{}, false
	}
	return tw, true
}

func parseTimeWindow(req dto.TimeRangeRequest) (model.TimeWindow, error) {
	from, err := util.ParseTimeFlexible(req.From)
	if err != nil {
		return model.TimeWindow{}, fmt.Errorf("invalid 'from': %w", err)
	}
	to, err := util.ParseTimeFlexible(req.To)
	if err != nil {
		return model.TimeWindow{}, fmt.Errorf("invalid 'to': %w", err)
	}
	if !to.After(from) {
		return model.TimeWindow{}, errors.New("'to' must be after 'from'")
	}
	return model.TimeWindow{From: from.UnixMilli(), To: to.UnixMilli(), Granularity: req.Granularity}, nil
}

func respondError(ctx *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, service.ErrWidgetNotFound), errors.Is(err, store.ErrStateNotFound):
		ctx.JSON(http.StatusNotFound, model.NewResponse(err.Error(), nil))
	case errors.Is(err, service.ErrInvalidFilter):
		ctx.JSON(http.StatusBadRequest, model.NewResponse(err.Error(), nil))
	default:
		log.Error().Err(err).Str("path", ctx.FullPath()).Msg(message)
		ctx.JSON(http.StatusInternalServerError, model.NewResponse(message, nil))
	}
}
