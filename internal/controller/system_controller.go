package controller

import (
	"apim-analytics-backend/internal/model"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func RegisterSystemRoutes(router *gin.Engine) {
	router.GET("/healthz", Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Health godoc
// @Summary      Health check
// @Tags         health
// @Produce      json
// @Success      200  {object}  model.Response
// @Router       /healthz [get]
func Health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, model.NewResponse("ok", nil))
}
