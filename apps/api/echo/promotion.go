package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/comedor/core"
	"github.com/trezcool/comedor/core/promotion"
)

type promotionApi struct {
	svc promotion.Service
}

// registerPromotionAPI mounts the end-of-year promotion endpoints; they are admin only.
func registerPromotionAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc promotion.Service) {
	api := promotionApi{svc: svc}

	pg := g.Group("/promotions", jwt, adminMiddleware())
	pg.GET("/plan", api.plan)
	pg.POST("/apply", api.apply)
	pg.POST("/undo", api.undo)
	pg.GET("/log", api.log)
}

func (api *promotionApi) plan(ctx echo.Context) error {
	plan, err := api.svc.BuildPlan(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "building promotion plan")
	}
	return ctx.JSON(http.StatusOK, plan)
}

// apply rebuilds the plan from the current roster, then applies the submitted decisions on top of it.
func (api *promotionApi) apply(ctx echo.Context) error {
	var data ApplyPromotionRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ApplyPromotionRequest")
	}

	plan, err := api.svc.BuildPlan(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "building promotion plan")
	}
	for _, id := range data.Repeat {
		if err := plan.Repeat(core.CleanString(id)); err != nil {
			return err
		}
	}
	for id, d := range data.Decisions {
		if err := plan.Set(core.CleanString(id), d); err != nil {
			return err
		}
	}

	res, err := api.svc.Apply(ctx.Request().Context(), plan, data.Confirmed)
	if err != nil {
		return errors.Wrap(err, "applying promotion")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *promotionApi) undo(ctx echo.Context) error {
	res, err := api.svc.Undo(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "undoing promotion")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *promotionApi) log(ctx echo.Context) error {
	batches, err := api.svc.Log(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying promotion log")
	}
	if batches == nil {
		batches = []promotion.Batch{}
	}
	return ctx.JSON(http.StatusOK, batches)
}

type ApplyPromotionRequest struct {
	Confirmed bool                          `json:"confirmed"`
	Repeat    []string                      `json:"repeat"`
	Decisions map[string]promotion.Decision `json:"decisions"`
}
