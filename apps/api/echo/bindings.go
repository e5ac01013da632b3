package echoapi

import (
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/labstack/echo/v4"

	"github.com/trezcool/comedor/core"
	"github.com/trezcool/comedor/core/billing"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// bindDate reads a YYYY-MM-DD query param, defaulting to today.
func bindDate(ctx echo.Context, param string, conf *core.Config) (civil.Date, error) {
	return core.ParseDate(param, ctx.QueryParam(param), conf.Today())
}

// bindPeriod reads either `from` & `to` or `year` & `month` query params.
// Without any of them, the current month is used.
func bindPeriod(ctx echo.Context, conf *core.Config) (billing.Period, error) {
	if ctx.QueryParam("from") != "" || ctx.QueryParam("to") != "" {
		from, err := core.ParseDate("from", ctx.QueryParam("from"), civil.Date{})
		if err != nil {
			return billing.Period{}, err
		}
		to, err := core.ParseDate("to", ctx.QueryParam("to"), conf.Today())
		if err != nil {
			return billing.Period{}, err
		}
		p := billing.Period{From: from, To: to}
		return p, p.Validate()
	}

	today := conf.Today()
	year, month := today.Year, today.Month
	if v := ctx.QueryParam("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 2000 || y > 2100 {
			return billing.Period{}, core.NewFieldError("year", "year is not valid")
		}
		year = y
	}
	if v := ctx.QueryParam("month"); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			return billing.Period{}, core.NewFieldError("month", "month must be between 1 and 12")
		}
		month = time.Month(m)
	}
	return billing.MonthPeriod(year, month), nil
}

// bindMenuPrice reads the optional `price` query param used by the student reports.
func bindMenuPrice(ctx echo.Context) ([]float64, error) {
	v := ctx.QueryParam("price")
	if v == "" {
		return nil, nil
	}
	price, err := strconv.ParseFloat(strings.Replace(v, ",", ".", 1), 64)
	if err != nil || price <= 0 || price > 100 {
		return nil, core.NewFieldError("price", "price must be a positive amount")
	}
	return []float64{price}, nil
}
