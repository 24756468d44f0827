package service

import (
	"context"
	"errors"
	nethttp "net/http"
	"strconv"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"

	"github.com/iWorld-y/world_end/app/display/internal/biz"
)

type errorReply struct {
	Error string `json:"error"`
}

type DisplayService struct {
	uc  *biz.AnalysisUseCase
	log *log.Helper
}

func NewDisplayService(uc *biz.AnalysisUseCase, logger log.Logger) *DisplayService {
	return &DisplayService{
		uc:  uc,
		log: log.NewHelper(logger),
	}
}

const (
	OperationDisplayLatest             = "/display.Display/Latest"
	OperationDisplayHistory            = "/display.Display/History"
	OperationDisplayHistoricalAnalysis = "/display.Display/HistoricalAnalysis"
	OperationDisplayCountries          = "/display.Display/Countries"
	OperationDisplayConflicts          = "/display.Display/Conflicts"
	OperationDisplayGlobalAnalysis     = "/display.Display/GlobalAnalysis"
	OperationDisplayDailySummary       = "/display.Display/DailySummary"
	OperationDisplayTriggerAnalysis    = "/display.Display/TriggerAnalysis"
)

// RegisterDisplayHTTPServer 注册 /api 路由，filters 只作用于这些路由
func RegisterDisplayHTTPServer(srv *http.Server, s *DisplayService, filters ...http.FilterFunc) {
	r := srv.Route("/api", filters...)
	r.GET("/latest", s.handle(OperationDisplayLatest, "Failed to fetch latest data", s.Latest))
	r.GET("/history", s.handle(OperationDisplayHistory, "Failed to fetch history", s.History))
	r.GET("/historical-analysis", s.handle(OperationDisplayHistoricalAnalysis, "Failed to fetch historical analysis", s.HistoricalAnalysis))
	r.GET("/countries", s.handle(OperationDisplayCountries, "Failed to fetch countries", s.Countries))
	r.GET("/conflicts", s.handle(OperationDisplayConflicts, "Failed to fetch conflicts", s.Conflicts))
	r.GET("/global-analysis", s.handle(OperationDisplayGlobalAnalysis, "Failed to fetch global analysis", s.GlobalAnalysis))
	r.GET("/daily-summary", s.handle(OperationDisplayDailySummary, "Failed to fetch daily summary", s.DailySummary))
	r.POST("/trigger-analysis", s.handle(OperationDisplayTriggerAnalysis, "Failed to trigger analysis", s.TriggerAnalysis))
}

// handle 让 handler 经过 server 级 middleware（recovery 等），与生成代码一致。
// handler 自己写响应，middleware 链返回的错误（如 panic）统一按 500 处理
func (s *DisplayService) handle(operation, msg string, h http.HandlerFunc) http.HandlerFunc {
	return func(ctx http.Context) error {
		http.SetOperation(ctx, operation)
		m := ctx.Middleware(func(context.Context, any) (any, error) {
			return nil, h(ctx)
		})
		if _, err := m(ctx, nil); err != nil {
			s.log.WithContext(ctx).Errorf("%s: %v", msg, err)
			return ctx.JSON(nethttp.StatusInternalServerError, errorReply{Error: msg})
		}
		return nil
	}
}

func (s *DisplayService) Latest(ctx http.Context) error {
	e, err := s.uc.Latest(ctx)
	if kerrors.IsNotFound(err) {
		return ctx.JSON(nethttp.StatusNotFound, struct{}{})
	}
	if err != nil {
		return s.fail(ctx, err, "Failed to fetch latest data")
	}
	return ctx.JSON(nethttp.StatusOK, e)
}

func (s *DisplayService) History(ctx http.Context) error {
	limit, err := strconv.Atoi(ctx.Query().Get("limit"))
	if err != nil {
		limit = biz.DefaultHistoryLimit
	}
	rows, err := s.uc.History(ctx, limit)
	if err != nil {
		return s.fail(ctx, err, "Failed to fetch history")
	}
	return ctx.JSON(nethttp.StatusOK, rows)
}

func (s *DisplayService) HistoricalAnalysis(ctx http.Context) error {
	points, err := s.uc.Trend(ctx, ctx.Query().Get("period"))
	if err != nil {
		return s.fail(ctx, err, "Failed to fetch historical analysis")
	}
	return ctx.JSON(nethttp.StatusOK, points)
}

func (s *DisplayService) Countries(ctx http.Context) error {
	rows, err := s.uc.Countries(ctx)
	if err != nil {
		return s.fail(ctx, err, "Failed to fetch countries")
	}
	return ctx.JSON(nethttp.StatusOK, rows)
}

func (s *DisplayService) Conflicts(ctx http.Context) error {
	rows, err := s.uc.Conflicts(ctx)
	if err != nil {
		return s.fail(ctx, err, "Failed to fetch conflicts")
	}
	return ctx.JSON(nethttp.StatusOK, rows)
}

func (s *DisplayService) GlobalAnalysis(ctx http.Context) error {
	g, err := s.uc.GlobalAnalysis(ctx)
	if err != nil {
		return s.fail(ctx, err, "Failed to fetch global analysis")
	}
	return ctx.JSON(nethttp.StatusOK, g)
}

func (s *DisplayService) DailySummary(ctx http.Context) error {
	d, err := s.uc.DailySummary(ctx, ctx.Query().Get("date"))
	if err != nil {
		return s.fail(ctx, err, "Failed to fetch daily summary")
	}
	return ctx.JSON(nethttp.StatusOK, d)
}

func (s *DisplayService) TriggerAnalysis(ctx http.Context) error {
	// 周期不随请求取消
	res, err := s.uc.Trigger(context.WithoutCancel(ctx))
	if err != nil {
		return s.fail(ctx, err, "Failed to trigger analysis")
	}
	return ctx.JSON(nethttp.StatusOK, res)
}

// fail 业务错误按 kratos 错误码返回，其余错误只记录日志并返回通用信息
func (s *DisplayService) fail(ctx http.Context, err error, msg string) error {
	var se *kerrors.Error
	if errors.As(err, &se) {
		return ctx.JSON(int(se.Code), errorReply{Error: se.Message})
	}
	s.log.WithContext(ctx).Errorf("%s: %v", msg, err)
	return ctx.JSON(nethttp.StatusInternalServerError, errorReply{Error: msg})
}
