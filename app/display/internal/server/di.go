package server

import (
	"github.com/google/wire"

	"github.com/iWorld-y/world_end/app/display/internal/biz"
	"github.com/iWorld-y/world_end/app/display/internal/data"
	"github.com/iWorld-y/world_end/app/display/internal/service"
	"github.com/iWorld-y/world_end/app/radar/pkg/engine"
)

// ProviderSet 是展示服务的依赖注入 Provider 集合
var ProviderSet = wire.NewSet(
	// Server providers
	NewHTTPServer,
	NewRadarServer,
	NewRadarEngine,
	NewHub,
	wire.Bind(new(StatusReporter), new(*engine.Engine)),

	// Data providers
	data.NewData,
	data.NewAnalysisRepo,

	// UseCase providers
	biz.NewAnalysisUseCase,
	wire.Bind(new(biz.CycleRunner), new(*engine.Engine)),

	// Service providers
	service.NewDisplayService,
)
