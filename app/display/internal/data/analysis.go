package data

import (
	"context"
	"errors"
	"time"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/world_end/app/display/internal/biz"
	"github.com/iWorld-y/world_end/app/radar/pkg/model"
	"github.com/iWorld-y/world_end/app/radar/pkg/storage"
)

type analysisRepo struct {
	data *Data
	log  *log.Helper
}

func NewAnalysisRepo(data *Data, logger log.Logger) biz.AnalysisRepo {
	return &analysisRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

func (r *analysisRepo) Latest(ctx context.Context, n int) ([]*model.Evaluation, error) {
	return r.data.store.Latest(ctx, n)
}

func (r *analysisRepo) Since(ctx context.Context, since time.Time) ([]*model.Evaluation, error) {
	return r.data.store.RangeSince(ctx, since)
}

func (r *analysisRepo) Countries(ctx context.Context) ([]*model.Country, error) {
	return r.data.store.ListCountries(ctx)
}

func (r *analysisRepo) Conflicts(ctx context.Context) ([]*model.Conflict, error) {
	return r.data.store.ListActiveConflicts(ctx)
}

func (r *analysisRepo) GlobalAnalysis(ctx context.Context) (*model.GlobalAnalysis, error) {
	g, err := r.data.store.LatestGlobalAnalysis(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, kerrors.NotFound(biz.ReasonAnalysisNotFound, "No global analysis found")
	}
	return g, err
}

func (r *analysisRepo) DailySummary(ctx context.Context, date string) (*model.DailySummary, error) {
	d, err := r.data.store.GetDailySummary(ctx, date)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, kerrors.NotFound(biz.ReasonSummaryNotFound, "No daily summary found for "+date)
	}
	return d, err
}
