package data

import (
	"context"
	"os"
	"time"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/world_end/app/display/internal/conf"
	"github.com/iWorld-y/world_end/app/radar/pkg/config"
	"github.com/iWorld-y/world_end/app/radar/pkg/metrics"
	"github.com/iWorld-y/world_end/app/radar/pkg/storage"
)

const dbStatsInterval = 15 * time.Second

type Data struct {
	store storage.Store
}

// Store 供引擎与仓库共用的存储
func (d *Data) Store() storage.Store {
	return d.store
}

func NewData(c *conf.Data, logger log.Logger) (*Data, func(), error) {
	helper := log.NewHelper(logger)

	dbc := config.DBConfig{Driver: "sqlite"}
	if c != nil && c.Database != nil {
		dbc.Driver = c.Database.Driver
		dbc.DSN = c.Database.Source
		dbc.MaxOpenConns = int(c.Database.MaxOpenConns)
		dbc.SeedCountries = c.Database.SeedCountries
	}
	if dbc.DSN == "" {
		dbc.DSN = os.Getenv("DATABASE_URL")
	}
	if dbc.DSN == "" && (dbc.Driver == "sqlite" || dbc.Driver == "") {
		dbc.DSN = "data/world-end.db"
	}

	store, err := storage.New(context.Background(), dbc)
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	if s, ok := store.(*storage.SQLStore); ok {
		go metrics.StartDBStatsCollector(ctx, s.DB(), dbStatsInterval)
	}
	helper.Infof("storage ready, driver=%s", dbc.Driver)

	cleanup := func() {
		helper.Info("closing the data resources")
		cancel()
		if err := store.Close(); err != nil {
			helper.Errorf("close store: %v", err)
		}
	}
	return &Data{store: store}, cleanup, nil
}
