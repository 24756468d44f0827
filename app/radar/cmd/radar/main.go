package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/iWorld-y/world_end/app/radar/pkg/config"
	"github.com/iWorld-y/world_end/app/radar/pkg/engine"
	"github.com/iWorld-y/world_end/app/radar/pkg/logger"
	"github.com/iWorld-y/world_end/app/radar/pkg/storage"
)

var (
	flagconf string
	mode     string
	day      string
)

func init() {
	flag.StringVar(&flagconf, "conf", "configs/radar.yaml", "config path, eg: -conf radar.yaml")
	flag.StringVar(&mode, "mode", "cycle", "cycle: run one analysis cycle; rollup: build one daily summary")
	flag.StringVar(&day, "day", "", "rollup day YYYY-MM-DD, defaults to yesterday")
}

func main() {
	flag.Parse()

	// .env 仅用于本地开发，不存在时忽略
	_ = godotenv.Load()

	// 1. 加载配置
	cfg, err := config.LoadConfig(flagconf)
	if err != nil {
		log.Fatalf("无法加载配置文件: %v", err)
	}

	// 2. 初始化日志
	if err = logger.InitLogger(cfg.Log.Level, cfg.Log.File); err != nil {
		log.Fatalf("无法初始化日志: %v", err)
	}
	logger.Log.Info("启动 World-End Radar...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. 初始化数据库
	store, err := storage.New(ctx, cfg.DB)
	if err != nil {
		logger.Log.Fatalf("无法连接数据库: %v", err)
	}
	defer store.Close()

	// 4. 初始化引擎，单次运行不推送
	eng, err := engine.NewFromConfig(ctx, cfg, store, nil)
	if err != nil {
		logger.Log.Fatalf("引擎初始化失败: %v", err)
	}

	switch mode {
	case "cycle":
		outcome, err := eng.RunCycle(ctx)
		if err != nil {
			logger.Log.Fatalf("分析周期失败: %v", err)
		}
		logger.Log.Infof("分析周期结束: %s", outcome)
	case "rollup":
		target := time.Now().AddDate(0, 0, -1)
		if day != "" {
			target, err = time.ParseInLocation(time.DateOnly, day, time.Local)
			if err != nil {
				logger.Log.Fatalf("日期格式错误: %v", err)
			}
		}
		summary, err := eng.RunDailyRollup(ctx, target)
		if err != nil {
			logger.Log.Fatalf("每日汇总失败: %v", err)
		}
		if summary == nil {
			logger.Log.Info("当天没有评分记录")
			return
		}
		logger.Log.Infof("每日汇总已保存: %s 平均 %.2f", summary.Date, summary.AverageScore)
	default:
		logger.Log.Fatalf("unknown mode: %s", mode)
	}
}
