package main

import (
	"flag"
	"os"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/opinion_radar/internal/server"
	"github.com/iWorld-y/opinion_radar/internal/service"
	"github.com/iWorld-y/opinion_radar/pkg/config"
	"github.com/iWorld-y/opinion_radar/pkg/engine"
	"github.com/iWorld-y/opinion_radar/pkg/logger"
	"github.com/iWorld-y/opinion_radar/pkg/storage"
)

// go build -ldflags "-X main.Version=x.y.z"
var (
	// Name 是服务的名称
	Name string = "opinion_radar"
	// Version 是服务的版本号
	Version string
	// flagconf 是配置文件的路径命令行参数
	flagconf string

	id, _ = os.Hostname()
)

func init() {
	flag.StringVar(&flagconf, "conf", "configs/config.yaml", "config path, eg: -conf config.yaml")
}

func main() {
	flag.Parse()

	cfg, err := config.LoadConfig(flagconf)
	if err != nil {
		panic(err)
	}

	if err := logger.InitLogger(cfg.Log.Level, cfg.Log.File); err != nil {
		panic(err)
	}

	klogger := log.With(log.NewStdLogger(os.Stdout),
		"ts", log.DefaultTimestamp,
		"caller", log.DefaultCaller,
		"service.id", id,
		"service.name", Name,
		"service.version", Version,
	)

	// 存储层：数据库不可用时内部降级为内存存储
	store := storage.NewStore(cfg)
	defer store.Close()

	eng, err := engine.NewEngine(cfg, store)
	if err != nil {
		panic(err)
	}

	svc := service.NewAnalysisService(eng, store, cfg, klogger)
	hs := server.NewHTTPServer(cfg, svc, klogger)

	app := kratos.New(
		kratos.ID(id),
		kratos.Name(Name),
		kratos.Version(Version),
		kratos.Metadata(map[string]string{}),
		kratos.Logger(klogger),
		kratos.Server(hs),
	)

	if err := app.Run(); err != nil {
		panic(err)
	}
}
