package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"oip/dpaccuracy/internal/alerting"
	"oip/dpaccuracy/internal/anomaly"
	"oip/dpaccuracy/internal/connector"
	"oip/dpaccuracy/internal/domains"
	"oip/dpaccuracy/internal/events"
	"oip/dpaccuracy/internal/pipeline"
	"oip/dpaccuracy/internal/remediation"
	"oip/dpaccuracy/internal/scanner"
	"oip/dpaccuracy/internal/worker"
	"oip/dpaccuracy/pkg/config"
	"oip/dpaccuracy/pkg/infra/mysql"
	"oip/dpaccuracy/pkg/infra/redis"
	"oip/dpaccuracy/pkg/lmstfy"
	"oip/dpaccuracy/pkg/logger"
)

var (
	configPath = flag.String("config", "./config/worker.yaml", "配置文件路径")
)

func main() {
	flag.Parse()

	// 1. 初始化日志
	log.Println("========================================")
	log.Println("  DPACCURACY Worker Starting...")
	log.Println("========================================")

	// 2. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Config validation failed: %v", err)
	}

	log.Printf("Config loaded: %s, env: %s, log_level: %s\n", cfg.App.Name, cfg.App.Env, cfg.App.LogLevel)

	// 3. 初始化 Logger
	zapLogger, err := logger.NewZapLogger(cfg.App.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Sync()

	// 4. 初始化基础设施
	db, err := mysql.NewDB(cfg.MySQL.DSN)
	if err != nil {
		log.Fatalf("Failed to connect mysql: %v", err)
	}
	defer mysql.CloseDB(db)

	cache, err := redis.NewCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.CacheTTL)
	if err != nil {
		log.Fatalf("Failed to connect redis: %v", err)
	}
	defer cache.Close()

	notifier, err := redis.NewNotifier(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.EventChannel, zapLogger)
	if err != nil {
		log.Fatalf("Failed to create redis notifier: %v", err)
	}
	defer notifier.Close()

	lmstfyClient, err := lmstfy.NewClient(cfg.Lmstfy.Host, cfg.Lmstfy.Port, cfg.Lmstfy.Namespace, cfg.Lmstfy.Token)
	if err != nil {
		log.Fatalf("Failed to create lmstfy client: %v", err)
	}

	// 5. 组装业务服务
	checkDAO := mysql.NewCheckDAO(db)
	discDAO := mysql.NewDiscrepancyDAO(db)
	alertDAO := mysql.NewAlertDAO(db)
	remDAO := mysql.NewRemediationDAO(db)
	catalogDAO := mysql.NewCatalogDAO(db)

	// 连接器注册表由宿主应用按已配置凭证填充
	connectors := connector.NewRegistry()

	channels := alerting.NewChannelRegistry()
	for _, ch := range cfg.Alerting.Channels {
		if ch.Credential != "" {
			channels.Register(ch.Name)
		}
	}

	bus := events.NewBus(zapLogger)
	defer bus.Close()

	scan := scanner.NewScanner(checkDAO, discDAO, catalogDAO, connectors, bus, zapLogger, scanner.Options{
		SampleSize:       cfg.Scanner.SampleSize,
		StalenessWindow:  cfg.Scanner.StalenessWindow,
		ProgressInterval: cfg.Scanner.ProgressInterval,
	})

	alerts := alerting.NewManager(alertDAO, alertDAO, checkDAO, channels, lmstfyClient, cfg.Lmstfy.RemediationQueue, zapLogger)

	remediator := remediation.NewService(
		discDAO, checkDAO, catalogDAO, remDAO, remDAO,
		connectors, cache, zapLogger,
		remediation.Options{
			PollInterval: cfg.Remediation.PollInterval,
			SyncTimeout:  cfg.Remediation.SyncTimeout,
		},
	)

	detector := anomaly.NewDetector(zapLogger)

	// 6. 后台组件：事件转发 + 检查完成后的异常检测与告警评估
	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go notifier.Forward(rootCtx, bus)

	followup := pipeline.NewFollowup(discDAO, checkDAO, detector, alerts, bus, zapLogger)
	followup.Start(rootCtx)

	services := &domains.Services{
		Scanner:     scan,
		Alerts:      alerts,
		Remediation: remediator,
	}

	// 7. 创建 Manager
	mgr, err := worker.NewManagerInstance(cfg, lmstfyClient, services, zapLogger)
	if err != nil {
		log.Fatalf("Failed to create manager: %v", err)
	}

	// 8. 启动 Manager（goroutine）
	go func() {
		if err := mgr.Start(); err != nil {
			log.Fatalf("Manager start failed: %v", err)
		}
	}()

	log.Println("Worker started. Press Ctrl+C to shutdown.")

	// 9. 等待退出信号
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	log.Println("========================================")
	log.Printf("  Received signal: %v\n", sig)
	log.Println("  Shutting down Worker...")
	log.Println("========================================")

	// 10. 优雅关闭：先排干队列与扫描，再停后台订阅
	mgr.Shutdown()
	cancel()
	followup.Wait()

	fmt.Println("========================================")
	fmt.Println("  Worker exited gracefully")
	fmt.Println("========================================")
}
