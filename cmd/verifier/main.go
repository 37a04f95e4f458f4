// Command verifier starts a daemon that judges submitted solutions one at a
// time and serves the submission queue over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/mailjudge/go-verifier/cmd/verifier/config"
	"github.com/mailjudge/go-verifier/cmd/verifier/rest"
	"github.com/mailjudge/go-verifier/cmd/verifier/version"
	"github.com/mailjudge/go-verifier/judger"
	"github.com/mailjudge/go-verifier/language"
	"github.com/mailjudge/go-verifier/pkg/apparmor"
	"github.com/mailjudge/go-verifier/problem"
	"github.com/mailjudge/go-verifier/runner"
	"github.com/mailjudge/go-verifier/worker"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
)

var logger *zap.Logger

func main() {
	conf := loadConf()
	if conf.Version {
		fmt.Println(version.Version)
		return
	}
	initLogger(conf)
	defer logger.Sync()
	if ce := logger.Check(zap.InfoLevel, "Config loaded"); ce != nil {
		ce.Write(zap.String("config", fmt.Sprintf("%+v", conf)))
	}
	checkPrivilege()

	langs := loadLanguages(conf)
	work := newWorker(conf, langs, newJudger(conf))
	work.Start()
	logger.Info("Worker started",
		zap.Strings("languages", langs.Names()),
		zap.String("tasks", conf.TasksDir),
		zap.String("scratch", conf.ScratchDir))
	if conf.EnableMetrics {
		initMetrics(work)
	}

	servers := []initFunc{
		cleanUpWorker(work),
		initHTTPServer(conf, work),
		initMonitorHTTPServer(conf),
	}

	// Gracefully shutdown, with signal / HTTP server / Monitor HTTP server
	sig := make(chan os.Signal, 1+len(servers))

	stops := []stopFunc{}
	for _, s := range servers {
		start, stop := s()
		if start != nil {
			go func() {
				start()
				sig <- os.Interrupt
			}()
		}
		if stop != nil {
			stops = append(stops, stop)
		}
	}
	notifySystemd(daemon.SdNotifyReady)

	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	signal.Reset(syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Shutting Down...")
	notifySystemd(daemon.SdNotifyStopping)

	// the running submission may take up to the compile and time limits
	ctx, cancel := context.WithTimeout(context.TODO(), conf.CompileTimeLimit+time.Minute)
	defer cancel()

	var eg errgroup.Group
	for _, s := range stops {
		eg.Go(func() error {
			return s(ctx)
		})
	}

	go func() {
		logger.Info("Shutdown Finished", zap.Error(eg.Wait()))
		cancel()
	}()
	<-ctx.Done()
}

func loadConf() *config.Config {
	var conf config.Config
	if err := conf.Load(); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		log.Fatalln("load config failed ", err)
	}
	return &conf
}

func initLogger(conf *config.Config) {
	if conf.Silent {
		logger = zap.NewNop()
		return
	}

	var err error
	if conf.Release {
		logger, err = zap.NewProduction()
	} else {
		config := zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		if !conf.EnableDebug {
			config.Level.SetLevel(zap.InfoLevel)
		}
		logger, err = config.Build()
	}
	if err != nil {
		log.Fatalln("init logger failed ", err)
	}
}

// checkPrivilege exits when apparmor profiles cannot be managed
func checkPrivilege() {
	if runtime.GOOS != "linux" {
		logger.Fatal("AppArmor confinement requires linux", zap.String("GOOS", runtime.GOOS))
	}
	if uid := unix.Getuid(); uid != 0 {
		logger.Fatal("You should run verifier with root privileges", zap.Int("uid", uid))
	}
}

func notifySystemd(state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		logger.Warn("Notify systemd failed", zap.String("state", state), zap.Error(err))
		return
	}
	if sent {
		logger.Debug("Notified systemd", zap.String("state", state))
	}
}

func loadLanguages(conf *config.Config) *language.Table {
	t, err := language.Load(conf.LanguageConf)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatal("Load language config failed", zap.String("path", conf.LanguageConf), zap.Error(err))
		}
		logger.Info("Language config does not exist, use the built-in languages", zap.String("path", conf.LanguageConf))
		return language.Default()
	}
	return t
}

func newJudger(conf *config.Config) *judger.Judger {
	r, err := runner.New(logger.Named("runner"))
	if err != nil {
		logger.Fatal("Create runner failed", zap.Error(err))
	}
	r.PollInterval = conf.PollInterval

	tools := apparmor.NewTools()
	tools.ProfileDir = conf.ProfileDir
	tools.EnforceCmd = conf.EnforceCmd
	tools.DisableCmd = conf.DisableCmd

	j, err := judger.New(judger.Config{
		ScratchDir:       conf.ScratchDir,
		CompileTimeLimit: conf.CompileTimeLimit,
		Runner:           r,
		Confiner:         apparmor.NewManager(tools, logger.Named("apparmor")),
		Logger:           logger.Named("judger"),
	})
	if err != nil {
		logger.Fatal("Create judger failed", zap.Error(err))
	}
	return j
}

func newWorker(conf *config.Config, langs *language.Table, j worker.Judger) worker.Worker {
	wc := worker.Config{
		Judger:    j,
		Languages: langs,
		Tasks:     problem.Store{Root: conf.TasksDir},
		QueueSize: conf.QueueSize,
		Logger:    logger.Named("worker"),
	}
	if conf.EnableMetrics {
		wc.Observer = judgeObserve
	}
	return worker.New(wc)
}

type (
	stopFunc func(ctx context.Context) error
	initFunc func() (start func(), cleanUp stopFunc)
)

func cleanUpWorker(work worker.Worker) initFunc {
	return func() (start func(), cleanUp stopFunc) {
		return nil, func(ctx context.Context) error {
			work.Shutdown()
			logger.Info("Worker shutdown")
			return nil
		}
	}
}

func initHTTPServer(conf *config.Config, work worker.Worker) initFunc {
	return func() (start func(), cleanUp stopFunc) {
		srv := http.Server{
			Addr:    conf.HTTPAddr,
			Handler: initHTTPMux(conf, work),
		}
		return func() {
				logger.Info("Starting http server", zap.String("addr", conf.HTTPAddr))
				if err := srv.ListenAndServe(); errors.Is(err, http.ErrServerClosed) {
					logger.Info("Http server stopped", zap.Error(err))
				} else {
					logger.Error("Http server stopped", zap.Error(err))
				}
			}, func(ctx context.Context) error {
				logger.Info("Http server shutting down")
				return srv.Shutdown(ctx)
			}
	}
}

func initMonitorHTTPServer(conf *config.Config) initFunc {
	return func() (start func(), cleanUp stopFunc) {
		mr := initMonitorHTTPMux(conf)
		if mr == nil {
			return nil, nil
		}
		msrv := http.Server{
			Addr:    conf.MonitorAddr,
			Handler: mr,
		}
		return func() {
				logger.Info("Starting monitoring http server", zap.String("addr", conf.MonitorAddr))
				logger.Info("Monitoring http server stopped", zap.Error(msrv.ListenAndServe()))
			}, func(ctx context.Context) error {
				logger.Info("Monitoring http server shutdown")
				return msrv.Shutdown(ctx)
			}
	}
}

func initHTTPMux(conf *config.Config, work worker.Worker) http.Handler {
	if conf.Release {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(ginzap.Ginzap(logger, "", false))
	r.Use(ginzap.RecoveryWithZap(logger, true))

	if conf.EnableMetrics {
		initGinMetrics(r)
	}

	r.GET("/version", handleVersion)

	if conf.AuthToken != "" {
		r.Use(tokenAuth(conf.AuthToken))
		logger.Info("Attach token auth")
	}

	rest.NewJudgeHandle(work, logger.Named("rest")).Register(r)
	return r
}

func initMonitorHTTPMux(conf *config.Config) http.Handler {
	if !conf.EnableMetrics && !conf.EnableDebug {
		return nil
	}
	mux := http.NewServeMux()
	if conf.EnableMetrics {
		mux.Handle("/metrics", promhttp.Handler())
	}
	if conf.EnableDebug {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	return mux
}

func initGinMetrics(r *gin.Engine) {
	p := ginprometheus.NewWithConfig(ginprometheus.Config{
		Subsystem:          "gin",
		DisableBodyReading: true,
	})
	p.ReqCntURLLabelMappingFn = func(c *gin.Context) string {
		return c.FullPath()
	}
	r.Use(p.HandlerFunc())
}

func tokenAuth(token string) gin.HandlerFunc {
	const bearer = "Bearer "
	return func(c *gin.Context) {
		reqToken := c.GetHeader("Authorization")
		if strings.HasPrefix(reqToken, bearer) && reqToken[len(bearer):] == token {
			c.Next()
			return
		}
		c.AbortWithStatus(http.StatusUnauthorized)
	}
}

func handleVersion(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"buildVersion": version.Version,
		"goVersion":    runtime.Version(),
		"platform":     runtime.GOARCH,
		"os":           runtime.GOOS,
	})
}
