// Command fuzzy-hvac runs one fuzzy-logic control loop per configured zone
// and publishes the resulting heat/cool/maintain decisions to MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/sweeney/fuzzy-hvac/internal/config"
	"github.com/sweeney/fuzzy-hvac/internal/control"
	"github.com/sweeney/fuzzy-hvac/internal/metrics"
	"github.com/sweeney/fuzzy-hvac/internal/mqtt"
	"github.com/sweeney/fuzzy-hvac/internal/safety"
	"github.com/sweeney/fuzzy-hvac/internal/sensor"
	"github.com/sweeney/fuzzy-hvac/internal/status"
	"github.com/sweeney/fuzzy-hvac/internal/web"
)

// fromConfig marks a flag that was not given on the command line.
const fromConfig = "=config"

type options struct {
	configPath string
	broker     string
	httpAddr   string
	eval       string
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "TOML configuration file (empty uses the built-in default)")
	flag.StringVar(&opts.broker, "broker", fromConfig, `MQTT broker address ("off" disables publishing)`)
	flag.StringVar(&opts.httpAddr, "http", fromConfig, "HTTP status address (empty to disable)")
	flag.StringVar(&opts.eval, "eval", "", `Evaluate one input "te,rct,ot", print the control signal and exit`)
	verbose := flag.Bool("verbose", false, "Enable debug logging")

	flag.Parse()

	log := initLogger(*verbose)
	defer log.Sync()

	if err := run(opts, log, os.Stdout); err != nil {
		log.Fatal("fatal", zap.Error(err))
	}
}

func initLogger(verbose bool) *zap.Logger {
	c := zap.NewDevelopmentConfig()
	c.DisableStacktrace = true
	c.EncoderConfig.EncodeCaller = func(
		caller zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
		p := caller.TrimmedPath()
		if len(p) > 30 {
			p = "..." + p[len(p)-27:]
		}
		enc.AppendString(fmt.Sprintf("%30s", p))
	}
	if !verbose {
		c.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	log, err := c.Build()
	if err != nil {
		panic(err)
	}
	return log
}

func loadConfig(opts options) (*config.File, error) {
	var (
		cfg *config.File
		err error
	)
	if opts.configPath == "" {
		cfg, err = config.Default()
	} else {
		cfg, err = config.Load(opts.configPath)
	}
	if err != nil {
		return nil, err
	}
	if opts.broker != fromConfig {
		cfg.Daemon.Broker = opts.broker
	}
	if opts.httpAddr != fromConfig {
		cfg.Daemon.HTTP = opts.httpAddr
	}
	return cfg, nil
}

func run(opts options, log *zap.Logger, stdout io.Writer) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	engine, reg, err := cfg.Engine()
	if err != nil {
		return fmt.Errorf("build rule base: %w", err)
	}
	ctrl, err := control.NewController(engine)
	if err != nil {
		return err
	}
	env, err := safety.NewEnvelope(reg)
	if err != nil {
		return err
	}

	// Evaluate mode
	if opts.eval != "" {
		in, err := parseEval(opts.eval)
		if err != nil {
			return err
		}
		sig, action, err := evaluateOnce(ctrl, env, in, cfg.Daemon.Deadband)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "control signal: %.4f (%s)\n", float64(sig), action)
		return nil
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(promReg)

	rules := engine.Rules()
	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:      cfg.Daemon.PollMs,
		HeartbeatMs: cfg.Daemon.HeartbeatMs,
		Broker:      cfg.Daemon.Broker,
		HTTPAddr:    cfg.Daemon.HTTP,
		Deadband:    cfg.Daemon.Deadband,
		Defuzzifier: string(engine.Method()),
		Rules:       len(rules),
	})
	for _, z := range cfg.Zones {
		tracker.AddZone(z.Name, z.Setpoint)
	}

	// Initialize MQTT
	var publisher interface {
		mqtt.Publisher
		mqtt.ConnectionStatus
	} = mqtt.NopPublisher{}
	if cfg.Daemon.Broker != config.BrokerOff {
		p, err := mqtt.NewRealPublisher(mqtt.Options{
			Broker:   cfg.Daemon.Broker,
			ClientID: cfg.Daemon.ClientID,
			Logger:   log,
		})
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		publisher = p
	}
	defer publisher.Close()

	// Publish startup event with full status snapshot
	tracker.SetMQTTConnected(publisher.IsConnected())
	publishStatus(log, publisher, tracker, mqtt.EventStartup, "", true)

	// Start HTTP status server
	if cfg.Daemon.HTTP != "" {
		ruleText := make([]string, len(rules))
		for i, r := range rules {
			ruleText[i] = r.Name + ": " + r.String()
		}
		srv := web.New(cfg.Daemon.HTTP, tracker, web.WithMetrics(promReg), web.WithRules(ruleText))
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("http server error", zap.Error(err))
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Info("http status server listening", zap.String("addr", cfg.Daemon.HTTP))
	}

	log.Info("started",
		zap.Duration("poll", cfg.Daemon.Poll()),
		zap.Duration("heartbeat", cfg.Daemon.Heartbeat()),
		zap.String("broker", cfg.Daemon.Broker),
		zap.Int("zones", len(cfg.Zones)),
		zap.Int("rules", len(rules)),
		zap.String("defuzzifier", string(engine.Method())))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	for _, z := range cfg.Zones {
		src := sensor.NewSim(z, time.Now)
		loop := &zoneLoop{
			zone:     z.Name,
			ctrl:     ctrl,
			env:      env,
			src:      src,
			act:      mqtt.Actuator{Publisher: publisher},
			pub:      publisher,
			conn:     publisher,
			tracker:  tracker,
			metrics:  m,
			deadband: cfg.Daemon.Deadband,
			now:      time.Now,
			log:      log.With(zap.String("zone", z.Name)),
		}
		ticker := time.NewTicker(cfg.Daemon.Poll())
		g.Go(func() error {
			defer ticker.Stop()
			defer src.Close()
			return loop.run(gctx, ticker.C)
		})
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var heartbeat <-chan time.Time
	if hb := cfg.Daemon.Heartbeat(); hb > 0 {
		t := time.NewTicker(hb)
		defer t.Stop()
		heartbeat = t.C
	}

	sv := &supervisor{
		log:      log,
		pub:      publisher,
		conn:     publisher,
		tracker:  tracker,
		staleAge: 3 * cfg.Daemon.Poll(),
	}
	reason := sv.run(gctx, sigCh, heartbeat)

	cancel()
	err = g.Wait()
	sv.shutdown(reason)
	return err
}

// parseEval parses "te,rct,ot".
func parseEval(s string) (control.CrispInput, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return control.CrispInput{}, fmt.Errorf("parse eval input %q: want te,rct,ot", s)
	}
	var v [3]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return control.CrispInput{}, fmt.Errorf("parse eval input %q: %w", s, err)
		}
		v[i] = f
	}
	return control.CrispInput{TemperatureError: v[0], RateOfChange: v[1], OutsideTemperature: v[2]}, nil
}

// evaluateOnce runs one guarded inference.
func evaluateOnce(ctrl *control.Controller, env *safety.Envelope, in control.CrispInput, deadband float64) (control.ControlSignal, control.Action, error) {
	if err := env.CheckInput(in); err != nil {
		return 0, "", fmt.Errorf("check input: %w", err)
	}
	sig, err := ctrl.Infer(in)
	if err != nil {
		return 0, "", fmt.Errorf("infer: %w", err)
	}
	if err := env.CheckOutput(sig); err != nil {
		return 0, "", fmt.Errorf("check output: %w", err)
	}
	return sig, control.ActionFor(sig, deadband), nil
}
