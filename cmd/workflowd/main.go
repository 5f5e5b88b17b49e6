package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"

	"github.com/edera-run/workflowd/internal/consumer"
	"github.com/edera-run/workflowd/internal/corelib/logging"
	"github.com/edera-run/workflowd/internal/corelib/otelinit"
	"github.com/edera-run/workflowd/internal/daemon"
	"github.com/edera-run/workflowd/internal/demo"
	"github.com/edera-run/workflowd/internal/locker"
	"github.com/edera-run/workflowd/internal/monitoring"
	"github.com/edera-run/workflowd/internal/storage"
)

// rootCmd runs the demo hashing pipeline end to end: a Prelude module
// that greets once, a Main module that re-seeds a hash/rehash pipeline
// every round, and a Support module that removes the hashed output file.
// The flag surface mirrors original_source/edera/demo/daemon/
// __main__.py's argparse: debug, test, fail, sleep, root.
var rootCmd = &cobra.Command{
	Use:   "workflowd",
	Short: "runs the demo workflow daemon",
	RunE:  run,
}

func init() {
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().Bool("test", false, "project a self-testing copy of the main workflow before executing it")
	rootCmd.PersistentFlags().Bool("fail", false, "seed a deliberately failing task into the main workflow")
	rootCmd.PersistentFlags().Duration("sleep", 0, "artificial delay before CreateDirectory completes, for exercising concurrency")
	rootCmd.PersistentFlags().String("root", "./workflowd-demo", "root directory the demo reads and writes under")
	rootCmd.PersistentFlags().String("storage", "memory", "target cache / monitor backend: memory or bolt")
	rootCmd.PersistentFlags().String("data", "./workflowd-demo/data.db", "bbolt database path, used when --storage=bolt")
	rootCmd.PersistentFlags().String("url", "https://raw.githubusercontent.com/golang/go/master/README.md", "URL the demo downloads and hashes")

	for _, name := range []string{"debug", "test", "fail", "sleep", "root", "storage", "data", "url"} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			panic(err)
		}
	}
	viper.SetEnvPrefix("workflowd")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

func run(cmd *cobra.Command, _ []string) error {
	if viper.GetBool("debug") {
		os.Setenv("WORKFLOWD_LOG_LEVEL", "debug")
	}
	logger := logging.Init("workflowd")
	slog.SetDefault(monitoring.InstallSink(logger))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdownTrace := otelinit.InitTracer(ctx, "workflowd")
	shutdownMetrics, _, _ := otelinit.InitMetrics(ctx, "workflowd")
	defer func() {
		ctxSd, c2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer c2()
		otelinit.Flush(ctxSd, shutdownTrace)
		_ = shutdownMetrics(ctxSd)
	}()

	root := viper.GetString("root")
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("workflowd: create root %q: %w", root, err)
	}

	cache, monitor, err := openStorage()
	if err != nil {
		return err
	}

	lockDir, err := locker.NewDirectory(root + "/locks")
	if err != nil {
		return fmt.Errorf("workflowd: locker: %w", err)
	}

	fs := &demo.FileSystem{Root: root}

	monitorConsumer := consumer.NewBounded(256, func(element string) error {
		slog.Debug("monitor update", "element", element)
		return nil
	})

	d := &daemon.Daemon{
		Prelude: &demo.Prelude{},
		Main: &demo.Main{
			FS:              fs,
			InputFile:       "input.txt",
			OutputDirectory: "output",
			URL:             viper.GetString("url"),
			Fail:            viper.GetBool("fail"),
			Sleep:           viper.GetDuration("sleep"),
		},
		Support:             &demo.Support{FS: fs, Dir: "output"},
		Cache:               cache,
		Monitor:             monitor,
		Locker:              lockDir,
		MonitorConsumer:     monitorConsumer,
		InterruptionTimeout: time.Minute,
		InstanceID:          uuid.NewString(),
	}
	if viper.GetBool("test") {
		d.Autotester = &daemon.Autotester{Cache: storage.NewMemory()}
	}

	slog.Info("workflowd starting", "root", root, "storage", viper.GetString("storage"), "instance", d.InstanceID)
	err = d.Run(ctx)
	if err != nil && err != context.Canceled && err != context.DeadlineExceeded {
		return err
	}
	slog.Info("workflowd stopped")
	return nil
}

func openStorage() (cache, monitor storage.Storage, err error) {
	switch viper.GetString("storage") {
	case "bolt":
		meter := otel.GetMeterProvider().Meter("workflowd-storage")
		base, openErr := storage.OpenBolt(viper.GetString("data"), meter)
		if openErr != nil {
			return nil, nil, fmt.Errorf("workflowd: open bolt storage: %w", openErr)
		}
		return storage.NewEmbedded(base, "cache"), storage.NewEmbedded(base, "monitor"), nil
	default:
		return storage.NewMemory(), storage.NewMemory(), nil
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("workflowd exited with error", "error", err)
		os.Exit(1)
	}
}
