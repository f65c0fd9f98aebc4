package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/palemoky/exquisite-corpse/internal/logger"
	"github.com/palemoky/exquisite-corpse/internal/server"
)

const (
	releaseVersion = "0.1.0"
)

func main() {
	opts := &options{}
	cobra.CheckErr(newCmd(opts).Execute())
}

// run 启动服务器并阻塞到收到退出信号
func run(opts *options) error {
	cfg, err := opts.load()
	if err != nil {
		return err
	}

	if err := logger.Init(cfg.Log.File); err != nil {
		return fmt.Errorf("初始化日志失败: %w", err)
	}
	defer logger.Close()

	if cfg.Log.Verbose {
		log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	}

	srv, err := server.NewServer(cfg, releaseVersion)
	if err != nil {
		return fmt.Errorf("创建服务器失败: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errs := make(chan error, 1)
	go func() {
		errs <- srv.Start()
	}()

	log.Printf("🎨 Exquisite Corpse 服务器 v%s 启动中...", releaseVersion)

	select {
	case err := <-errs:
		srv.Shutdown()
		return err
	case <-ctx.Done():
	}

	// 第二次收到信号时不再等待进行中的游戏
	force := make(chan os.Signal, 1)
	signal.Notify(force, syscall.SIGINT, syscall.SIGTERM)
	stop()

	log.Println("正在关闭服务器，等待进行中的游戏结束...")
	done := make(chan struct{})
	go func() {
		srv.GracefulShutdown(cfg.Game.ShutdownTimeoutDuration())
		close(done)
	}()

	select {
	case <-done:
	case <-force:
		log.Println("⚠️ 再次收到退出信号，立即关闭")
		srv.Shutdown()
	}
	return nil
}
