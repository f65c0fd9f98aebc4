package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/palemoky/exquisite-corpse/internal/config"
)

// options 命令行参数，只有显式设置的参数会覆盖配置文件
type options struct {
	configPath string
	host       string
	port       int
	redisAddr  string
	publicURL  string
	logFile    string
	verbose    bool

	flags *pflag.FlagSet
}

// load 读取配置文件并应用命令行与环境变量覆盖
func (o *options) load() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Printf("配置文件 %s 不存在，使用默认配置", o.configPath)
		cfg = config.Default()
	case err != nil:
		return nil, fmt.Errorf("加载配置文件失败: %w", err)
	}

	o.apply(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (o *options) apply(cfg *config.Config) {
	changed := func(name string) bool {
		return o.flags != nil && o.flags.Changed(name)
	}

	if changed("host") {
		cfg.Server.Host = o.host
	}
	if changed("port") {
		cfg.Server.Port = o.port
	}
	if changed("redis") {
		cfg.Redis.Addr = o.redisAddr
	}
	if changed("public-url") {
		cfg.Server.PublicURL = o.publicURL
	}
	if changed("log-file") {
		cfg.Log.File = o.logFile
	}
	if changed("verbose") {
		cfg.Log.Verbose = o.verbose
	}
}

func newCmd(opts *options) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("CORPSE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "corpse-server",
		Short:         "Room server for the Exquisite Corpse drawing game.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts)
		},
	}

	fs := cmd.Flags()
	opts.flags = fs

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&opts.configPath, "config", "c", "configs/config.yaml", "path to config file (env: CORPSE_CONFIG)")
	fs.StringVarP(&opts.host, "host", "b", "0.0.0.0", "address to bind to (env: CORPSE_HOST)")
	fs.IntVarP(&opts.port, "port", "p", 1780, "port to listen on (env: CORPSE_PORT)")
	fs.StringVar(&opts.redisAddr, "redis", "", "redis address for room snapshots, empty to disable (env: CORPSE_REDIS)")
	fs.StringVar(&opts.publicURL, "public-url", "", "external base URL used in room QR codes (env: CORPSE_PUBLIC_URL)")
	fs.StringVar(&opts.logFile, "log-file", "", "write logs to this file instead of stderr (env: CORPSE_LOG_FILE)")
	fs.BoolVarP(&opts.verbose, "verbose", "v", false, "display additional output (env: CORPSE_VERBOSE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("corpse-server v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
