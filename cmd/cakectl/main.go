package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/d60-Lab/cakeshop/config"
	"github.com/d60-Lab/cakeshop/internal/bootstrap"
	"github.com/d60-Lab/cakeshop/pkg/logger"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "cakectl",
		Short:        "订单存储运维工具",
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return logger.Init("warn", "console")
		},
	}
	root.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "配置文件路径（默认 ./config/config.yaml）")
	root.AddCommand(migrateCmd(), healthCmd(), ordersCmd(), flushCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// openApp 加载配置并装配组件
func openApp() (*bootstrap.App, error) {
	cfg, err := config.LoadFile(cfgFile)
	if err != nil {
		return nil, err
	}
	return bootstrap.New(cfg)
}
