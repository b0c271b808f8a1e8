// 命令行入口：
// - serve：加载配置与标签目录，提供 /api/messages RSS 代理
// - opml：将个人主页的关注列表导出为 OPML 订阅文件
// - version：打印版本
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version 可通过 -ldflags "-X main.Version=..." 覆盖。
var Version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globalFlags 为所有子命令共享的持久化参数。
type globalFlags struct {
	configPath string
	logLevel   string
}

func rootCmd() *cobra.Command {
	g := &globalFlags{}
	cmd := &cobra.Command{
		Use:           "rss-scn",
		Short:         "RSS proxy for SAP Community messages",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "settings.yaml", "path to settings.yaml (optional)")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "override LOG_LEVEL (debug, info, warn, error)")

	cmd.AddCommand(serveCmd(g), opmlCmd(g), &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "rss-scn %s\n", Version)
		},
	})
	return cmd
}
