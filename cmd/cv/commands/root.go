package commands

import (
	"fmt"
	"os"

	"curationvault/pkg/client"
	"curationvault/pkg/config"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"google.golang.org/grpc"
)

var (
	cfgFile string

	// 远程连接，第一次用到时建立
	remote *client.CVClient
	// 测试里替换成 bufconn 的 dialer
	dialOptions []grpc.DialOption
)

var rootCmd = &cobra.Command{
	Use:           "cv",
	Short:         "CurationVault: versioned file curation",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if remote == nil {
			return nil
		}
		err := remote.Close()
		remote = nil
		return err
	},
}

// Execute 是入口
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.cv/config.yaml)")

	// 既可以写在 yaml 里，也可以用 flag / CV_SERVER_ADDR / CV_USER_KEY 覆盖
	rootCmd.PersistentFlags().String("server", "", "cv-server address")
	rootCmd.PersistentFlags().String("user", "", "acting user key")
	for key, flag := range map[string]string{"server.addr": "server", "user.key": "user"} {
		if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			fmt.Println("Failed to bind flag:", err)
			os.Exit(1)
		}
	}
}

// initConfig 读取配置文件和环境变量
func initConfig() {
	if err := config.Load(cfgFile); err != nil {
		fmt.Println("Config error:", err)
		os.Exit(1)
	}
}

// actorClient 返回懒加载的远程连接
func actorClient() (*client.CVClient, error) {
	if remote != nil {
		return remote, nil
	}
	addr := viper.GetString("server.addr")
	if addr == "" {
		return nil, fmt.Errorf("server address not set (use --server or server.addr)")
	}
	c, err := client.NewCVClient(addr, dialOptions...)
	if err != nil {
		return nil, err
	}
	remote = c
	return c, nil
}

// userKey 是当前操作者，所有写操作都需要
func userKey() (string, error) {
	u := viper.GetString("user.key")
	if u == "" {
		return "", fmt.Errorf("acting user not set (use --user or user.key)")
	}
	return u, nil
}
