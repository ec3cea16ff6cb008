package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/herbalshop/internal/auth"
	"github.com/example/herbalshop/internal/config"
	"github.com/example/herbalshop/internal/repository/mysql"
	"github.com/example/herbalshop/internal/service"
)

// herbalctl 运维小工具：签发调试令牌、生成审核链接、修改发件设置
func main() {
	var configDir string
	rootCmd := &cobra.Command{Use: "herbalctl", SilenceUsage: true}
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "./config", "config directory")

	load := func() *config.Config {
		cfg, err := config.Load(configDir)
		if err != nil {
			fmt.Fprintln(os.Stderr, "load config:", err)
			os.Exit(1)
		}
		return cfg
	}

	rootCmd.AddCommand(
		tokenCommand(load),
		linkCommand(load),
		settingCommand(load),
	)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func tokenCommand(load func() *config.Config) *cobra.Command {
	var (
		name  string
		admin bool
		ttl   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token [email]",
		Short: "issue a bearer token for local testing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := load()
			tok, err := auth.GenerateToken(&cfg.JWT, auth.Claims{Email: args[0], Name: name, IsAdmin: admin}, ttl)
			if err != nil {
				return err
			}
			fmt.Println(tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().BoolVar(&admin, "admin", false, "grant admin")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

// linkCommand 重新生成一次性审核链接，例如原邮件丢失时
func linkCommand(load func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "link [order|product] [id] [approve|reject|approve-cancellation]",
		Short: "issue a signed single-use action link",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			entity, action := args[0], args[2]
			switch {
			case entity == auth.EntityOrder && (action == auth.ActionApprove || action == auth.ActionReject || action == auth.ActionApproveCancellation):
			case entity == auth.EntityProduct && (action == auth.ActionApprove || action == auth.ActionReject):
			default:
				return fmt.Errorf("unsupported link %s/%s", entity, action)
			}
			id, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid id %q", args[1])
			}
			cfg := load()
			url, err := auth.NewLinks(&cfg.Links, auth.NewMemoryUsedTokens()).URL(entity, id, action)
			if err != nil {
				return err
			}
			fmt.Println(url)
			return nil
		},
	}
}

// settingCommand 直接写入设置表，后台不可用时修改发件账号
func settingCommand(load func() *config.Config) *cobra.Command {
	cmd := &cobra.Command{Use: "setting", Short: "read or write the settings table"}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "get [key]",
			Short: "print a setting (secret masked)",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				svc, err := settingService(load())
				if err != nil {
					return err
				}
				s, err := svc.Get(context.Background(), args[0])
				if err != nil {
					return err
				}
				fmt.Printf("%s=%s\n", s.Key, s.Value)
				return nil
			},
		},
		&cobra.Command{
			Use:   "set [key] [value]",
			Short: "upsert a setting",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				svc, err := settingService(load())
				if err != nil {
					return err
				}
				return svc.Set(context.Background(), args[0], args[1])
			},
		},
	)
	return cmd
}

func settingService(cfg *config.Config) (*service.SettingService, error) {
	db, err := mysql.Init(&cfg.MySQL)
	if err != nil {
		return nil, err
	}
	return service.NewSettingService(mysql.NewSettingRepository(db)), nil
}
