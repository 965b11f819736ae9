package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"

	"github.com/nfsherd/nfsherd/pkg/relation"
	"github.com/nfsherd/nfsherd/pkg/topology"
)

func NewRegisterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "publish this node's public address into the peer topology",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(configPath)
			if err != nil {
				return err
			}
			if ifname == "" {
				return fmt.Errorf("--public-if-name is required")
			}
			host := nodename
			if host == "" {
				host, err = os.Hostname()
				if err != nil {
					return err
				}
			}

			rdb := redis.NewClient(&redis.Options{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			store := relation.NewRedisStore(rdb, cfg.Redis.KeyPrefix)

			return topology.RegisterSelf(context.Background(), store, host, ifname)
		},
	}

	flagset := cmd.PersistentFlags()
	ApplyConfigPath(flagset)
	ApplyNodeName(flagset)
	ApplyIfName(flagset)

	return cmd
}
