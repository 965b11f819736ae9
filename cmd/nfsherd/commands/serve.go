package commands

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"
	klog "k8s.io/klog/v2"

	"github.com/nfsherd/nfsherd/pkg/actuator"
	"github.com/nfsherd/nfsherd/pkg/authority"
	"github.com/nfsherd/nfsherd/pkg/ceph"
	"github.com/nfsherd/nfsherd/pkg/httpapi"
	"github.com/nfsherd/nfsherd/pkg/inventory"
	"github.com/nfsherd/nfsherd/pkg/lifecycle"
	"github.com/nfsherd/nfsherd/pkg/reconcile"
	"github.com/nfsherd/nfsherd/pkg/relation"
	"github.com/nfsherd/nfsherd/pkg/topology"
)

func NewServeCmd() *cobra.Command {
	var (
		listen string
		leader bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "run the lifecycle signal daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("listen") {
				cfg.Listen = listen
			}
			if cmd.Flags().Changed("leader") {
				cfg.Leader = leader
			}

			rdb := redis.NewClient(&redis.Options{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			store := relation.NewRedisStore(rdb, cfg.Redis.KeyPrefix)

			inv := inventory.NewClient(&inventory.Conf{
				ApiUrl:   cfg.Cluster.ApiUrl,
				User:     cfg.Cluster.User,
				Password: cfg.Cluster.Password,
			})

			var uni reconcile.Universe
			if len(cfg.Roster) > 0 {
				uni = topology.Roster(cfg.Roster)
			} else {
				uni = inventory.NewLocationUniverse(inv)
			}

			rec := reconcile.New(reconcile.ServiceNFS,
				inv,
				uni,
				topology.NewPeerResolver(store),
				actuator.NewMicroCeph(cfg.ExecTimeout()),
			)

			cephc := ceph.New(cfg.ExecTimeout(), cfg.CephConf)
			orc := lifecycle.New(rec, store, cephc, cephc, inv)

			srv := httpapi.NewServer(orc, authority.Static(cfg.Leader), store, cfg.RequeueInterval())

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			klog.Infof("serving signal api on %s (leader: %v)", cfg.Listen, cfg.Leader)
			return srv.Serve(ctx, cfg.Listen)
		},
	}

	flagset := cmd.PersistentFlags()
	ApplyConfigPath(flagset)
	flagset.StringVar(&listen, "listen", "", "signal api bind address, overrides the config file")
	flagset.BoolVar(&leader, "leader", false, "hold write authority, overrides the config file")

	return cmd
}
