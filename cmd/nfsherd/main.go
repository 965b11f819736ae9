package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	klog "k8s.io/klog/v2"

	"github.com/nfsherd/nfsherd/cmd/nfsherd/commands"
)

func rootCmd() *cobra.Command {
	rootc := &cobra.Command{
		Use:   "nfsherd",
		Short: "maintain bounded NFS export clusters on a storage cluster",
	}

	rootflag := rootc.PersistentFlags()
	klog.InitFlags(nil)
	flag.Parse()
	rootflag.AddGoFlagSet(flag.CommandLine)

	rootc.AddCommand(
		commands.NewServeCmd(),
		commands.NewRegisterCmd(),
	)

	return rootc
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
