package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/epokhe/kvs/client"
)

func main() {
	var addr string

	root := &cobra.Command{
		Use:          "kvs-client",
		Short:        "talk to a kvs-server",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&addr, "addr", "127.0.0.1:4000", "server address")

	root.AddCommand(
		setCmd(&addr),
		getCmd(&addr),
		removeCmd(&addr),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setCmd(addr *string) *cobra.Command {
	return &cobra.Command{
		Use:  "set <key> <value>",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := client.Dial(*addr)
			if err != nil {
				return err
			}
			defer cli.Close()
			return cli.Set(args[0], args[1])
		},
	}
}

func getCmd(addr *string) *cobra.Command {
	return &cobra.Command{
		Use:  "get <key>",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := client.Dial(*addr)
			if err != nil {
				return err
			}
			defer cli.Close()

			val, ok, err := cli.Get(args[0])
			if err != nil {
				return err
			}
			if !ok {
				fmt.Println("Key not found")
				return nil
			}
			fmt.Println(val)
			return nil
		},
	}
}

func removeCmd(addr *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "rm <key>",
		Aliases: []string{"remove"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := client.Dial(*addr)
			if err != nil {
				return err
			}
			defer cli.Close()

			if err := cli.Remove(args[0]); err != nil {
				if errors.Is(err, client.ErrKeyNotFound) {
					fmt.Println("Key not found")
				}
				return err
			}
			return nil
		},
	}
	return cmd
}
