package main

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wippyai/wrap-client/codec"
)

func newEncodeCmd() *cobra.Command {
	var decode bool

	cmd := &cobra.Command{
		Use:   "encode <json|hex>",
		Short: "Convert JSON to msgpack hex, or back with --decode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if decode {
				data, err := hex.DecodeString(args[0])
				if err != nil {
					return fmt.Errorf("decode hex: %w", err)
				}
				text, err := codec.Decode(data)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(text))
				return nil
			}
			out, err := codec.EncodeString(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(out))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&decode, "decode", "d", false, "treat the argument as msgpack hex and print JSON")
	return cmd
}
