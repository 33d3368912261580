package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	d "github.com/fjod/payment_relay/domain"
	"github.com/fjod/payment_relay/internal/config"
	"github.com/fjod/payment_relay/internal/signature"
)

// macCmd signs a callback data blob the way the gateway does, which makes it
// possible to replay or hand-craft callbacks against a running relay.
func macCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mac [data]",
		Short: "Compute the callback MAC for a data blob (read from stdin when omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, _ := cmd.Flags().GetString("key")
			if key == "" {
				path, _ := cmd.Flags().GetString("config")
				cfg, err := config.Load(path)
				if err != nil {
					return err
				}
				key = cfg.Gateway.Key2
			}
			if key == "" {
				return errors.New("no callback key: pass --key or set gateway.key2")
			}

			data, err := blobFrom(args, cmd.InOrStdin())
			if err != nil {
				return err
			}

			envelope := d.CallbackEnvelope{
				Data: data,
				MAC:  signature.NewCallbackVerifier(key).Sign(data),
			}
			asEnvelope, _ := cmd.Flags().GetBool("envelope")
			if !asEnvelope {
				fmt.Fprintln(cmd.OutOrStdout(), envelope.MAC)
				return nil
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			return enc.Encode(envelope)
		},
	}

	cmd.Flags().StringP("key", "k", "", "Callback key (defaults to gateway.key2 from config)")
	cmd.Flags().BoolP("envelope", "e", false, "Print the full {data, mac} callback body")

	return cmd
}

func blobFrom(args []string, stdin io.Reader) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	b, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	data := strings.TrimRight(string(b), "\r\n")
	if data == "" {
		return "", errors.New("empty data blob")
	}
	return data, nil
}
