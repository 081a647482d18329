package cmd

import (
	"context"
	"fmt"

	"github.com/MeKo-Tech/robomaze/internal/pathfinder"
	"github.com/spf13/cobra"
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send an encoded route to the robot",
	Long: `Send a previously encoded route (as printed by "robomaze solve") over the
serial link. The payload is checked and normalized before the port is
opened.

Examples:
  robomaze send --payload "0,0;0,1;1,1"
  robomaze send --payload "0,0;0,1" --port /dev/ttyUSB0 --baud 115200
  robomaze send --payload "0,0;0,1" --dry-run`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		payload, _ := cmd.Flags().GetString("payload")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		path, err := pathfinder.DecodeRoute(payload)
		if err != nil {
			return fmt.Errorf("invalid payload: %w", err)
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		sender, err := openSender(cmd, cfg, dryRun)
		if err != nil {
			return err
		}
		defer func() { _ = sender.Close() }()
		if err := sender.Send(ctx, pathfinder.EncodeRoute(path)); err != nil {
			return fmt.Errorf("failed to send route: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().String("payload", "", "encoded route to send")
	sendCmd.Flags().String("port", "", "serial device (default from config)")
	sendCmd.Flags().Int("baud", 0, "serial baud rate (default from config)")
	sendCmd.Flags().Bool("dry-run", false, "print the payload instead of opening the port")
	_ = sendCmd.MarkFlagRequired("payload")
}
