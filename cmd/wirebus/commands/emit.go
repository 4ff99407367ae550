package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wirebus/wirebus/pkg/busclient"
)

var (
	emitServer string
	emitSource string
	emitData   string
)

var emitCmd = &cobra.Command{
	Use:   "emit <type>",
	Short: "Publish an event into a running wirebus server",
	Args:  cobra.ExactArgs(1),
	RunE:  runEmit,
}

func init() {
	emitCmd.Flags().StringVar(&emitServer, "server", "http://127.0.0.1:8080", "Server base URL")
	emitCmd.Flags().StringVar(&emitSource, "source", "cli", "Emitter identity")
	emitCmd.Flags().StringVar(&emitData, "data", "", "Event payload as JSON")
}

func runEmit(cmd *cobra.Command, args []string) error {
	var data any
	if emitData != "" {
		if err := json.Unmarshal([]byte(emitData), &data); err != nil {
			return fmt.Errorf("--data is not valid JSON: %w", err)
		}
	}

	client := busclient.New(emitServer)
	if err := client.Emit(cmd.Context(), args[0], emitSource, data); err != nil {
		return err
	}

	fmt.Printf("emitted %s\n", args[0])
	return nil
}
