package queue

import (
	"fmt"
	"unicode/utf8"

	"github.com/spf13/cobra"
)

var (
	lenCmd = &cobra.Command{
		Use:   "len [connection|data|dht]",
		Short: "Prints the number of pending commands in a queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseQueueID(args[0])
			if err != nil {
				return err
			}
			n, err := bridge.QueueLen(id)
			if err != nil {
				return err
			}
			fmt.Printf("queue=%s, len=%d\n", id, n)
			return nil
		},
	}
	lsCmd = &cobra.Command{
		Use:   "ls [connection|data|dht]",
		Short: "Lists the pending commands in a queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseQueueID(args[0])
			if err != nil {
				return err
			}
			cmds, err := bridge.QueueLs(id)
			if err != nil {
				return err
			}
			if len(cmds) == 0 {
				fmt.Printf("queue=%s is empty\n", id)
				return nil
			}
			for i, c := range cmds {
				fmt.Printf("%-4d%-16s%s\n", i, c.Kind, printable(c.Payload))
			}
			return nil
		},
	}
)

// printable renders a payload as text if it is valid UTF-8 and as hex otherwise
func printable(payload []byte) string {
	if utf8.Valid(payload) {
		return string(payload)
	}
	return fmt.Sprintf("0x%x", payload)
}
