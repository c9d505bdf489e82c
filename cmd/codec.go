package cmd

import (
	"encoding/hex"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/encodeous/lsr/protocol"
	"github.com/encodeous/lsr/state"
	"github.com/spf13/cobra"
)

var codecName = state.DefaultCodec

var codecCmd = &cobra.Command{
	Use:     "codec",
	Short:   "Encode or decode advertisement payloads",
	Long:    fmt.Sprintf("Encode or decode advertisement payloads. Available codecs: %s", strings.Join(protocol.Names(), ", ")),
	GroupID: "cfg",
}

var encodeCmd = &cobra.Command{
	Use:   "encode <seqno> [name=cost...]",
	Short: "Encode an advertisement payload as hex",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		codec, err := protocol.Lookup(codecName)
		if err != nil {
			return err
		}
		var seqno uint64
		if _, err = fmt.Sscan(args[0], &seqno); err != nil {
			return fmt.Errorf("invalid seqno %q: %w", args[0], err)
		}
		neigh, err := parseNeighbours(args[1:])
		if err != nil {
			return err
		}
		buf, err := codec.Marshal(protocol.LinkState{Seqno: seqno, Neighbours: neigh})
		if err != nil {
			return err
		}
		fmt.Println(hex.EncodeToString(buf))
		return nil
	},
}

var decodeCmd = &cobra.Command{
	Use:   "decode <hex>",
	Short: "Decode a hex advertisement payload",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		codec, err := protocol.Lookup(codecName)
		if err != nil {
			return err
		}
		buf, err := hex.DecodeString(strings.TrimSpace(args[0]))
		if err != nil {
			return err
		}
		ls, err := codec.Unmarshal(buf)
		if err != nil {
			return err
		}
		fmt.Print(formatLinkState(ls))
		return nil
	},
}

func formatLinkState(ls protocol.LinkState) string {
	sb := strings.Builder{}
	sb.WriteString(fmt.Sprintf("seqno: %d\n", ls.Seqno))
	for _, name := range slices.Sorted(maps.Keys(ls.Neighbours)) {
		sb.WriteString(fmt.Sprintf("%s\t%d\n", name, ls.Neighbours[name]))
	}
	return sb.String()
}

func init() {
	rootCmd.AddCommand(codecCmd)
	codecCmd.AddCommand(encodeCmd, decodeCmd)
	codecCmd.PersistentFlags().StringVar(&codecName, "codec", codecName, "payload codec")
}
