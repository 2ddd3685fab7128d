package cmd

import (
	"fmt"
	"os"

	"github.com/dh1tw/ribbit/modem"
	"github.com/dh1tw/ribbit/waveform"
	"github.com/spf13/cobra"
)

var vectorCmd = &cobra.Command{
	Use:   "vector [flags] [message]",
	Short: "Print the first samples of the frame of a message",
	Long: `Print the first samples of the frame which carries a message.

The modulation is deterministic, so the output can be compared against
other implementations of the waveform. Without a message the payload
"Hello World!\n" is used; its vector is kept in modem/testdata.`,
	RunE: printVector,
}

func init() {
	RootCmd.AddCommand(vectorCmd)
	vectorCmd.Flags().IntP("samples", "k", 16, "number of samples to print")
	vectorCmd.Flags().Bool("hex", false, "the message is a hex encoded payload")
}

func printVector(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		args = []string{"Hello World!\n"}
	}
	isHex, _ := cmd.Flags().GetBool("hex")
	payload, err := payloadFromArgs(args, isHex)
	if err != nil {
		return err
	}

	k, _ := cmd.Flags().GetInt("samples")
	if k < 0 || k > waveform.FrameLength {
		return &parmError{parm: "samples", msg: fmt.Sprintf("allowed values are [0...%d]", waveform.FrameLength)}
	}
	return modem.WriteVector(os.Stdout, payload, k)
}
