package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/plexsphere/relayctl/internal/packaging"
	"github.com/plexsphere/relayctl/internal/shell"
)

var configurePorts string

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Save the port list and install the service unit",
	Long: "Persist the ports relayd listens on and create and enable the systemd unit\n" +
		"if it does not exist yet. The service is not started. Without --ports the\n" +
		"list is read from standard input.",
	Args: cobra.NoArgs,
	RunE: runConfigure,
}

func init() {
	configureCmd.Flags().StringVar(&configurePorts, "ports", "", "space-separated port list")
	rootCmd.AddCommand(configureCmd)
}

func runConfigure(cmd *cobra.Command, _ []string) error {
	orch, err := newOrchestrator()
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	input := configurePorts
	if !cmd.Flags().Changed("ports") {
		fmt.Fprint(w, "Enter ports (space-separated): ")
		input, err = readLine(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("relayctl configure: %w", err)
		}
	}

	res, err := orch.ConfigureAndInstall(input)
	if err != nil {
		return err
	}
	shell.Success(w, "Ports saved: %s", res.Config.Joined())
	if res.Unit == packaging.UnitCreated {
		shell.Success(w, "Service installed and enabled; run `relayctl start` to start it")
	}
	if res.RestartRequired {
		shell.Warn(w, "Service is running; run `relayctl restart` to apply the new ports")
	}
	return nil
}

// readLine returns the next line of r without surrounding whitespace. End of
// input counts as an empty line.
func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
