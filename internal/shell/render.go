package shell

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/plexsphere/relayctl/internal/integrity"
	"github.com/plexsphere/relayctl/internal/lifecycle"
	"github.com/plexsphere/relayctl/internal/packaging"
	"github.com/plexsphere/relayctl/internal/portconfig"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

// Markers prefixed to every result line.
func okMark() string   { return green("[OK]") }
func errMark() string  { return red("[ERR]") }
func warnMark() string { return yellow("[WARN]") }

// StatusText colors a status for display.
func StatusText(st packaging.Status) string {
	switch st {
	case packaging.StatusRunning:
		return green(st.String())
	case packaging.StatusStoppedReady, packaging.StatusDisabled:
		return yellow(st.String())
	default:
		return red(st.String())
	}
}

// PortsText returns the port list or a placeholder when none are configured.
func PortsText(cfg portconfig.Config) string {
	if len(cfg.Ports) == 0 {
		return "(none configured)"
	}
	return cfg.Joined()
}

// RenderState prints the header block shown above the menu.
func RenderState(w io.Writer, st lifecycle.State) {
	fmt.Fprintf(w, "%s\n", cyan("================ relayctl ================"))
	fmt.Fprintf(w, "  Service: %s\n", StatusText(st.Status))
	fmt.Fprintf(w, "  Ports:   %s\n", PortsText(st.Config))
	fmt.Fprintf(w, "%s\n", cyan("=========================================="))
}

// RenderDetails prints the configuration table used by "view config" and
// `status --verbose`.
func RenderDetails(w io.Writer, s packaging.Settings, st lifecycle.State, check integrity.CheckResult) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Item", "Value"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	table.Append([]string{"Service", s.ServiceName + " (" + st.Status.String() + ")"})
	table.Append([]string{"Ports", PortsText(st.Config)})
	table.Append([]string{"Config file", s.ConfigFile})
	table.Append([]string{"Unit file", s.UnitFilePath})
	table.Append([]string{"Daemon", s.DaemonPath})
	if check.State != "" {
		table.Append([]string{"Daemon checksum", string(check.State)})
	}
	if check.Source != "" {
		table.Append([]string{"Daemon source", check.Source})
	}
	if !check.Installed.IsZero() {
		table.Append([]string{"Installed", check.Installed.Format(time.RFC3339)})
	}
	table.Render()
}

// Success prints an [OK] line.
func Success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", okMark(), fmt.Sprintf(format, args...))
}

// Warn prints a [WARN] line.
func Warn(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", warnMark(), fmt.Sprintf(format, args...))
}

// Failure prints err with an [ERR] marker, the systemctl output when err
// carries one, and a corrective hint when one applies.
func Failure(w io.Writer, err error) {
	fmt.Fprintf(w, "%s %v\n", errMark(), err)
	var toolErr *packaging.ToolError
	if errors.As(err, &toolErr) && toolErr.Output != "" {
		fmt.Fprintf(w, "      systemctl: %s\n", toolErr.Output)
	}
	if hint := packaging.Hint(err); hint != "" {
		fmt.Fprintf(w, "      hint: %s\n", hint)
	}
}
