package packaging

import (
	"fmt"
	"strings"
)

// PortsVariable is the environment variable carrying the port list from the
// configuration file into the daemon's arguments.
const PortsVariable = "PORTS"

// UnitDefinition is the static descriptor registered with systemd. Only the
// daemon arguments vary, and those are bound at service start through the
// environment file rather than written into the unit.
type UnitDefinition struct {
	Description     string
	After           string
	User            string
	Group           string
	ExecPath        string
	EnvironmentFile string
	Restart         string
	RestartSec      string
	WantedBy        string
}

// NewUnitDefinition builds the unit descriptor for the given settings.
// It calls s.ApplyDefaults() to fill in zero-valued fields first.
func NewUnitDefinition(s Settings) UnitDefinition {
	s.ApplyDefaults()
	return UnitDefinition{
		Description:     "relayd tunnel service",
		After:           "network-online.target",
		User:            s.UnitUser,
		Group:           s.UnitGroup,
		ExecPath:        s.DaemonPath,
		EnvironmentFile: s.ConfigFile,
		Restart:         "on-failure",
		RestartSec:      "5s",
		WantedBy:        "multi-user.target",
	}
}

// Render produces the unit file content. $PORTS is left unbraced so systemd
// splits it on whitespace into one argument per port.
func (u UnitDefinition) Render() string {
	var b strings.Builder

	b.WriteString("[Unit]\n")
	fmt.Fprintf(&b, "Description=%s\n", u.Description)
	fmt.Fprintf(&b, "After=%s\n", u.After)
	fmt.Fprintf(&b, "Wants=%s\n", u.After)
	b.WriteString("\n")

	b.WriteString("[Service]\n")
	b.WriteString("Type=simple\n")
	fmt.Fprintf(&b, "User=%s\n", u.User)
	fmt.Fprintf(&b, "Group=%s\n", u.Group)
	fmt.Fprintf(&b, "EnvironmentFile=%s\n", u.EnvironmentFile)
	fmt.Fprintf(&b, "ExecStart=%s $%s\n", u.ExecPath, PortsVariable)
	fmt.Fprintf(&b, "Restart=%s\n", u.Restart)
	fmt.Fprintf(&b, "RestartSec=%s\n", u.RestartSec)
	b.WriteString("LimitNOFILE=65536\n")
	b.WriteString("\n")

	b.WriteString("[Install]\n")
	fmt.Fprintf(&b, "WantedBy=%s\n", u.WantedBy)

	return b.String()
}
