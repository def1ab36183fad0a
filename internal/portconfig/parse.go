// Package portconfig persists the daemon's port list in the PORTS environment
// file that systemd reads through EnvironmentFile=.
package portconfig

import (
	"bufio"
	"bytes"
	"strings"
)

// Key is the only assignment the configuration file carries.
const Key = "PORTS"

// Config is the persisted configuration. Ports are free-form tokens passed to
// the daemon verbatim; they are not validated as numbers.
type Config struct {
	Ports []string
}

// Empty returns a Config with a non-nil, empty port list.
func Empty() Config {
	return Config{Ports: []string{}}
}

// ParsePorts splits operator input on whitespace.
func ParsePorts(input string) []string {
	ports := strings.Fields(input)
	if ports == nil {
		return []string{}
	}
	return ports
}

// Joined returns the ports as a single space-separated string.
func (c Config) Joined() string {
	return strings.Join(c.Ports, " ")
}

// Equal reports whether both configs carry the same ports in the same order.
func (c Config) Equal(other Config) bool {
	if len(c.Ports) != len(other.Ports) {
		return false
	}
	for i := range c.Ports {
		if c.Ports[i] != other.Ports[i] {
			return false
		}
	}
	return true
}

// Line is a line of the configuration file that Parse did not accept.
type Line struct {
	Number int
	Text   string
	Reason string
}

// Parse reads KEY=VALUE assignments. Nothing is evaluated: blank lines and
// comments are skipped, PORTS is the only recognized key, and anything else is
// returned as ignored. When PORTS appears more than once the last one wins,
// matching how systemd reads an environment file. Lines have no length limit.
func Parse(data []byte) (Config, []Line) {
	cfg := Empty()
	var ignored []Line

	r := bufio.NewReader(bytes.NewReader(data))
	for n := 1; ; n++ {
		// A bytes.Reader only ever fails with io.EOF.
		raw, err := r.ReadString('\n')
		if raw != "" {
			if ports, skip := parseLine(n, raw); skip != nil {
				ignored = append(ignored, *skip)
			} else if ports != nil {
				cfg.Ports = ports
			}
		}
		if err != nil {
			break
		}
	}
	return cfg, ignored
}

// parseLine returns the ports assigned on one line, nil when the line carries
// no assignment, or the reason the line is ignored.
func parseLine(n int, raw string) ([]string, *Line) {
	line := strings.TrimSpace(raw)
	if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
		return nil, nil
	}

	key, value, ok := strings.Cut(line, "=")
	if !ok {
		return nil, &Line{Number: n, Text: line, Reason: "not an assignment"}
	}
	key = strings.TrimSpace(strings.TrimPrefix(key, "export "))
	if key != Key {
		return nil, &Line{Number: n, Text: line, Reason: "unrecognized key"}
	}

	value, ok = unquote(strings.TrimSpace(value))
	if !ok {
		return nil, &Line{Number: n, Text: line, Reason: "unterminated quote"}
	}
	return ParsePorts(value), nil
}

// unquote strips one pair of matching surrounding quotes. No escapes are
// interpreted inside the value.
func unquote(v string) (string, bool) {
	if v == "" {
		return v, true
	}
	q := v[0]
	if q != '"' && q != '\'' {
		return v, true
	}
	if len(v) < 2 || v[len(v)-1] != q {
		return "", false
	}
	return v[1 : len(v)-1], true
}

// Format renders cfg in the environment-file format read by Parse and systemd.
func Format(cfg Config) []byte {
	var b strings.Builder
	b.WriteString("# Managed by relayctl. Space-separated ports passed to relayd.\n")
	b.WriteString(Key)
	b.WriteString(`="`)
	b.WriteString(cfg.Joined())
	b.WriteString("\"\n")
	return []byte(b.String())
}
