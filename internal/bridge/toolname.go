package bridge

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fgp-tools/fgp/internal/errors"
)

// ToolPrefix namespaces every bridge tool.
const ToolPrefix = "fgp_"

// Meta-tools the bridge always advertises, independent of daemon availability.
const (
	MetaToolListDaemons = "fgp_list_daemons"
	MetaToolStartDaemon = "fgp_start_daemon"
	MetaToolStopDaemon  = "fgp_stop_daemon"
)

// EncodeToolName builds the MCP tool name for a daemon method. Dots in the
// method name become underscores: "fgp_gmail_messages_list" for gmail's
// messages.list.
func EncodeToolName(service string, method string) string {
	return ToolPrefix + service + "_" + strings.ReplaceAll(method, ".", "_")
}

// DecodeToolName resolves an MCP tool name back to its (service, method)
// pair.
//
// The underscore doubles as the service/method separator and the dot
// replacement, so a service name containing underscores is ambiguous under a
// plain split. Known service names are therefore matched first, longest
// match winning; only a name matching no installed service falls back to
// splitting on the first underscore.
func DecodeToolName(tool string, knownServices []string) (string, string, error) {
	rest := strings.TrimPrefix(tool, ToolPrefix)
	if rest == "" || rest == tool {
		return "", "", fmt.Errorf("%w: %s", errors.ErrInvalidToolName, tool)
	}

	candidates := make([]string, len(knownServices))
	copy(candidates, knownServices)
	sort.Slice(candidates, func(i, j int) bool {
		return len(candidates[i]) > len(candidates[j])
	})

	for _, service := range candidates {
		prefix := service + "_"
		if strings.HasPrefix(rest, prefix) && len(rest) > len(prefix) {
			return service, dotted(rest[len(prefix):]), nil
		}
	}

	parts := strings.SplitN(rest, "_", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: %s", errors.ErrInvalidToolName, tool)
	}

	return parts[0], dotted(parts[1]), nil
}

// dotted converts an underscore-encoded method name back to dotted form.
func dotted(method string) string {
	return strings.ReplaceAll(method, "_", ".")
}
