package udfhost

import (
	"fmt"
	"strings"

	"github.com/novadb/udfhost/appconfig"
	"github.com/novadb/udfhost/registry"
)

// gatewayRoutingSegment is the fixed path segment under which the Nova
// Gateway routes UDF traffic for a session.
const gatewayRoutingSegment = "pythonudfs"

// ConnectionInfo is the published summary of a successful serving run: the
// gateway-reachable URL and the functions exposed behind it. It is returned
// by value and never mutated after construction.
type ConnectionInfo struct {
	URL       string                         `json:"url"`
	Functions map[string]registry.Descriptor `json:"functions"`
}

// buildConnectionInfo composes the reachable URL from the gateway endpoint,
// the session's server id, the fixed routing segment, and the app base path.
func buildConnectionInfo(cfg appconfig.Config, functions map[string]registry.Descriptor) *ConnectionInfo {
	endpoint := strings.TrimRight(cfg.GatewayEndpoint, "/")

	basePath := cfg.BasePath
	if basePath != "" && !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	basePath = strings.TrimRight(basePath, "/")

	return &ConnectionInfo{
		URL:       fmt.Sprintf("%s/%s/%s%s", endpoint, cfg.ServerID, gatewayRoutingSegment, basePath),
		Functions: functions,
	}
}
