// Package appconfig resolves the environment-derived configuration for a UDF
// app serving instance.
//
// Resolution is a pure function of an injected environment lookup: it either
// produces a fully populated Config or fails with an error naming every
// missing setting. Gateway availability is validated separately via
// Config.CheckGateway so that callers can distinguish a broken environment
// from a deliberately disabled gateway.
package appconfig

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Environment variable names consumed by Resolve.
const (
	EnvListenPort           = "NOVADB_APP_LISTEN_PORT"
	EnvBaseURL              = "NOVADB_APP_BASE_URL"
	EnvBasePath             = "NOVADB_APP_BASE_PATH"
	EnvServerID             = "NOVADB_NOTEBOOK_SERVER_ID"
	EnvAppToken             = "NOVADB_APP_TOKEN"
	EnvUserToken            = "NOVADB_USER_TOKEN"
	EnvIsLocalDev           = "NOVADB_IS_LOCAL_DEV"
	EnvWorkloadType         = "NOVADB_WORKLOAD_TYPE"
	EnvRunningInteractively = "NOVADB_RUNNING_INTERACTIVELY"
	EnvGatewayEnabled       = "NOVADB_NOVA_GATEWAY_ENABLED"
	EnvGatewayEndpoint      = "NOVADB_NOVA_GATEWAY_ENDPOINT"

	// EnvConfigFile optionally points at a YAML file whose values fill in
	// settings absent from the environment. The environment always wins.
	EnvConfigFile = "NOVADB_APP_CONFIG_FILE"
)

// WorkloadType classifies the runtime the app is hosted in.
type WorkloadType string

const (
	// WorkloadInteractiveNotebook marks an interactive notebook session.
	// It is the only workload type that resolves to interactive mode.
	WorkloadInteractiveNotebook WorkloadType = "InteractiveNotebook"

	// WorkloadBatchJob marks a scheduled, non-interactive execution.
	WorkloadBatchJob WorkloadType = "BatchJob"
)

// Environ looks up a single environment setting. It matches the shape of
// os.LookupEnv so the process environment can be injected directly, while
// tests supply a map-backed lookup.
type Environ func(key string) (string, bool)

// Config is the resolved, immutable configuration for one serving instance.
type Config struct {
	// ListenPort is the TCP port the serving instance binds.
	ListenPort int

	// BaseURL is the absolute URL the app is reachable at locally.
	BaseURL string

	// BasePath is the URL path segment the app is mounted under.
	BasePath string

	// ServerID identifies this notebook/session to the gateway.
	ServerID string

	// AppToken authenticates requests arriving at the app.
	AppToken string

	// UserToken authenticates the owning user against platform services.
	UserToken string

	// IsLocalDev disables token enforcement for local development.
	IsLocalDev bool

	// WorkloadType is the raw workload classification from the environment.
	WorkloadType WorkloadType

	// Interactive reports whether function registration should be refreshed
	// on every serving run.
	Interactive bool

	// GatewayEnabled reports whether the Nova Gateway will route to the app.
	GatewayEnabled bool

	// GatewayEndpoint is the gateway's externally reachable URL.
	GatewayEndpoint string
}

// MissingSettingsError reports every required setting absent from the
// environment in a single failure.
type MissingSettingsError struct {
	Keys []string
}

func (e *MissingSettingsError) Error() string {
	return fmt.Sprintf("Missing required settings: %s", strings.Join(e.Keys, ", "))
}

// GatewayUnavailableError reports that the Nova Gateway precondition is
// unmet. It is deliberately distinct from MissingSettingsError: the rest of
// the configuration may be perfectly valid.
type GatewayUnavailableError struct{}

func (e *GatewayUnavailableError) Error() string {
	return "Python UDFs are not available if Nova Gateway is not enabled"
}

// Resolve reads the environment through env and produces a Config, or fails
// with a MissingSettingsError naming all absent required settings. It never
// partially succeeds.
func Resolve(env Environ) (Config, error) {
	if env == nil {
		return Config{}, fmt.Errorf("appconfig: environment lookup is nil")
	}
	env = withFileFallback(env)

	var missing []string
	lookup := func(key string) string {
		v, ok := env(key)
		if !ok || v == "" {
			missing = append(missing, key)
		}
		return v
	}

	rawPort := lookup(EnvListenPort)
	cfg := Config{
		BaseURL:   lookup(EnvBaseURL),
		BasePath:  lookup(EnvBasePath),
		ServerID:  lookup(EnvServerID),
		AppToken:  lookup(EnvAppToken),
		UserToken: lookup(EnvUserToken),
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		return Config{}, &MissingSettingsError{Keys: missing}
	}

	port, err := strconv.Atoi(rawPort)
	if err != nil || port <= 0 {
		return Config{}, fmt.Errorf("appconfig: invalid %s %q: must be a positive integer", EnvListenPort, rawPort)
	}
	cfg.ListenPort = port

	cfg.IsLocalDev = truthy(optional(env, EnvIsLocalDev))
	cfg.WorkloadType = WorkloadType(optional(env, EnvWorkloadType))
	cfg.Interactive = cfg.WorkloadType == WorkloadInteractiveNotebook ||
		truthy(optional(env, EnvRunningInteractively))

	cfg.GatewayEndpoint = optional(env, EnvGatewayEndpoint)
	cfg.GatewayEnabled = cfg.GatewayEndpoint != "" && gatewayFlagAllows(env)

	return cfg, nil
}

// CheckGateway validates the gateway precondition. It is evaluated
// independently of Resolve so the caller reports it even when every other
// setting is present and correct.
func (c Config) CheckGateway() error {
	if !c.GatewayEnabled {
		return &GatewayUnavailableError{}
	}
	return nil
}

func optional(env Environ, key string) string {
	v, _ := env(key)
	return v
}

// gatewayFlagAllows treats an unset enabled flag as permissive; only an
// explicit falsy value disables the gateway when an endpoint is configured.
func gatewayFlagAllows(env Environ) bool {
	v, ok := env(EnvGatewayEnabled)
	if !ok || v == "" {
		return true
	}
	return truthy(v)
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "t", "true", "y", "yes", "on":
		return true
	}
	return false
}
