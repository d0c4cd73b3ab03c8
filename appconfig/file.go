package appconfig

import (
	"os"

	"gopkg.in/yaml.v3"
)

// fileSettings mirrors the subset of settings a fallback YAML file may carry.
// Field names follow the environment variables with the prefix dropped.
type fileSettings struct {
	ListenPort           string `yaml:"app_listen_port"`
	BaseURL              string `yaml:"app_base_url"`
	BasePath             string `yaml:"app_base_path"`
	ServerID             string `yaml:"notebook_server_id"`
	AppToken             string `yaml:"app_token"`
	UserToken            string `yaml:"user_token"`
	IsLocalDev           string `yaml:"is_local_dev"`
	WorkloadType         string `yaml:"workload_type"`
	RunningInteractively string `yaml:"running_interactively"`
	GatewayEnabled       string `yaml:"nova_gateway_enabled"`
	GatewayEndpoint      string `yaml:"nova_gateway_endpoint"`
}

func (s fileSettings) asMap() map[string]string {
	raw := map[string]string{
		EnvListenPort:           s.ListenPort,
		EnvBaseURL:              s.BaseURL,
		EnvBasePath:             s.BasePath,
		EnvServerID:             s.ServerID,
		EnvAppToken:             s.AppToken,
		EnvUserToken:            s.UserToken,
		EnvIsLocalDev:           s.IsLocalDev,
		EnvWorkloadType:         s.WorkloadType,
		EnvRunningInteractively: s.RunningInteractively,
		EnvGatewayEnabled:       s.GatewayEnabled,
		EnvGatewayEndpoint:      s.GatewayEndpoint,
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// withFileFallback layers the optional YAML settings file under env. Values
// set in the environment always shadow the file. An unset EnvConfigFile, an
// unreadable file, or malformed YAML all leave the environment untouched;
// the file is a convenience, not a requirement.
func withFileFallback(env Environ) Environ {
	path, ok := env(EnvConfigFile)
	if !ok || path == "" {
		return env
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return env
	}
	var settings fileSettings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return env
	}
	fallback := settings.asMap()

	return func(key string) (string, bool) {
		if v, ok := env(key); ok && v != "" {
			return v, true
		}
		v, ok := fallback[key]
		return v, ok
	}
}
