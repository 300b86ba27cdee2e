package params

type WebDaemonConfig struct {
	ListenerConfig
	DataDir string

	// Store causes cleaned traces with an id to be persisted under DataDir.
	Store bool

	// Influx is optional. If nil, runs are not exported.
	Influx *InfluxConfig `json:"-"`
}

func DefaultWebListenerConfig() ListenerConfig {
	return ListenerConfig{
		Network: "tcp",
		Address: "localhost:3000",
	}
}

func DefaultWebDaemonConfig() *WebDaemonConfig {
	return &WebDaemonConfig{
		DataDir:        DefaultDatadirRoot,
		ListenerConfig: DefaultWebListenerConfig(),
		Store:          true,
	}
}

func DefaultTestWebDaemonConfig() *WebDaemonConfig {
	return &WebDaemonConfig{
		DataDir: "",
		ListenerConfig: ListenerConfig{
			Network: "tcp",
			Address: "localhost:3333",
		},
	}
}

// MaxCleanRequestBytes bounds the body of a clean request.
var MaxCleanRequestBytes int64 = 64 << 20
