// Package udfhost manages the serving lifecycle for user-defined functions
// exposed through the Nova Gateway.
//
// A Host is the process-wide coordinator: callers export functions, then ask
// the host to serve them. Each StartServing invocation resolves the
// environment-derived configuration, tears down any serving instance the
// process already runs, optionally reclaims the port from a process left
// behind by a dead session, starts a fresh instance, waits until it is
// accepting connections, and returns a ConnectionInfo describing the
// gateway-reachable URL and the exposed functions. At most one serving
// instance is ever active per host.
//
// # Getting Started
//
//	host, err := udfhost.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer host.Shutdown(context.Background())
//
//	hello, err := udfhost.NewUDF("hello",
//	    registry.Signature{Returns: "TEXT"},
//	    func(ctx context.Context, args []any) (any, error) {
//	        return "hello", nil
//	    })
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := host.Export(hello); err != nil {
//	    log.Fatal(err)
//	}
//
//	info, err := host.StartServing(ctx, udfhost.WithKillExistingServer(true))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(info.URL)
//
// # Configuration
//
// Configuration comes from the environment (see package appconfig for the
// variable names) with an optional YAML fallback file. Resolution fails with
// a single error naming every missing setting; a disabled or unconfigured
// Nova Gateway is reported as a distinct error since the rest of the
// environment may be perfectly valid.
//
// # Error Handling
//
// Failures surface as *HostError values carrying an operation and a kind
// (configuration, gateway, dependency, startup, shutdown, internal), and are
// compatible with errors.Is and errors.As.
package udfhost
