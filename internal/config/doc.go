// Package config defines and loads the WifiGuard daemon configuration.
//
// The configuration is a single YAML file (default /etc/wifiguard/config.yaml)
// covering the managed interface, polling and hysteresis policy, the hosted
// access point parameters, the HTTP API, and the persistent filesystem paths
// the daemon relies on.
//
// Every numeric policy value (poll intervals, disconnect threshold, settle
// wait) is a configuration field with a documented default rather than a
// compile-time constant. A missing file is not an error: Load returns the
// defaults so a freshly imaged device works out of the box.
//
//	cfg, err := config.Load(config.DefaultPath)
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
