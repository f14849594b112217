// Package config holds the stub server configuration.
//
// Values are layered: defaults, then an optional YAML file, then the
// environment, then command line flags. The CLI applies the flags; this
// package covers the rest and turns the result into loader sources and
// engine options.
//
// A configuration file looks like:
//
//	sources:
//	  dirs: [./pacts]
//	  brokerUrl: https://broker.example.com
//	  token: s3cr3t
//	server:
//	  port: 8080
//	engine:
//	  cors: true
//	  providerState: "^user"
//	  providerStateHeaderName: X-Pact-Provider-State
//	log:
//	  level: debug
//	  format: json
package config
