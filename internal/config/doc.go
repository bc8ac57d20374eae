// Package config reads the tal.yaml project file.
//
// tal.json is accepted as well. Unset fields keep their defaults.
//
//	name: shop
//	server:
//	  port: 3000
//	  host: localhost
//	  scripts: true
//	  maxSessions: 1000
//	source:
//	  dir: templates
//	  template: index.html
//	  data: data.yaml
//	  s3:
//	    bucket: shop-templates
//	    region: eu-west-1
//	session:
//	  attachTimeout: 30s
//	  idleTimeout: 5m
//	log:
//	  level: info
//	  format: json
//	metrics: true
//	tracing: true
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println("Listening on", cfg.Address())
package config
