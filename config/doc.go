/*
Package config loads the mailsift configuration from a YAML file, with
secrets coming from the environment or a .env file.

	workers: 100
	unit_timeout: 30s
	dns:
	  nameservers: ["127.0.0.53:53"]
	  timeout: 5s
	smtp:
	  helo: probe.example.org
	  rate_limit: 20
	  burst: 5
	cache:
	  ttl: 1h
	  redis: redis://localhost:6379/0

Settings missing from the file keep their [Default] values.
*/
package config
