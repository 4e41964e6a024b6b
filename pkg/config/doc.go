/*
Package config loads client configuration from defaults, YAML files and the environment.

# Configuration Architecture

Sources are applied in order, later sources overriding earlier ones:

	┌─────────────────────────────────────────────┐
	│        Environment Variables                │ ← Highest Priority
	│  (ST_*, OS_*, SWIFTCLIENT_*, .env file)     │
	└─────────────────────────────────────────────┘
	                      │
	┌─────────────────────────────────────────────┐
	│         Configuration Files                 │
	│            (YAML format)                    │
	└─────────────────────────────────────────────┘
	                      │
	┌─────────────────────────────────────────────┐
	│           Default Values                    │ ← Lowest Priority
	└─────────────────────────────────────────────┘

A .env file never overrides a variable that is already set.

# Usage Examples

	cfg, err := config.Load("/etc/swiftclient/config.yaml")
	if err != nil {
		log.Fatal(err)
	}
	conn, err := swift.NewFromConfig(cfg)

Configuration file format:

	auth:
	  auth_url: https://identity.example.com/auth/v1.0
	  user: account:user
	  key: secret
	  auth_version: "1.0"
	  options:
	    region_name: RegionOne

	retry:
	  retries: 5
	  starting_backoff: 1s
	  max_backoff: 64s
	  retry_on_ratelimit: false

	network:
	  insecure: false
	  cacert: /etc/ssl/swift-ca.pem
	  connect_timeout: 30s

	transfer:
	  chunk_size: 64K
	  detect_content_type: true

	logging:
	  level: INFO
	  format: text
	  http_debug: false

	metrics:
	  enabled: true
	  namespace: swiftclient
*/
package config
