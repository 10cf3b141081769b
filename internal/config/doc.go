// Package config provides configuration loading for seopilot.
//
// Values are resolved in this order, later sources winning:
//
//	1. Default()
//	2. a YAML file (seopilot.yaml, configs/seopilot.yaml, /etc/seopilot/seopilot.yaml,
//	   or the path passed to Load)
//	3. SEOPILOT_* environment variables, for example
//	   SEOPILOT_SERVER_PORT=8080
//	   SEOPILOT_LICENSE_SECRET_KEY=...
//	   SEOPILOT_STORE_DRIVER=redis
//	   SEOPILOT_AUTH_SESSION_SECRET=...
//
// Administrator accounts with capability lists can only be declared in YAML.
// A single manage_options account may also come from
// SEOPILOT_AUTH_ADMIN_USERNAME and SEOPILOT_AUTH_ADMIN_PASSWORD_HASH.
package config
