/*
Package config loads flowedit settings from YAML or JSON files and the
environment.

# Overview

Config wraps a map[string]any with typed accessors that fall back to a
default on missing keys or type mismatches. Keys may be dotted paths into
nested sections, which is how YAML documents decode:

	client:
	  base_url: http://flows.internal:5001
	  timeout: 5s
	  retry:
	    max_attempts: 4
	server:
	  addr: ":5001"
	  store: sqlite
	  dsn: /var/lib/flowstore/flows.db

	cfg, err := config.Load("flowedit.yaml")
	timeout := cfg.Duration("client.timeout", 10*time.Second)

# Environment

Load applies FLOWEDIT_* variables on top of the file. FLOWEDIT_SERVER_STORE
sets "server.store"; FLOWEDIT_BASE_URL sets the client base URL. Values
from the environment are strings; the numeric, bool and duration accessors
parse them.

File values may reference the environment as ${VAR} or ${VAR:-fallback}:

	server:
	  dsn: ${FLOWSTORE_DATA:-/var/lib/flowstore}/flows.db

A reference to an undefined variable without a fallback fails the load.

# Typed Settings

ClientFromConfig and ServerFromConfig produce validated structs for the
remote client and the flowstore process.

# Thread Safety

Config is safe for concurrent reads once loading is complete. Set and
ApplyEnv mutate the underlying map and must not race with readers.
*/
package config
