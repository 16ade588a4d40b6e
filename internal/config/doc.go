// Package config loads arbor's TOML configuration.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/arbor/config.toml (default)
//  3. If the config file doesn't exist, fall back to defaults
//  4. If the file exists but fields are missing/empty, use defaults
//
// # Keys
//
//	api_url        = "http://localhost:8080/api/v1"
//	token          = ""                 # Girder session token
//	cookie         = ""                 # raw Cookie header holding girderToken
//	cookie_file    = ""                 # file holding that header
//	results_folder = ".results"         # created under the user when missing
//	poll_interval  = "1s"               # Go duration
//	kinds_file     = ""                 # JSONC catalog of extra analysis kinds
//	log_file       = "~/.local/state/arbor/arbor.log"
//	log_level      = "info"
//
// Paths starting with ~ are expanded against the user's home directory.
//
// # Token Resolution
//
// ResolveToken prefers token, then the girderToken cookie found in cookie,
// then the one found in cookie_file. The web client stores its session in that
// cookie, so copying the browser's Cookie header is enough to share a login.
package config
