// Package exporter renders enabled servers as the configuration files MCP
// clients read: the "mcpServers" JSON document used by desktop clients and
// the [mcp_servers.<name>] TOML tables used by CLI agents.
//
// Only the plain environment is exported. Secret values never leave the
// vault.
package exporter
