// Package store persists server definitions and profiles.
//
// Two backends implement Store: YAMLStore keeps one document per entity in the
// config directory (servers/, profiles/, settings/), PostgresStore keeps them
// in the relay_servers, relay_profiles and relay_settings tables. The default
// profile always exists in both.
package store
