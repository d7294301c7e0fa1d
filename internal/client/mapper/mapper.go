// Package mapper translates row payloads between local field names
// (camelCase, entity-specific foreign keys) and remote column names
// (snake_case, fixed foreign-key columns). It is pure and stateless; the
// per-table mappings are resolved once at startup.
package mapper

// Unset marks a field that was not provided at all, as opposed to an
// explicit null. MapPayloadToRemote drops Unset values; NormalizePayload
// rewrites them to nil so they serialize as JSON null.
var Unset = unsetValue{}

type unsetValue struct{}

// MapPayloadToRemote renames the payload's keys to their remote column
// names. Keys without a mapping pass through unchanged, as does the whole
// payload for an unknown table. Unset values are dropped, not nulled.
// overrides are shallow-merged last and win over mapped keys.
func MapPayloadToRemote(tableName string, payload map[string]any, overrides map[string]any) map[string]any {
	mapping := localToRemote[tableName]

	out := make(map[string]any, len(payload)+len(overrides))
	for key, value := range payload {
		if value == Unset {
			continue
		}
		if remote, ok := mapping[key]; ok {
			key = remote
		}
		out[key] = value
	}
	for key, value := range overrides {
		out[key] = value
	}
	return out
}

// MapRowToLocal is the inverse key mapping, applied to rows pulled from the
// remote store before they are written locally.
func MapRowToLocal(tableName string, payload map[string]any) map[string]any {
	mapping := remoteToLocal[tableName]

	out := make(map[string]any, len(payload))
	for key, value := range payload {
		if local, ok := mapping[key]; ok {
			key = local
		}
		out[key] = value
	}
	return out
}

// NormalizePayload returns a shallow copy with every Unset value replaced by
// nil. All other values, including zero and empty ones, pass through
// unchanged.
func NormalizePayload(payload map[string]any) map[string]any {
	out := make(map[string]any, len(payload))
	for key, value := range payload {
		if value == Unset {
			out[key] = nil
			continue
		}
		out[key] = value
	}
	return out
}
