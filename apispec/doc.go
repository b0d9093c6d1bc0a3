// Package apispec defines the typed endpoint model shared by the change
// detection and update pipeline.
//
// A [Spec] is the normalized output of the parsing front-end: a title, a
// version label, a base URL and an ordered list of [Endpoint] values. Request
// body schemas are carried as [Node], an immutable JSON value tree built only
// at the parse boundary. Nodes keep document order for display and provide
// [Node.Canonical], the sorted-key compact encoding that fingerprints hash.
//
// Records crossing a process boundary (snapshot files, MCP payloads, the
// spec documents accepted by DecodeSpec) use the field names path, method,
// operationId, requestBody, request_body_schema, parameters, responses and
// fingerprint.
package apispec
