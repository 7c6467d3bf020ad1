// Package protocol defines the wire contracts shared by the honey.id identity
// service and integrating apps: method codes, roles, error codes, request and
// response payloads, and the endpoint table.
//
// Messages are JSON text frames:
//
//	request:  {"method": <u32>, "params": <payload>}
//	success:  {"params": <payload>}
//	failure:  {"code": <u32>, "params": <message>}
//
// The package has no behavior beyond encoding helpers; it is safe to import
// from any layer.
package protocol
